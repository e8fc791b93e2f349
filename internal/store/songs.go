package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Song represents a cataloged audio file. The primary key persists
// across path moves and tag edits; filename is the library-relative path.
type Song struct {
	ID          int64
	Filename    string
	AlbumID     int64
	ArtistID    int64
	GroupID     sql.NullInt64
	ConductorID sql.NullInt64
	ComposerID  sql.NullInt64
	Title       string
	NormTitle   string
	TrackNum    int
	Year        int
	Length      int
	Bitrate     int
	Mode        string
	Filetype    string
	Size        int64
	SHA256      string
	TimeAdded   time.Time
	TimeUpdated int64 // source file mtime at last import/update
}

// BaseDir returns the directory portion of the song's relative path,
// "." for files at the library root
func (s *Song) BaseDir() string {
	idx := strings.LastIndexByte(s.Filename, '/')
	if idx < 0 {
		return "."
	}
	return s.Filename[:idx]
}

const songCols = `id, filename, album_id, artist_id, group_id, conductor_id,
	composer_id, title, normtitle, tracknum, year, length, bitrate, mode,
	filetype, size, sha256sum, time_added, time_updated`

func scanSong(row interface{ Scan(...any) error }) (*Song, error) {
	sg := &Song{}
	err := row.Scan(&sg.ID, &sg.Filename, &sg.AlbumID, &sg.ArtistID,
		&sg.GroupID, &sg.ConductorID, &sg.ComposerID,
		&sg.Title, &sg.NormTitle, &sg.TrackNum, &sg.Year, &sg.Length,
		&sg.Bitrate, &sg.Mode, &sg.Filetype, &sg.Size, &sg.SHA256,
		&sg.TimeAdded, &sg.TimeUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}
	return sg, nil
}

// InsertSong inserts a new song and sets its ID
func (s *Store) InsertSong(sg *Song) error {
	result, err := s.db.Exec(`
		INSERT INTO songs (filename, album_id, artist_id, group_id, conductor_id,
			composer_id, title, normtitle, tracknum, year, length, bitrate, mode,
			filetype, size, sha256sum, time_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sg.Filename, sg.AlbumID, sg.ArtistID, sg.GroupID, sg.ConductorID,
		sg.ComposerID, sg.Title, sg.NormTitle, sg.TrackNum, sg.Year, sg.Length,
		sg.Bitrate, sg.Mode, sg.Filetype, sg.Size, sg.SHA256, sg.TimeUpdated)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	sg.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get song ID: %w", err)
	}

	return nil
}

// UpdateSong persists a song's mutable fields
func (s *Store) UpdateSong(sg *Song) error {
	_, err := s.db.Exec(`
		UPDATE songs
		SET filename = ?, album_id = ?, artist_id = ?, group_id = ?,
			conductor_id = ?, composer_id = ?, title = ?, normtitle = ?,
			tracknum = ?, year = ?, length = ?, bitrate = ?, mode = ?,
			filetype = ?, size = ?, sha256sum = ?, time_updated = ?
		WHERE id = ?
	`, sg.Filename, sg.AlbumID, sg.ArtistID, sg.GroupID, sg.ConductorID,
		sg.ComposerID, sg.Title, sg.NormTitle, sg.TrackNum, sg.Year, sg.Length,
		sg.Bitrate, sg.Mode, sg.Filetype, sg.Size, sg.SHA256, sg.TimeUpdated,
		sg.ID)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}
	return nil
}

// UpdateSongFilename moves a song to a new relative path, preserving its
// primary key and every other field
func (s *Store) UpdateSongFilename(id int64, filename string) error {
	_, err := s.db.Exec(`UPDATE songs SET filename = ? WHERE id = ?`, filename, id)
	if err != nil {
		return fmt.Errorf("failed to update song filename: %w", err)
	}
	return nil
}

// DeleteSong removes a song record
func (s *Store) DeleteSong(id int64) error {
	_, err := s.db.Exec(`DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	return nil
}

// GetSongByFilename retrieves a song by its relative path
func (s *Store) GetSongByFilename(filename string) (*Song, error) {
	return scanSong(s.db.QueryRow(
		`SELECT `+songCols+` FROM songs WHERE filename = ?`, filename))
}

// AllSongs returns every song ordered by filename
func (s *Store) AllSongs() ([]*Song, error) {
	rows, err := s.db.Query(`SELECT ` + songCols + ` FROM songs ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

// AlbumSongs returns an album's songs ordered by track number, then path
func (s *Store) AlbumSongs(albumID int64) ([]*Song, error) {
	rows, err := s.db.Query(
		`SELECT `+songCols+` FROM songs WHERE album_id = ? ORDER BY tracknum, filename`,
		albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query album songs: %w", err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

// SongsInDir returns the songs directly inside one directory (not in
// subdirectories). dir is a library-relative path, "." for the root.
func (s *Store) SongsInDir(dir string) ([]*Song, error) {
	var rows *sql.Rows
	var err error
	if dir == "." || dir == "" {
		rows, err = s.db.Query(
			`SELECT ` + songCols + ` FROM songs WHERE filename NOT LIKE '%/%' ORDER BY filename`)
	} else {
		rows, err = s.db.Query(
			`SELECT `+songCols+` FROM songs
			 WHERE filename LIKE ? || '/%' AND filename NOT LIKE ? || '/%/%'
			 ORDER BY filename`, dir, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query songs in dir: %w", err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

func collectSongs(rows *sql.Rows) ([]*Song, error) {
	var songs []*Song
	for rows.Next() {
		sg, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, sg)
	}
	return songs, rows.Err()
}

// CountSongs returns the number of songs in the catalog
func (s *Store) CountSongs() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return count, nil
}

// TotalSongBytes returns the combined size of every cataloged file
func (s *Store) TotalSongBytes() (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(size), 0) FROM songs`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum song sizes: %w", err)
	}
	return total, nil
}
