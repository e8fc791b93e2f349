package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Album represents a cataloged album, owned by a single artist (possibly
// the Various sentinel). Derived state (live, miscellaneous, year, art)
// is recomputed at the end of every pass that touches the album.
type Album struct {
	ID            int64
	ArtistID      int64
	Name          string
	NormName      string
	Year          int
	Live          bool
	Miscellaneous bool
	ArtFilename   string
	ArtMime       string
	ArtExt        string
	ArtMtime      int64
	TimeAdded     time.Time
}

// HasArt reports whether the album currently has an art association
func (a *Album) HasArt() bool {
	return a.ArtFilename != ""
}

const albumCols = `id, artist_id, name, normname, year, live, miscellaneous,
	art_filename, art_mime, art_ext, art_mtime, time_added`

func scanAlbum(row interface{ Scan(...any) error }) (*Album, error) {
	a := &Album{}
	err := row.Scan(&a.ID, &a.ArtistID, &a.Name, &a.NormName, &a.Year,
		&a.Live, &a.Miscellaneous,
		&a.ArtFilename, &a.ArtMime, &a.ArtExt, &a.ArtMtime, &a.TimeAdded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}
	return a, nil
}

// InsertAlbum inserts a new album and sets its ID
func (s *Store) InsertAlbum(a *Album) error {
	result, err := s.db.Exec(`
		INSERT INTO albums (artist_id, name, normname, year, live, miscellaneous)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ArtistID, a.Name, a.NormName, a.Year, a.Live, a.Miscellaneous)
	if err != nil {
		return fmt.Errorf("failed to insert album: %w", err)
	}

	a.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get album ID: %w", err)
	}

	return nil
}

// GetAlbum retrieves an album by ID
func (s *Store) GetAlbum(id int64) (*Album, error) {
	return scanAlbum(s.db.QueryRow(
		`SELECT `+albumCols+` FROM albums WHERE id = ?`, id))
}

// GetAlbumByArtistNorm retrieves an album by owning artist and normalized name
func (s *Store) GetAlbumByArtistNorm(artistID int64, normname string) (*Album, error) {
	return scanAlbum(s.db.QueryRow(
		`SELECT `+albumCols+` FROM albums WHERE artist_id = ? AND normname = ?`,
		artistID, normname))
}

// AllAlbums returns every album ordered by ID
func (s *Store) AllAlbums() ([]*Album, error) {
	rows, err := s.db.Query(`SELECT ` + albumCols + ` FROM albums ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// AlbumsByArtist returns an artist's albums ordered by ID
func (s *Store) AlbumsByArtist(artistID int64) ([]*Album, error) {
	rows, err := s.db.Query(
		`SELECT `+albumCols+` FROM albums WHERE artist_id = ? ORDER BY id`, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

// UpdateAlbum persists an album's mutable fields
func (s *Store) UpdateAlbum(a *Album) error {
	_, err := s.db.Exec(`
		UPDATE albums
		SET artist_id = ?, name = ?, normname = ?, year = ?, live = ?, miscellaneous = ?
		WHERE id = ?
	`, a.ArtistID, a.Name, a.NormName, a.Year, a.Live, a.Miscellaneous, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}
	return nil
}

// SetAlbumArt records an album's art association
func (s *Store) SetAlbumArt(albumID int64, filename, mime, ext string, mtime int64) error {
	_, err := s.db.Exec(`
		UPDATE albums SET art_filename = ?, art_mime = ?, art_ext = ?, art_mtime = ?
		WHERE id = ?
	`, filename, mime, ext, mtime, albumID)
	if err != nil {
		return fmt.Errorf("failed to set album art: %w", err)
	}
	return nil
}

// ClearAlbumArt removes an album's art association
func (s *Store) ClearAlbumArt(albumID int64) error {
	return s.SetAlbumArt(albumID, "", "", "", 0)
}

// DeleteAlbum removes an album record and its cached thumbnails
func (s *Store) DeleteAlbum(id int64) error {
	return s.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM album_art WHERE album_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete album thumbnails: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM albums WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete album: %w", err)
		}
		return nil
	})
}

// AlbumSongCount counts the songs referencing an album
func (s *Store) AlbumSongCount(albumID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM songs WHERE album_id = ?`, albumID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count album songs: %w", err)
	}
	return count, nil
}

// AlbumPrimaryArtists returns the distinct primary-artist IDs of an
// album's songs (group/conductor/composer roles are ignored)
func (s *Store) AlbumPrimaryArtists(albumID int64) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT artist_id FROM songs WHERE album_id = ? ORDER BY artist_id
	`, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query album artists: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan artist ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AlbumFirstYear returns the first non-zero year among an album's songs
// in primary-key order, or 0 when no song carries a year
func (s *Store) AlbumFirstYear(albumID int64) (int, error) {
	var year int
	err := s.db.QueryRow(`
		SELECT year FROM songs WHERE album_id = ? AND year > 0 ORDER BY id LIMIT 1
	`, albumID).Scan(&year)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query album year: %w", err)
	}
	return year, nil
}

// RepointSongs moves every song from one album to another. Used when a
// merge collapses two albums that came to share owner and key.
func (s *Store) RepointSongs(fromAlbumID, toAlbumID int64) error {
	_, err := s.db.Exec(`UPDATE songs SET album_id = ? WHERE album_id = ?`,
		toAlbumID, fromAlbumID)
	if err != nil {
		return fmt.Errorf("failed to repoint songs: %w", err)
	}
	return nil
}

// CountAlbums returns the number of albums in the catalog
func (s *Store) CountAlbums() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM albums`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count albums: %w", err)
	}
	return count, nil
}
