package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Artist represents a cataloged artist. The same entity serves all four
// song roles (artist, group, conductor, composer).
type Artist struct {
	ID        int64
	Name      string
	Prefix    string
	NormName  string
	Various   bool
	TimeAdded time.Time
}

// Display returns the artist's full display name including any prefix
func (a *Artist) Display() string {
	if a.Prefix != "" {
		return a.Prefix + " " + a.Name
	}
	return a.Name
}

const artistCols = `id, name, prefix, normname, various, time_added`

func scanArtist(row interface{ Scan(...any) error }) (*Artist, error) {
	a := &Artist{}
	err := row.Scan(&a.ID, &a.Name, &a.Prefix, &a.NormName, &a.Various, &a.TimeAdded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}
	return a, nil
}

// InsertArtist inserts a new artist and sets its ID
func (s *Store) InsertArtist(a *Artist) error {
	result, err := s.db.Exec(`
		INSERT INTO artists (name, prefix, normname, various)
		VALUES (?, ?, ?, ?)
	`, a.Name, a.Prefix, a.NormName, a.Various)
	if err != nil {
		return fmt.Errorf("failed to insert artist: %w", err)
	}

	a.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get artist ID: %w", err)
	}

	return nil
}

// GetArtist retrieves an artist by ID
func (s *Store) GetArtist(id int64) (*Artist, error) {
	return scanArtist(s.db.QueryRow(
		`SELECT `+artistCols+` FROM artists WHERE id = ?`, id))
}

// GetArtistByNorm retrieves an artist by its normalized name
func (s *Store) GetArtistByNorm(normname string) (*Artist, error) {
	return scanArtist(s.db.QueryRow(
		`SELECT `+artistCols+` FROM artists WHERE normname = ?`, normname))
}

// AllArtists returns every artist ordered by ID
func (s *Store) AllArtists() ([]*Artist, error) {
	rows, err := s.db.Query(`SELECT ` + artistCols + ` FROM artists ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []*Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// UpdateArtistName updates an artist's display name and prefix
func (s *Store) UpdateArtistName(id int64, name, prefix string) error {
	_, err := s.db.Exec(`UPDATE artists SET name = ?, prefix = ? WHERE id = ?`,
		name, prefix, id)
	if err != nil {
		return fmt.Errorf("failed to update artist name: %w", err)
	}
	return nil
}

// DeleteArtist removes an artist record
func (s *Store) DeleteArtist(id int64) error {
	_, err := s.db.Exec(`DELETE FROM artists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete artist: %w", err)
	}
	return nil
}

// EnsureVariousArtist makes sure the reserved Various sentinel exists.
// Returns the sentinel and whether it had to be created.
func (s *Store) EnsureVariousArtist() (*Artist, bool, error) {
	a, err := s.db.Query(`SELECT `+artistCols+` FROM artists WHERE various = 1 LIMIT 1`)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query various artist: %w", err)
	}
	defer a.Close()

	if a.Next() {
		existing, err := scanArtist(a)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	va := &Artist{Name: VariousName, NormName: "various", Various: true}
	if err := s.InsertArtist(va); err != nil {
		return nil, false, err
	}
	return va, true, nil
}

// ArtistSongRefs counts the songs referencing an artist in any role
func (s *Store) ArtistSongRefs(id int64) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM songs
		WHERE artist_id = ? OR group_id = ? OR conductor_id = ? OR composer_id = ?
	`, id, id, id, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count artist song refs: %w", err)
	}
	return count, nil
}

// ArtistAlbumRefs counts the albums owned by an artist
func (s *Store) ArtistAlbumRefs(id int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM albums WHERE artist_id = ?`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count artist album refs: %w", err)
	}
	return count, nil
}

// CountArtists returns the number of artists in the catalog
func (s *Store) CountArtists() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM artists`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count artists: %w", err)
	}
	return count, nil
}
