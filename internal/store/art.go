package store

import (
	"database/sql"
	"fmt"
)

// Thumbnail is a cached, resolution-specific JPEG rendition of an
// album's art. Exactly one row exists per (album, size class).
type Thumbnail struct {
	AlbumID    int64
	Size       string
	Resolution int
	FromMtime  int64
	Image      []byte
}

// GetThumbnail retrieves the cached thumbnail for an album and size class
func (s *Store) GetThumbnail(albumID int64, size string) (*Thumbnail, error) {
	t := &Thumbnail{}
	err := s.db.QueryRow(`
		SELECT album_id, size, resolution, from_mtime, image
		FROM album_art WHERE album_id = ? AND size = ?
	`, albumID, size).Scan(&t.AlbumID, &t.Size, &t.Resolution, &t.FromMtime, &t.Image)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thumbnail: %w", err)
	}
	return t, nil
}

// UpsertThumbnail stores a thumbnail, replacing any previous row for the
// same (album, size). Concurrent regeneration can race; the conflict
// clause keeps the row unique either way.
func (s *Store) UpsertThumbnail(t *Thumbnail) error {
	_, err := s.db.Exec(`
		INSERT INTO album_art (album_id, size, resolution, from_mtime, image)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(album_id, size) DO UPDATE SET
			resolution = excluded.resolution,
			from_mtime = excluded.from_mtime,
			image = excluded.image
	`, t.AlbumID, t.Size, t.Resolution, t.FromMtime, t.Image)
	if err != nil {
		return fmt.Errorf("failed to upsert thumbnail: %w", err)
	}
	return nil
}

// DeleteThumbnails removes every cached thumbnail for an album
func (s *Store) DeleteThumbnails(albumID int64) error {
	_, err := s.db.Exec(`DELETE FROM album_art WHERE album_id = ?`, albumID)
	if err != nil {
		return fmt.Errorf("failed to delete thumbnails: %w", err)
	}
	return nil
}
