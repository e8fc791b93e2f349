package art

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
)

const jpegQuality = 90

// ThumbnailCache derives and caches one resolution-specific JPEG per
// (album, size class). Regeneration is lazy: a stale row is replaced on
// the next request, never eagerly, and concurrent requests for the same
// row upsert rather than duplicate.
type ThumbnailCache struct {
	base  string
	st    *store.Store
	sizes map[string]int
}

// NewThumbnailCache creates a cache serving the given size classes
func NewThumbnailCache(base string, st *store.Store, sizes map[string]int) *ThumbnailCache {
	return &ThumbnailCache{base: base, st: st, sizes: sizes}
}

// GetOrCreate returns the thumbnail bytes for an album and size class.
// Unknown sizes, miscellaneous albums and albums without art map to
// util.ErrNotFound. A vanished source file clears the album's art
// association before reporting not found.
func (c *ThumbnailCache) GetOrCreate(al *store.Album, size string) ([]byte, error) {
	res, ok := c.sizes[size]
	if !ok {
		return nil, fmt.Errorf("unknown thumbnail size %q: %w", size, util.ErrNotFound)
	}
	if al.Miscellaneous || !al.HasArt() {
		return nil, fmt.Errorf("no art for album %q: %w", al.Name, util.ErrNotFound)
	}

	cached, err := c.st.GetThumbnail(al.ID, size)
	if err != nil {
		return nil, err
	}
	if cached != nil && cached.FromMtime == al.ArtMtime && cached.Resolution == res {
		return cached.Image, nil
	}

	abs := filepath.Join(c.base, filepath.FromSlash(al.ArtFilename))
	img, err := imaging.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
			rel := al.ArtFilename
			if cerr := c.st.ClearAlbumArt(al.ID); cerr != nil {
				return nil, cerr
			}
			if cerr := c.st.DeleteThumbnails(al.ID); cerr != nil {
				return nil, cerr
			}
			al.ArtFilename, al.ArtMime, al.ArtExt, al.ArtMtime = "", "", "", 0
			return nil, fmt.Errorf("art file %s vanished: %w", rel, util.ErrNotFound)
		}
		return nil, fmt.Errorf("cannot identify image file %s: %w", abs, err)
	}

	thumb := imaging.Thumbnail(img, res, res, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if err := c.st.UpsertThumbnail(&store.Thumbnail{
		AlbumID:    al.ID,
		Size:       size,
		Resolution: res,
		FromMtime:  al.ArtMtime,
		Image:      buf.Bytes(),
	}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
