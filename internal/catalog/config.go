// Package catalog implements the reconciliation engine keeping the
// artist/album/song catalog synchronized with the music library on disk.
package catalog

import (
	"fmt"

	"github.com/franz/music-catalog/internal/util"
)

// Thumbnail size classes
const (
	SizeAlbum = "album"
	SizeList  = "list"
)

// Config carries the per-invocation settings of a batch pass. It is
// loaded once by the caller and passed explicitly; the engine holds no
// global state.
type Config struct {
	// BasePath is the library root every stored path is relative to
	BasePath string

	// MediaURL is the public base URL for media files, used by M3U
	// playlists
	MediaURL string

	// ZipPath and ZipURL configure zip bundling. Both must be set for
	// zip downloads to be supported.
	ZipPath string
	ZipURL  string

	// ArtSizes maps thumbnail size classes to pixel resolutions
	ArtSizes map[string]int
}

// DefaultArtSizes returns the built-in thumbnail resolution presets
func DefaultArtSizes() map[string]int {
	return map[string]int{
		SizeAlbum: 300,
		SizeList:  75,
	}
}

// Validate checks required settings and fills defaulted ones
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("base_path must be set: %w", util.ErrInvalidConfig)
	}
	if c.ArtSizes == nil {
		c.ArtSizes = DefaultArtSizes()
	}
	for size, res := range c.ArtSizes {
		if res <= 0 {
			return fmt.Errorf("art size %q has invalid resolution %d: %w",
				size, res, util.ErrInvalidConfig)
		}
	}
	return nil
}
