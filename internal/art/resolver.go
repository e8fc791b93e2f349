// Package art associates cover images with albums and serves cached,
// resolution-specific thumbnails.
package art

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Resolver finds and ranks candidate cover images for albums. During
// ordinary passes an existing association is kept unless its file
// vanished or changed; only Refresh re-ranks from scratch.
type Resolver struct {
	base   string
	st     *store.Store
	stream report.Stream
	events *report.EventLogger
}

// NewResolver creates a Resolver rooted at the library base path
func NewResolver(base string, st *store.Store, stream report.Stream, events *report.EventLogger) *Resolver {
	return &Resolver{base: base, st: st, stream: stream, events: events}
}

func (r *Resolver) emit(status report.Status, format string, args ...any) {
	report.Emit(r.stream, status, format, args...)
}

// Sync re-checks an album's art association under the ordinary-pass
// policy: rescan when the album has no art or the associated file is
// gone, re-identify when the file's mtime changed, otherwise leave the
// association alone even if a better-ranked candidate appeared.
func (r *Resolver) Sync(al *store.Album) error {
	if al.Miscellaneous {
		return nil
	}

	if !al.HasArt() {
		return r.rescan(al)
	}

	abs := filepath.Join(r.base, filepath.FromSlash(al.ArtFilename))
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return r.rescan(al)
		}
		r.emit(report.StatusError, "Art file found but not readable: %s", al.ArtFilename)
		return nil
	}

	if info.ModTime().Unix() == al.ArtMtime {
		return nil
	}

	// same file, new content: re-identify and store the detected type
	mime, ext, derr := identify(abs)
	if derr != nil {
		r.emit(report.StatusError, "Unknown image type found: %s", al.ArtFilename)
		return nil
	}
	return r.associate(al, al.ArtFilename, mime, ext, info.ModTime().Unix())
}

// Refresh re-ranks every candidate from scratch and associates the best
// decodable one, clearing the association when none qualifies
func (r *Resolver) Refresh(al *store.Album) error {
	if al.Miscellaneous {
		return nil
	}
	al.ArtFilename = ""
	return r.rescan(al)
}

// rescan associates the best-ranked decodable candidate, or clears the
// association when none is found
func (r *Resolver) rescan(al *store.Album) error {
	cands, err := r.candidates(al)
	if err != nil {
		return err
	}

	for _, rel := range cands {
		abs := filepath.Join(r.base, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			r.emit(report.StatusError, "Art file found but not readable: %s", rel)
			continue
		}
		mime, ext, err := identify(abs)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				r.emit(report.StatusError, "Art file found but not readable: %s", rel)
			} else {
				r.emit(report.StatusError, "Unknown image type found: %s", rel)
			}
			continue
		}
		return r.associate(al, rel, mime, ext, info.ModTime().Unix())
	}

	if al.HasArt() {
		if err := r.st.ClearAlbumArt(al.ID); err != nil {
			return err
		}
		// thumbnails were derived from the art that just went away
		if err := r.st.DeleteThumbnails(al.ID); err != nil {
			return err
		}
		al.ArtFilename, al.ArtMime, al.ArtExt, al.ArtMtime = "", "", "", 0
		r.emit(report.StatusInfo, "Removed vanished album art for \"%s\"", al.Name)
	}
	return nil
}

func (r *Resolver) associate(al *store.Album, rel, mime, ext string, mtime int64) error {
	if err := r.st.SetAlbumArt(al.ID, rel, mime, ext, mtime); err != nil {
		return err
	}
	al.ArtFilename, al.ArtMime, al.ArtExt, al.ArtMtime = rel, mime, ext, mtime
	r.emit(report.StatusInfo, "Set art for album \"%s\": %s", al.Name, rel)
	r.events.LogArt(al.Name, rel)
	return nil
}

// candidates lists the album's candidate images best-first. Candidates
// come from every directory holding one of the album's songs plus the
// immediate parent of each, never further up.
func (r *Resolver) candidates(al *store.Album) ([]string, error) {
	songs, err := r.st.AlbumSongs(al.ID)
	if err != nil {
		return nil, err
	}

	dirs := make(map[string]bool)
	for _, sg := range songs {
		dir := sg.BaseDir()
		dirs[dir] = true
		if dir != "." {
			parent := path.Dir(dir)
			dirs[parent] = true
		}
	}

	var cands []string
	for dir := range dirs {
		abs := filepath.Join(r.base, filepath.FromSlash(dir))
		entries, err := os.ReadDir(abs)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			rel := entry.Name()
			if dir != "." {
				rel = dir + "/" + entry.Name()
			}
			cands = append(cands, rel)
		}
	}

	sort.Slice(cands, func(i, j int) bool {
		ti, tj := rankTier(cands[i]), rankTier(cands[j])
		if ti != tj {
			return ti < tj
		}
		ei, ej := rankExt(cands[i]), rankExt(cands[j])
		if ei != ej {
			return ei < ej
		}
		return cands[i] < cands[j]
	})
	return cands, nil
}

// rankTier orders candidates by filename convention: an exact "cover.*"
// beats a "cover-" prefix beats anything else
func rankTier(rel string) int {
	base := strings.ToLower(path.Base(rel))
	stem := strings.TrimSuffix(base, path.Ext(base))
	switch {
	case stem == "cover":
		return 0
	case strings.HasPrefix(base, "cover-"):
		return 1
	}
	return 2
}

// rankExt prefers png over jpg over gif within a tier
func rankExt(rel string) int {
	switch strings.ToLower(path.Ext(rel)) {
	case ".png":
		return 0
	case ".jpg", ".jpeg":
		return 1
	}
	return 2
}

// identify decodes an image header and returns the detected mime type
// and canonical extension, regardless of the on-disk filename
func identify(abs string) (mime, ext string, err error) {
	f, err := os.Open(abs)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", "", fmt.Errorf("cannot identify image file %s: %w", abs, err)
	}

	switch format {
	case "jpeg":
		return "image/jpeg", "jpg", nil
	case "png":
		return "image/png", "png", nil
	case "gif":
		return "image/gif", "gif", nil
	}
	return "", "", fmt.Errorf("cannot identify image file %s: unsupported format %q", abs, format)
}
