// Package bundle builds downloadable album archives and playlists.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
)

// ExistsError signals that an album's zip was already built. Existence
// on disk is proof of a prior successful, atomic completion; callers
// serve the existing file instead of rebuilding.
type ExistsError struct {
	Filename string
	ModTime  time.Time
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("zipfile %s already exists (created %s)",
		e.Filename, e.ModTime.Format(time.RFC1123))
}

// Zipper bundles albums into deterministic zip archives under a
// configured output directory.
type Zipper struct {
	base    string
	outDir  string
	baseURL string
	st      *store.Store
	events  *report.EventLogger
}

// NewZipper creates a Zipper. Both the output directory and the public
// base URL must be configured; zip downloads are unsupported otherwise.
func NewZipper(st *store.Store, base, outDir, baseURL string, events *report.EventLogger) (*Zipper, error) {
	if outDir == "" || baseURL == "" {
		return nil, fmt.Errorf("zip downloads are not supported without zipfile_path and zipfile_url: %w",
			util.ErrInvalidConfig)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create zip directory: %w", err)
	}
	return &Zipper{base: base, outDir: outDir, baseURL: baseURL, st: st, events: events}, nil
}

var unsafeFilenameRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SafeFilename maps a display name to a filesystem-safe form: spaces
// become underscores, everything else outside a conservative set is
// dropped
func SafeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	return unsafeFilenameRe.ReplaceAllString(s, "")
}

// Filename returns the deterministic archive name for an album
func Filename(artist *store.Artist, al *store.Album) string {
	return fmt.Sprintf("%s_-_%s.zip", SafeFilename(artist.Display()), SafeFilename(al.Name))
}

// URL returns the public download URL for an archive name
func (z *Zipper) URL(filename string) string {
	return strings.TrimSuffix(z.baseURL, "/") + "/" + filename
}

// Create builds an album's archive and returns the bundled
// library-relative paths and the archive name. An archive that already
// exists on disk returns an ExistsError carrying its name and
// timestamp. The archive is written to a temp file and renamed into
// place, so a partially written zip is never observable.
func (z *Zipper) Create(al *store.Album) ([]string, string, error) {
	artist, err := z.st.GetArtist(al.ArtistID)
	if err != nil {
		return nil, "", err
	}
	if artist == nil {
		return nil, "", fmt.Errorf("album %d has no artist: %w", al.ID, util.ErrNotFound)
	}

	filename := Filename(artist, al)
	dest := filepath.Join(z.outDir, filename)

	if info, err := os.Stat(dest); err == nil {
		return nil, filename, &ExistsError{Filename: filename, ModTime: info.ModTime()}
	}

	songs, err := z.st.AlbumSongs(al.ID)
	if err != nil {
		return nil, "", err
	}
	if len(songs) == 0 {
		return nil, "", fmt.Errorf("album %q has no songs: %w", al.Name, util.ErrNotFound)
	}

	var entries []string
	for _, sg := range songs {
		entries = append(entries, sg.Filename)
	}
	if al.HasArt() {
		entries = append(entries, al.ArtFilename)
	}

	tmp := dest + ".tmp"
	if err := z.write(tmp, entries); err != nil {
		os.Remove(tmp)
		return nil, "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return nil, "", fmt.Errorf("failed to finalize zip: %w", err)
	}

	z.events.Log(&report.Event{
		Status: report.StatusInfo,
		Event:  report.EventZip,
		Path:   filename,
		Album:  al.Name,
	})

	return entries, filename, nil
}

func (z *Zipper) write(path string, entries []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create zip: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, rel := range entries {
		if err := z.addFile(zw, rel); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zip: %w", err)
	}
	return f.Close()
}

func (z *Zipper) addFile(zw *zip.Writer, rel string) error {
	abs := filepath.Join(z.base, filepath.FromSlash(rel))

	src, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", rel, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %s: %w", rel, err)
	}
	hdr.Name = rel
	hdr.Method = zip.Deflate

	// the zip format cannot represent timestamps before 1980
	if info.ModTime().Year() < 1980 {
		hdr.Modified = time.Now()
	}

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s to zip: %w", rel, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to write %s to zip: %w", rel, err)
	}
	return nil
}
