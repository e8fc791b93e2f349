package bundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFile(t *testing.T, base, rel string) {
	t.Helper()
	path := filepath.Join(base, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("data:"+rel), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

// fixture builds an album with songs spread across two subdirectories
// and an associated art file
func fixture(t *testing.T, s *store.Store, base string) *store.Album {
	t.Helper()

	a := &store.Artist{Name: "Artist", Prefix: "The", NormName: "artist"}
	if err := s.InsertArtist(a); err != nil {
		t.Fatalf("failed to insert artist: %v", err)
	}
	al := &store.Album{ArtistID: a.ID, Name: "Big Album", NormName: "big album"}
	if err := s.InsertAlbum(al); err != nil {
		t.Fatalf("failed to insert album: %v", err)
	}

	files := []string{
		"Artist/Album/CD1/01.mp3",
		"Artist/Album/CD2/01.mp3",
	}
	for i, rel := range files {
		writeFile(t, base, rel)
		sg := &store.Song{
			Filename: rel,
			AlbumID:  al.ID,
			ArtistID: a.ID,
			Title:    "Track",
			TrackNum: i + 1,
			Length:   120 + i,
		}
		if err := s.InsertSong(sg); err != nil {
			t.Fatalf("failed to insert song: %v", err)
		}
	}

	writeFile(t, base, "Artist/Album/cover.jpg")
	if err := s.SetAlbumArt(al.ID, "Artist/Album/cover.jpg", "image/jpeg", "jpg", 1); err != nil {
		t.Fatalf("failed to set art: %v", err)
	}
	al.ArtFilename = "Artist/Album/cover.jpg"

	return al
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Artist Name", "Artist_Name"},
		{"AC/DC", "ACDC"},
		{"Meat Loaf: Live", "Meat_Loaf_Live"},
		{"plain", "plain"},
		{"dots.and-dashes_ok", "dots.and-dashes_ok"},
	}
	for _, tt := range tests {
		if got := SafeFilename(tt.in); got != tt.want {
			t.Errorf("SafeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestZipCreate(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	outDir := t.TempDir()
	al := fixture(t, s, base)

	z, err := NewZipper(s, base, outDir, "https://example.com/zips/", nil)
	if err != nil {
		t.Fatalf("failed to create zipper: %v", err)
	}

	entries, filename, err := z.Create(al)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}
	if filename != "The_Artist_-_Big_Album.zip" {
		t.Errorf("unexpected zip filename %q", filename)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 2 songs and the art file, got %d entries", len(entries))
	}

	r, err := zip.OpenReader(filepath.Join(outDir, filename))
	if err != nil {
		t.Fatalf("failed to open zip: %v", err)
	}
	defer r.Close()

	got := make(map[string]bool)
	for _, f := range r.File {
		got[f.Name] = true
	}
	for _, want := range []string{
		"Artist/Album/CD1/01.mp3",
		"Artist/Album/CD2/01.mp3",
		"Artist/Album/cover.jpg",
	} {
		if !got[want] {
			t.Errorf("expected %q in the archive", want)
		}
	}

	if u := z.URL(filename); u != "https://example.com/zips/The_Artist_-_Big_Album.zip" {
		t.Errorf("unexpected download URL %q", u)
	}

	// a second request finds the existing archive instead of rebuilding
	_, filename2, err := z.Create(al)
	var exists *ExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("expected ExistsError, got %v", err)
	}
	if filename2 != filename || exists.Filename != filename {
		t.Errorf("expected the existing name to be reported, got %q", exists.Filename)
	}
	if exists.ModTime.IsZero() {
		t.Error("expected the existing archive's timestamp")
	}
}

func TestZipRequiresConfiguration(t *testing.T) {
	s := testStore(t)
	if _, err := NewZipper(s, t.TempDir(), "", "https://example.com/", nil); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("expected invalid-config without an output directory, got %v", err)
	}
	if _, err := NewZipper(s, t.TempDir(), t.TempDir(), "", nil); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("expected invalid-config without a base URL, got %v", err)
	}
}

func TestZipPre1980Timestamps(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	outDir := t.TempDir()
	al := fixture(t, s, base)

	old := time.Date(1975, 6, 1, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(base, "Artist", "Album", "CD1", "01.mp3")
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}

	z, err := NewZipper(s, base, outDir, "https://example.com/zips", nil)
	if err != nil {
		t.Fatalf("failed to create zipper: %v", err)
	}
	_, filename, err := z.Create(al)
	if err != nil {
		t.Fatalf("failed to create zip: %v", err)
	}

	r, err := zip.OpenReader(filepath.Join(outDir, filename))
	if err != nil {
		t.Fatalf("failed to open zip: %v", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == "Artist/Album/CD1/01.mp3" && f.Modified.Year() < 1980 {
			t.Errorf("expected the pre-1980 timestamp to be substituted, got %v", f.Modified)
		}
	}
}

func TestWriteM3U(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, base)

	entries, err := AlbumEntries(s, al)
	if err != nil {
		t.Fatalf("failed to build entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	var buf bytes.Buffer
	if err := WriteM3U(&buf, "https://example.com/media/", entries); err != nil {
		t.Fatalf("failed to write playlist: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "#EXTM3U" {
		t.Errorf("expected the extended header, got %q", lines[0])
	}
	if lines[1] != "#EXTINF:120,The Artist - Track" {
		t.Errorf("unexpected info line %q", lines[1])
	}
	if lines[2] != "https://example.com/media/Artist/Album/CD1/01.mp3" {
		t.Errorf("unexpected media line %q", lines[2])
	}
	if len(lines) != 5 {
		t.Errorf("expected 5 lines, got %d", len(lines))
	}
}

func TestMediaURLEscaping(t *testing.T) {
	got := MediaURL("https://example.com/media", "An Artist/Al bum/01 song.mp3")
	want := "https://example.com/media/An%20Artist/Al%20bum/01%20song.mp3"
	if got != want {
		t.Errorf("MediaURL = %q, want %q", got, want)
	}
}
