package art

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/music-catalog/internal/report"
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

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func writeImage(t *testing.T, base, rel, format string, w, h int) {
	t.Helper()

	path := filepath.Join(base, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()

	img := testImage(w, h)
	switch format {
	case "png":
		err = png.Encode(f, img)
	case "jpeg":
		err = jpeg.Encode(f, img, nil)
	case "gif":
		err = gif.Encode(f, img, nil)
	default:
		t.Fatalf("unknown format %q", format)
	}
	if err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

// fixture creates an artist, an album and one song under dir
func fixture(t *testing.T, s *store.Store, dir string) *store.Album {
	t.Helper()

	a := &store.Artist{Name: "Artist", NormName: "artist"}
	if err := s.InsertArtist(a); err != nil {
		t.Fatalf("failed to insert artist: %v", err)
	}
	al := &store.Album{ArtistID: a.ID, Name: "Album", NormName: "album"}
	if err := s.InsertAlbum(al); err != nil {
		t.Fatalf("failed to insert album: %v", err)
	}
	sg := &store.Song{
		Filename: dir + "/01.mp3",
		AlbumID:  al.ID,
		ArtistID: a.ID,
		Title:    "One",
	}
	if err := s.InsertSong(sg); err != nil {
		t.Fatalf("failed to insert song: %v", err)
	}
	return al
}

func TestRanking(t *testing.T) {
	tests := []struct {
		name string
		tier int
		ext  int
	}{
		{"cover.png", 0, 0},
		{"Cover.JPG", 0, 1},
		{"cover.gif", 0, 2},
		{"cover-front.png", 1, 0},
		{"cover-back.jpeg", 1, 1},
		{"folder.png", 2, 0},
		{"band.jpg", 2, 1},
	}
	for _, tt := range tests {
		if got := rankTier(tt.name); got != tt.tier {
			t.Errorf("rankTier(%q) = %d, want %d", tt.name, got, tt.tier)
		}
		if got := rankExt(tt.name); got != tt.ext {
			t.Errorf("rankExt(%q) = %d, want %d", tt.name, got, tt.ext)
		}
	}
}

func TestSyncPicksBestCandidate(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album")

	writeImage(t, base, "Artist/Album/zz.png", "png", 10, 10)
	writeImage(t, base, "Artist/Album/cover-front.png", "png", 10, 10)
	writeImage(t, base, "Artist/Album/cover.jpg", "jpeg", 10, 10)

	r := NewResolver(base, s, nil, nil)
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if al.ArtFilename != "Artist/Album/cover.jpg" {
		t.Errorf("expected the exact cover name to win, got %q", al.ArtFilename)
	}
	if al.ArtMime != "image/jpeg" || al.ArtExt != "jpg" {
		t.Errorf("unexpected detected type: %s/%s", al.ArtMime, al.ArtExt)
	}
	if al.ArtMtime == 0 {
		t.Error("expected the art mtime to be recorded")
	}
}

func TestSyncFindsParentDirArt(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album/CD1")

	writeImage(t, base, "Artist/Album/cover.png", "png", 10, 10)

	r := NewResolver(base, s, nil, nil)
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if al.ArtFilename != "Artist/Album/cover.png" {
		t.Errorf("expected art from the parent directory, got %q", al.ArtFilename)
	}
}

func TestSyncDoesNotAutoPromote(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album")

	writeImage(t, base, "Artist/Album/folder.jpg", "jpeg", 10, 10)

	r := NewResolver(base, s, nil, nil)
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if al.ArtFilename != "Artist/Album/folder.jpg" {
		t.Fatalf("expected the only candidate to associate, got %q", al.ArtFilename)
	}

	// a strictly better name appears later
	writeImage(t, base, "Artist/Album/cover.png", "png", 10, 10)

	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if al.ArtFilename != "Artist/Album/folder.jpg" {
		t.Errorf("ordinary pass must not re-rank, got %q", al.ArtFilename)
	}

	if err := r.Refresh(al); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if al.ArtFilename != "Artist/Album/cover.png" {
		t.Errorf("forced refresh should re-rank, got %q", al.ArtFilename)
	}
}

func TestSyncClearsVanishedArt(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album")

	writeImage(t, base, "Artist/Album/cover.png", "png", 10, 10)

	r := NewResolver(base, s, nil, nil)
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !al.HasArt() {
		t.Fatal("expected art to associate")
	}

	if err := os.Remove(filepath.Join(base, "Artist", "Album", "cover.png")); err != nil {
		t.Fatalf("failed to remove art: %v", err)
	}
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if al.HasArt() {
		t.Errorf("expected the association to clear, got %q", al.ArtFilename)
	}

	stored, err := s.GetAlbum(al.ID)
	if err != nil {
		t.Fatalf("failed to get album: %v", err)
	}
	if stored.HasArt() {
		t.Error("expected the stored association to clear too")
	}
}

func TestDetectedTypeWinsOverExtension(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album")

	// PNG content behind a .jpg name
	path := filepath.Join(base, "Artist", "Album", "cover.jpg")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(10, 10)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	r := NewResolver(base, s, nil, nil)
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if al.ArtFilename != "Artist/Album/cover.jpg" {
		t.Errorf("the on-disk filename stays, got %q", al.ArtFilename)
	}
	if al.ArtMime != "image/png" || al.ArtExt != "png" {
		t.Errorf("expected the detected type to be stored, got %s/%s", al.ArtMime, al.ArtExt)
	}
}

func TestUndecodableCandidateSkipped(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album")

	path := filepath.Join(base, "Artist", "Album", "cover.png")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	writeImage(t, base, "Artist/Album/folder.jpg", "jpeg", 10, 10)

	col := &report.Collector{}
	r := NewResolver(base, s, col.Stream, nil)
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if al.ArtFilename != "Artist/Album/folder.jpg" {
		t.Errorf("expected the decodable candidate to win, got %q", al.ArtFilename)
	}
	found := false
	for _, m := range col.Messages(report.StatusError) {
		if m == "Unknown image type found: Artist/Album/cover.png" {
			found = true
		}
	}
	if !found {
		t.Error("expected an unknown-image error line")
	}
}

func TestMiscellaneousNeverGetsArt(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album")
	al.Miscellaneous = true

	writeImage(t, base, "Artist/Album/cover.png", "png", 10, 10)

	r := NewResolver(base, s, nil, nil)
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if al.HasArt() {
		t.Error("miscellaneous albums must never receive art")
	}
}

func thumbRowCount(t *testing.T, s *store.Store, albumID int64) int {
	t.Helper()
	var count int
	err := s.DB().QueryRow(`SELECT COUNT(*) FROM album_art WHERE album_id = ?`, albumID).Scan(&count)
	if err != nil {
		t.Fatalf("failed to count thumbnail rows: %v", err)
	}
	return count
}

func TestThumbnailCache(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album")

	writeImage(t, base, "Artist/Album/cover.png", "png", 400, 300)

	r := NewResolver(base, s, nil, nil)
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	cache := NewThumbnailCache(base, s, map[string]int{"album": 300, "list": 75})

	first, err := cache.GetOrCreate(al, "album")
	if err != nil {
		t.Fatalf("failed to create thumbnail: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected thumbnail bytes")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("failed to decode thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected a JPEG thumbnail, got %q", format)
	}
	if cfg.Width != 300 || cfg.Height != 300 {
		t.Errorf("expected a 300x300 square, got %dx%d", cfg.Width, cfg.Height)
	}

	// second request is served from the cache, bit-identical
	second, err := cache.GetOrCreate(al, "album")
	if err != nil {
		t.Fatalf("failed to get cached thumbnail: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("expected cached bytes to be identical")
	}
	if n := thumbRowCount(t, s, al.ID); n != 1 {
		t.Errorf("expected exactly one row, got %d", n)
	}

	// a changed source mtime regenerates into the same row
	ts := time.Now().Add(time.Hour)
	path := filepath.Join(base, "Artist", "Album", "cover.png")
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("failed to bump mtime: %v", err)
	}
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if _, err := cache.GetOrCreate(al, "album"); err != nil {
		t.Fatalf("failed to regenerate thumbnail: %v", err)
	}
	if n := thumbRowCount(t, s, al.ID); n != 1 {
		t.Errorf("expected the regeneration to upsert a single row, got %d", n)
	}

	row, err := s.GetThumbnail(al.ID, "album")
	if err != nil {
		t.Fatalf("failed to get thumbnail row: %v", err)
	}
	if row.FromMtime != al.ArtMtime {
		t.Errorf("expected from_mtime to follow the source, got %d != %d", row.FromMtime, al.ArtMtime)
	}
}

func TestThumbnailNotFoundCases(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album")

	cache := NewThumbnailCache(base, s, map[string]int{"album": 300})

	if _, err := cache.GetOrCreate(al, "poster"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected not-found for an unknown size, got %v", err)
	}
	if _, err := cache.GetOrCreate(al, "album"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected not-found without art, got %v", err)
	}

	al.Miscellaneous = true
	al.ArtFilename = "Artist/Album/cover.png"
	if _, err := cache.GetOrCreate(al, "album"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected not-found for a miscellaneous album, got %v", err)
	}
}

func TestThumbnailVanishedSourceClearsArt(t *testing.T) {
	s := testStore(t)
	base := t.TempDir()
	al := fixture(t, s, "Artist/Album")

	writeImage(t, base, "Artist/Album/cover.png", "png", 50, 50)

	r := NewResolver(base, s, nil, nil)
	if err := r.Sync(al); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if err := os.Remove(filepath.Join(base, "Artist", "Album", "cover.png")); err != nil {
		t.Fatalf("failed to remove art: %v", err)
	}

	cache := NewThumbnailCache(base, s, map[string]int{"album": 300})
	if _, err := cache.GetOrCreate(al, "album"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected not-found for a vanished source, got %v", err)
	}

	stored, err := s.GetAlbum(al.ID)
	if err != nil {
		t.Fatalf("failed to get album: %v", err)
	}
	if stored.HasArt() {
		t.Error("expected the art association to clear")
	}
}
