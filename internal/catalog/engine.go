package catalog

import (
	"errors"
	"fmt"
	"path"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/music-catalog/internal/name"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/scan"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/tags"
	"github.com/franz/music-catalog/internal/util"
)

// ArtSyncer re-checks an album's art association after a pass touched it.
// The engine only calls it for non-miscellaneous albums that survived
// finalization.
type ArtSyncer interface {
	Sync(al *store.Album) error
}

// Options configures an Engine.
type Options struct {
	Store  *store.Store
	Config Config

	// Tags reads tag records; defaults to the production FileReader
	Tags tags.Reader

	// Stream receives the ordered status lines of a pass; may be nil
	Stream report.Stream

	// Events receives the JSONL audit trail; may be nil
	Events *report.EventLogger

	// Art re-checks album art after finalization; may be nil
	Art ArtSyncer

	// Progress enables a terminal progress bar while hashing files
	Progress bool
}

// Engine drives the add and update reconciliation passes. A pass is a
// single-threaded run to completion; per-file failures are reported and
// skipped, never fatal.
type Engine struct {
	st       *store.Store
	cfg      Config
	tags     tags.Reader
	stream   report.Stream
	events   *report.EventLogger
	art      ArtSyncer
	scanner  *scan.Scanner
	progress bool

	// pass state, reset by begin()
	res            *resolver
	various        *store.Artist
	touchedArtists map[int64]bool
	touchedAlbums  map[int64]bool
	stats          passStats
}

type passStats struct {
	artistsAdded   int
	albumsAdded    int
	songsAdded     int
	songsUpdated   int
	songsMoved     int
	songsDeleted   int
	albumsDeleted  int
	artistsDeleted int
}

// New creates an Engine. The config is validated once here.
func New(opts *Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required: %w", util.ErrInvalidConfig)
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rdr := opts.Tags
	if rdr == nil {
		rdr = tags.FileReader{}
	}

	stream := opts.Stream
	if stream == nil {
		stream = report.Discard
	}

	return &Engine{
		st:       opts.Store,
		cfg:      cfg,
		tags:     rdr,
		stream:   stream,
		events:   opts.Events,
		art:      opts.Art,
		scanner:  scan.New(cfg.BasePath, nil),
		progress: opts.Progress,
	}, nil
}

func (e *Engine) emit(status report.Status, format string, args ...any) {
	report.Emit(e.stream, status, format, args...)
}

func (e *Engine) touchArtist(id int64) {
	e.touchedArtists[id] = true
}

func (e *Engine) touchAlbum(al *store.Album) {
	e.touchedAlbums[al.ID] = true
	e.touchedArtists[al.ArtistID] = true
}

// begin resets per-pass state and preloads the catalog
func (e *Engine) begin() error {
	e.touchedArtists = make(map[int64]bool)
	e.touchedAlbums = make(map[int64]bool)
	e.stats = passStats{}

	res, err := newResolver(e.st, e.stream)
	if err != nil {
		return err
	}
	e.res = res

	various, created, err := e.st.EnsureVariousArtist()
	if err != nil {
		return err
	}
	if created {
		e.emit(report.StatusDebug, "Created reserved \"%s\" artist", store.VariousName)
	}
	e.various = various
	e.res.registerArtist(various)

	return nil
}

// Add scans the library for files not yet in the catalog and imports
// them. Files already cataloged are left untouched even when changed;
// Update handles those.
func (e *Engine) Add() error {
	e.emit(report.StatusInfo, "Starting process...")

	if err := e.begin(); err != nil {
		return err
	}

	files, err := e.scanner.Walk()
	if err != nil {
		return err
	}

	songs, err := e.st.AllSongs()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(songs))
	for _, sg := range songs {
		known[sg.Filename] = true
	}

	var newFiles []scan.FileInfo
	for _, f := range files {
		if known[f.RelPath] {
			continue
		}
		e.emit(report.StatusDebug, "Found file: %s", f.RelPath)
		newFiles = append(newFiles, f)
	}

	if len(newFiles) == 0 {
		e.emit(report.StatusSuccess, "No new music found!")
		return nil
	}

	if err := e.importBatch(newFiles, nil); err != nil {
		return err
	}
	if err := e.finalize(); err != nil {
		return err
	}

	e.summary()
	e.emit(report.StatusSuccess, "Finished adding new music!")
	return nil
}

func (e *Engine) summary() {
	s := e.stats
	e.emit(report.StatusSuccess, "Artists added: %d", s.artistsAdded)
	e.emit(report.StatusSuccess, "Albums added: %d", s.albumsAdded)
	e.emit(report.StatusSuccess, "Songs added: %d", s.songsAdded)
	if s.songsMoved > 0 {
		e.emit(report.StatusInfo, "Songs moved: %d", s.songsMoved)
	}
	if s.songsUpdated > 0 {
		e.emit(report.StatusInfo, "Songs updated: %d", s.songsUpdated)
	}
	if s.songsDeleted > 0 {
		e.emit(report.StatusInfo, "Songs removed: %d", s.songsDeleted)
	}
	if s.albumsDeleted > 0 {
		e.emit(report.StatusInfo, "Albums removed: %d", s.albumsDeleted)
	}
	if s.artistsDeleted > 0 {
		e.emit(report.StatusInfo, "Artists removed: %d", s.artistsDeleted)
	}
}

// pending is one validated file waiting for entity resolution
type pending struct {
	fi        scan.FileInfo
	rec       *tags.Record
	sha       string
	dir       string
	albumRaw  string
	albumNorm string
}

// dirAlbumAttr is the per-directory attribution for one album name key:
// which artist owns the album the new files should land in, and whether
// an existing album in that directory already carries the key
type dirAlbumAttr struct {
	ownerKey string
	various  bool
	existing *store.Album
}

// importBatch imports a set of new files. Hashes already computed by the
// caller are passed in; the rest are computed here. Import runs in three
// stages so album attribution can consider every contributor to a
// directory, not just the file being processed:
//
//  1. read tags and validate every file,
//  2. attribute each (directory, album key) to an owning artist, folding
//     in songs already cataloged in that directory,
//  3. resolve entities and insert songs in scan order.
func (e *Engine) importBatch(files []scan.FileInfo, hashes map[string]string) error {
	var bar *progressbar.ProgressBar
	if e.progress && hashes == nil {
		bar = newHashBar(len(files))
	}

	var pendings []pending
	for _, f := range files {
		if bar != nil {
			bar.Add(1)
		}

		rec, err := e.tags.Read(f.AbsPath)
		if err != nil {
			if errors.Is(err, util.ErrCorrupt) {
				e.emit(report.StatusError, "Could not read tag information for: %s", f.RelPath)
			} else {
				e.emit(report.StatusError, "Could not read file: %s", f.RelPath)
			}
			e.events.LogError(report.EventImport, f.RelPath, err)
			continue
		}

		artist := name.Clean(rec.Artist)
		title := name.Clean(rec.Title)
		if artist == "" {
			e.emit(report.StatusError, "File has no artist tag: %s", f.RelPath)
			e.events.LogError(report.EventImport, f.RelPath, fmt.Errorf("missing artist tag: %w", util.ErrValidation))
			continue
		}
		if title == "" {
			e.emit(report.StatusError, "File has no title tag: %s", f.RelPath)
			e.events.LogError(report.EventImport, f.RelPath, fmt.Errorf("missing title tag: %w", util.ErrValidation))
			continue
		}
		if artist == store.VariousName {
			e.emit(report.StatusError, "Artist name \"%s\" is reserved, skipping: %s",
				store.VariousName, f.RelPath)
			e.events.LogError(report.EventImport, f.RelPath, fmt.Errorf("reserved artist name: %w", util.ErrValidation))
			continue
		}

		sha := hashes[f.RelPath]
		if sha == "" {
			sha, err = util.FileSHA256(f.AbsPath)
			if err != nil {
				e.emit(report.StatusError, "Could not read file: %s", f.RelPath)
				e.events.LogError(report.EventImport, f.RelPath, err)
				continue
			}
		}

		p := pending{
			fi:       f,
			rec:      rec,
			sha:      sha,
			dir:      path.Dir(f.RelPath),
			albumRaw: name.Clean(rec.Album),
		}
		if p.albumRaw != "" {
			p.albumNorm = name.Normalize(p.albumRaw)
		}
		pendings = append(pendings, p)
	}
	if bar != nil {
		bar.Finish()
	}

	attrib, err := e.attributeAlbums(pendings)
	if err != nil {
		return err
	}

	for i := range pendings {
		if err := e.importOne(&pendings[i], attrib); err != nil {
			return err
		}
	}

	return nil
}

// attributeAlbums decides, per (directory, album key), which artist owns
// the album. All contributors sharing one primary artist keep that
// artist; any disagreement, including with songs already cataloged in
// the directory, attributes the album to the Various sentinel.
func (e *Engine) attributeAlbums(pendings []pending) (map[string]map[string]*dirAlbumAttr, error) {
	attrib := make(map[string]map[string]*dirAlbumAttr)

	for i := range pendings {
		p := &pendings[i]
		if p.albumNorm == "" {
			continue
		}
		_, base := name.SplitPrefix(p.rec.Artist)
		key := name.Normalize(base)

		byAlbum := attrib[p.dir]
		if byAlbum == nil {
			byAlbum = make(map[string]*dirAlbumAttr)
			attrib[p.dir] = byAlbum
		}
		da := byAlbum[p.albumNorm]
		if da == nil {
			byAlbum[p.albumNorm] = &dirAlbumAttr{ownerKey: key}
			continue
		}
		if !da.various && da.ownerKey != key {
			da.various = true
		}
	}

	for dir, byAlbum := range attrib {
		existing, err := e.st.SongsInDir(dir)
		if err != nil {
			return nil, err
		}
		for _, sg := range existing {
			entry := e.res.albumByID(sg.AlbumID)
			if entry == nil || entry.album.Miscellaneous {
				continue
			}
			da, ok := byAlbum[entry.album.NormName]
			if !ok {
				continue
			}
			if da.existing == nil || entry.album.ID < da.existing.ID {
				da.existing = entry.album
			}
			if !da.various {
				aent := e.res.artistByID(sg.ArtistID)
				if aent == nil || aent.artist.Various || aent.artist.NormName != da.ownerKey {
					da.various = true
				}
			}
		}
	}

	return attrib, nil
}

// importOne resolves entities for one validated file and inserts its song
func (e *Engine) importOne(p *pending, attrib map[string]map[string]*dirAlbumAttr) error {
	roles, err := e.resolveRoles(p.rec, p.fi.RelPath)
	if err != nil {
		return err
	}
	artist := roles[roleArtist]

	var album *store.Album
	if p.albumRaw == "" {
		al, created, err := e.res.album(artist, "", p.rec.Year)
		if err != nil {
			return err
		}
		if created {
			e.stats.albumsAdded++
		}
		album = al
	} else {
		da := attrib[p.dir][p.albumNorm]
		if da.existing != nil {
			album = da.existing
			e.res.adopt(album, p.albumRaw)
		} else {
			owner := artist
			if da.various {
				owner = e.various
			}
			al, created, err := e.res.album(owner, p.albumRaw, p.rec.Year)
			if err != nil {
				return err
			}
			if created {
				e.stats.albumsAdded++
			}
			album = al
			da.existing = al
		}
	}
	e.touchAlbum(album)

	sg := &store.Song{
		Filename:    p.fi.RelPath,
		AlbumID:     album.ID,
		Title:       name.Clean(p.rec.Title),
		NormTitle:   name.Normalize(p.rec.Title),
		TrackNum:    p.rec.Track,
		Year:        p.rec.Year,
		Length:      p.rec.Length,
		Bitrate:     p.rec.Bitrate,
		Mode:        p.rec.Mode,
		Filetype:    p.rec.Filetype,
		Size:        p.fi.Size,
		SHA256:      p.sha,
		TimeUpdated: p.fi.Mtime,
	}
	for r, a := range roles {
		setSongRole(sg, r, a)
	}
	if err := e.st.InsertSong(sg); err != nil {
		return err
	}

	e.stats.songsAdded++
	e.events.LogImport(p.fi.RelPath, artist.Display(), album.Name, sg.Title)
	return nil
}

// resolveRoles resolves every artist reference a record carries. The
// primary artist is guaranteed present; validation already ran.
func (e *Engine) resolveRoles(rec *tags.Record, relPath string) (map[role]*store.Artist, error) {
	roles := make(map[role]*store.Artist, len(allRoles))

	for _, r := range allRoles {
		raw := name.Clean(roleRaw(rec, r))
		if raw == "" {
			continue
		}
		if r != roleArtist && raw == store.VariousName {
			e.emit(report.StatusWarning, "Ignoring reserved artist name in %s tag: %s", r, relPath)
			continue
		}
		a, created, err := e.res.artist(raw)
		if err != nil {
			return nil, err
		}
		if created {
			e.stats.artistsAdded++
		}
		e.touchArtist(a.ID)
		roles[r] = a
	}

	return roles, nil
}

func newHashBar(n int) *progressbar.ProgressBar {
	width := 30
	if w := util.GetTerminalWidth(); w < 60 {
		width = w / 2
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Reading files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(width),
		progressbar.OptionClearOnFinish(),
	)
}
