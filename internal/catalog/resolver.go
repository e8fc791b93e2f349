package catalog

import (
	"fmt"

	"github.com/franz/music-catalog/internal/name"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
)

// miscAlbumName formats the display name of an artist's non-album
// track bucket
func miscAlbumName(owner *store.Artist) string {
	return fmt.Sprintf("Non-Album Tracks - %s", owner.Display())
}

// rawName holds the cleaned display parts of the raw tag value an
// entity was last resolved from during the current pass
type rawName struct {
	name   string
	prefix string
}

type artistEntry struct {
	artist *store.Artist
	// lastRaw is the raw spelling most recently resolved to this
	// artist, nil when the pass never saw it in a tag
	lastRaw *rawName
}

type albumEntry struct {
	album *store.Album
	// lastRaw is the raw album tag most recently resolved here, empty
	// for miscellaneous buckets whose names are derived
	lastRaw string
}

// resolver maps raw tag values to artist and album entities. It is
// created fresh for each pass, preloads the catalog once, and caches
// everything it creates so repeated lookups within a pass never hit
// the database.
type resolver struct {
	st     *store.Store
	stream report.Stream

	artists     map[string]*artistEntry // by normalized name
	artistsByID map[int64]*artistEntry
	albums      map[string]*albumEntry // by "artistID/normname"
	albumsByID  map[int64]*albumEntry
}

func newResolver(st *store.Store, stream report.Stream) (*resolver, error) {
	r := &resolver{
		st:          st,
		stream:      stream,
		artists:     make(map[string]*artistEntry),
		artistsByID: make(map[int64]*artistEntry),
		albums:      make(map[string]*albumEntry),
		albumsByID:  make(map[int64]*albumEntry),
	}

	artists, err := st.AllArtists()
	if err != nil {
		return nil, fmt.Errorf("failed to load artists: %w", err)
	}
	for _, a := range artists {
		entry := &artistEntry{artist: a}
		r.artists[a.NormName] = entry
		r.artistsByID[a.ID] = entry
	}

	albums, err := st.AllAlbums()
	if err != nil {
		return nil, fmt.Errorf("failed to load albums: %w", err)
	}
	for _, al := range albums {
		entry := &albumEntry{album: al}
		r.albums[albumKey(al.ArtistID, al.NormName)] = entry
		r.albumsByID[al.ID] = entry
	}

	return r, nil
}

func albumKey(artistID int64, normName string) string {
	return fmt.Sprintf("%d/%s", artistID, normName)
}

// artist resolves a raw artist tag to an entity, creating one when no
// existing artist shares the normalized name. A raw value carrying a
// prefix backfills a prefixless stored artist; a raw value without one
// never strips a stored prefix.
func (r *resolver) artist(raw string) (*store.Artist, bool, error) {
	prefix, base := name.SplitPrefix(raw)
	key := name.Normalize(base)

	if entry, ok := r.artists[key]; ok {
		entry.lastRaw = &rawName{name: base, prefix: prefix}
		if prefix != "" && entry.artist.Prefix == "" {
			if err := r.st.UpdateArtistName(entry.artist.ID, entry.artist.Name, prefix); err != nil {
				return nil, false, err
			}
			entry.artist.Prefix = prefix
			report.Emit(r.stream, report.StatusInfo,
				"Updated artist to include prefix: \"%s\"", entry.artist.Display())
		}
		return entry.artist, false, nil
	}

	a := &store.Artist{Name: base, Prefix: prefix, NormName: key}
	if err := r.st.InsertArtist(a); err != nil {
		return nil, false, err
	}
	entry := &artistEntry{artist: a, lastRaw: &rawName{name: base, prefix: prefix}}
	r.artists[key] = entry
	r.artistsByID[a.ID] = entry
	report.Emit(r.stream, report.StatusInfo, "Created new artist \"%s\"", a.Display())
	return a, true, nil
}

// album resolves an album under an owning artist. An empty raw name
// selects the owner's miscellaneous bucket. The year is only used when
// a new album has to be created.
func (r *resolver) album(owner *store.Artist, raw string, year int) (*store.Album, bool, error) {
	misc := raw == ""
	var display string
	if misc {
		display = miscAlbumName(owner)
	} else {
		display = name.Clean(raw)
	}
	key := name.Normalize(display)

	if entry, ok := r.albums[albumKey(owner.ID, key)]; ok {
		if !misc {
			entry.lastRaw = display
		}
		return entry.album, false, nil
	}

	al := &store.Album{
		ArtistID:      owner.ID,
		Name:          display,
		NormName:      key,
		Year:          year,
		Live:          IsLiveName(display),
		Miscellaneous: misc,
	}
	if err := r.st.InsertAlbum(al); err != nil {
		return nil, false, err
	}
	r.adopt(al, raw)
	report.Emit(r.stream, report.StatusInfo,
		"Created new album \"%s / %s\"", owner.Display(), display)
	return al, true, nil
}

// adopt caches an album entity the engine attached to outside the
// normal lookup path, so later lookups and finalization see it
func (r *resolver) adopt(al *store.Album, raw string) {
	entry, ok := r.albumsByID[al.ID]
	if !ok {
		entry = &albumEntry{album: al}
		r.albumsByID[al.ID] = entry
	}
	r.albums[albumKey(al.ArtistID, al.NormName)] = entry
	if raw != "" {
		entry.lastRaw = name.Clean(raw)
	}
}

// forget drops an album from the caches after a merge deletes it
func (r *resolver) forget(al *store.Album) {
	delete(r.albums, albumKey(al.ArtistID, al.NormName))
	delete(r.albumsByID, al.ID)
}

// rekey refreshes an album's cache key after its owner or normalized
// name changed
func (r *resolver) rekey(al *store.Album, oldArtistID int64, oldNormName string) {
	entry, ok := r.albumsByID[al.ID]
	if !ok {
		entry = &albumEntry{album: al}
		r.albumsByID[al.ID] = entry
	}
	delete(r.albums, albumKey(oldArtistID, oldNormName))
	r.albums[albumKey(al.ArtistID, al.NormName)] = entry
}

// forgetArtist drops a pruned artist from the caches
func (r *resolver) forgetArtist(a *store.Artist) {
	delete(r.artists, a.NormName)
	delete(r.artistsByID, a.ID)
}

// registerArtist adds an artist created outside the resolver, such as
// the Various sentinel, to the caches
func (r *resolver) registerArtist(a *store.Artist) {
	if _, ok := r.artistsByID[a.ID]; ok {
		return
	}
	entry := &artistEntry{artist: a}
	r.artists[a.NormName] = entry
	r.artistsByID[a.ID] = entry
}

func (r *resolver) artistByID(id int64) *artistEntry {
	return r.artistsByID[id]
}

func (r *resolver) albumByID(id int64) *albumEntry {
	return r.albumsByID[id]
}
