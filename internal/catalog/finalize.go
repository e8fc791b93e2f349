package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/franz/music-catalog/internal/name"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
)

// Live albums are recognized by a leading concert date or a venue phrase
var liveDateRe = regexp.MustCompile(`^\d{4}[-.]\d{2}[-.]\d{2}`)

// IsLiveName reports whether an album name denotes a live recording
func IsLiveName(albumName string) bool {
	if liveDateRe.MatchString(albumName) {
		return true
	}
	lower := strings.ToLower(albumName)
	return strings.Contains(lower, "live at") || strings.Contains(lower, "live in")
}

func sortedIDs(m map[int64]bool) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// finalize runs once after all per-file mutations of a pass. Order
// matters: artist renames feed derived miscellaneous bucket names,
// album ownership settles before display and flag recomputation, and
// orphan pruning runs last so merges have already emptied their losers.
func (e *Engine) finalize() error {
	if err := e.finalizeArtistNames(); err != nil {
		return err
	}
	for _, id := range sortedIDs(e.touchedAlbums) {
		if err := e.finalizeAlbum(id); err != nil {
			return err
		}
	}
	if err := e.pruneAlbums(); err != nil {
		return err
	}
	return e.pruneArtists()
}

// finalizeArtistNames applies the casing tie-break: an artist referenced
// by exactly one song after the pass takes the latest raw spelling seen
// (last sole writer wins); with two or more referents the earliest-seen
// display name stays. A raw value without a prefix never strips a
// stored prefix.
func (e *Engine) finalizeArtistNames() error {
	for _, id := range sortedIDs(e.touchedArtists) {
		entry := e.res.artistByID(id)
		if entry == nil || entry.lastRaw == nil || entry.artist.Various {
			continue
		}
		a := entry.artist

		newName := entry.lastRaw.name
		newPrefix := entry.lastRaw.prefix
		if newPrefix == "" {
			newPrefix = a.Prefix
		}
		if newName == a.Name && newPrefix == a.Prefix {
			continue
		}

		refs, err := e.st.ArtistSongRefs(id)
		if err != nil {
			return err
		}
		if refs != 1 {
			continue
		}

		if err := e.st.UpdateArtistName(id, newName, newPrefix); err != nil {
			return err
		}
		a.Name, a.Prefix = newName, newPrefix
		e.emit(report.StatusDebug, "Updated artist name to \"%s\"", a.Display())

		// derived miscellaneous bucket names follow the artist
		albums, err := e.st.AlbumsByArtist(id)
		if err != nil {
			return err
		}
		for _, al := range albums {
			if al.Miscellaneous {
				e.touchedAlbums[al.ID] = true
			}
		}
	}
	return nil
}

// finalizeAlbum settles one touched album: ownership against the
// Various sentinel, miscellaneous bucket naming, display casing, the
// live flag, the year and the art association.
func (e *Engine) finalizeAlbum(id int64) error {
	al, err := e.st.GetAlbum(id)
	if err != nil {
		return err
	}
	if al == nil {
		// merged away earlier in this finalization
		return nil
	}

	count, err := e.st.AlbumSongCount(al.ID)
	if err != nil {
		return err
	}
	if count == 0 {
		// pruned below
		return nil
	}

	owner, err := e.st.GetArtist(al.ArtistID)
	if err != nil {
		return err
	}

	// A move can merge in another album whose songs widen the primary
	// artist set, so ownership settles against a fresh set each round.
	// Every extra round consumes a merge, which bounds the loop.
	for {
		primaries, err := e.st.AlbumPrimaryArtists(al.ID)
		if err != nil {
			return err
		}

		if len(primaries) > 1 && !owner.Various {
			al, err = e.moveAlbum(al, owner, e.various)
			if err != nil {
				return err
			}
			owner = e.various
			continue
		}
		if len(primaries) == 1 && owner.ID != primaries[0] {
			solo, err := e.st.GetArtist(primaries[0])
			if err != nil {
				return err
			}
			if solo != nil {
				al, err = e.moveAlbum(al, owner, solo)
				if err != nil {
					return err
				}
				owner = solo
				continue
			}
		}
		break
	}

	// a merge above may have changed the song count
	count, err = e.st.AlbumSongCount(al.ID)
	if err != nil {
		return err
	}

	dirty := false

	if al.Miscellaneous {
		want := miscAlbumName(owner)
		if al.Name != want {
			wantKey := name.Normalize(want)
			coll, err := e.st.GetAlbumByArtistNorm(al.ArtistID, wantKey)
			if err != nil {
				return err
			}
			if coll != nil && coll.ID != al.ID {
				al, err = e.mergeAlbums(al, coll)
				if err != nil {
					return err
				}
			}
			if al.Name != want {
				oldKey := al.NormName
				al.Name, al.NormName = want, wantKey
				e.res.rekey(al, al.ArtistID, oldKey)
				dirty = true
			}
		}
	} else if count == 1 {
		// single-referent casing tie-break, mirroring artists
		entry := e.res.albumByID(al.ID)
		if entry != nil && entry.lastRaw != "" && entry.lastRaw != al.Name &&
			name.Normalize(entry.lastRaw) == al.NormName {
			al.Name = entry.lastRaw
			dirty = true
		}
	}

	if live := IsLiveName(al.Name); live != al.Live {
		al.Live = live
		dirty = true
	}

	year, err := e.st.AlbumFirstYear(al.ID)
	if err != nil {
		return err
	}
	if year != 0 && year != al.Year {
		al.Year = year
		dirty = true
	}

	if dirty {
		if err := e.st.UpdateAlbum(al); err != nil {
			return err
		}
	}

	if e.art != nil && !al.Miscellaneous {
		if err := e.art.Sync(al); err != nil {
			return err
		}
	}
	return nil
}

// moveAlbum hands an album to a new owning artist. When the new owner
// already has an album with the same key the two merge, the lower
// primary key surviving so external references stay stable.
func (e *Engine) moveAlbum(al *store.Album, oldOwner, newOwner *store.Artist) (*store.Album, error) {
	coll, err := e.st.GetAlbumByArtistNorm(newOwner.ID, al.NormName)
	if err != nil {
		return nil, err
	}

	if coll != nil && coll.ID != al.ID {
		if coll.ID < al.ID {
			// collision partner survives under the new owner already
			return e.mergeAlbums(al, coll)
		}
		// al survives; absorb the partner first, then take the owner,
		// so the unique (artist, key) constraint never trips
		if _, err := e.mergeAlbums(al, coll); err != nil {
			return nil, err
		}
	}

	e.emit(report.StatusInfo, "Updated album \"%s / %s\" to \"%s / %s\"",
		oldOwner.Display(), al.Name, newOwner.Display(), al.Name)

	oldArtistID := al.ArtistID
	al.ArtistID = newOwner.ID
	if err := e.st.UpdateAlbum(al); err != nil {
		return nil, err
	}
	e.res.rekey(al, oldArtistID, al.NormName)
	e.touchedAlbums[al.ID] = true
	e.touchArtist(oldOwner.ID)
	e.touchArtist(newOwner.ID)

	return al, nil
}

// mergeAlbums collapses two albums that came to share owner and key.
// The lower primary key survives; the other album's songs are
// re-pointed and its record deleted.
func (e *Engine) mergeAlbums(a, b *store.Album) (*store.Album, error) {
	survivor, loser := a, b
	if b.ID < a.ID {
		survivor, loser = b, a
	}

	if err := e.st.RepointSongs(loser.ID, survivor.ID); err != nil {
		return nil, err
	}
	if err := e.st.DeleteAlbum(loser.ID); err != nil {
		return nil, err
	}
	e.res.forget(loser)
	e.touchedAlbums[survivor.ID] = true
	e.touchArtist(loser.ArtistID)
	e.stats.albumsDeleted++

	e.emit(report.StatusInfo, "Merged album \"%s\" into \"%s\"", loser.Name, survivor.Name)
	e.events.Log(&report.Event{
		Status: report.StatusInfo,
		Event:  report.EventMerge,
		Album:  survivor.Name,
		Extra:  map[string]string{"from": loser.Name},
	})

	return survivor, nil
}

// pruneAlbums deletes every touched album left without songs
func (e *Engine) pruneAlbums() error {
	for _, id := range sortedIDs(e.touchedAlbums) {
		al, err := e.st.GetAlbum(id)
		if err != nil {
			return err
		}
		if al == nil {
			continue
		}
		count, err := e.st.AlbumSongCount(id)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		owner, err := e.st.GetArtist(al.ArtistID)
		if err != nil {
			return err
		}
		ownerName := ""
		if owner != nil {
			ownerName = owner.Display()
		}

		if err := e.st.DeleteAlbum(id); err != nil {
			return err
		}
		e.res.forget(al)
		e.touchArtist(al.ArtistID)
		e.stats.albumsDeleted++
		e.emit(report.StatusDebug, "Deleted orphaned album \"%s / %s\"", ownerName, al.Name)
		e.events.LogPrune("album", al.Name)
	}
	return nil
}

// pruneArtists deletes every touched artist left without references in
// any role or album. The Various sentinel is never deleted.
func (e *Engine) pruneArtists() error {
	for _, id := range sortedIDs(e.touchedArtists) {
		a, err := e.st.GetArtist(id)
		if err != nil {
			return err
		}
		if a == nil || a.Various {
			continue
		}

		songRefs, err := e.st.ArtistSongRefs(id)
		if err != nil {
			return err
		}
		if songRefs > 0 {
			continue
		}
		albumRefs, err := e.st.ArtistAlbumRefs(id)
		if err != nil {
			return err
		}
		if albumRefs > 0 {
			continue
		}

		if err := e.st.DeleteArtist(id); err != nil {
			return err
		}
		e.res.forgetArtist(a)
		e.stats.artistsDeleted++
		e.emit(report.StatusDebug, "Deleted orphaned artist \"%s\"", a.Display())
		e.events.LogPrune("artist", a.Display())
	}
	return nil
}
