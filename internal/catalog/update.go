package catalog

import (
	"database/sql"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/music-catalog/internal/name"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/scan"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/tags"
	"github.com/franz/music-catalog/internal/util"
)

// Update reconciles the whole catalog against the library tree: imports
// new files, detects moves by content hash, applies tag changes in place
// and deletes records whose files are gone.
func (e *Engine) Update() error {
	e.emit(report.StatusInfo, "Starting process...")

	if err := e.begin(); err != nil {
		return err
	}

	files, err := e.scanner.Walk()
	if err != nil {
		return err
	}
	onDisk := make(map[string]scan.FileInfo, len(files))
	for _, f := range files {
		onDisk[f.RelPath] = f
	}

	songs, err := e.st.AllSongs()
	if err != nil {
		return err
	}

	// Classify stored songs. A song whose path is gone is provisionally
	// removed; an unknown file matching its content hash later reclaims
	// it as a move.
	removedBySHA := make(map[string]*store.Song)
	var removedOrder []*store.Song
	var changed []*store.Song
	known := make(map[string]bool, len(songs))

	for _, sg := range songs {
		f, ok := onDisk[sg.Filename]
		if !ok {
			removedBySHA[sg.SHA256] = sg
			removedOrder = append(removedOrder, sg)
			continue
		}
		known[sg.Filename] = true
		if f.Mtime != sg.TimeUpdated || f.Size != sg.Size {
			e.emit(report.StatusDebug, "Changed file: %s", sg.Filename)
			changed = append(changed, sg)
		}
	}

	// Hash unknown files: each either claims a removed record as a move
	// or queues for import.
	var unknown []scan.FileInfo
	for _, f := range files {
		if !known[f.RelPath] {
			unknown = append(unknown, f)
		}
	}

	var bar *progressbar.ProgressBar
	if e.progress && len(unknown) > 0 {
		bar = newHashBar(len(unknown))
	}

	var toAdd []scan.FileInfo
	hashes := make(map[string]string)
	claimed := make(map[int64]bool)

	for _, f := range unknown {
		if bar != nil {
			bar.Add(1)
		}

		sha, err := util.FileSHA256(f.AbsPath)
		if err != nil {
			e.emit(report.StatusError, "Could not read file: %s", f.RelPath)
			e.events.LogError(report.EventImport, f.RelPath, err)
			continue
		}

		if sg, ok := removedBySHA[sha]; ok && !claimed[sg.ID] {
			e.emit(report.StatusDebug, "File move: %s -> %s", sg.Filename, f.RelPath)
			if err := e.st.UpdateSongFilename(sg.ID, f.RelPath); err != nil {
				return err
			}
			e.events.LogMove(sg.Filename, f.RelPath)
			claimed[sg.ID] = true
			e.stats.songsMoved++
			continue
		}

		toAdd = append(toAdd, f)
		hashes[f.RelPath] = sha
	}
	if bar != nil {
		bar.Finish()
	}

	// Unclaimed removals are deleted.
	for _, sg := range removedOrder {
		if claimed[sg.ID] {
			continue
		}
		if err := e.deleteSong(sg); err != nil {
			return err
		}
	}

	if len(toAdd) > 0 {
		if err := e.importBatch(toAdd, hashes); err != nil {
			return err
		}
	}

	for _, sg := range changed {
		if err := e.updateSong(sg, onDisk[sg.Filename]); err != nil {
			return err
		}
	}

	if err := e.finalize(); err != nil {
		return err
	}

	e.summary()
	e.emit(report.StatusSuccess, "Finished update/clean!")
	return nil
}

// deleteSong removes a song record and marks its referents for
// finalization
func (e *Engine) deleteSong(sg *store.Song) error {
	if err := e.st.DeleteSong(sg.ID); err != nil {
		return err
	}
	e.emit(report.StatusDebug, "Deleted file: %s", sg.Filename)
	e.events.LogDelete(sg.Filename)
	e.stats.songsDeleted++

	e.touchedAlbums[sg.AlbumID] = true
	for _, r := range allRoles {
		if id, ok := songRoleID(sg, r); ok {
			e.touchArtist(id)
		}
	}
	return nil
}

// updateSong re-reads a changed file and applies its tags. Technical
// fields refresh unconditionally; a tag difference additionally
// re-resolves all four role references and the owning album, which may
// detach the song to a different or new album.
func (e *Engine) updateSong(sg *store.Song, f scan.FileInfo) error {
	rec, err := e.tags.Read(f.AbsPath)
	if err != nil {
		e.emit(report.StatusError, "Could not read updated information for: %s", sg.Filename)
		e.events.LogError(report.EventRetag, sg.Filename, err)
		return nil
	}

	artist := name.Clean(rec.Artist)
	title := name.Clean(rec.Title)
	switch {
	case artist == "":
		e.emit(report.StatusError, "File has no artist tag: %s", sg.Filename)
		return nil
	case title == "":
		e.emit(report.StatusError, "File has no title tag: %s", sg.Filename)
		return nil
	case artist == store.VariousName:
		e.emit(report.StatusError, "Artist name \"%s\" is reserved, skipping: %s",
			store.VariousName, sg.Filename)
		return nil
	}

	sha, err := util.FileSHA256(f.AbsPath)
	if err != nil {
		e.emit(report.StatusError, "Could not read updated information for: %s", sg.Filename)
		e.events.LogError(report.EventRetag, sg.Filename, err)
		return nil
	}

	diff := e.tagsDiffer(sg, rec, title)

	sg.Size = f.Size
	sg.SHA256 = sha
	sg.TimeUpdated = f.Mtime
	sg.Length = rec.Length
	sg.Bitrate = rec.Bitrate
	sg.Mode = rec.Mode
	sg.Filetype = rec.Filetype

	if !diff {
		if err := e.st.UpdateSong(sg); err != nil {
			return err
		}
		e.emit(report.StatusDebug, "Processed file changes for: %s", sg.Filename)
		e.stats.songsUpdated++
		return nil
	}

	// Old referents need finalization whether or not the song ends up
	// leaving them.
	e.touchedAlbums[sg.AlbumID] = true
	for _, r := range allRoles {
		if id, ok := songRoleID(sg, r); ok {
			e.touchArtist(id)
		}
	}

	roles, err := e.resolveRoles(rec, sg.Filename)
	if err != nil {
		return err
	}
	sg.GroupID = sql.NullInt64{}
	sg.ConductorID = sql.NullInt64{}
	sg.ComposerID = sql.NullInt64{}
	for r, a := range roles {
		setSongRole(sg, r, a)
	}

	album, err := e.resolveUpdatedAlbum(sg, roles[roleArtist], rec.Album, rec.Year)
	if err != nil {
		return err
	}
	sg.AlbumID = album.ID
	e.touchAlbum(album)

	sg.Title = title
	sg.NormTitle = name.Normalize(title)
	sg.TrackNum = rec.Track
	sg.Year = rec.Year

	if err := e.st.UpdateSong(sg); err != nil {
		return err
	}
	e.emit(report.StatusDebug, "Processed file changes for: %s", sg.Filename)
	e.events.LogRetag(sg.Filename)
	e.stats.songsUpdated++
	return nil
}

// tagsDiffer reports whether a re-read record disagrees with the stored
// song on any identity-bearing tag field
func (e *Engine) tagsDiffer(sg *store.Song, rec *tags.Record, title string) bool {
	if sg.Title != title || sg.TrackNum != rec.Track || sg.Year != rec.Year {
		return true
	}
	for _, r := range allRoles {
		raw := name.Clean(roleRaw(rec, r))
		id, ok := songRoleID(sg, r)
		if raw == "" {
			if ok && r != roleArtist {
				return true
			}
			continue
		}
		if !ok {
			return true
		}
		entry := e.res.artistByID(id)
		if entry == nil {
			return true
		}
		_, base := name.SplitPrefix(raw)
		if entry.artist.NormName != name.Normalize(base) {
			return true
		}
		// casing or prefix changes re-resolve too, so the rename
		// tie-break sees the latest raw spelling
		if raw != entry.artist.Display() {
			return true
		}
	}

	albumRaw := name.Clean(rec.Album)
	entry := e.res.albumByID(sg.AlbumID)
	if entry == nil {
		return true
	}
	if albumRaw == "" {
		return !entry.album.Miscellaneous
	}
	return entry.album.Miscellaneous ||
		entry.album.NormName != name.Normalize(albumRaw) ||
		entry.album.Name != albumRaw
}

// resolveUpdatedAlbum decides where a retagged song belongs. A song
// whose album tag still matches its current album stays put even when
// the artist changed (ownership is settled during finalization); an
// actual album change looks under the new primary artist, then Various,
// then creates a fresh album.
func (e *Engine) resolveUpdatedAlbum(sg *store.Song, artist *store.Artist, rawAlbum string, year int) (*store.Album, error) {
	raw := name.Clean(rawAlbum)

	cur := e.res.albumByID(sg.AlbumID)

	if raw == "" {
		al, created, err := e.res.album(artist, "", year)
		if err != nil {
			return nil, err
		}
		if created {
			e.stats.albumsAdded++
		}
		return al, nil
	}

	key := name.Normalize(raw)
	if cur != nil && !cur.album.Miscellaneous && cur.album.NormName == key {
		e.res.adopt(cur.album, raw)
		return cur.album, nil
	}

	if entry, ok := e.res.albums[albumKey(artist.ID, key)]; ok {
		e.res.adopt(entry.album, raw)
		return entry.album, nil
	}
	if entry, ok := e.res.albums[albumKey(e.various.ID, key)]; ok {
		e.res.adopt(entry.album, raw)
		return entry.album, nil
	}

	al, created, err := e.res.album(artist, raw, year)
	if err != nil {
		return nil, err
	}
	if created {
		e.stats.albumsAdded++
	}
	return al, nil
}
