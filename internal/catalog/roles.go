package catalog

import (
	"database/sql"

	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/tags"
)

// role identifies one of the four ways a song references an artist.
// Reconciliation treats the roles uniformly; only the artist role is
// mandatory and only it participates in Various detection.
type role int

const (
	roleArtist role = iota
	roleGroup
	roleConductor
	roleComposer
)

var allRoles = []role{roleArtist, roleGroup, roleConductor, roleComposer}

func (r role) String() string {
	switch r {
	case roleArtist:
		return "artist"
	case roleGroup:
		return "group"
	case roleConductor:
		return "conductor"
	case roleComposer:
		return "composer"
	}
	return "unknown"
}

// roleRaw returns the raw tag value for a role
func roleRaw(rec *tags.Record, r role) string {
	switch r {
	case roleArtist:
		return rec.Artist
	case roleGroup:
		return rec.Group
	case roleConductor:
		return rec.Conductor
	case roleComposer:
		return rec.Composer
	}
	return ""
}

// songRoleID returns the artist ID a song references in a role
func songRoleID(sg *store.Song, r role) (int64, bool) {
	switch r {
	case roleArtist:
		return sg.ArtistID, true
	case roleGroup:
		return sg.GroupID.Int64, sg.GroupID.Valid
	case roleConductor:
		return sg.ConductorID.Int64, sg.ConductorID.Valid
	case roleComposer:
		return sg.ComposerID.Int64, sg.ComposerID.Valid
	}
	return 0, false
}

// setSongRole points a song's role reference at an artist; a nil artist
// clears an optional role
func setSongRole(sg *store.Song, r role, a *store.Artist) {
	var ref sql.NullInt64
	if a != nil {
		ref = sql.NullInt64{Int64: a.ID, Valid: true}
	}
	switch r {
	case roleArtist:
		if a != nil {
			sg.ArtistID = a.ID
		}
	case roleGroup:
		sg.GroupID = ref
	case roleConductor:
		sg.ConductorID = ref
	case roleComposer:
		sg.ComposerID = ref
	}
}
