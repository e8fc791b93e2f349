package bundle

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/franz/music-catalog/internal/store"
)

// Entry is one playlist line
type Entry struct {
	Artist string
	Title  string
	Length int // seconds, 0 when unknown
	Path   string
}

// AlbumEntries builds the playlist entries for an album in track order
func AlbumEntries(st *store.Store, al *store.Album) ([]Entry, error) {
	songs, err := st.AlbumSongs(al.ID)
	if err != nil {
		return nil, err
	}

	artists := make(map[int64]string)
	var entries []Entry
	for _, sg := range songs {
		display, ok := artists[sg.ArtistID]
		if !ok {
			a, err := st.GetArtist(sg.ArtistID)
			if err != nil {
				return nil, err
			}
			if a != nil {
				display = a.Display()
			}
			artists[sg.ArtistID] = display
		}
		entries = append(entries, Entry{
			Artist: display,
			Title:  sg.Title,
			Length: sg.Length,
			Path:   sg.Filename,
		})
	}
	return entries, nil
}

// WriteM3U writes an extended M3U playlist whose media lines point at
// mediaURL joined with each entry's escaped relative path
func WriteM3U(w io.Writer, mediaURL string, entries []Entry) error {
	if _, err := fmt.Fprintln(w, "#EXTM3U"); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "#EXTINF:%d,%s - %s\n", e.Length, e.Artist, e.Title); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, MediaURL(mediaURL, e.Path)); err != nil {
			return err
		}
	}
	return nil
}

// MediaURL joins the public media base URL with an escaped relative path
func MediaURL(mediaURL, rel string) string {
	segs := strings.Split(rel, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimSuffix(mediaURL, "/") + "/" + strings.Join(segs, "/")
}
