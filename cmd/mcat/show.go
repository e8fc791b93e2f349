package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/music-catalog/internal/name"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
)

var showCmd = &cobra.Command{
	Use:   "show [artist] [album]",
	Short: "Show catalog contents",
	Long: `Display the catalog. Without arguments, prints overall statistics.
With an artist name, lists that artist's albums. With an artist and an
album name, lists the album's tracks.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	setupLogging()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	switch len(args) {
	case 0:
		return showStats(st)
	case 1:
		return showArtist(st, args[0])
	default:
		return showAlbum(st, args[0], args[1])
	}
}

func showStats(st *store.Store) error {
	artists, err := st.CountArtists()
	if err != nil {
		return err
	}
	albums, err := st.CountAlbums()
	if err != nil {
		return err
	}
	songs, err := st.CountSongs()
	if err != nil {
		return err
	}
	bytes, err := st.TotalSongBytes()
	if err != nil {
		return err
	}

	util.InfoLog("Database: %s", viper.GetString("db"))
	util.InfoLog("Artists: %d", artists)
	util.InfoLog("Albums: %d", albums)
	util.InfoLog("Songs: %d", songs)
	util.InfoLog("Total size: %s", humanize.Bytes(uint64(bytes)))
	return nil
}

func showArtist(st *store.Store, artistName string) error {
	_, base := name.SplitPrefix(artistName)
	artist, err := st.GetArtistByNorm(name.Normalize(base))
	if err != nil {
		return err
	}
	if artist == nil {
		return fmt.Errorf("artist not found: %s", artistName)
	}

	albums, err := st.AlbumsByArtist(artist.ID)
	if err != nil {
		return err
	}

	util.InfoLog("%s", artist.Display())
	for _, al := range albums {
		count, err := st.AlbumSongCount(al.ID)
		if err != nil {
			return err
		}

		line := al.Name
		if al.Year > 0 {
			line = fmt.Sprintf("%s (%d)", line, al.Year)
		}
		var flags string
		switch {
		case al.Miscellaneous:
			flags = " [misc]"
		case al.Live:
			flags = " [live]"
		}
		fmt.Printf("  %s%s - %d songs\n", line, flags, count)
	}
	return nil
}

func showAlbum(st *store.Store, artistName, albumName string) error {
	al, err := findAlbum(st, artistName, albumName)
	if err != nil {
		return err
	}

	songs, err := st.AlbumSongs(al.ID)
	if err != nil {
		return err
	}

	header := al.Name
	if al.Year > 0 {
		header = fmt.Sprintf("%s (%d)", header, al.Year)
	}
	util.InfoLog("%s", header)
	if al.HasArt() {
		util.InfoLog("Art: %s (%s)", al.ArtFilename, al.ArtMime)
	}

	for _, sg := range songs {
		length := "-:--"
		if sg.Length > 0 {
			length = fmt.Sprintf("%d:%02d", sg.Length/60, sg.Length%60)
		}
		fmt.Printf("  %2d. %s [%s] %s\n", sg.TrackNum, sg.Title, length, sg.Filename)
	}
	return nil
}
