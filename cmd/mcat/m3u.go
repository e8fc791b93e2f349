package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/franz/music-catalog/internal/bundle"
)

var m3uCmd = &cobra.Command{
	Use:   "m3u <artist> <album>",
	Short: "Write an album playlist to stdout",
	Long: `Write an extended M3U playlist for an album. Media lines point at the
configured media_url, so the playlist is usable by any player that can
reach the library over HTTP.`,
	Args: cobra.ExactArgs(2),
	RunE: runM3U,
}

func init() {
	rootCmd.AddCommand(m3uCmd)
}

func runM3U(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.MediaURL == "" {
		return fmt.Errorf("playlists are not supported without media_url")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	al, err := findAlbum(st, args[0], args[1])
	if err != nil {
		return err
	}

	entries, err := bundle.AlbumEntries(st, al)
	if err != nil {
		return err
	}
	return bundle.WriteM3U(os.Stdout, cfg.MediaURL, entries)
}
