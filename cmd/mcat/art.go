package main

import (
	"github.com/spf13/cobra"

	"github.com/franz/music-catalog/internal/art"
	"github.com/franz/music-catalog/internal/util"
)

var artCmd = &cobra.Command{
	Use:   "art",
	Short: "Manage album art associations",
}

var artRefreshCmd = &cobra.Command{
	Use:   "refresh [artist] [album]",
	Short: "Re-rank album art candidates from scratch",
	Long: `Force a full re-ranking of candidate cover images. Ordinary passes
keep an existing association even when a better-named candidate has
appeared; this command re-evaluates everything. Without arguments every
album is refreshed.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runArtRefresh,
}

func init() {
	artCmd.AddCommand(artRefreshCmd)
	rootCmd.AddCommand(artCmd)
}

func runArtRefresh(cmd *cobra.Command, args []string) error {
	verbose, quiet := setupLogging()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	events := newEventLogger(verbose, quiet)
	defer events.Close()

	resolver := art.NewResolver(cfg.BasePath, st, logStream, events)

	if len(args) == 2 {
		al, err := findAlbum(st, args[0], args[1])
		if err != nil {
			return err
		}
		return resolver.Refresh(al)
	}

	albums, err := st.AllAlbums()
	if err != nil {
		return err
	}
	refreshed := 0
	for _, al := range albums {
		if al.Miscellaneous {
			continue
		}
		if err := resolver.Refresh(al); err != nil {
			return err
		}
		refreshed++
	}
	util.SuccessLog("Refreshed art for %d albums", refreshed)
	return nil
}
