package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/franz/music-catalog/internal/art"
	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/util"
)

var thumbCmd = &cobra.Command{
	Use:   "thumb <artist> <album>",
	Short: "Generate or fetch an album thumbnail",
	Long: `Return the cached thumbnail for an album, generating and caching it
first when needed. The result is written as JPEG to --out, or to
stdout when --out is not given.`,
	Args: cobra.ExactArgs(2),
	RunE: runThumb,
}

func init() {
	thumbCmd.Flags().String("size", catalog.SizeAlbum, "thumbnail size class (album or list)")
	thumbCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(thumbCmd)
}

func runThumb(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := loadConfig()
	if err != nil {
		return err
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

	size, _ := cmd.Flags().GetString("size")
	out, _ := cmd.Flags().GetString("out")

	cache := art.NewThumbnailCache(cfg.BasePath, st, cfg.ArtSizes)
	data, err := cache.GetOrCreate(al, size)
	if err != nil {
		return fmt.Errorf("no thumbnail for %s / %s: %w", args[0], args[1], err)
	}

	if out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	util.SuccessLog("Wrote %s thumbnail to %s", size, out)
	return nil
}
