package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franz/music-catalog/internal/bundle"
	"github.com/franz/music-catalog/internal/util"
)

var zipCmd = &cobra.Command{
	Use:   "zip <artist> <album>",
	Short: "Build a downloadable zip archive for an album",
	Long: `Bundle an album's songs and art into a zip archive under the
configured zipfile_path and print its public download URL. An archive
that already exists is reported and served as-is; it is never rebuilt.`,
	Args: cobra.ExactArgs(2),
	RunE: runZip,
}

func init() {
	rootCmd.AddCommand(zipCmd)
}

func runZip(cmd *cobra.Command, args []string) error {
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

	z, err := bundle.NewZipper(st, cfg.BasePath, cfg.ZipPath, cfg.ZipURL, events)
	if err != nil {
		return err
	}

	al, err := findAlbum(st, args[0], args[1])
	if err != nil {
		return err
	}

	files, filename, err := z.Create(al)
	var exists *bundle.ExistsError
	if errors.As(err, &exists) {
		util.WarnLog("Zipfile already exists (created %s)", exists.ModTime.Format("2006-01-02 15:04:05"))
		fmt.Println(z.URL(exists.Filename))
		return nil
	}
	if err != nil {
		return err
	}

	util.SuccessLog("Bundled %d files into %s", len(files), filename)
	fmt.Println(z.URL(filename))
	return nil
}
