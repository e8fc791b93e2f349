package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/franz/music-catalog/internal/art"
	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/tags"
	"github.com/franz/music-catalog/internal/util"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Import new audio files into the catalog",
	Long: `Scan the library for audio files not yet in the catalog and import
them: tags are read, artists and albums are resolved or created, and
album art is associated.

Files already cataloged are left untouched even when their tags
changed; use 'mcat update' for a full reconciliation.`,
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	return runPass((*catalog.Engine).Add)
}

// runPass wires up a reconciliation pass and executes it
func runPass(pass func(*catalog.Engine) error) error {
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

	if !tags.CheckFFprobeAvailable() {
		util.WarnLog("ffprobe not found in PATH - song length and bitrate will be missing")
	}

	eng, err := catalog.New(&catalog.Options{
		Store:    st,
		Config:   cfg,
		Stream:   logStream,
		Events:   events,
		Art:      art.NewResolver(cfg.BasePath, st, logStream, events),
		Progress: !quiet && util.IsTerminal(os.Stderr.Fd()),
	})
	if err != nil {
		return err
	}

	if err := pass(eng); err != nil {
		return fmt.Errorf("pass failed: %w", err)
	}
	return nil
}
