package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/name"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
)

// loadConfig builds the pass configuration from viper with the usual
// precedence: flags, MCAT_* environment variables, config file, defaults
func loadConfig() (catalog.Config, error) {
	cfg := catalog.Config{
		BasePath: viper.GetString("base_path"),
		MediaURL: viper.GetString("media_url"),
		ZipPath:  viper.GetString("zipfile_path"),
		ZipURL:   viper.GetString("zipfile_url"),
		ArtSizes: catalog.DefaultArtSizes(),
	}

	if v := viper.GetInt("art_size_album"); v > 0 {
		cfg.ArtSizes[catalog.SizeAlbum] = v
	}
	if v := viper.GetInt("art_size_list"); v > 0 {
		cfg.ArtSizes[catalog.SizeList] = v
	}

	if cfg.BasePath == "" {
		return cfg, fmt.Errorf("library base path is required (set base_path or MCAT_BASE_PATH)")
	}
	if _, err := os.Stat(cfg.BasePath); os.IsNotExist(err) {
		return cfg, fmt.Errorf("library base path does not exist: %s", cfg.BasePath)
	}

	return cfg, cfg.Validate()
}

// setupLogging applies the verbose/quiet flags to the process logger
func setupLogging() (verbose, quiet bool) {
	verbose = viper.GetBool("verbose")
	quiet = viper.GetBool("quiet")
	util.SetVerbose(verbose)
	util.SetQuiet(quiet)
	util.SetColors(!viper.GetBool("no-color"))
	return verbose, quiet
}

// openStore opens the catalog database named by the db setting
func openStore() (*store.Store, error) {
	dbPath := viper.GetString("db")
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// newEventLogger creates the JSONL audit logger for a pass. A failure
// degrades to no audit log rather than blocking the pass.
func newEventLogger(verbose, quiet bool) *report.EventLogger {
	minLevel := report.StatusInfo
	if quiet {
		minLevel = report.StatusWarning
	} else if verbose {
		minLevel = report.StatusDebug
	}

	logDir := viper.GetString("log_dir")
	if logDir == "" {
		logDir = "artifacts"
	}

	logger, err := report.NewEventLogger(logDir, minLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return nil
	}
	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}
	return logger
}

// logStream renders pass status lines through the process logger
func logStream(l report.Line) {
	switch l.Status {
	case report.StatusDebug:
		util.DebugLog("%s", l.Message)
	case report.StatusWarning:
		util.WarnLog("%s", l.Message)
	case report.StatusError:
		util.ErrorLog("%s", l.Message)
	case report.StatusSuccess:
		util.SuccessLog("%s", l.Message)
	default:
		util.InfoLog("%s", l.Message)
	}
}

// findAlbum resolves an artist and album display name to the stored
// album entity
func findAlbum(st *store.Store, artistName, albumName string) (*store.Album, error) {
	_, base := name.SplitPrefix(artistName)
	artist, err := st.GetArtistByNorm(name.Normalize(base))
	if err != nil {
		return nil, err
	}
	if artist == nil {
		return nil, fmt.Errorf("artist not found: %s", artistName)
	}

	al, err := st.GetAlbumByArtistNorm(artist.ID, name.Normalize(albumName))
	if err != nil {
		return nil, err
	}
	if al == nil {
		return nil, fmt.Errorf("album not found: %s / %s", artistName, albumName)
	}
	return al, nil
}
