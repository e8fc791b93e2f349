package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure mcat can operate correctly.

This command checks:
- Required tools (ffprobe)
- SQLite availability
- Database accessibility and integrity
- Library base path readability
- Zipfile directory writability (when configured)

Use this command to troubleshoot issues before running mcat operations.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	setupLogging()

	util.InfoLog("=== MCAT Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{
		checkFFprobe(),
		checkSQLite(),
		checkDatabase(viper.GetString("db")),
		checkLibrary(viper.GetString("base_path")),
	}

	if zipPath := viper.GetString("zipfile_path"); zipPath != "" {
		results = append(results, checkZipDirectory(zipPath))
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		switch {
		case r.error:
			util.ErrorLog("%s", line)
		case r.warning:
			util.WarnLog("%s", line)
		default:
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before running mcat.")
		return fmt.Errorf("system diagnostics failed")
	}
	util.SuccessLog("All checks passed! System is ready for mcat operations.")
	return nil
}

// checkFFprobe verifies ffprobe is available and gets version
func checkFFprobe() checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe", "-version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return checkResult{
			name:    "ffprobe",
			error:   true,
			message: "not found or not executable (required for audio properties)",
		}
	}

	// Parse version from first line
	lines := strings.Split(string(output), "\n")
	version := "unknown"
	if len(lines) > 0 {
		parts := strings.Fields(lines[0])
		if len(parts) >= 3 {
			version = parts[2]
		}
	}

	return checkResult{
		name:    "ffprobe",
		message: fmt.Sprintf("version %s", version),
	}
}

// checkSQLite verifies the built-in SQLite works
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies database file accessibility and integrity
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	songs, _ := db.CountSongs()
	size := humanize.Bytes(uint64(info.Size()))

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, %d songs)", dbPath, size, songs),
	}
}

// checkLibrary verifies the library base path is a readable directory
func checkLibrary(path string) checkResult {
	if path == "" {
		return checkResult{
			name:    "Library",
			warning: true,
			message: "no base_path configured",
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    "Library",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}
	if !info.IsDir() {
		return checkResult{
			name:    "Library",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{
			name:    "Library",
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	return checkResult{
		name:    "Library",
		message: fmt.Sprintf("%s (%d entries)", path, len(entries)),
	}
}

// checkZipDirectory verifies the zipfile directory is writable
func checkZipDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Zipfile directory",
				message: fmt.Sprintf("%s (will be created on first zip)", path),
			}
		}
		return checkResult{
			name:    "Zipfile directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}
	if !info.IsDir() {
		return checkResult{
			name:    "Zipfile directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".mcat_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Zipfile directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Zipfile directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}
