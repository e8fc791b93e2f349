package main

import (
	"github.com/spf13/cobra"

	"github.com/franz/music-catalog/internal/catalog"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fully reconcile the catalog against the library",
	Long: `Reconcile the whole catalog against the library tree. In addition to
importing new files this detects moved files by content hash, applies
tag changes to existing songs, and removes records whose files are
gone. Orphaned artists and albums are pruned afterwards.`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	return runPass((*catalog.Engine).Update)
}
