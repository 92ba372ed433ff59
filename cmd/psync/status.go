package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/franz/photo-sync/internal/store"
	"github.com/franz/photo-sync/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger statistics",
	Long: `Show what the ledger knows: indexed legacy files, transferred files,
and the number of distinct contents across both.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	dbPath, err := RequireConfigString("db")
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("%w: ledger %s (%v)", util.ErrNotFound, dbPath, err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read statistics: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ledger: %s\n\n", dbPath)
	fmt.Fprintf(out, "  Legacy archive:     %d files, %s\n", stats.LegacyFiles, util.FormatBytes(stats.LegacyBytes))
	fmt.Fprintf(out, "  Transferred:        %d files, %s\n", stats.Transfers, util.FormatBytes(stats.TransferBytes))
	fmt.Fprintf(out, "  Distinct contents:  %d\n", stats.DistinctDigests)
	return nil
}
