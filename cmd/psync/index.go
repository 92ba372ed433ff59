package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/photo-sync/internal/syncer"
	"github.com/franz/photo-sync/internal/util"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the legacy archive only",
	Long: `Hash every legacy archive file the ledger does not know yet.

This is the first phase of 'psync sync' on its own. Use it to warm the
ledger for a large legacy archive before the first sync, or to verify that
the archive has not changed: a file whose content differs from its
recorded digest makes the command fail.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logLevel := applyLogLevel()

	set, err := loadSettings("legacy", "db")
	if err != nil {
		return err
	}

	db, err := openLedger(set.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := openEventLogger(set.EventsDir, logLevel)
	defer logger.Close()

	s := syncer.New(&syncer.Config{
		Store:       db,
		Concurrency: set.Concurrency,
		Logger:      logger,
	})

	start := time.Now()
	res, err := s.IndexLegacy(ctx, set.Legacy)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	util.InfoLog("Indexed in %v", time.Since(start).Round(time.Millisecond))
	util.InfoLog("  Files: %d", res.Scanned)
	util.InfoLog("  Newly hashed: %d", res.Hashed)
	util.InfoLog("  Refreshed: %d", res.Refreshed)
	util.InfoLog("  Unchanged: %d", res.Current)
	return nil
}
