package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/photo-sync/internal/report"
	"github.com/franz/photo-sync/internal/staging"
	"github.com/franz/photo-sync/internal/syncer"
	"github.com/franz/photo-sync/internal/util"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index the legacy archive, then transfer new source files",
	Long: `Run a full sync in three phases:

1. Index: hash every legacy archive file the ledger does not know yet.
   A legacy file whose content changed under an indexed path stops the run.
2. Detect: compare the source tree against the transfer ledger. New files
   become candidates; files changed since their transfer are listed for
   manual review and never copied again.
3. Transfer: copy candidates through the staging directory, hashing while
   copying. Content already in the legacy archive or the destination is
   skipped; everything else is published without overwriting anything.

Files that cannot be read are reported and retried on the next run.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logLevel := applyLogLevel()

	set, err := loadSettings("source", "dest", "legacy", "db", "staging")
	if err != nil {
		return err
	}

	db, err := openLedger(set.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	stg, err := staging.New(set.Staging, set.Dest)
	if err != nil {
		return err
	}
	cleanLeftovers(stg)

	logger := openEventLogger(set.EventsDir, logLevel)
	defer logger.Close()

	s := syncer.New(&syncer.Config{
		Store:       db,
		Staging:     stg,
		Concurrency: set.Concurrency,
		Logger:      logger,
	})

	util.InfoLog("Source: %s", set.Source)
	util.InfoLog("Destination: %s", set.Dest)
	util.InfoLog("Legacy archive: %s", set.Legacy)
	util.InfoLog("")

	start := time.Now()
	res, runErr := s.Run(ctx, syncer.Roots{Source: set.Source, Dest: set.Dest, Legacy: set.Legacy})

	summary := buildSummary(set, res, time.Since(start))
	summary.EventLogPath = logger.Path()
	summary.RunID = logger.RunID()
	if stats, err := db.GetStats(); err == nil {
		summary.Ledger = stats
	} else {
		util.WarnLog("Failed to read ledger statistics: %v", err)
	}

	summaryPath := filepath.Join(set.EventsDir, fmt.Sprintf("summary-%s.md", start.Format("20060102-150405")))
	if err := report.WriteMarkdownSummary(summary, summaryPath); err != nil {
		util.WarnLog("Failed to write summary: %v", err)
	} else {
		util.InfoLog("Summary: %s", summaryPath)
	}

	if runErr != nil {
		return fmt.Errorf("sync aborted: %w", runErr)
	}

	util.InfoLog("")
	util.SuccessLog("=== Sync Summary ===")
	util.InfoLog("Total time: %v", summary.Duration.Round(time.Millisecond))
	util.InfoLog("  Stored: %d files (%s)", summary.Transferred, util.FormatBytes(summary.BytesStored))
	util.InfoLog("  Duplicates skipped: %d", summary.Duplicates)
	if len(summary.NeedsReview) > 0 {
		util.WarnLog("  Need manual review: %d", len(summary.NeedsReview))
	}
	if len(summary.Failures) > 0 {
		util.WarnLog("  Failed (retried next run): %d", len(summary.Failures))
	}

	return nil
}

// cleanLeftovers removes staging files left by a run that died mid-copy.
// They were never published, so nothing references them.
func cleanLeftovers(stg *staging.Dir) {
	leftovers, err := stg.Leftovers()
	if err != nil {
		util.WarnLog("Failed to list staging directory: %v", err)
		return
	}
	if len(leftovers) == 0 {
		return
	}

	util.WarnLog("Removing %d staging files left by an interrupted run", len(leftovers))
	for _, path := range leftovers {
		if err := os.Remove(path); err != nil {
			util.WarnLog("Failed to remove %s: %v", path, err)
		}
	}
}

// buildSummary converts a (possibly partial) run result into a report summary
func buildSummary(set *settings, res *syncer.RunResult, duration time.Duration) *report.Summary {
	summary := &report.Summary{
		GeneratedAt:     time.Now(),
		Duration:        duration,
		SourcePath:      set.Source,
		DestinationPath: set.Dest,
		LegacyPath:      set.Legacy,
		DatabasePath:    set.DB,
	}
	if res == nil {
		return summary
	}

	if idx := res.Index; idx != nil {
		summary.LegacyScanned = idx.Scanned
		summary.LegacyHashed = idx.Hashed
		summary.LegacyRefreshed = idx.Refreshed
		summary.LegacyBytesHashed = idx.BytesHashed
	}

	if det := res.Detect; det != nil {
		summary.SourceScanned = det.Scanned
		summary.Candidates = len(det.Candidates)
		for _, r := range det.NeedsReview {
			summary.NeedsReview = append(summary.NeedsReview, report.ReviewItem{
				Path:        r.Path,
				ModTime:     r.ModTime,
				Size:        r.Size,
				PrevModTime: r.Previous.ModTime,
				PrevSize:    r.Previous.Size,
			})
		}
	}

	if tr := res.Transfer; tr != nil {
		summary.Transferred = tr.Stored
		summary.Duplicates = tr.Duplicates
		summary.BytesConsidered = tr.BytesConsidered
		summary.BytesStored = tr.BytesStored
		for _, f := range tr.Failures {
			summary.Failures = append(summary.Failures, report.FailureItem{
				Path:  f.Path,
				Kind:  string(f.Kind),
				Error: f.Err.Error(),
			})
		}
	}

	return summary
}
