package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/franz/photo-sync/internal/store"
	"github.com/franz/photo-sync/internal/util"
)

// Summary is the end-of-run report
type Summary struct {
	RunID       string
	GeneratedAt time.Time
	Duration    time.Duration

	// Phase 1
	LegacyScanned     int
	LegacyHashed      int
	LegacyRefreshed   int
	LegacyBytesHashed uint64

	// Phase 2
	SourceScanned int
	Candidates    int
	NeedsReview   []ReviewItem

	// Phase 3
	Transferred     int
	Duplicates      int
	BytesConsidered uint64
	BytesStored     uint64
	Failures        []FailureItem

	Ledger *store.Stats

	SourcePath      string
	DestinationPath string
	LegacyPath      string
	DatabasePath    string
	EventLogPath    string
}

// ReviewItem is a source file left for manual review
type ReviewItem struct {
	Path        string
	ModTime     int64
	Size        uint64
	PrevModTime int64
	PrevSize    uint64
}

// FailureItem is a source file that could not be transferred this run
type FailureItem struct {
	Path  string
	Kind  string
	Error string
}

// WriteMarkdownSummary renders s as markdown to outputPath
func WriteMarkdownSummary(s *Summary, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(RenderMarkdown(s)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// RenderMarkdown renders s as a markdown document
func RenderMarkdown(s *Summary) string {
	var md strings.Builder

	md.WriteString("# psync run summary\n\n")
	if s.RunID != "" {
		fmt.Fprintf(&md, "Run: `%s`  \n", s.RunID)
	}
	fmt.Fprintf(&md, "Generated: %s  \n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&md, "Duration: %s\n\n", s.Duration.Round(time.Millisecond))

	md.WriteString("## Configuration\n\n")
	md.WriteString("| Setting | Value |\n|---|---|\n")
	fmt.Fprintf(&md, "| Source | `%s` |\n", s.SourcePath)
	fmt.Fprintf(&md, "| Destination | `%s` |\n", s.DestinationPath)
	fmt.Fprintf(&md, "| Legacy archive | `%s` |\n", s.LegacyPath)
	fmt.Fprintf(&md, "| Database | `%s` |\n", s.DatabasePath)
	if s.EventLogPath != "" {
		fmt.Fprintf(&md, "| Event log | `%s` |\n", s.EventLogPath)
	}
	md.WriteString("\n")

	md.WriteString("## Phases\n\n")
	md.WriteString("| Phase | Result |\n|---|---|\n")
	fmt.Fprintf(&md, "| Legacy index | %d scanned, %d hashed (%s), %d refreshed |\n",
		s.LegacyScanned, s.LegacyHashed, util.FormatBytes(s.LegacyBytesHashed), s.LegacyRefreshed)
	fmt.Fprintf(&md, "| Detection | %d scanned, %d candidates, %d need review |\n",
		s.SourceScanned, s.Candidates, len(s.NeedsReview))
	fmt.Fprintf(&md, "| Transfer | %d stored, %d duplicates, %d failed, %s of %s added |\n",
		s.Transferred, s.Duplicates, len(s.Failures),
		util.FormatBytes(s.BytesStored), util.FormatBytes(s.BytesConsidered))
	md.WriteString("\n")

	if s.Ledger != nil {
		md.WriteString("## Ledger\n\n")
		fmt.Fprintf(&md, "- Legacy archive: %d files, %s\n", s.Ledger.LegacyFiles, util.FormatBytes(s.Ledger.LegacyBytes))
		fmt.Fprintf(&md, "- Transferred: %d files, %s\n", s.Ledger.Transfers, util.FormatBytes(s.Ledger.TransferBytes))
		fmt.Fprintf(&md, "- Distinct contents: %d\n\n", s.Ledger.DistinctDigests)
	}

	if len(s.NeedsReview) > 0 {
		md.WriteString("## Changed since transfer (manual review)\n\n")
		md.WriteString("| Path | Was | Now |\n|---|---|---|\n")
		for _, r := range s.NeedsReview {
			fmt.Fprintf(&md, "| `%s` | %s, %s | %s, %s |\n", r.Path,
				time.Unix(r.PrevModTime, 0).UTC().Format(time.RFC3339), util.FormatBytes(r.PrevSize),
				time.Unix(r.ModTime, 0).UTC().Format(time.RFC3339), util.FormatBytes(r.Size))
		}
		md.WriteString("\n")
	}

	if len(s.Failures) > 0 {
		md.WriteString("## Failed transfers (retried next run)\n\n")
		md.WriteString("| Path | Failure | Error |\n|---|---|---|\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&md, "| `%s` | %s | %s |\n", f.Path, f.Kind, strings.ReplaceAll(f.Error, "|", "\\|"))
		}
		md.WriteString("\n")
	}

	return md.String()
}
