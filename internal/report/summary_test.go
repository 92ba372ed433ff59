package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/photo-sync/internal/store"
)

func TestWriteMarkdownSummary(t *testing.T) {
	s := &Summary{
		RunID:           "7c1e6d3a-0b7f-4f7e-9a51-1d2c3b4a5f60",
		GeneratedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:        3 * time.Second,
		LegacyScanned:   4,
		LegacyHashed:    2,
		SourceScanned:   10,
		Candidates:      3,
		Transferred:     1,
		Duplicates:      1,
		BytesConsidered: 2048,
		BytesStored:     1024,
		NeedsReview: []ReviewItem{
			{Path: "edited.jpg", ModTime: 200, Size: 20, PrevModTime: 100, PrevSize: 10},
		},
		Failures: []FailureItem{
			{Path: "locked.jpg", Kind: "failed_to_open", Error: "permission denied"},
		},
		Ledger:          &store.Stats{LegacyFiles: 4, Transfers: 2, DistinctDigests: 5},
		SourcePath:      "/src",
		DestinationPath: "/dst",
		LegacyPath:      "/old",
		DatabasePath:    "/state.db",
	}

	out := filepath.Join(t.TempDir(), "reports", "summary.md")
	require.NoError(t, WriteMarkdownSummary(s, out))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	md := string(content)

	assert.Contains(t, md, "# psync run summary")
	assert.Contains(t, md, "Run: `7c1e6d3a-0b7f-4f7e-9a51-1d2c3b4a5f60`")
	assert.Contains(t, md, "| Transfer | 1 stored, 1 duplicates, 1 failed, 1.0 KiB of 2.0 KiB added |")
	assert.Contains(t, md, "`edited.jpg`")
	assert.Contains(t, md, "| `locked.jpg` | failed_to_open | permission denied |")
	assert.Contains(t, md, "Distinct contents: 5")
}

func TestRenderMarkdownOmitsEmptySections(t *testing.T) {
	md := RenderMarkdown(&Summary{GeneratedAt: time.Now()})
	assert.NotContains(t, md, "manual review")
	assert.NotContains(t, md, "Failed transfers")
	assert.NotContains(t, md, "## Ledger")
	assert.NotContains(t, md, "Run:")
}
