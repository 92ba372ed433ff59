// Package syncer drives the three sync phases: indexing the legacy archive,
// detecting new source files, and transferring them into the destination
// with content-addressed deduplication.
package syncer

import (
	"context"
	"runtime"
	"sync"

	"github.com/spf13/afero"
	"github.com/zeebo/errs"

	"github.com/franz/photo-sync/internal/digest"
	"github.com/franz/photo-sync/internal/report"
	"github.com/franz/photo-sync/internal/staging"
	"github.com/franz/photo-sync/internal/store"
	"github.com/franz/photo-sync/internal/util"
)

// IntegrityError marks a legacy file whose content changed under a path that
// was already indexed. It always aborts the run.
var IntegrityError = errs.Class("legacy integrity")

// Ledger is the subset of the metadata store the phases need
type Ledger interface {
	LegacyLookup(path string, modTime int64, size uint64) (store.LegacyStatus, error)
	RecordLegacy(r store.FileRecord) error
	HasDigest(d digest.Digest) (bool, error)
	TransferLookup(path string, modTime int64, size uint64) (store.TransferStatus, error)
	RecordTransfer(r store.FileRecord) error
}

// Syncer runs sync phases against a Ledger
type Syncer struct {
	ledger      Ledger
	fs          afero.Fs
	staging     *staging.Dir
	concurrency int
	bufferSize  int
	logger      *report.EventLogger

	// held across the digest check, publish and ledger write of phase 3 so
	// identical candidates never both publish
	commitMu sync.Mutex
}

// Config holds syncer configuration
type Config struct {
	Store       Ledger
	Fs          afero.Fs     // source and legacy trees (nil = OS filesystem)
	Staging     *staging.Dir // required for Transfer
	Concurrency int          // workers for phases 1 and 3 (0 = NumCPU)
	BufferSize  int          // copy buffer in bytes (0 = 128KiB)
	Logger      *report.EventLogger
}

// New creates a new Syncer
func New(cfg *Config) *Syncer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 128 * 1024
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	return &Syncer{
		ledger:      cfg.Store,
		fs:          cfg.Fs,
		staging:     cfg.Staging,
		concurrency: cfg.Concurrency,
		bufferSize:  cfg.BufferSize,
		logger:      cfg.Logger,
	}
}

// Roots names the three trees a run works on
type Roots struct {
	Source string
	Dest   string
	Legacy string
}

// RunResult collects the per-phase results of Run
type RunResult struct {
	Index    *IndexResult
	Detect   *DetectResult
	Transfer *TransferResult
}

// Run executes the three phases in order. Each phase completes before the
// next one starts. A non-nil error means the run was aborted; the results of
// the phases that finished are still returned.
func (s *Syncer) Run(ctx context.Context, roots Roots) (*RunResult, error) {
	res := &RunResult{}
	var err error

	util.InfoLog("=== Phase 1: Index legacy archive ===")
	res.Index, err = s.IndexLegacy(ctx, roots.Legacy)
	if err != nil {
		return res, err
	}

	util.InfoLog("")
	util.InfoLog("=== Phase 2: Detect new files ===")
	res.Detect, err = s.DetectCandidates(ctx, roots.Source)
	if err != nil {
		return res, err
	}

	util.InfoLog("")
	util.InfoLog("=== Phase 3: Transfer new files ===")
	res.Transfer, err = s.Transfer(ctx, roots.Source, roots.Dest, res.Detect.Candidates)
	if err != nil {
		return res, err
	}

	return res, nil
}
