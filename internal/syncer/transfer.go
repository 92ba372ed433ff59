package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/franz/photo-sync/internal/digest"
	"github.com/franz/photo-sync/internal/staging"
	"github.com/franz/photo-sync/internal/store"
	"github.com/franz/photo-sync/internal/util"
	"github.com/franz/photo-sync/internal/walk"
)

// FailureKind classifies a per-file transfer failure. Failed files get no
// ledger record, so the next run retries them.
type FailureKind string

const (
	FailedToOpen FailureKind = "failed_to_open"
	FailedToCopy FailureKind = "failed_to_copy"
)

// Failure is a candidate that could not be transferred this run
type Failure struct {
	Path string
	Kind FailureKind
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Path, f.Kind, f.Err)
}

// TransferResult summarizes phase 3
type TransferResult struct {
	Processed       int
	Stored          int
	Duplicates      int
	BytesConsidered uint64
	BytesStored     uint64
	Failures        []Failure // in candidate order
	Duration        time.Duration
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeStored
	outcomeDuplicate
	outcomeFailed
)

type transferItem struct {
	outcome outcome
	failure Failure
}

type transferCounters struct {
	considered atomic.Uint64
	stored     atomic.Uint64
}

// Transfer copies each candidate from srcRoot into destRoot unless its
// content is already present in the target, and records every file it
// handled in the transfer ledger. Open and copy failures are collected and
// the phase carries on. Ledger failures and destination collisions abort it.
func (s *Syncer) Transfer(ctx context.Context, srcRoot, destRoot string, candidates []string) (*TransferResult, error) {
	if s.staging == nil {
		return nil, fmt.Errorf("%w: transfer needs a staging directory", util.ErrInvalidConfig)
	}

	start := time.Now()
	total := len(candidates)
	util.InfoLog("Transferring %d files to %s (%d workers)", total, destRoot, s.concurrency)

	items := make([]transferItem, total)
	var c transferCounters
	prog := newProgress("Transferring", total, 10, func(done int64) string {
		return fmt.Sprintf("Processed %d of %d files, stored %s of %s",
			done, total, util.FormatBytes(c.stored.Load()), util.FormatBytes(c.considered.Load()))
	})

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(s.concurrency)

	for i, path := range candidates {
		p.Go(func(ctx context.Context) error {
			if ctx.Err() != nil {
				return nil
			}
			item, err := s.transferOne(ctx, srcRoot, destRoot, path, &c)
			if err != nil {
				return err
			}
			items[i] = item
			prog.step()
			return nil
		})
	}

	err := p.Wait()
	prog.finish()
	if err == nil {
		err = ctx.Err()
	}

	res := &TransferResult{
		BytesConsidered: c.considered.Load(),
		BytesStored:     c.stored.Load(),
		Duration:        time.Since(start),
	}
	for _, item := range items {
		switch item.outcome {
		case outcomeStored:
			res.Stored++
		case outcomeDuplicate:
			res.Duplicates++
		case outcomeFailed:
			res.Failures = append(res.Failures, item.failure)
		default:
			continue
		}
		res.Processed++
	}

	if err != nil {
		return res, err
	}

	util.SuccessLog("Transfer complete: %d stored, %d duplicates, %d failed; %s of %s added",
		res.Stored, res.Duplicates, len(res.Failures),
		util.FormatBytes(res.BytesStored), util.FormatBytes(res.BytesConsidered))
	for _, f := range res.Failures {
		util.ErrorLog("Failed to transfer %s (%s): %v", f.Path, f.Kind, f.Err)
	}

	return res, nil
}

// transferOne handles a single candidate. A returned error is fatal for the
// phase; per-file failures come back in the item.
func (s *Syncer) transferOne(ctx context.Context, srcRoot, destRoot, path string, c *transferCounters) (transferItem, error) {
	start := time.Now()
	fail := func(kind FailureKind, err error) (transferItem, error) {
		s.logger.LogFailure(path, string(kind), err)
		return transferItem{outcome: outcomeFailed, failure: Failure{Path: path, Kind: kind, Err: err}}, nil
	}

	src, err := s.fs.Open(walk.Join(srcRoot, path))
	if err != nil {
		return fail(FailedToOpen, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fail(FailedToOpen, err)
	}
	if !info.Mode().IsRegular() {
		return fail(FailedToOpen, errors.New("no longer a regular file"))
	}
	size := uint64(info.Size())
	c.considered.Add(size)

	staged, err := s.staging.Create()
	if err != nil {
		return transferItem{}, err
	}

	w := digest.NewWriter(staged)
	_, err = copyWithContext(ctx, w, src, make([]byte, s.bufferSize))
	if err == nil {
		var d digest.Digest
		d, err = w.Finalize()
		if err == nil && uint64(w.Written()) != size {
			err = fmt.Errorf("source changed while copying: read %d of %d bytes", w.Written(), size)
		}
		if err == nil {
			return s.commit(path, destRoot, info.ModTime().Unix(), size, d, staged, start, c)
		}
	}

	if discardErr := staged.Discard(); discardErr != nil {
		util.WarnLog("Failed to remove staging file %s: %v", staged.Path(), discardErr)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return transferItem{}, err
	}
	return fail(FailedToCopy, err)
}

// commit decides between publish and discard and writes the ledger record.
// It runs under commitMu so two candidates with the same content cannot
// both see their digest as absent.
func (s *Syncer) commit(path, destRoot string, modTime int64, size uint64, d digest.Digest, staged *staging.File, start time.Time, c *transferCounters) (transferItem, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	present, err := s.ledger.HasDigest(d)
	if err != nil {
		staged.Discard()
		return transferItem{}, err
	}

	item := transferItem{outcome: outcomeStored}
	if present {
		if err := staged.Discard(); err != nil {
			util.WarnLog("Failed to remove staging file %s: %v", staged.Path(), err)
		}
		item.outcome = outcomeDuplicate
	} else {
		dest := walk.Join(destRoot, path)
		if err := staged.Publish(dest); err != nil {
			if !errors.Is(err, util.ErrConflict) || !alreadyPublished(dest, d) {
				return transferItem{}, fmt.Errorf("failed to publish %s: %w", path, err)
			}
			util.WarnLog("%s is already in place with identical content, recording it", path)
		}
	}

	if err := s.ledger.RecordTransfer(store.FileRecord{Path: path, ModTime: modTime, Size: size, Digest: d}); err != nil {
		return transferItem{}, err
	}

	if item.outcome == outcomeDuplicate {
		s.logger.LogDuplicate(path, d.String(), size)
		util.DebugLog("Skipped %s: content %s already in target", path, d.Short())
	} else {
		c.stored.Add(size)
		s.logger.LogTransfer(path, walk.Join(destRoot, path), d.String(), size, time.Since(start))
		util.DebugLog("Stored %s (%s, %s)", path, util.FormatBytes(size), d.Short())
	}
	return item, nil
}

// alreadyPublished reports whether dest holds exactly the content d. This is
// the state left by a run that stopped between publish and ledger write.
func alreadyPublished(dest string, d digest.Digest) bool {
	existing, _, err := digest.File(dest)
	return err == nil && existing == d
}
