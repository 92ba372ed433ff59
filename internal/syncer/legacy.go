package syncer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/franz/photo-sync/internal/digest"
	"github.com/franz/photo-sync/internal/store"
	"github.com/franz/photo-sync/internal/util"
	"github.com/franz/photo-sync/internal/walk"
)

// IndexResult summarizes phase 1
type IndexResult struct {
	Scanned     int
	Hashed      int // newly indexed paths
	Refreshed   int // metadata changed, content confirmed
	Current     int
	BytesHashed uint64
	Duration    time.Duration
}

type indexCounters struct {
	hashed      atomic.Int64
	refreshed   atomic.Int64
	current     atomic.Int64
	bytesHashed atomic.Uint64
}

// IndexLegacy makes sure every file under root is recorded in the legacy
// index with its digest. A legacy file whose content changed under an
// indexed path aborts the phase with an IntegrityError.
func (s *Syncer) IndexLegacy(ctx context.Context, root string) (*IndexResult, error) {
	start := time.Now()
	util.InfoLog("Scanning legacy archive: %s", root)

	entries, err := walk.Tree(s.fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate legacy archive: %w", err)
	}
	total := len(entries)
	util.InfoLog("Found %d legacy files (%s)", total, util.FormatBytes(walk.TotalSize(entries)))

	var c indexCounters
	prog := newProgress("Indexing", total, 100, func(done int64) string {
		return fmt.Sprintf("Indexed %d of %d legacy files, hashed %s",
			done, total, util.FormatBytes(c.bytesHashed.Load()))
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, e := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer prog.step()
			return s.indexOne(root, e, &c)
		})
	}

	err = g.Wait()
	prog.finish()
	if err != nil {
		return nil, err
	}

	res := &IndexResult{
		Scanned:     total,
		Hashed:      int(c.hashed.Load()),
		Refreshed:   int(c.refreshed.Load()),
		Current:     int(c.current.Load()),
		BytesHashed: c.bytesHashed.Load(),
		Duration:    time.Since(start),
	}

	util.SuccessLog("Legacy index complete: %d files, %d hashed, %d refreshed, %d unchanged (%s hashed)",
		res.Scanned, res.Hashed, res.Refreshed, res.Current, util.FormatBytes(res.BytesHashed))
	return res, nil
}

func (s *Syncer) indexOne(root string, e walk.Entry, c *indexCounters) error {
	status, err := s.ledger.LegacyLookup(e.Path, e.ModTime, e.Size)
	if err != nil {
		return err
	}

	switch st := status.(type) {
	case store.LegacyCurrent:
		c.current.Add(1)
		return nil

	case store.LegacyUnknown:
		d, err := s.hashLegacy(root, e, c)
		if err != nil {
			return err
		}
		if err := s.ledger.RecordLegacy(store.FileRecord{Path: e.Path, ModTime: e.ModTime, Size: e.Size, Digest: d}); err != nil {
			return err
		}
		c.hashed.Add(1)
		s.logger.LogLegacyIndexed(e.Path, d.String(), e.Size, e.ModTime, false)
		util.DebugLog("Indexed legacy file %s (%s)", e.Path, d.Short())
		return nil

	case store.LegacyStale:
		d, err := s.hashLegacy(root, e, c)
		if err != nil {
			return err
		}
		if d != st.Previous.Digest {
			s.logger.LogIntegrity(e.Path, st.Previous.Digest.String(), d.String())
			return IntegrityError.New("%s: content changed since it was indexed (digest was %s, now %s)",
				e.Path, st.Previous.Digest.Short(), d.Short())
		}
		if err := s.ledger.RecordLegacy(store.FileRecord{Path: e.Path, ModTime: e.ModTime, Size: e.Size, Digest: d}); err != nil {
			return err
		}
		c.refreshed.Add(1)
		s.logger.LogLegacyIndexed(e.Path, d.String(), e.Size, e.ModTime, true)
		util.DebugLog("Refreshed legacy metadata for %s (content unchanged)", e.Path)
		return nil

	default:
		return fmt.Errorf("unexpected legacy status %T for %s", status, e.Path)
	}
}

func (s *Syncer) hashLegacy(root string, e walk.Entry, c *indexCounters) (digest.Digest, error) {
	d, n, err := digest.FileFs(s.fs, walk.Join(root, e.Path))
	if err != nil {
		return digest.Digest{}, fmt.Errorf("legacy file %s: %w", e.Path, err)
	}
	c.bytesHashed.Add(uint64(n))
	return d, nil
}
