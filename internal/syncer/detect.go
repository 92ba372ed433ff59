package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/franz/photo-sync/internal/store"
	"github.com/franz/photo-sync/internal/util"
	"github.com/franz/photo-sync/internal/walk"
)

// Review is a source file whose metadata differs from its transfer record.
// It is reported for a human to resolve and never transferred again.
type Review struct {
	Path     string
	ModTime  int64
	Size     uint64
	Previous store.FileRecord
}

// DetectResult summarizes phase 2
type DetectResult struct {
	Scanned        int
	Candidates     []string // in walk order
	CandidateBytes uint64
	AlreadyDone    int
	NeedsReview    []Review // in walk order
	Duration       time.Duration
}

// DetectCandidates classifies every file under root against the transfer
// ledger. Only files the ledger has never seen become candidates.
func (s *Syncer) DetectCandidates(ctx context.Context, root string) (*DetectResult, error) {
	start := time.Now()
	util.InfoLog("Scanning source: %s", root)

	entries, err := walk.Tree(s.fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate source: %w", err)
	}

	res := &DetectResult{Scanned: len(entries)}
	prog := newProgress("Detecting", len(entries), 100, func(done int64) string {
		return fmt.Sprintf("Checked %d of %d source files, %d candidates (%s)",
			done, len(entries), len(res.Candidates), util.FormatBytes(res.CandidateBytes))
	})

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			prog.finish()
			return nil, err
		}

		status, err := s.ledger.TransferLookup(e.Path, e.ModTime, e.Size)
		if err != nil {
			prog.finish()
			return nil, err
		}

		switch st := status.(type) {
		case store.TransferNew:
			res.Candidates = append(res.Candidates, e.Path)
			res.CandidateBytes += e.Size
			s.logger.LogCandidate(e.Path, e.Size, e.ModTime)
		case store.TransferDone:
			res.AlreadyDone++
		case store.TransferChanged:
			res.NeedsReview = append(res.NeedsReview, Review{
				Path:     e.Path,
				ModTime:  e.ModTime,
				Size:     e.Size,
				Previous: st.Previous,
			})
			s.logger.LogReview(e.Path, e.ModTime, e.Size, st.Previous.ModTime, st.Previous.Size)
		default:
			prog.finish()
			return nil, fmt.Errorf("unexpected transfer status %T for %s", status, e.Path)
		}

		prog.step()
	}
	prog.finish()
	res.Duration = time.Since(start)

	util.SuccessLog("Detection complete: %d files, %d candidates (%s), %d already transferred",
		res.Scanned, len(res.Candidates), util.FormatBytes(res.CandidateBytes), res.AlreadyDone)

	for _, r := range res.NeedsReview {
		util.WarnLog("Changed since transfer, needs review: %s (was %s, mtime %d; now %s, mtime %d)",
			r.Path, util.FormatBytes(r.Previous.Size), r.Previous.ModTime, util.FormatBytes(r.Size), r.ModTime)
	}

	return res, nil
}
