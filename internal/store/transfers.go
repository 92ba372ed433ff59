package store

import "fmt"

// TransferLookup classifies a source path against the transfer ledger
func (s *Store) TransferLookup(path string, modTime int64, size uint64) (TransferStatus, error) {
	r, err := s.getRecord(transferTable, path)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("failed to look up transfer %q: %w", path, err))
	}

	switch {
	case r == nil:
		return TransferNew{}, nil
	case r.Matches(modTime, size):
		return TransferDone{}, nil
	default:
		return TransferChanged{Previous: *r}, nil
	}
}

// RecordTransfer marks r.Path as handled. It is written whether or not new
// bytes reached the destination.
func (s *Store) RecordTransfer(r FileRecord) error {
	if err := s.putRecord(transferTable, r); err != nil {
		return Error.Wrap(fmt.Errorf("failed to record transfer %q: %w", r.Path, err))
	}
	return nil
}

// GetTransfer retrieves a ledger entry, or nil if the path was never transferred
func (s *Store) GetTransfer(path string) (*FileRecord, error) {
	r, err := s.getRecord(transferTable, path)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("failed to get transfer %q: %w", path, err))
	}
	return r, nil
}

// Stats summarizes both corpora
type Stats struct {
	LegacyFiles     int
	LegacyBytes     uint64
	Transfers       int
	TransferBytes   uint64
	DistinctDigests int
}

// GetStats returns row counts and byte totals for both corpora
func (s *Store) GetStats() (*Stats, error) {
	st := &Stats{}
	var legacyBytes, transferBytes int64

	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(size), 0) FROM legacy_archive_index
	`).Scan(&st.LegacyFiles, &legacyBytes)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("failed to count legacy files: %w", err))
	}

	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(size), 0) FROM transfer_ledger
	`).Scan(&st.Transfers, &transferBytes)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("failed to count transfers: %w", err))
	}

	err = s.db.QueryRow(`
		SELECT COUNT(DISTINCT digest) FROM target_digests
	`).Scan(&st.DistinctDigests)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("failed to count digests: %w", err))
	}

	st.LegacyBytes = uint64(legacyBytes)
	st.TransferBytes = uint64(transferBytes)
	return st, nil
}
