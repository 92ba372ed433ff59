package store

import (
	"fmt"

	"github.com/franz/photo-sync/internal/digest"
)

// LegacyLookup classifies path against the legacy archive index
func (s *Store) LegacyLookup(path string, modTime int64, size uint64) (LegacyStatus, error) {
	r, err := s.getRecord(legacyTable, path)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("failed to look up legacy file %q: %w", path, err))
	}

	switch {
	case r == nil:
		return LegacyUnknown{}, nil
	case r.Matches(modTime, size):
		return LegacyCurrent{}, nil
	default:
		return LegacyStale{Previous: *r}, nil
	}
}

// RecordLegacy inserts or replaces the index entry for r.Path
func (s *Store) RecordLegacy(r FileRecord) error {
	if err := s.putRecord(legacyTable, r); err != nil {
		return Error.Wrap(fmt.Errorf("failed to record legacy file %q: %w", r.Path, err))
	}
	return nil
}

// GetLegacy retrieves a legacy index entry, or nil if the path is not indexed
func (s *Store) GetLegacy(path string) (*FileRecord, error) {
	r, err := s.getRecord(legacyTable, path)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("failed to get legacy file %q: %w", path, err))
	}
	return r, nil
}

// HasDigest reports whether d is present anywhere in the target: either in the
// legacy archive or among transferred files.
func (s *Store) HasDigest(d digest.Digest) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM target_digests WHERE digest = ?)", d).Scan(&one)
	if err != nil {
		return false, Error.Wrap(fmt.Errorf("failed to query digest %s: %w", d.Short(), err))
	}
	return one == 1, nil
}
