package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/franz/photo-sync/internal/digest"
)

// FileRecord is one row of either corpus
type FileRecord struct {
	Path    string // slash-separated, relative to the corpus root
	ModTime int64  // unix seconds
	Size    uint64
	Digest  digest.Digest
}

// Matches reports whether r describes a file with the given metadata
func (r FileRecord) Matches(modTime int64, size uint64) bool {
	return r.ModTime == modTime && r.Size == size
}

// LegacyStatus is the result of LegacyLookup. It is one of LegacyUnknown,
// LegacyCurrent or LegacyStale.
type LegacyStatus interface {
	isLegacyStatus()
}

// LegacyUnknown means the path has never been indexed
type LegacyUnknown struct{}

// LegacyCurrent means the path was indexed with identical metadata
type LegacyCurrent struct{}

// LegacyStale means the path was indexed, but its metadata has changed since
type LegacyStale struct {
	Previous FileRecord
}

func (LegacyUnknown) isLegacyStatus() {}
func (LegacyCurrent) isLegacyStatus() {}
func (LegacyStale) isLegacyStatus()   {}

// TransferStatus is the result of TransferLookup. It is one of TransferNew,
// TransferDone or TransferChanged.
type TransferStatus interface {
	isTransferStatus()
}

// TransferNew means the path has never been transferred
type TransferNew struct{}

// TransferDone means the path was transferred with identical metadata
type TransferDone struct{}

// TransferChanged means the source file changed after it was transferred
type TransferChanged struct {
	Previous FileRecord
}

func (TransferNew) isTransferStatus()     {}
func (TransferDone) isTransferStatus()    {}
func (TransferChanged) isTransferStatus() {}

// table names are fixed, never user input
const (
	legacyTable   = "legacy_archive_index"
	transferTable = "transfer_ledger"
)

func sizeToSQL(size uint64) (int64, error) {
	if size > math.MaxInt64 {
		return 0, fmt.Errorf("size %d does not fit the ledger", size)
	}
	return int64(size), nil
}

// getRecord returns nil, nil when the path is absent
func (s *Store) getRecord(table, path string) (*FileRecord, error) {
	r := &FileRecord{Path: path}
	var size int64
	err := s.db.QueryRow(
		"SELECT modified_time, size, digest FROM "+table+" WHERE path = ?", path,
	).Scan(&r.ModTime, &size, &r.Digest)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Size = uint64(size)
	return r, nil
}

func (s *Store) putRecord(table string, r FileRecord) error {
	if r.Path == "" {
		return errors.New("empty path")
	}
	if r.Digest.IsZero() {
		return fmt.Errorf("%s: missing digest", r.Path)
	}
	size, err := sizeToSQL(r.Size)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO `+table+` (path, modified_time, size, digest)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			modified_time = excluded.modified_time,
			size = excluded.size,
			digest = excluded.digest
	`, r.Path, r.ModTime, size, r.Digest)
	return err
}
