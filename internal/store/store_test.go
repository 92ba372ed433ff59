package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franz/photo-sync/internal/digest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dummyDigest(n byte) digest.Digest {
	var d digest.Digest
	for i := range d {
		d[i] = n
	}
	return d
}

func TestStoreOpenAndMigrate(t *testing.T) {
	s := openTestStore(t)

	version, err := s.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	for _, name := range []string{"schema_version", "legacy_archive_index", "transfer_ledger"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "expected table %s to exist", name)
	}

	var views int
	err = s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='view' AND name='target_digests'").Scan(&views)
	require.NoError(t, err)
	assert.Equal(t, 1, views)

	for _, index := range []string{"idx_legacy_archive_index_digest", "idx_transfer_ledger_digest"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "expected index %s to exist (schema v2)", index)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordLegacy(FileRecord{Path: "a.jpg", ModTime: 10, Size: 3, Digest: dummyDigest(1)}))
	require.NoError(t, s.Close())

	s, err = OpenWithOptions(path, &OpenOptions{NetworkOptimized: true})
	require.NoError(t, err)
	defer s.Close()

	r, err := s.GetLegacy("a.jpg")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, dummyDigest(1), r.Digest)

	require.NoError(t, s.CheckIntegrity())
}

func TestFullRoundtrip(t *testing.T) {
	s := openTestStore(t)

	const path = "2019/foo.jpg"
	const size = uint64(1234)
	const now = int64(1700000000)
	digestA := dummyDigest(1)

	// Initially nothing exists
	legacy, err := s.LegacyLookup(path, now, size)
	require.NoError(t, err)
	assert.Equal(t, LegacyUnknown{}, legacy)

	transfer, err := s.TransferLookup(path, now, size)
	require.NoError(t, err)
	assert.Equal(t, TransferNew{}, transfer)

	has, err := s.HasDigest(digestA)
	require.NoError(t, err)
	assert.False(t, has)

	// Present in the old target
	require.NoError(t, s.RecordLegacy(FileRecord{Path: path, ModTime: now, Size: size, Digest: digestA}))

	legacy, err = s.LegacyLookup(path, now, size)
	require.NoError(t, err)
	assert.Equal(t, LegacyCurrent{}, legacy)

	has, err = s.HasDigest(digestA)
	require.NoError(t, err)
	assert.True(t, has)

	// A different digest is not yet present
	digestB := dummyDigest(2)
	has, err = s.HasDigest(digestB)
	require.NoError(t, err)
	assert.False(t, has)

	// Transfer from source under the same path; corpora are independent
	later := now + 10
	require.NoError(t, s.RecordTransfer(FileRecord{Path: path, ModTime: later, Size: 5678, Digest: digestB}))

	transfer, err = s.TransferLookup(path, later, 5678)
	require.NoError(t, err)
	assert.Equal(t, TransferDone{}, transfer)

	has, err = s.HasDigest(digestB)
	require.NoError(t, err)
	assert.True(t, has)

	legacy, err = s.LegacyLookup(path, now, size)
	require.NoError(t, err)
	assert.Equal(t, LegacyCurrent{}, legacy)
}

func TestLegacyStaleCarriesPrevious(t *testing.T) {
	s := openTestStore(t)
	prev := FileRecord{Path: "c.jpg", ModTime: 100, Size: 50, Digest: dummyDigest(7)}
	require.NoError(t, s.RecordLegacy(prev))

	status, err := s.LegacyLookup("c.jpg", 101, 50)
	require.NoError(t, err)
	stale, ok := status.(LegacyStale)
	require.True(t, ok, "expected LegacyStale, got %T", status)
	assert.Equal(t, prev, stale.Previous)

	status, err = s.LegacyLookup("c.jpg", 100, 51)
	require.NoError(t, err)
	assert.IsType(t, LegacyStale{}, status)

	// Refresh replaces instead of appending
	require.NoError(t, s.RecordLegacy(FileRecord{Path: "c.jpg", ModTime: 101, Size: 50, Digest: dummyDigest(7)}))
	status, err = s.LegacyLookup("c.jpg", 101, 50)
	require.NoError(t, err)
	assert.Equal(t, LegacyCurrent{}, status)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LegacyFiles)
}

func TestTransferChangedCarriesPrevious(t *testing.T) {
	s := openTestStore(t)
	prev := FileRecord{Path: "a.jpg", ModTime: 100, Size: 50, Digest: dummyDigest(3)}
	require.NoError(t, s.RecordTransfer(prev))

	status, err := s.TransferLookup("a.jpg", 200, 50)
	require.NoError(t, err)
	changed, ok := status.(TransferChanged)
	require.True(t, ok, "expected TransferChanged, got %T", status)
	assert.Equal(t, prev, changed.Previous)
}

func TestDigestViewIsUnion(t *testing.T) {
	s := openTestStore(t)
	d := dummyDigest(9)

	require.NoError(t, s.RecordLegacy(FileRecord{Path: "old/x.jpg", ModTime: 1, Size: 1, Digest: d}))
	require.NoError(t, s.RecordTransfer(FileRecord{Path: "new/x.jpg", ModTime: 1, Size: 1, Digest: d}))
	require.NoError(t, s.RecordTransfer(FileRecord{Path: "new/y.jpg", ModTime: 1, Size: 2, Digest: dummyDigest(8)}))

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LegacyFiles)
	assert.Equal(t, uint64(1), stats.LegacyBytes)
	assert.Equal(t, 2, stats.Transfers)
	assert.Equal(t, uint64(3), stats.TransferBytes)
	assert.Equal(t, 2, stats.DistinctDigests)
}

func TestRecordRejectsBadInput(t *testing.T) {
	s := openTestStore(t)

	err := s.RecordLegacy(FileRecord{Path: "", Digest: dummyDigest(1)})
	require.Error(t, err)
	assert.True(t, Error.Has(err))

	err = s.RecordTransfer(FileRecord{Path: "huge.bin", Size: 1 << 63, Digest: dummyDigest(1)})
	require.Error(t, err)

	err = s.RecordTransfer(FileRecord{Path: "unhashed.jpg", ModTime: 1, Size: 3})
	require.Error(t, err)
	assert.True(t, Error.Has(err))
	r, err := s.GetTransfer("unhashed.jpg")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestLargeSizeRoundtrip(t *testing.T) {
	s := openTestStore(t)
	big := uint64(1<<63 - 1)
	require.NoError(t, s.RecordTransfer(FileRecord{Path: "big.mov", ModTime: 5, Size: big, Digest: dummyDigest(4)}))

	r, err := s.GetTransfer("big.mov")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, big, r.Size)

	missing, err := s.GetTransfer("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestConcurrentCallers(t *testing.T) {
	s := openTestStore(t)

	var wg sync.WaitGroup
	errCh := make(chan error, 64)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				// Every worker writes the same paths; last write wins with equal data
				r := FileRecord{Path: fmt.Sprintf("p/%03d.jpg", i), ModTime: int64(i), Size: uint64(i), Digest: dummyDigest(byte(i))}
				if _, err := s.LegacyLookup(r.Path, r.ModTime, r.Size); err != nil {
					errCh <- err
					return
				}
				if err := s.RecordLegacy(r); err != nil {
					errCh <- err
					return
				}
				if _, err := s.HasDigest(r.Digest); err != nil {
					errCh <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatalf("concurrent caller failed: %v", err)
	}

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 25, stats.LegacyFiles)
}

func TestSQLiteVersion(t *testing.T) {
	assert.NotEmpty(t, SQLiteVersion())
}
