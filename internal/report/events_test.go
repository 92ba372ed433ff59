package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var decoded Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded))
		events = append(events, decoded)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestNewEventLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewEventLogger(filepath.Join(tmpDir, "artifacts"), LevelDebug)
	require.NoError(t, err)
	defer logger.Close()

	require.NotEmpty(t, logger.Path())
	_, err = os.Stat(logger.Path())
	require.NoError(t, err)

	filename := filepath.Base(logger.Path())
	assert.GreaterOrEqual(t, len(filename), len("events-20060102-150405.jsonl"))
}

func TestEventLogger_Log(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	require.NoError(t, err)

	require.NoError(t, logger.Log(&Event{
		Timestamp: time.Now(),
		Level:     LevelInfo,
		Event:     EventTransfer,
		Path:      "2019/a.jpg",
		DestPath:  "/dest/2019/a.jpg",
	}))
	require.NoError(t, logger.Close())

	events := readEvents(t, logger.Path())
	require.Len(t, events, 1)
	assert.Equal(t, "2019/a.jpg", events[0].Path)
	assert.Equal(t, "/dest/2019/a.jpg", events[0].DestPath)
	assert.Equal(t, logger.RunID(), events[0].RunID)
	assert.Len(t, logger.RunID(), 36)
}

func TestEventLogger_LevelFilter(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelWarning)
	require.NoError(t, err)

	require.NoError(t, logger.LogCandidate("a.jpg", 10, 1))
	require.NoError(t, logger.LogLegacyIndexed("old.jpg", "ab", 3, 1, false))
	require.NoError(t, logger.LogReview("b.jpg", 20, 5, 10, 4))
	require.NoError(t, logger.LogFailure("c.jpg", "failed_to_open", errors.New("permission denied")))
	require.NoError(t, logger.Close())

	events := readEvents(t, logger.Path())
	require.Len(t, events, 2)
	assert.Equal(t, EventReview, events[0].Event)
	assert.Equal(t, int64(10), events[0].PrevModTime)
	assert.Equal(t, uint64(4), events[0].PrevSize)
	assert.Equal(t, EventFailure, events[1].Event)
	assert.Equal(t, "permission denied", events[1].Error)
}

func TestEventLogger_Helpers(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	require.NoError(t, err)

	require.NoError(t, logger.LogLegacyIndexed("old.jpg", "aa", 3, 100, true))
	require.NoError(t, logger.LogIntegrity("old.jpg", "aa", "bb"))
	require.NoError(t, logger.LogTransfer("n.jpg", "/d/n.jpg", "cc", 9, 1500*time.Millisecond))
	require.NoError(t, logger.LogDuplicate("m.jpg", "cc", 9))
	require.NoError(t, logger.Close())

	events := readEvents(t, logger.Path())
	require.Len(t, events, 4)
	assert.Equal(t, EventLegacyRefresh, events[0].Event)
	assert.Equal(t, EventIntegrity, events[1].Event)
	assert.Equal(t, "aa", events[1].Extra["expected_digest"])
	assert.Equal(t, int64(1500), events[2].Duration)
	assert.Equal(t, EventDuplicate, events[3].Event)
	for _, e := range events {
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestEventLogger_ConcurrentWrites(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	require.NoError(t, err)

	const numGoroutines = 10
	const eventsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				if err := logger.LogDuplicate("same.jpg", "dd", 1); err != nil {
					t.Errorf("Concurrent log failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	assert.Len(t, readEvents(t, logger.Path()), numGoroutines*eventsPerGoroutine)
}

func TestNullLogger(t *testing.T) {
	logger := NullLogger()
	assert.NoError(t, logger.LogTransfer("a", "b", "c", 1, time.Second))
	assert.NoError(t, logger.Close())
	assert.Empty(t, logger.Path())
}

func TestEventLogger_RunIDsDiffer(t *testing.T) {
	a, err := NewEventLogger(t.TempDir(), LevelInfo)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewEventLogger(t.TempDir(), LevelInfo)
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.RunID(), b.RunID())
	assert.Empty(t, NullLogger().RunID())
}
