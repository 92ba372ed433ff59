package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventLegacyIndex   EventType = "legacy_index"
	EventLegacyRefresh EventType = "legacy_refresh"
	EventIntegrity     EventType = "integrity"
	EventCandidate     EventType = "candidate"
	EventReview        EventType = "review"
	EventTransfer      EventType = "transfer"
	EventDuplicate     EventType = "duplicate"
	EventFailure       EventType = "failure"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event of a sync run
type Event struct {
	Timestamp   time.Time         `json:"ts"`
	RunID       string            `json:"run,omitempty"`
	Level       EventLevel        `json:"level"`
	Event       EventType         `json:"event"`
	Path        string            `json:"path,omitempty"`
	DestPath    string            `json:"dest_path,omitempty"`
	Digest      string            `json:"digest,omitempty"`
	SizeBytes   uint64            `json:"size_bytes,omitempty"`
	ModTime     int64             `json:"mtime,omitempty"`
	PrevModTime int64             `json:"prev_mtime,omitempty"`
	PrevSize    uint64            `json:"prev_size_bytes,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Duration    int64             `json:"duration_ms,omitempty"`
	Error       string            `json:"error,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file. A nil *EventLogger discards everything.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	// Append so two runs within the same second share a file instead of truncating it
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    uuid.NewString(),
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogLegacyIndexed logs a legacy file that was hashed into the index.
// refreshed is set when only its metadata changed.
func (l *EventLogger) LogLegacyIndexed(path, digest string, sizeBytes uint64, modTime int64, refreshed bool) error {
	event := EventLegacyIndex
	level := LevelDebug
	if refreshed {
		event = EventLegacyRefresh
		level = LevelInfo
	}

	return l.Log(&Event{
		Level:     level,
		Event:     event,
		Path:      path,
		Digest:    digest,
		SizeBytes: sizeBytes,
		ModTime:   modTime,
	})
}

// LogIntegrity logs a legacy file whose bytes changed under an indexed path
func (l *EventLogger) LogIntegrity(path, expected, actual string) error {
	return l.Log(&Event{
		Level:  LevelError,
		Event:  EventIntegrity,
		Path:   path,
		Digest: actual,
		Reason: "legacy content changed",
		Extra: map[string]string{
			"expected_digest": expected,
		},
	})
}

// LogCandidate logs a source file selected for transfer
func (l *EventLogger) LogCandidate(path string, sizeBytes uint64, modTime int64) error {
	return l.Log(&Event{
		Level:     LevelDebug,
		Event:     EventCandidate,
		Path:      path,
		SizeBytes: sizeBytes,
		ModTime:   modTime,
	})
}

// LogReview logs a source file that changed after it was transferred
func (l *EventLogger) LogReview(path string, modTime int64, sizeBytes uint64, prevModTime int64, prevSize uint64) error {
	return l.Log(&Event{
		Level:       LevelWarning,
		Event:       EventReview,
		Path:        path,
		ModTime:     modTime,
		SizeBytes:   sizeBytes,
		PrevModTime: prevModTime,
		PrevSize:    prevSize,
		Reason:      "changed since transfer",
	})
}

// LogTransfer logs a file published into the destination
func (l *EventLogger) LogTransfer(path, destPath, digest string, sizeBytes uint64, duration time.Duration) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventTransfer,
		Path:      path,
		DestPath:  destPath,
		Digest:    digest,
		SizeBytes: sizeBytes,
		Duration:  duration.Milliseconds(),
	})
}

// LogDuplicate logs a file whose content already exists in the target
func (l *EventLogger) LogDuplicate(path, digest string, sizeBytes uint64) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventDuplicate,
		Path:      path,
		Digest:    digest,
		SizeBytes: sizeBytes,
		Reason:    "content already in target",
	})
}

// LogFailure logs a per-file failure that did not stop the run
func (l *EventLogger) LogFailure(path, reason string, err error) error {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return l.Log(&Event{
		Level:  LevelError,
		Event:  EventFailure,
		Path:   path,
		Reason: reason,
		Error:  errMsg,
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID identifies the run this logger records. Every event carries it.
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
