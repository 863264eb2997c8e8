// Package audit provides an append-only JSON-lines audit trail of
// resolve/compile milestones, keyed by a per-run ID.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of audit event.
type EventType string

const (
	EventResolveStarted   EventType = "resolve_started"
	EventResolveCompleted EventType = "resolve_completed"
	EventResolveFailed    EventType = "resolve_failed"
	EventNodeMissing      EventType = "node_missing"
	EventCycleDetected    EventType = "cycle_detected"
	EventCompileStarted   EventType = "compile_started"
	EventCompileCompleted EventType = "compile_completed"
	EventCompileFailed    EventType = "compile_failed"
	EventCacheHit         EventType = "cache_hit"
	EventCacheMiss        EventType = "cache_miss"
)

// Event is a single audit log record.
type Event struct {
	RunID     string                 `json:"run_id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Message   string                 `json:"message,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger appends Events to an underlying writer, one JSON object per line.
type Logger struct {
	mu   sync.Mutex
	w    *os.File
	runs map[string]bool
}

// NewLogger opens (or creates) path in append mode for audit logging.
func NewLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Logger{w: f, runs: make(map[string]bool)}, nil
}

// NewRunID mints a fresh run identifier for correlating a single
// resolve/compile invocation's events.
func NewRunID() string {
	return uuid.NewString()
}

// Log appends an event to the audit trail.
func (l *Logger) Log(runID string, eventType EventType, message string, fields map[string]interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event := Event{
		RunID:     runID,
		Type:      eventType,
		Timestamp: time.Now(),
		Message:   message,
		Fields:    fields,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.w.Write(data); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Close()
}

// NopLogger discards every event. Used when the caller hasn't configured
// an audit trail destination.
type NopLogger struct{}

// Log implements the same signature as *Logger.Log but is a no-op.
func (NopLogger) Log(string, EventType, string, map[string]interface{}) error { return nil }

// Close implements io.Closer as a no-op.
func (NopLogger) Close() error { return nil }

// Recorder is the interface both Logger and NopLogger satisfy.
type Recorder interface {
	Log(runID string, eventType EventType, message string, fields map[string]interface{}) error
	Close() error
}

var (
	_ Recorder = (*Logger)(nil)
	_ Recorder = NopLogger{}
)
