package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer logger.Close()

	runID := NewRunID()
	if runID == "" {
		t.Fatal("NewRunID() returned empty string")
	}

	if err := logger.Log(runID, EventResolveStarted, "starting", map[string]interface{}{"cwd": "/tmp"}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if err := logger.Log(runID, EventResolveCompleted, "done", nil); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	logger.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var events []Event
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		events = append(events, e)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventResolveStarted || events[0].RunID != runID {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Type != EventResolveCompleted {
		t.Errorf("events[1] = %+v", events[1])
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	var l NopLogger
	if err := l.Log("run", EventCacheHit, "", nil); err != nil {
		t.Errorf("NopLogger.Log() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("NopLogger.Close() error = %v", err)
	}
}
