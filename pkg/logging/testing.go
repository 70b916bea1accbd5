package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogger captures JSON log output for assertions in tests
type TestLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

// TestLogEntry represents a captured log entry
type TestLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"msg"`
	Component string                 `json:"component,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	Operation string                 `json:"operation,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Attrs     map[string]interface{} `json:"-"`
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

// Write implements io.Writer so the logger can back any slog handler
func (tl *TestLogger) Write(p []byte) (int, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buffer.Write(p)
}

// GetHandler returns a debug-level JSON handler writing to this test logger
func (tl *TestLogger) GetHandler() slog.Handler {
	return slog.NewJSONHandler(tl, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// GetLogger returns a slog.Logger that writes to this test logger
func (tl *TestLogger) GetLogger() *slog.Logger {
	return slog.New(tl.GetHandler())
}

// GetEntries returns all captured log entries
func (tl *TestLogger) GetEntries() []TestLogEntry {
	tl.mu.Lock()
	data := append([]byte(nil), tl.buffer.Bytes()...)
	tl.mu.Unlock()

	var entries []TestLogEntry
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var entry TestLogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		_ = json.Unmarshal(line, &entry.Attrs)
		entries = append(entries, entry)
	}
	return entries
}

// GetEntriesWithLevel returns log entries matching the specified level
func (tl *TestLogger) GetEntriesWithLevel(level string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if strings.EqualFold(entry.Level, level) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// GetEntriesWithMessage returns log entries containing the specified message
func (tl *TestLogger) GetEntriesWithMessage(message string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if strings.Contains(entry.Message, message) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// GetEntriesWithComponent returns log entries from the specified component
func (tl *TestLogger) GetEntriesWithComponent(component string) []TestLogEntry {
	var filtered []TestLogEntry
	for _, entry := range tl.GetEntries() {
		if entry.Component == component {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// Output returns the raw captured output
func (tl *TestLogger) Output() string {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.buffer.String()
}

// Clear discards captured output
func (tl *TestLogger) Clear() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.buffer.Reset()
}

// Count returns the number of captured entries
func (tl *TestLogger) Count() int {
	return len(tl.GetEntries())
}

// AssertLogged fails the test unless an entry with level and message exists
func (tl *TestLogger) AssertLogged(t *testing.T, level, message string) {
	t.Helper()
	for _, entry := range tl.GetEntriesWithMessage(message) {
		if strings.EqualFold(entry.Level, level) {
			return
		}
	}
	t.Errorf("expected %s log containing %q, got:\n%s", level, message, tl.Output())
}

// AssertNotLogged fails the test if an entry containing message exists
func (tl *TestLogger) AssertNotLogged(t *testing.T, message string) {
	t.Helper()
	if entries := tl.GetEntriesWithMessage(message); len(entries) > 0 {
		t.Errorf("unexpected log containing %q: %+v", message, entries)
	}
}
