package logging

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Audit event types
const (
	AuditCreationStarted  = "creation_started"
	AuditCharacterCreated = "character_created"
	AuditCreationFailed   = "creation_failed"
	AuditAccessDenied     = "access_denied"
	AuditCatalogSeeded    = "catalog_seeded"
)

// Audit results
const (
	AuditResultSuccess = "success"
	AuditResultFailure = "failure"
	AuditResultDenied  = "denied"
)

// AuditEvent is one line of the audit trail
type AuditEvent struct {
	Timestamp  time.Time              `json:"timestamp"`
	EventID    string                 `json:"event_id"`
	EventType  string                 `json:"event_type"`
	RequestID  string                 `json:"request_id,omitempty"`
	UserID     string                 `json:"user_id,omitempty"`
	ChatID     string                 `json:"chat_id,omitempty"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resource_id,omitempty"`
	Action     string                 `json:"action"`
	Result     string                 `json:"result"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Checksum   string                 `json:"checksum"`
}

// AuditLogger appends JSON audit events to a rotated file
type AuditLogger struct {
	mu      sync.Mutex
	closer  io.Closer
	encoder *json.Encoder
	metrics *MetricsCollector
}

// NewAuditLogger opens filePath for audit output, rotated with lumberjack
func NewAuditLogger(filePath string, rotation RotationConfig) (*AuditLogger, error) {
	if filePath == "" {
		return nil, fmt.Errorf("audit file path is empty")
	}
	lj := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
		Compress:   rotation.Compress,
	}
	al := NewAuditLoggerWithWriter(lj)
	al.closer = lj
	return al, nil
}

// NewAuditLoggerWithWriter creates an audit logger writing to w
func NewAuditLoggerWithWriter(w io.Writer) *AuditLogger {
	return &AuditLogger{
		encoder: json.NewEncoder(w),
	}
}

// SetMetrics sets the metrics collector for the audit logger
func (al *AuditLogger) SetMetrics(metrics *MetricsCollector) {
	if al == nil {
		return
	}
	al.metrics = metrics
}

// Log writes an audit event. A nil logger discards it.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if al == nil {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.RequestID == "" {
		event.RequestID = GetRequestID(ctx)
	}
	if event.UserID == "" {
		event.UserID = GetUserID(ctx)
	}
	if event.ChatID == "" {
		event.ChatID = GetChatID(ctx)
	}
	if event.EventType == "" || event.Action == "" || event.Result == "" {
		return fmt.Errorf("audit event requires event_type, action and result")
	}
	event.Checksum = checksum(event)

	al.mu.Lock()
	defer al.mu.Unlock()

	if err := al.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	al.metrics.RecordAuditEvent(event.EventType, event.Result)
	return nil
}

// LogCreationStarted records the start of a creation dialogue
func (al *AuditLogger) LogCreationStarted(ctx context.Context) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditCreationStarted,
		Resource:  "character",
		Action:    "create",
		Result:    AuditResultSuccess,
	})
}

// LogCreationFailed records a commit rejected by the store
func (al *AuditLogger) LogCreationFailed(ctx context.Context, name string, cause error) error {
	details := map[string]interface{}{"name": name}
	if cause != nil {
		details["error"] = cause.Error()
	}
	return al.Log(ctx, AuditEvent{
		EventType: AuditCreationFailed,
		Resource:  "character",
		Action:    "create",
		Result:    AuditResultFailure,
		Details:   details,
	})
}

// LogCharacterCreated records a committed creation dialogue
func (al *AuditLogger) LogCharacterCreated(ctx context.Context, id, name string) error {
	return al.Log(ctx, AuditEvent{
		EventType:  AuditCharacterCreated,
		Resource:   "character",
		ResourceID: id,
		Action:     "create",
		Result:     AuditResultSuccess,
		Details:    map[string]interface{}{"name": name},
	})
}

// LogAccessDenied records a privileged action attempted by an ordinary user
func (al *AuditLogger) LogAccessDenied(ctx context.Context, action string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditAccessDenied,
		Resource:  "bot",
		Action:    action,
		Result:    AuditResultDenied,
	})
}

// LogCatalogSeeded records the initial seeding of an empty catalog
func (al *AuditLogger) LogCatalogSeeded(ctx context.Context, count int) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditCatalogSeeded,
		Resource:  "catalog",
		Action:    "seed",
		Result:    AuditResultSuccess,
		Details:   map[string]interface{}{"count": count},
	})
}

// Close closes the underlying file, if any
func (al *AuditLogger) Close() error {
	if al == nil || al.closer == nil {
		return nil
	}
	al.mu.Lock()
	defer al.mu.Unlock()
	return al.closer.Close()
}

// checksum hashes the event with an empty checksum field
func checksum(event AuditEvent) string {
	event.Checksum = ""
	data, err := json.Marshal(event)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether event has not been altered since it was written
func VerifyChecksum(event AuditEvent) bool {
	return event.Checksum != "" && checksum(event) == event.Checksum
}

// ReadAuditLog decodes every event in r
func ReadAuditLog(r io.Reader) ([]AuditEvent, error) {
	var events []AuditEvent
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event AuditEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return events, fmt.Errorf("failed to decode audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}
