package logging

import (
	"context"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background(), "handle_event")

	if GetRequestID(ctx) == "" {
		t.Error("expected generated request id")
	}
	if GetOperation(ctx) != "handle_event" {
		t.Errorf("unexpected operation %q", GetOperation(ctx))
	}
	if GetStartTime(ctx).IsZero() {
		t.Error("expected start time")
	}

	again := NewRequestContext(ctx, "")
	if GetRequestID(again) != GetRequestID(ctx) {
		t.Error("existing request id should be preserved")
	}
}

func TestContextAttrs(t *testing.T) {
	ctx := WithRequestID(context.Background(), "r")
	ctx = WithUserID(ctx, 7)
	ctx = WithChatID(ctx, -100)
	ctx = WithTransport(ctx, "telegram")
	ctx = WithComponent(ctx, "bot")

	attrs := ContextAttrs(ctx)
	got := map[string]string{}
	for _, a := range attrs {
		got[a.Key] = a.Value.String()
	}
	want := map[string]string{"request_id": "r", "user_id": "7", "chat_id": "-100", "transport": "telegram"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attr %s: expected %q, got %q", k, v, got[k])
		}
	}
	if GetComponent(ctx) != "bot" {
		t.Error("component not stored")
	}
	if len(ContextAttrs(context.Background())) != 0 {
		t.Error("expected no attrs for empty context")
	}
}

func TestOperationTimer(t *testing.T) {
	out := NewTestLogger()
	timer := StartTimer(context.Background(), out.GetLogger(), "search")
	time.Sleep(time.Millisecond)

	if d := timer.End(); d <= 0 {
		t.Errorf("expected positive duration, got %v", d)
	}
	out.AssertLogged(t, "DEBUG", "Operation started")
	out.AssertLogged(t, "DEBUG", "Operation completed")

	out.Clear()
	StartTimer(context.Background(), out.GetLogger(), "insert").EndWithError(context.Canceled)
	out.AssertLogged(t, "WARN", "Operation failed")
}

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector(MetricsConfig{Enabled: true, Namespace: "test"})

	mc.RecordEvent("command", "stdio", 5*time.Millisecond)
	mc.RecordReply("detail")
	mc.RecordSearch(2)
	mc.RecordCharacterCreated()
	mc.SetActiveSessions(3)
	mc.RecordStorageOperation("memory", "list", time.Millisecond, nil)
	mc.RecordError("INTERNAL_ERROR", "handle")

	families, err := mc.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}

	if f := byName["test_bot_events_total"]; f == nil || f.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Errorf("expected one event, got %v", f)
	}
	if f := byName["test_catalog_characters_created_total"]; f == nil || f.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Errorf("expected one created character, got %v", f)
	}
	if f := byName["test_dialogue_active_sessions"]; f == nil || f.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Errorf("expected three sessions, got %v", f)
	}
	if byName["test_storage_operations_total"] == nil {
		t.Error("storage metric not registered")
	}
}

func TestNilMetricsCollectorIsSafe(t *testing.T) {
	mc := NewMetricsCollector(MetricsConfig{Enabled: false})
	if mc != nil {
		t.Fatal("expected nil collector when disabled")
	}
	mc.RecordEvent("text", "telegram", time.Second)
	mc.RecordError("X", "y")
	if mc.Registry() != nil {
		t.Error("expected nil registry")
	}
}
