package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/komikshub-bot/internal/storage"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

func newTestServer(t *testing.T, stats StatsSource) *AdminServer {
	t.Helper()
	factory, err := logging.NewFactoryWithWriter(logging.DefaultConfig(), io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { factory.Close() })

	a := NewAdminServer(stats)
	a.logger = factory.GetLogger("admin")
	a.factory = factory
	a.metrics = factory.GetMetricsCollector()
	return a
}

func do(a *AdminServer, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	return rec
}

func TestHealthcheck(t *testing.T) {
	a := newTestServer(t, nil)

	rec := do(a, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "The bot is running fine :)", rec.Body.String())

	rec = do(a, http.MethodPost, "/healthcheck", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth_ReportsCatalog(t *testing.T) {
	backend := &storage.MockBackend{}
	backend.On("GetStatistics", mock.Anything).Return(map[string]int{"characters": 2}, nil)
	a := newTestServer(t, backend)

	rec := do(a, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status  string         `json:"status"`
		Server  string         `json:"server"`
		Catalog map[string]int `json:"catalog"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "komikshub-bot", body.Server)
	assert.Equal(t, 2, body.Catalog["characters"])
	backend.AssertExpectations(t)
}

func TestHealth_DegradedOnStorageError(t *testing.T) {
	backend := &storage.MockBackend{}
	backend.On("GetStatistics", mock.Anything).
		Return(nil, errors.New(errors.ErrCodeStorageConnection, "database is gone"))
	a := newTestServer(t, backend)

	rec := do(a, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

func TestHealth_WithoutStats(t *testing.T) {
	a := newTestServer(t, nil)

	rec := do(a, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "catalog")
}

func TestLogLevel_GetAndSet(t *testing.T) {
	a := newTestServer(t, nil)
	a.factory.GetLogger("bot")

	rec := do(a, http.MethodGet, "/log-level?component=bot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LogLevelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bot", resp.Component)
	assert.Equal(t, "info", resp.Level)

	rec = do(a, http.MethodPost, "/log-level", `{"component":"bot","level":"DEBUG"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "debug", resp.Level)
	assert.Equal(t, logging.LogLevelDebug, a.factory.Levels()["bot"])

	rec = do(a, http.MethodPost, "/log-level", `{"level":"warn"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, logging.LogLevelWarn, a.factory.Level())
	assert.Equal(t, logging.LogLevelDebug, a.factory.Levels()["bot"], "override survives a default change")
}

func TestLogLevel_Rejects(t *testing.T) {
	a := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"level":`},
		{"unknown level", `{"component":"bot","level":"verbose"}`},
		{"missing level", `{"component":"bot"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(a, http.MethodPost, "/log-level", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp LogLevelResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
		})
	}

	rec := do(a, http.MethodDelete, "/log-level", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLogLevels(t *testing.T) {
	a := newTestServer(t, nil)
	a.factory.GetLogger("storage")
	a.factory.UpdateLevel("transport", logging.LogLevelError)

	rec := do(a, http.MethodGet, "/log-levels", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Default string            `json:"default"`
		Levels  map[string]string `json:"levels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "info", body.Default)
	assert.Equal(t, "info", body.Levels["storage"])
	assert.Equal(t, "error", body.Levels["transport"])
}

func TestMetrics(t *testing.T) {
	a := newTestServer(t, nil)
	a.metrics.RecordCharacterCreated()

	rec := do(a, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "komikshub_")

	a.metrics = nil
	rec = do(a, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	a := newTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/healthcheck", ln.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		return resp.StatusCode == http.StatusOK && buf.String() == healthcheckText
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("admin server did not stop")
	}
}
