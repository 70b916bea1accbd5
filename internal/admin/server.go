package admin

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

const healthcheckText = "The bot is running fine :)"

// StatsSource reports catalog statistics for the health endpoint
type StatsSource interface {
	GetStatistics(ctx context.Context) (map[string]int, error)
}

// AdminServer provides health, metrics and runtime log level endpoints
type AdminServer struct {
	logger    *slog.Logger
	mux       *http.ServeMux
	stats     StatsSource
	factory   *logging.Factory
	metrics   *logging.MetricsCollector
	startedAt time.Time
}

// NewAdminServer creates a new admin server backed by the global logging
// factory. stats may be nil, in which case /health omits the catalog.
func NewAdminServer(stats StatsSource) *AdminServer {
	admin := &AdminServer{
		logger:    logging.GetGlobalLogger("admin"),
		mux:       http.NewServeMux(),
		stats:     stats,
		factory:   logging.GetGlobalFactory(),
		metrics:   logging.GetGlobalMetricsCollector(),
		startedAt: time.Now(),
	}

	admin.setupRoutes()
	return admin
}

func (a *AdminServer) setupRoutes() {
	a.mux.HandleFunc("/healthcheck", a.handleHealthcheck)
	a.mux.HandleFunc("/health", a.handleHealth)
	a.mux.HandleFunc("/log-level", a.handleLogLevel)
	a.mux.HandleFunc("/log-levels", a.handleLogLevels)
	a.mux.HandleFunc("/metrics", a.handleMetrics)
}

// ServeHTTP implements http.Handler
func (a *AdminServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// Run serves on port until ctx is canceled, then shuts down gracefully
func (a *AdminServer) Run(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("admin server: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (a *AdminServer) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	a.logger.Info("Admin server listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	a.logger.Info("Admin server stopped")
	return nil
}

func (a *AdminServer) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, healthcheckText)
}

// handleHealth reports status plus catalog statistics. A failing store
// makes the bot degraded.
func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "healthy",
		"server": "komikshub-bot",
		"uptime": time.Since(a.startedAt).Round(time.Second).String(),
	}
	status := http.StatusOK

	if a.stats != nil {
		stats, err := a.stats.GetStatistics(r.Context())
		if err != nil {
			a.logger.WarnContext(r.Context(), "Health check failed to read catalog",
				slog.String("error", err.Error()))
			response["status"] = "degraded"
			response["error"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			response["catalog"] = stats
		}
	}

	writeJSON(w, status, response)
}

func (a *AdminServer) handleLogLevel(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getLogLevel(w, r)
	case http.MethodPost:
		a.setLogLevel(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// LogLevelRequest represents a log level change request. An empty
// component changes the default level.
type LogLevelRequest struct {
	Component string `json:"component"`
	Level     string `json:"level"`
}

// LogLevelResponse represents a log level response
type LogLevelResponse struct {
	Component string `json:"component"`
	Level     string `json:"level"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

func (a *AdminServer) getLogLevel(w http.ResponseWriter, r *http.Request) {
	if a.factory == nil {
		writeJSON(w, http.StatusServiceUnavailable, LogLevelResponse{Message: "logging not initialized"})
		return
	}

	component := r.URL.Query().Get("component")
	level := a.factory.Level()
	if component == "" {
		component = "default"
	} else if lv, ok := a.factory.Levels()[component]; ok {
		level = lv
	}

	writeJSON(w, http.StatusOK, LogLevelResponse{
		Component: component,
		Level:     string(level),
		Success:   true,
	})
}

func (a *AdminServer) setLogLevel(w http.ResponseWriter, r *http.Request) {
	if a.factory == nil {
		writeJSON(w, http.StatusServiceUnavailable, LogLevelResponse{Message: "logging not initialized"})
		return
	}

	var req LogLevelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, LogLevelResponse{
			Message: fmt.Sprintf("Invalid JSON: %v", err),
		})
		return
	}

	level, err := logging.ParseLevel(req.Level)
	if err != nil || req.Level == "" {
		writeJSON(w, http.StatusBadRequest, LogLevelResponse{
			Component: req.Component,
			Message:   fmt.Sprintf("Invalid log level '%s'. Must be one of: debug, info, warn, error", req.Level),
		})
		return
	}

	component := req.Component
	if component == "" {
		component = "default"
		a.factory.SetLevel(level)
	} else {
		a.factory.UpdateLevel(component, level)
	}

	a.logger.InfoContext(r.Context(), "Log level updated",
		slog.String("component", component),
		slog.String("level", string(level)))

	writeJSON(w, http.StatusOK, LogLevelResponse{
		Component: component,
		Level:     string(level),
		Success:   true,
		Message:   fmt.Sprintf("Log level for component '%s' updated to '%s'", component, level),
	})
}

func (a *AdminServer) handleLogLevels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.factory == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "logging not initialized"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"default": a.factory.Level(),
		"levels":  a.factory.Levels(),
	})
}

func (a *AdminServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if a.metrics != nil {
		a.metrics.GetHTTPHandler().ServeHTTP(w, r)
		return
	}

	writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"error": "metrics collection disabled",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
