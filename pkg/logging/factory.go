package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Factory creates and manages loggers for different components
type Factory struct {
	config  *Config
	loggers map[string]*slog.Logger
	levels  map[string]*slog.LevelVar
	mu      sync.RWMutex

	// Shared resources
	handler          slog.Handler
	closer           io.Closer
	auditLogger      *AuditLogger
	masker           *Masker
	metricsCollector *MetricsCollector
}

// NewFactory creates a new logger factory writing to the configured output
func NewFactory(config *Config) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	writer, closer := openOutput(config)
	f, err := newFactory(config, writer)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	f.closer = closer
	return f, nil
}

// NewFactoryWithWriter creates a factory whose records go to w regardless of
// the configured output.
func NewFactoryWithWriter(config *Config, w io.Writer) (*Factory, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	return newFactory(config, w)
}

func newFactory(config *Config, writer io.Writer) (*Factory, error) {
	f := &Factory{
		config:  config,
		loggers: make(map[string]*slog.Logger),
		levels:  make(map[string]*slog.LevelVar),
	}

	// Masker must exist before the handler so ReplaceAttr can use it
	if config.Masking.Enabled {
		f.masker = NewMasker(config.Masking)
	}

	// Component LevelHandlers do the filtering, so the base handler lets
	// everything through.
	opts := &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		AddSource:   config.EnableCaller,
		ReplaceAttr: f.replaceAttr,
	}
	if config.Format == LogFormatText {
		f.handler = slog.NewTextHandler(writer, opts)
	} else {
		f.handler = slog.NewJSONHandler(writer, opts)
	}

	if config.Metrics.Enabled {
		f.metricsCollector = NewMetricsCollector(config.Metrics)
	}

	if config.EnableAudit {
		auditLogger, err := NewAuditLogger(config.AuditFilePath, config.Rotation)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
		}
		auditLogger.SetMetrics(f.metricsCollector)
		f.auditLogger = auditLogger
	}

	return f, nil
}

// openOutput resolves the configured destination. File output goes through
// lumberjack so long-running bots do not fill the disk.
func openOutput(config *Config) (io.Writer, io.Closer) {
	switch config.Output {
	case LogOutputStderr:
		return os.Stderr, nil
	case LogOutputFile:
		lj := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.Rotation.MaxSizeMB,
			MaxBackups: config.Rotation.MaxBackups,
			MaxAge:     config.Rotation.MaxAgeDays,
			Compress:   config.Rotation.Compress,
		}
		return lj, lj
	default:
		return os.Stdout, nil
	}
}

// GetLogger returns a logger for a specific component
func (f *Factory) GetLogger(component string) *slog.Logger {
	f.mu.RLock()
	if logger, exists := f.loggers[component]; exists {
		f.mu.RUnlock()
		return logger
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if logger, exists := f.loggers[component]; exists {
		return logger
	}

	levelVar := f.levelVarLocked(component)
	logger := slog.New(NewLevelHandler(f.handler, levelVar)).With(
		slog.String("component", component),
	)
	f.loggers[component] = logger
	return logger
}

func (f *Factory) levelVarLocked(component string) *slog.LevelVar {
	if lv, ok := f.levels[component]; ok {
		return lv
	}
	lv := new(slog.LevelVar)
	lv.Set(SlogLevel(f.config.GetLevelForComponent(component)))
	f.levels[component] = lv
	return lv
}

// WithContext returns logger enriched with the request-scoped values in ctx
func (f *Factory) WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = f.GetLogger("default")
	}
	attrs := ContextAttrs(ctx)
	if len(attrs) == 0 {
		return logger
	}
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return logger.With(args...)
}

// GetAuditLogger returns the audit logger, nil when auditing is disabled
func (f *Factory) GetAuditLogger() *AuditLogger {
	return f.auditLogger
}

// GetMetricsCollector returns the metrics collector, nil when disabled
func (f *Factory) GetMetricsCollector() *MetricsCollector {
	return f.metricsCollector
}

// GetMasker returns the data masker
func (f *Factory) GetMasker() *Masker {
	return f.masker
}

func (f *Factory) replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if f.masker != nil {
		a = f.masker.MaskAttr(groups, a)
	}
	return a
}

// Level returns the default level
func (f *Factory) Level() LogLevel {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.config.Level
}

// Levels returns the effective level of every component seen so far
func (f *Factory) Levels() map[string]LogLevel {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string]LogLevel, len(f.levels))
	for component, lv := range f.levels {
		out[component] = levelName(lv.Level())
	}
	return out
}

// Components returns the known component names in sorted order
func (f *Factory) Components() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.levels))
	for component := range f.levels {
		names = append(names, component)
	}
	sort.Strings(names)
	return names
}

// SetLevel changes the default level. Components with an explicit override
// keep their own level.
func (f *Factory) SetLevel(level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.config.Level = level
	for component, lv := range f.levels {
		if _, overridden := f.config.ComponentLevels[component]; !overridden {
			lv.Set(SlogLevel(level))
		}
	}
}

// UpdateLevel dynamically updates the log level for a component. Loggers
// already handed out pick up the change.
func (f *Factory) UpdateLevel(component string, level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.config.ComponentLevels == nil {
		f.config.ComponentLevels = make(map[string]LogLevel)
	}
	f.config.ComponentLevels[component] = level
	f.levelVarLocked(component).Set(SlogLevel(level))
}

// Close closes all resources
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	if f.auditLogger != nil {
		if err := f.auditLogger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit logger: %w", err))
		}
	}
	if f.closer != nil {
		if err := f.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log output: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing logger factory: %v", errs)
	}
	return nil
}

func levelName(level slog.Level) LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return LogLevelDebug
	case level <= slog.LevelInfo:
		return LogLevelInfo
	case level <= slog.LevelWarn:
		return LogLevelWarn
	default:
		return LogLevelError
	}
}

// Global factory instance
var (
	globalFactory *Factory
	globalMu      sync.RWMutex
)

// Initialize sets up the global logger factory
func Initialize(config *Config) error {
	factory, err := NewFactory(config)
	if err != nil {
		return err
	}
	setGlobalFactory(factory)
	return nil
}

// InitializeWithWriter sets up the global factory writing to w
func InitializeWithWriter(config *Config, w io.Writer) error {
	factory, err := NewFactoryWithWriter(config, w)
	if err != nil {
		return err
	}
	setGlobalFactory(factory)
	return nil
}

func setGlobalFactory(factory *Factory) {
	globalMu.Lock()
	previous := globalFactory
	globalFactory = factory
	globalMu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
}

// GetGlobalFactory returns the global factory, nil before Initialize
func GetGlobalFactory() *Factory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// GetGlobalLogger returns a logger from the global factory
func GetGlobalLogger(component string) *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return slog.Default().With(slog.String("component", component))
	}
	return globalFactory.GetLogger(component)
}

// GetGlobalAuditLogger returns the global audit logger
func GetGlobalAuditLogger() *AuditLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetAuditLogger()
}

// GetGlobalMetricsCollector returns the global metrics collector
func GetGlobalMetricsCollector() *MetricsCollector {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetMetricsCollector()
}

// UpdateGlobalLevel dynamically updates the log level for a component
func UpdateGlobalLevel(component string, level LogLevel) {
	if f := GetGlobalFactory(); f != nil {
		f.UpdateLevel(component, level)
	}
}

// Shutdown gracefully shuts down the global logging factory
func Shutdown() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalFactory == nil {
		return nil
	}
	err := globalFactory.Close()
	globalFactory = nil
	return err
}
