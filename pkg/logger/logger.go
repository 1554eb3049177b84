package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config describes how the application logger should behave.
type Config struct {
	Level       string
	Format      string
	OutputPaths []string
	Audit       AuditConfig
}

// AuditConfig controls audit log output behaviour.
type AuditConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger bundles the application logger with the audit logger that records
// task executions.
type Logger struct {
	*slog.Logger
	audit   *slog.Logger
	closers []io.Closer
}

var (
	defaultMu sync.RWMutex
	fallback  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	current   *Logger
)

// New builds a logger. With no output paths it writes to stderr so that task
// output on stdout stays clean.
func New(cfg Config) (*Logger, error) {
	l := &Logger{}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	handler, err := l.buildHandler(cfg.Format, cfg.OutputPaths, opts)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	l.Logger = slog.New(handler)
	l.audit = l.Logger

	if cfg.Audit.Enabled {
		audit, err := l.buildAuditLogger(cfg.Audit)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		l.audit = audit
	}
	return l, nil
}

// NewWithWriter builds a logger writing to w, mainly for tests.
func NewWithWriter(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	}
	base := slog.New(handler)
	return &Logger{Logger: base, audit: base}
}

func (l *Logger) buildHandler(format string, outputs []string, opts *slog.HandlerOptions) (slog.Handler, error) {
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	writers := make([]io.Writer, 0, len(outputs))
	for _, out := range outputs {
		writer, closer, err := openWriter(out)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			l.closers = append(l.closers, closer)
		}
		writers = append(writers, writer)
	}

	writer := writers[0]
	if len(writers) > 1 {
		writer = io.MultiWriter(writers...)
	}

	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(writer, opts), nil
	}
	return slog.NewJSONHandler(writer, opts), nil
}

func (l *Logger) buildAuditLogger(cfg AuditConfig) (*slog.Logger, error) {
	if cfg.Path == "" {
		return nil, errors.New("audit log path cannot be empty when enabled")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 100
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 7
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 30
	}

	writer, err := newRotatingWriter(cfg.Path,
		int64(cfg.MaxSizeMB)*1024*1024,
		cfg.MaxBackups,
		time.Duration(cfg.MaxAgeDays)*24*time.Hour)
	if err != nil {
		return nil, err
	}
	l.closers = append(l.closers, writer)
	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler), nil
}

func openWriter(path string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(path) {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		return file, file, nil
	}
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Audit returns the audit logger.
func (l *Logger) Audit() *slog.Logger {
	if l == nil || l.audit == nil {
		return L()
	}
	return l.audit
}

// Named returns a child logger tagged with the provided component name.
func (l *Logger) Named(name string) *slog.Logger {
	if l == nil || l.Logger == nil {
		return L().With("component", name)
	}
	return l.With("component", name)
}

// Close flushes and closes file outputs.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var err error
	for _, closer := range l.closers {
		err = errors.Join(err, closer.Close())
	}
	l.closers = nil
	return err
}

// SetDefault installs l as the process-wide logger returned by L.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	current = l
	if l != nil && l.Logger != nil {
		slog.SetDefault(l.Logger)
	}
}

// L returns the process-wide structured logger.
func L() *slog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if current == nil || current.Logger == nil {
		return fallback
	}
	return current.Logger
}

// Named returns a child of the process-wide logger with the component name.
func Named(name string) *slog.Logger {
	return L().With("component", name)
}
