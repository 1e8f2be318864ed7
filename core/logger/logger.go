// Package logger writes one structured line per event. Every line carries a
// component and an event name; update identifiers stored in the context by
// the Telegram middleware are added automatically.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/serikovn/nexpr-update/core/buildinfo"
	coreconfig "github.com/serikovn/nexpr-update/core/config"
)

var (
	stateMu sync.Mutex
	started bool
	stopped bool
	out     *sink
	files   []io.Closer

	minLevel    slog.LevelVar
	debugSample = newSampler(1, 50)
	traceAll    atomic.Bool

	// L is the base logger. Prefer the context-aware helpers below.
	L *slog.Logger

	// DB logs database connection events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// Backup logs scheduled snapshot runs.
	Backup *slog.Logger
)

func init() {
	L = slog.Default()
	scopeComponents()
}

// settings is the resolved logging section of the config.
type settings struct {
	format  lineFormat
	level   slog.Level
	order   []string
	keep    int
	window  int
	profile string
	file    string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{format: formatJSON, level: slog.LevelInfo, order: defaultOrder(), keep: 1, window: 50, profile: "prod"}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var custom []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				custom = append(custom, k)
			}
		}
		if len(custom) > 0 {
			s.order = custom
		}
	}

	if raw := strings.TrimSpace(lc.DebugSample); raw != "" {
		keep, window := parseRatio(raw)
		switch {
		case keep == 0 && window == 0:
			s.keep, s.window = 0, 0
		case keep > 0 && window > 0:
			s.keep, s.window = keep, window
		}
	}

	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	return s
}

// InitLogger configures the global structured logger. Only the first call has
// an effect.
func InitLogger(cfg *coreconfig.Config) error {
	stateMu.Lock()
	defer stateMu.Unlock()
	if started {
		return nil
	}
	started = true

	s := settingsFrom(cfg)
	minLevel.Set(s.level)
	debugSample.Set(s.keep, s.window)
	traceAll.Store(truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE")))

	writers := []io.Writer{os.Stdout}
	if s.file != "" {
		f, err := openLogFile(s.file)
		if err != nil {
			// stdout alone still works
			fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		} else {
			writers = append(writers, f)
			files = append(files, f)
		}
	}
	out = newSink(writers, 256)

	L = slog.New(newLineHandler(&handlerOptions{
		level:  &minLevel,
		out:    out,
		format: s.format,
		order:  s.order,
	}))
	slog.SetDefault(L)
	scopeComponents()

	attrs := []slog.Attr{
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.String("storage", cfg.Storage.Driver),
			slog.String("mode", cfg.Telegram.RunMode),
			slog.Int("admins", len(cfg.Telegram.AdminIDs)),
		)
	}
	Info(context.Background(), "app", "startup", attrs...)
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func scopeComponents() {
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	Backup = L.With("component", "backup")
}

// Shutdown drains pending lines and closes the log file.
func Shutdown() error {
	stateMu.Lock()
	defer stateMu.Unlock()
	if stopped {
		return nil
	}
	stopped = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent writes an event record, resolving the logger from ctx when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns the base logger scoped to name.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs at level under the given component.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug event should be
// logged. TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return traceAll.Load() || debugSample.Allow()
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
