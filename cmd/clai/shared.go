package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jkaninda/clai/internal/audit"
	"github.com/jkaninda/clai/internal/config"
	"github.com/jkaninda/clai/internal/gitsnap"
	"github.com/jkaninda/clai/internal/observability"
	"github.com/jkaninda/clai/internal/session"
	"github.com/jkaninda/clai/internal/workspace"
)

// SharedComponents holds all initialized subsystems the CLI commands
// require. Built once by initShared, torn down by Cleanup.
type SharedComponents struct {
	Config    *config.Config
	Logger    *slog.Logger
	Workspace *workspace.Workspace

	AuditSink audit.Sink                      // nil = audit logging disabled.
	Metrics   *observability.MetricsCollector // nil = metrics disabled.
	Tracing   *observability.TracerSetup      // nil = tracing disabled.

	metricsServer *http.Server
	cleanups      []func()
}

// Cleanup runs all deferred cleanup functions in reverse order.
func (sc *SharedComponents) Cleanup() {
	for i := len(sc.cleanups) - 1; i >= 0; i-- {
		sc.cleanups[i]()
	}
}

func (sc *SharedComponents) addCleanup(fn func()) {
	sc.cleanups = append(sc.cleanups, fn)
}

// initShared performs all common initialization shared between CLI
// commands. Callers must call sc.Cleanup() when done.
func initShared() (*SharedComponents, error) {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	sc := &SharedComponents{
		Config: cfg,
		Logger: logger,
	}

	// Workspace.
	ws, err := workspace.New(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}
	sc.Workspace = ws
	logger.Debug("workspace initialized", slog.String("root", ws.Root))

	// Audit sink.
	if cfg.Audit != nil {
		sink, err := initAuditSink(cfg, ws, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing audit sink: %w", err)
		}
		sc.AuditSink = sink
		sc.addCleanup(func() {
			if err := sink.Close(); err != nil {
				logger.Error("closing audit sink", slog.String("error", err.Error()))
			}
		})
		logger.Debug("audit sink initialized", slog.String("backend", cfg.Audit.Backend))
	}

	// Observability.
	if obs := cfg.Observability; obs != nil {
		if obs.Metrics != nil && obs.Metrics.Enabled {
			sc.Metrics = observability.NewMetricsCollector()
			sc.metricsServer = observability.ServeMetrics(
				obs.Metrics.Addr, obs.Metrics.Path, sc.Metrics, logger,
			)
			sc.addCleanup(func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = sc.metricsServer.Shutdown(shutdownCtx)
			})
		}
		tracing, err := observability.NewTracerSetup(obs.Tracing)
		if err != nil {
			sc.Cleanup()
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}
		if tracing != nil {
			sc.Tracing = tracing
			sc.addCleanup(func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tracing.Shutdown(shutdownCtx); err != nil {
					logger.Warn("shutting down tracing", slog.String("error", err.Error()))
				}
			})
		}
	}

	return sc, nil
}

// initAuditSink creates the configured audit backend, deriving paths
// from the workspace when the config leaves them unset.
func initAuditSink(cfg *config.Config, ws *workspace.Workspace, logger *slog.Logger) (audit.Sink, error) {
	switch cfg.Audit.Backend {
	case "sqlite":
		path := cfg.Audit.Path
		if path == "" {
			path = ws.DBPath()
		}
		return audit.OpenSQLite(path, logger)
	default: // "file"
		path := cfg.Audit.Path
		if path == "" {
			path = ws.AuditPath()
		}
		return audit.NewFileSink(path, cfg.Audit.JSON, logger)
	}
}

// sessionOptions builds session.Options from the shared components for
// a session over dir.
func (sc *SharedComponents) sessionOptions(dir string) session.Options {
	opts := session.Options{
		Timeout:        sc.Config.Timeout(),
		MaxOutputBytes: sc.Config.MaxOutputBytes(),
		IgnorePatterns: sc.Config.Sandbox.IgnorePatterns,
		Metrics:        sc.Metrics,
		Logger:         sc.Logger,
		Snapshots:      gitsnap.New(dir, sc.Logger),
	}
	if sc.AuditSink != nil {
		opts.Audit = sc.AuditSink
	}
	if sc.Tracing != nil {
		opts.Tracer = sc.Tracing.Tracer()
	}
	return opts
}

// saveTranscript writes the session's command history to the workspace
// as JSONL, one result per line, and logs where it went.
func (sc *SharedComponents) saveTranscript(sess *session.Session) error {
	history := sess.History()
	if len(history) == 0 {
		return nil
	}

	path := sc.Workspace.SessionFile(sess.ID())
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening transcript %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range history {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing transcript: %w", err)
		}
	}

	sc.Logger.Debug("session transcript saved",
		slog.String("session_id", sess.ID()),
		slog.String("path", path),
		slog.Int("commands", len(history)),
	)
	return nil
}

// newLogger builds a text slog logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// confirm prompts on stdout and reads a y/n answer from r.
func confirm(r io.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
