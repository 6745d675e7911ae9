// Package session owns the sandbox session lifecycle: it clones the
// original directory into an isolated sandbox, serializes command
// execution and change detection against that sandbox, and ends with an
// all-or-nothing (per file) apply or discard. The original root is
// never written until an explicit apply; discard leaves it byte-identical
// to its pre-start state.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/jkaninda/clai/internal/diff"
	"github.com/jkaninda/clai/internal/observability"
	"github.com/jkaninda/clai/internal/pathfilter"
	"github.com/jkaninda/clai/internal/sandbox"
	"github.com/jkaninda/clai/internal/tree"
)

// Options configures a Session. Zero values fall back to executor
// defaults; nil collaborators disable the corresponding hook.
type Options struct {
	Timeout        time.Duration
	MaxOutputBytes int
	IgnorePatterns []string // Extra patterns on top of pathfilter.DefaultPatterns.

	Audit     AuditSink
	Snapshots Snapshotter
	Metrics   *observability.MetricsCollector
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

// Session is the aggregate root for one sandbox lifecycle:
// Inactive -> Active -> Terminated(Applied|Discarded).
//
// Operations are serialized by an internal mutex; the contract is
// blocking and synchronous. RunCommand blocks the caller for up to the
// timeout. Two sessions never share a sandbox root: the sandbox name is
// derived from the original root and the session ID.
type Session struct {
	mu sync.Mutex

	id           string
	originalRoot string
	sandboxRoot  string
	createdAt    time.Time

	state   State
	reason  TerminalReason
	history []*sandbox.Result

	filter   *pathfilter.Filter
	cloner   *tree.Cloner
	detector *diff.Detector
	applier  *tree.Applier
	executor *sandbox.Executor

	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates an Inactive session over originalRoot. The path must be
// an existing directory; ignore patterns are validated here so a
// malformed pattern fails at construction, not per path.
func New(originalRoot string, opts Options) (*Session, error) {
	abs, err := filepath.Abs(originalRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving original root %q: %w", originalRoot, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("original root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("original root %s is not a directory", abs)
	}

	patterns := append(append([]string{}, pathfilter.DefaultPatterns...), opts.IgnorePatterns...)
	filter, err := pathfilter.New(patterns)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.NewNoopTracerProvider().Tracer("")
	}

	id := newSessionID()
	s := &Session{
		id:           id,
		originalRoot: abs,
		sandboxRoot:  sandboxPath(abs, id),
		createdAt:    time.Now(),
		state:        StateInactive,
		filter:       filter,
		cloner:       tree.NewCloner(filter, logger),
		detector:     diff.NewDetector(filter, logger),
		applier:      tree.NewApplier(logger),
		opts:         opts,
		logger:       logger,
		tracer:       tracer,
	}
	return s, nil
}

// newSessionID combines a sortable timestamp with a random suffix so
// concurrent sessions on different roots can never collide.
func newSessionID() string {
	return time.Now().Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// sandboxPath places the sandbox as a sibling of the original root so
// commands that walk upward out of the sandbox still cannot reach into
// a nested copy of the original.
func sandboxPath(originalRoot, id string) string {
	name := pathfilter.SandboxPrefix + filepath.Base(originalRoot) + "_" + id
	return filepath.Join(filepath.Dir(originalRoot), name)
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// OriginalRoot returns the absolute original directory path.
func (s *Session) OriginalRoot() string { return s.originalRoot }

// SandboxRoot returns the absolute sandbox directory path.
func (s *Session) SandboxRoot() string { return s.sandboxRoot }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason returns the terminal reason, or ReasonNone before termination.
func (s *Session) Reason() TerminalReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// History returns a copy of the append-only command history in
// completion order.
func (s *Session) History() []*sandbox.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*sandbox.Result, len(s.history))
	copy(out, s.history)
	return out
}

// Start clones the original root into a fresh sandbox and activates the
// session. Valid only from Inactive.
func (s *Session) Start(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "session.start")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInactive {
		return ErrSessionAlreadyActive
	}

	s.logger.Info("creating sandbox copy",
		slog.String("session_id", s.id),
		slog.String("original", s.originalRoot),
		slog.String("sandbox", s.sandboxRoot),
	)

	if err := s.cloner.Clone(s.originalRoot, s.sandboxRoot); err != nil {
		return err
	}

	s.executor = sandbox.NewExecutor(s.sandboxRoot, sandbox.Config{
		DefaultTimeout: s.opts.Timeout,
		MaxOutputBytes: s.opts.MaxOutputBytes,
	}, s.logger)

	s.state = StateActive
	s.opts.Metrics.RecordSessionStart()

	s.logger.Info("sandbox session started", slog.String("session_id", s.id))
	return nil
}

// RunCommand executes one command inside the sandbox and appends the
// result to the history. Timeouts and non-zero exits are reported
// results, not errors.
func (s *Session) RunCommand(ctx context.Context, command []string, cwd string) (*sandbox.Result, error) {
	return s.run(ctx, nil, command, cwd)
}

// RunPlan validates a command plan and executes it. All plan fields
// beyond command and cwd pass through to the audit sink untouched.
func (s *Session) RunPlan(ctx context.Context, plan *Plan) (*sandbox.Result, error) {
	if plan == nil {
		return nil, &PlanError{Reason: "plan must not be nil"}
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return s.run(ctx, plan, plan.Command, plan.Cwd)
}

func (s *Session) run(ctx context.Context, plan *Plan, command []string, cwd string) (*sandbox.Result, error) {
	ctx, span := s.tracer.Start(ctx, "session.run_command")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil, ErrSessionNotActive
	}

	gitBefore := s.capture(ctx)

	result, err := s.executor.Run(ctx, sandbox.Request{
		Command:        command,
		Cwd:            cwd,
		Timeout:        s.opts.Timeout,
		MaxOutputBytes: s.opts.MaxOutputBytes,
	})
	if err != nil {
		return nil, err
	}

	s.history = append(s.history, result)
	s.opts.Metrics.RecordCommand(string(result.Status), result.Duration)

	gitAfter := s.capture(ctx)
	s.audit(ctx, AuditEntry{
		Time:      result.Timestamp,
		SessionID: s.id,
		Plan:      plan,
		Result:    result,
		GitBefore: gitBefore,
		GitAfter:  gitAfter,
	})

	return result, nil
}

// capture asks the snapshot collaborator for an opaque state
// identifier. Failures are logged and yield an empty identifier; a
// snapshot problem never fails a command.
func (s *Session) capture(ctx context.Context) string {
	if s.opts.Snapshots == nil {
		return ""
	}
	id, err := s.opts.Snapshots.Capture(ctx)
	if err != nil {
		s.logger.Warn("snapshot capture failed", slog.String("error", err.Error()))
		return ""
	}
	return id
}

// audit forwards the record to the audit sink, logging sink failures.
func (s *Session) audit(ctx context.Context, entry AuditEntry) {
	if s.opts.Audit == nil {
		return
	}
	if err := s.opts.Audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit sink failed", slog.String("error", err.Error()))
	}
}

// Changes computes the current change-set between sandbox and original.
// Read-only: callable any number of times, always reflecting the trees
// at call time.
func (s *Session) Changes(ctx context.Context) ([]diff.FileChange, error) {
	_, span := s.tracer.Start(ctx, "session.changes")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil, ErrSessionNotActive
	}

	changes, err := s.detector.Detect(s.originalRoot, s.sandboxRoot)
	if err != nil {
		return nil, err
	}
	for _, c := range changes {
		s.opts.Metrics.RecordChange(string(c.Type))
	}
	return changes, nil
}

// Apply replays the current change-set onto the original root and
// terminates the session. Per-file failures are collected, not fatal:
// on any success the session terminates Applied and the sandbox is
// removed, with an ApplyError naming the failed paths. Only a total
// failure (zero files written) preserves the sandbox and keeps the
// session Active so Apply can be retried.
func (s *Session) Apply(ctx context.Context) ([]tree.Outcome, error) {
	_, span := s.tracer.Start(ctx, "session.apply")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil, ErrSessionNotActive
	}

	changes, err := s.detector.Detect(s.originalRoot, s.sandboxRoot)
	if err != nil {
		return nil, fmt.Errorf("computing change-set: %w", err)
	}

	outcomes, applyErr := s.applier.Apply(s.originalRoot, s.sandboxRoot, changes)

	if ae, ok := applyErr.(*tree.ApplyError); ok {
		s.opts.Metrics.RecordApply(ae.Applied, len(ae.Failures))
		if ae.Total() && len(changes) > 0 {
			// Nothing was written; keep the sandbox for retry or
			// forensic inspection.
			s.logger.Error("apply failed completely, sandbox preserved",
				slog.String("session_id", s.id),
				slog.String("sandbox", s.sandboxRoot),
			)
			return outcomes, applyErr
		}
	} else {
		s.opts.Metrics.RecordApply(len(outcomes), 0)
	}

	s.terminate(ReasonApplied)
	s.logger.Info("changes applied",
		slog.String("session_id", s.id),
		slog.Int("files", len(outcomes)),
	)
	return outcomes, applyErr
}

// Discard removes the sandbox and terminates the session, leaving the
// original root untouched. Idempotent: discarding a session that is
// already terminated (or never started) is a no-op. If the sandbox
// cannot be removed the session stays Active so Discard can be retried.
func (s *Session) Discard(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "session.discard")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil
	}

	if err := os.RemoveAll(s.sandboxRoot); err != nil {
		return &DiscardError{Err: err}
	}

	s.terminate(ReasonDiscarded)
	s.logger.Info("sandbox discarded", slog.String("session_id", s.id))
	return nil
}

// terminate moves to the terminal state and releases the sandbox.
// Callers hold s.mu.
func (s *Session) terminate(reason TerminalReason) {
	if reason == ReasonApplied {
		if err := os.RemoveAll(s.sandboxRoot); err != nil {
			s.logger.Warn("could not fully remove sandbox",
				slog.String("dir", s.sandboxRoot),
				slog.String("error", err.Error()),
			)
		}
	}
	s.state = StateTerminated
	s.reason = reason
	s.opts.Metrics.RecordSessionEnd(string(reason))
}
