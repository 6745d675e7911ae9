// Package sandbox executes single commands against a rooted filesystem
// tree under a wall-clock timeout and an output-size cap. Commands run
// in their own process group so a timeout kills the whole subtree, and
// the working directory is confined to the tree root: any attempt to
// escape via ".." or an absolute path fails before anything executes.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultTimeout bounds a command when the request does not.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxOutputBytes caps each of stdout and stderr.
	DefaultMaxOutputBytes = 1 << 20 // 1 MB
)

// Status classifies how a command run ended.
type Status string

const (
	// StatusCompleted means the process exited on its own; the exit
	// code says whether it succeeded.
	StatusCompleted Status = "completed"

	// StatusTimedOut means the process was force-terminated at the
	// timeout. Partial output is retained and any side effects on the
	// tree remain subject to change detection.
	StatusTimedOut Status = "timed_out"
)

// Request describes one command execution.
type Request struct {
	// Command is the program and arguments (e.g. ["go", "test", "./..."]).
	Command []string

	// Cwd is the working directory relative to the tree root.
	// Empty or "." means the root itself.
	Cwd string

	// Timeout overrides the executor default. Zero = use default.
	Timeout time.Duration

	// MaxOutputBytes overrides the executor default. Zero = use default.
	MaxOutputBytes int
}

// Result captures the outcome of one command. Immutable once returned;
// safe to hand to concurrent observers.
type Result struct {
	Command         []string      `json:"command"`
	Cwd             string        `json:"cwd"`
	ExitCode        int           `json:"exit_code"`
	Stdout          string        `json:"stdout"`
	Stderr          string        `json:"stderr"`
	StdoutTruncated bool          `json:"stdout_truncated,omitempty"`
	StderrTruncated bool          `json:"stderr_truncated,omitempty"`
	Duration        time.Duration `json:"duration"`
	Timestamp       time.Time     `json:"timestamp"`
	Status          Status        `json:"status"`
}

// Success reports whether the command completed with exit code zero.
func (r *Result) Success() bool {
	return r.Status == StatusCompleted && r.ExitCode == 0
}

// Summary is a one-line human-readable rendering of the result.
func (r *Result) Summary() string {
	mark := "ok"
	if !r.Success() {
		mark = "failed"
	}
	return fmt.Sprintf("[%s] %s %s (exit: %d, %dms)",
		r.Timestamp.Format("15:04:05"), mark, strings.Join(r.Command, " "),
		r.ExitCode, r.Duration.Milliseconds())
}

// PathEscapeError reports a working directory that resolves outside the
// tree root.
type PathEscapeError struct {
	Cwd string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("working directory %q escapes the sandbox tree", e.Cwd)
}

// CommandNotFoundError reports a missing executable, distinct from a
// command that ran and exited non-zero.
type CommandNotFoundError struct {
	Program string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("command not found: %s", e.Program)
}

// Config configures an Executor.
type Config struct {
	DefaultTimeout time.Duration
	MaxOutputBytes int
}

// Executor runs commands confined to a single tree root.
type Executor struct {
	root           string
	defaultTimeout time.Duration
	maxOutputBytes int
	logger         *slog.Logger
}

// NewExecutor creates an Executor rooted at root (an absolute path).
func NewExecutor(root string, cfg Config, logger *slog.Logger) *Executor {
	timeout := cfg.DefaultTimeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxOutput := cfg.MaxOutputBytes
	if maxOutput == 0 {
		maxOutput = DefaultMaxOutputBytes
	}
	return &Executor{
		root:           root,
		defaultTimeout: timeout,
		maxOutputBytes: maxOutput,
		logger:         logger,
	}
}

// Run executes one command. A timeout or non-zero exit is a normal,
// fully-reported Result, not an error; errors are reserved for engine
// failures (empty command, path escape, missing executable, spawn
// failure).
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	execDir, err := e.resolveCwd(req.Cwd)
	if err != nil {
		return nil, err
	}

	// Only bare program names go through PATH here. A slash-containing
	// program ("./build.sh") resolves against the command's working
	// directory at exec time, so it must not be checked against the
	// engine's own cwd.
	if !hasPathSeparator(req.Command[0]) {
		if _, err := exec.LookPath(req.Command[0]); err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return nil, &CommandNotFoundError{Program: req.Command[0]}
			}
			return nil, fmt.Errorf("resolving %s: %w", req.Command[0], err)
		}
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = e.defaultTimeout
	}
	maxOutput := req.MaxOutputBytes
	if maxOutput == 0 {
		maxOutput = e.maxOutputBytes
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.Command[0], req.Command[1:]...)
	cmd.Dir = execDir

	// Own process group; kill the whole group on timeout so children
	// spawned by the command terminate too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	stdout := newLimitedWriter(maxOutput)
	stderr := newLimitedWriter(maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	e.logger.Info("executing in sandbox",
		slog.Any("command", req.Command),
		slog.String("dir", execDir),
		slog.Duration("timeout", timeout),
	)

	started := time.Now()
	runErr := cmd.Run()
	duration := time.Since(started)

	result := &Result{
		Command:         req.Command,
		Cwd:             req.Cwd,
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
		Duration:        duration,
		Timestamp:       started,
		Status:          StatusCompleted,
	}

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.Status = StatusTimedOut
			result.ExitCode = -1
			e.logger.Warn("command timed out",
				slog.Any("command", req.Command),
				slog.Duration("timeout", timeout),
			)
			return result, nil
		}
		var exitErr *exec.ExitError
		switch {
		case errors.As(runErr, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		case errors.Is(runErr, exec.ErrNotFound), errors.Is(runErr, fs.ErrNotExist):
			// Path-containing programs skip the pre-exec check and
			// surface a missing file only when the spawn fails.
			return nil, &CommandNotFoundError{Program: req.Command[0]}
		default:
			return nil, fmt.Errorf("executing command: %w", runErr)
		}
	}

	e.logger.Info("command finished",
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", duration),
		slog.Int("stdout_bytes", len(result.Stdout)),
		slog.Int("stderr_bytes", len(result.Stderr)),
	)

	return result, nil
}

// hasPathSeparator reports whether name addresses a filesystem path
// rather than a bare program name for PATH lookup.
func hasPathSeparator(name string) bool {
	return strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator)
}

// resolveCwd confines the requested working directory to the tree root.
// The directory is created if the command expects a path that does not
// exist yet.
func (e *Executor) resolveCwd(cwd string) (string, error) {
	if cwd == "" || cwd == "." {
		return e.root, nil
	}
	if filepath.IsAbs(cwd) {
		return "", &PathEscapeError{Cwd: cwd}
	}

	resolved := filepath.Clean(filepath.Join(e.root, filepath.FromSlash(cwd)))
	if resolved != e.root && !strings.HasPrefix(resolved, e.root+string(filepath.Separator)) {
		return "", &PathEscapeError{Cwd: cwd}
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return "", fmt.Errorf("creating working directory %s: %w", resolved, err)
	}
	return resolved, nil
}

// limitedWriter stops writing after a byte limit and records that the
// excess was discarded.
type limitedWriter struct {
	buf       bytes.Buffer
	remaining int
	truncated bool
}

func newLimitedWriter(limit int) *limitedWriter {
	return &limitedWriter{remaining: limit}
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	total := len(p)
	if lw.remaining <= 0 {
		lw.truncated = true
		return total, nil
	}
	if len(p) > lw.remaining {
		lw.truncated = true
		p = p[:lw.remaining]
	}
	n, err := lw.buf.Write(p)
	lw.remaining -= n
	if err != nil {
		return n, err
	}
	return total, nil
}

func (lw *limitedWriter) String() string { return lw.buf.String() }

var _ io.Writer = (*limitedWriter)(nil)
