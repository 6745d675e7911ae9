package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jkaninda/clai/internal/session"
)

// FileSink appends audit records to a single file, either as JSONL (one
// JSON object per line) or in a human-readable block format.
// Thread-safe: multiple goroutines can record concurrently.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	json   bool
	logger *slog.Logger
}

// NewFileSink opens (or creates) the audit file in append-only mode
// with 0600 permissions.
func NewFileSink(path string, jsonMode bool, logger *slog.Logger) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	return &FileSink{
		file:   f,
		json:   jsonMode,
		logger: logger,
	}, nil
}

// Record serializes the entry and appends it. Serialization happens
// outside the lock; only the file write is serialized.
func (s *FileSink) Record(ctx context.Context, entry session.AuditEntry) error {
	var data []byte
	if s.json {
		b, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling audit entry: %w", err)
		}
		data = append(b, '\n')
	} else {
		data = []byte(formatEntry(entry))
	}

	s.mu.Lock()
	_, writeErr := s.file.Write(data)
	s.mu.Unlock()

	if writeErr != nil {
		return fmt.Errorf("writing audit entry: %w", writeErr)
	}

	s.logger.InfoContext(ctx, "audit entry recorded",
		slog.String("session_id", entry.SessionID),
		slog.Int("exit_code", entry.Result.ExitCode),
	)
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

const (
	maxLoggedStdout = 500
	maxLoggedStderr = 300
)

// formatEntry renders a human-readable audit block.
func formatEntry(entry session.AuditEntry) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "[%s] Session: %s\n", entry.Time.Format("2006-01-02 15:04:05"), entry.SessionID)
	if entry.Plan != nil {
		if entry.Plan.Intent != "" {
			fmt.Fprintf(&b, "Intent: %s\n", entry.Plan.Intent)
		}
		if entry.Plan.Explain != "" {
			fmt.Fprintf(&b, "Explain: %s\n", entry.Plan.Explain)
		}
	}
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(entry.Result.Command, " "))
	if entry.Result.Cwd != "" {
		fmt.Fprintf(&b, "CWD: %s\n", entry.Result.Cwd)
	}
	fmt.Fprintf(&b, "Status: %s | Exit: %d | Duration: %dms\n",
		entry.Result.Status, entry.Result.ExitCode, entry.Result.Duration.Milliseconds())
	if entry.GitBefore != "" {
		fmt.Fprintf(&b, "Git Before: %.8s\n", entry.GitBefore)
	}
	if entry.GitAfter != "" {
		fmt.Fprintf(&b, "Git After: %.8s\n", entry.GitAfter)
	}
	if out := entry.Result.Stdout; out != "" {
		fmt.Fprintf(&b, "STDOUT:\n%s\n", clip(out, maxLoggedStdout))
	}
	if errOut := entry.Result.Stderr; errOut != "" {
		fmt.Fprintf(&b, "STDERR:\n%s\n", clip(errOut, maxLoggedStderr))
	}
	fmt.Fprintf(&b, "%s\n\n", rule)
	return b.String()
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
