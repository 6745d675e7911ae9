package session

import (
	"context"
	"time"

	"github.com/jkaninda/clai/internal/sandbox"
)

// AuditSink receives one structured record per executed command.
// Persistence format and location are entirely the sink's concern.
// Sink failures are logged by the engine but never fail the command.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// Snapshotter captures an opaque version-control state identifier. The
// engine calls it before and after each command and forwards the
// identifiers to the audit sink without inspecting them.
type Snapshotter interface {
	Capture(ctx context.Context) (string, error)
}

// AuditEntry is the per-command record handed to the AuditSink.
// Immutable once constructed; safe for concurrent observation.
type AuditEntry struct {
	Time      time.Time       `json:"time"`
	SessionID string          `json:"session_id"`
	Plan      *Plan           `json:"plan,omitempty"`
	Result    *sandbox.Result `json:"result"`
	GitBefore string          `json:"git_before,omitempty"`
	GitAfter  string          `json:"git_after,omitempty"`
}
