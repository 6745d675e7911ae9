// Package audit implements the engine's logging collaborator: one
// structured record per executed command. Two backends are provided, a
// file sink (JSONL or human-readable) and a SQLite store. The engine
// only sees the session.AuditSink interface; persistence format and
// location are decided here.
package audit

import "github.com/jkaninda/clai/internal/session"

// Sink is implemented by every audit backend. It aliases the engine's
// collaborator interface so callers can depend on this package alone.
type Sink interface {
	session.AuditSink
	Close() error
}
