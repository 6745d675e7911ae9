package session

import (
	"errors"
	"fmt"
)

// ErrSessionNotActive is returned by every operation invoked outside
// the Active state, except the idempotent Discard.
var ErrSessionNotActive = errors.New("session is not active")

// ErrSessionAlreadyActive is returned by Start on any state but
// Inactive. One session instance manages exactly one sandbox lifecycle.
var ErrSessionAlreadyActive = errors.New("session already started")

// DiscardError reports that the sandbox tree could not be removed. The
// session stays in a recoverable state so Discard can be retried.
type DiscardError struct {
	Err error
}

func (e *DiscardError) Error() string {
	return fmt.Sprintf("discarding sandbox: %v", e.Err)
}

func (e *DiscardError) Unwrap() error { return e.Err }

// PlanError reports an invalid command plan.
type PlanError struct {
	Reason string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("invalid plan: %s", e.Reason)
}
