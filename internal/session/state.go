package session

// State is the lifecycle position of a session. Used only for
// precondition checks; never persisted.
type State string

const (
	StateInactive   State = "inactive"
	StateActive     State = "active"
	StateTerminated State = "terminated"
)

// TerminalReason records which terminal path ended the session.
type TerminalReason string

const (
	ReasonNone      TerminalReason = ""
	ReasonApplied   TerminalReason = "applied"
	ReasonDiscarded TerminalReason = "discarded"
)
