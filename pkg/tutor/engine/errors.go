package engine

import (
	"errors"
	"fmt"
)

// ErrNoActiveThread marks a message that presupposes an open question when
// the session has none. HandleMessage catches it and reprocesses the
// message as a new question.
var ErrNoActiveThread = errors.New("no active thread for this session")

// UpstreamError wraps a model, search, or storage failure that survived
// the single retry. The student gets an apology and the session state is
// left exactly as it was.
type UpstreamError struct {
	Stage   string // "retrieve", "reason", "judge", "render", "persist"
	Timeout bool
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream timeout in %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("upstream failure in %s: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// InvariantError marks an internal contradiction (unknown turn type,
// impossible scaffold transition). It aborts the message, never the
// session.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "invariant violated: " + e.Reason
}
