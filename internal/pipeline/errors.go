package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when a candidate does not exist.
var ErrNotFound = errors.New("candidate not found")

// ErrJobNotFound is returned when a job does not exist.
var ErrJobNotFound = errors.New("job not found")

// ErrDocumentNotFound is returned when a candidate has no document of the
// requested kind.
var ErrDocumentNotFound = errors.New("document not found")

// ErrForbidden is returned when the caller does not own the job.
var ErrForbidden = errors.New("job belongs to another user")

// ErrVersionConflict is returned by a Store when a compare-and-set update
// loses against a concurrent writer.
var ErrVersionConflict = errors.New("candidate was modified concurrently")

// ─── Typed errors ────────────────────────────────────────────────────────────

// ValidationError wraps a user-facing message about malformed or missing
// input. No state is mutated when it is returned.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// IllegalTransitionError is returned when an event is not valid from the
// candidate's current state.
type IllegalTransitionError struct {
	From   Status
	Event  Event
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is not allowed from %s", e.Event, e.From)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// CollaboratorError reports a hard failure of an external service. Retryable
// failures may succeed if the caller tries again later.
type CollaboratorError struct {
	Collaborator string
	Retryable    bool
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func illegal(c *Candidate, ev Event, reason string) error {
	return &IllegalTransitionError{From: c.Status, Event: ev, Reason: reason}
}
