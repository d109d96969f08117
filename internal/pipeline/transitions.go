// Package pipeline defines the candidate hiring pipeline state machine.
//
// Valid status graph:
//
//	(new) ──► APPLIED ────────────────────────────────┐
//	  │          │                                    ▼
//	  ├──► ASSIGNMENT_SENT ──► ASSIGNMENT_RECEIVED ──► APPROVED
//	  │          │                     │
//	  └──────────┴─────────────────────┴──────────────► REJECTED
//
// The initial status is chosen by screening, never by an event. APPROVED and
// REJECTED are terminal. Once APPROVED, the interview sub-status moves
// INVITE_SENT ──► SCHEDULED and never goes back.
package pipeline

import "fmt"

// Status values mirror the candidate_status enum in PostgreSQL.
type Status string

const (
	StatusApplied            Status = "APPLIED"
	StatusAssignmentSent     Status = "ASSIGNMENT_SENT"
	StatusAssignmentReceived Status = "ASSIGNMENT_RECEIVED"
	StatusApproved           Status = "APPROVED"
	StatusRejected           Status = "REJECTED"
)

// InterviewStatus tracks the scheduling sub-protocol. The zero value means
// no interview activity (NULL in the database).
type InterviewStatus string

const (
	InterviewNone       InterviewStatus = ""
	InterviewInviteSent InterviewStatus = "INVITE_SENT"
	InterviewScheduled  InterviewStatus = "SCHEDULED"
)

// Event is an inbound pipeline event that may move a candidate.
type Event string

const (
	EventAssignmentSubmitted Event = "ASSIGNMENT_SUBMITTED"
	EventApprove             Event = "APPROVE"
	EventReject              Event = "REJECT"

	// Interview sub-protocol events. They never change Status.
	EventProposeSlots Event = "PROPOSE_SLOTS"
	EventBookSlot     Event = "BOOK_SLOT"
)

type edge struct {
	from []Status
	to   Status
}

// validTransitions lists, per event, the source states it is accepted from.
var validTransitions = map[Event]edge{
	EventAssignmentSubmitted: {
		from: []Status{StatusAssignmentSent},
		to:   StatusAssignmentReceived,
	},
	EventApprove: {
		from: []Status{StatusApplied, StatusAssignmentReceived},
		to:   StatusApproved,
	},
	EventReject: {
		from: []Status{StatusApplied, StatusAssignmentSent, StatusAssignmentReceived},
		to:   StatusRejected,
	},
}

var interviewTransitions = map[InterviewStatus]InterviewStatus{
	InterviewNone:       InterviewInviteSent,
	InterviewInviteSent: InterviewScheduled,
}

var statusLabels = map[Status]string{
	StatusApplied:            "Applied",
	StatusAssignmentSent:     "Assignment Sent",
	StatusAssignmentReceived: "Assignment Received",
	StatusApproved:           "Approved",
	StatusRejected:           "Rejected",
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusApplied, StatusAssignmentSent, StatusAssignmentReceived, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown candidate status %q", s)
}

// ParseInterviewStatus converts a raw string to an InterviewStatus. The empty
// string is valid and means no interview activity.
func ParseInterviewStatus(s string) (InterviewStatus, error) {
	st := InterviewStatus(s)
	switch st {
	case InterviewNone, InterviewInviteSent, InterviewScheduled:
		return st, nil
	}
	return "", fmt.Errorf("unknown interview status %q", s)
}

// Label is the human-readable form of a status. It is for display only.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// CanTransition reports whether ev is accepted from current.
func CanTransition(current Status, ev Event) bool {
	e, ok := validTransitions[ev]
	if !ok {
		return false
	}
	for _, s := range e.from {
		if s == current {
			return true
		}
	}
	return false
}

// Next returns the status reached by applying ev to current, or an
// *IllegalTransitionError when the state machine rejects it.
func Next(current Status, ev Event) (Status, error) {
	if !CanTransition(current, ev) {
		return "", &IllegalTransitionError{From: current, Event: ev}
	}
	return validTransitions[ev].to, nil
}

// CanTransitionInterview reports whether the interview sub-status may move
// from → to.
func CanTransitionInterview(from, to InterviewStatus) bool {
	next, ok := interviewTransitions[from]
	return ok && next == to
}

// IsTerminal returns true for statuses with no outgoing edges.
func IsTerminal(s Status) bool {
	return s == StatusApproved || s == StatusRejected
}
