package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// AssignmentInvite asks a screened-in candidate to submit the assignment.
type AssignmentInvite struct {
	CandidateID string `json:"candidateId"`
	To          string `json:"to"`
	Name        string `json:"name"`
	JobTitle    string `json:"jobTitle"`
	Details     string `json:"details"`
	Link        string `json:"link"`
}

// Rejection tells a candidate the application will not move forward.
type Rejection struct {
	CandidateID string `json:"candidateId"`
	To          string `json:"to"`
	Name        string `json:"name"`
	JobTitle    string `json:"jobTitle"`
	Reason      string `json:"reason"`
}

// ApprovalInvite sends the booking page link to an approved candidate.
type ApprovalInvite struct {
	CandidateID string `json:"candidateId"`
	To          string `json:"to"`
	Name        string `json:"name"`
	JobTitle    string `json:"jobTitle"`
	BookingLink string `json:"bookingLink"`
}

// Notification is one email obligation produced by a committed transition.
type Notification interface {
	Kind() string
	candidateID() string
	send(ctx context.Context, n Notifier) error
}

func (m AssignmentInvite) Kind() string        { return "assignment_invite" }
func (m AssignmentInvite) candidateID() string { return m.CandidateID }
func (m AssignmentInvite) send(ctx context.Context, n Notifier) error {
	return n.SendAssignmentInvite(ctx, m)
}

func (m Rejection) Kind() string        { return "rejection" }
func (m Rejection) candidateID() string { return m.CandidateID }
func (m Rejection) send(ctx context.Context, n Notifier) error {
	return n.SendRejection(ctx, m)
}

func (m ApprovalInvite) Kind() string        { return "approval_invite" }
func (m ApprovalInvite) candidateID() string { return m.CandidateID }
func (m ApprovalInvite) send(ctx context.Context, n Notifier) error {
	return n.SendApprovalInvite(ctx, m)
}

// TransitionEvent is published after every committed change.
type TransitionEvent struct {
	Type            string          `json:"type"`
	CandidateID     string          `json:"candidateId"`
	JobID           string          `json:"jobId"`
	Event           Event           `json:"event,omitempty"`
	From            Status          `json:"from,omitempty"`
	To              Status          `json:"to"`
	InterviewStatus InterviewStatus `json:"interviewStatus,omitempty"`
	At              time.Time       `json:"at"`
}

// EventCandidateMoved is the channel and type of TransitionEvent messages.
const EventCandidateMoved = "EVENT_CANDIDATE_MOVED"

// FailedNotification is a notification that could not be delivered.
type FailedNotification struct {
	Kind        string          `json:"kind"`
	CandidateID string          `json:"candidateId"`
	Error       string          `json:"error"`
	Payload     json.RawMessage `json:"payload"`
	At          time.Time       `json:"at"`
}

var errNoNotifier = errors.New("notifier not configured")

// Dispatcher runs post-commit side effects. Nothing it does can fail the
// caller: the transition is already durable when it runs.
type Dispatcher struct {
	notifier  Notifier
	publisher EventPublisher
	failures  FailureLog
	now       func() time.Time
}

// NewDispatcher returns a Dispatcher. publisher and failures may be nil.
func NewDispatcher(n Notifier, p EventPublisher, f FailureLog) *Dispatcher {
	return &Dispatcher{notifier: n, publisher: p, failures: f, now: time.Now}
}

// Dispatch delivers n. Failures are logged and recorded, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	if d == nil || n == nil {
		return
	}
	err := errNoNotifier
	if d.notifier != nil {
		err = n.send(ctx, d.notifier)
	}
	if err == nil {
		return
	}
	slog.Warn("notification failed", "kind", n.Kind(), "candidateId", n.candidateID(), "err", err)
	if d.failures == nil {
		return
	}
	payload, _ := json.Marshal(n)
	rec := FailedNotification{
		Kind:        n.Kind(),
		CandidateID: n.candidateID(),
		Error:       err.Error(),
		Payload:     payload,
		At:          d.now().UTC(),
	}
	if err := d.failures.Record(ctx, rec); err != nil {
		slog.Warn("record failed notification", "candidateId", n.candidateID(), "err", err)
	}
}

// Publish broadcasts ev (non-fatal).
func (d *Dispatcher) Publish(ctx context.Context, ev TransitionEvent) {
	if d == nil || d.publisher == nil {
		return
	}
	ev.Type = EventCandidateMoved
	if ev.At.IsZero() {
		ev.At = d.now().UTC()
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("publish "+EventCandidateMoved+" failed", "candidateId", ev.CandidateID, "err", err)
	}
}
