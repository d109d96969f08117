package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// MaxProposedSlots is the largest slot list a recruiter may propose.
	MaxProposedSlots = 3
	// InterviewDuration is the length of a booked interview event.
	InterviewDuration = 45 * time.Minute
	// ReconcileLookback bounds how far back a calendar is searched for a
	// booking made outside the slot picker.
	ReconcileLookback = 24 * time.Hour
	// MaxBusyRange is the widest window ListBusy accepts.
	MaxBusyRange = 31 * 24 * time.Hour
)

var errCalendarNotConfigured = errors.New("calendar not configured")

// ReconcileResult is the outcome of a reconcile attempt. Booked is false when
// no matching calendar event was found; Candidate is then unchanged.
type ReconcileResult struct {
	Booked    bool       `json:"booked"`
	Candidate *Candidate `json:"candidate"`
}

// ─── Proposals ───────────────────────────────────────────────────────────────

// Approve approves a candidate and proposes interview slots in one commit.
func (s *Service) Approve(ctx context.Context, ownerID, candidateID string, slots []time.Time) (*Candidate, error) {
	return s.propose(ctx, ownerID, candidateID, slots, false)
}

// ProposeSlots stores the slots a candidate may book. It approves the
// candidate when that edge is legal, or replaces the proposals of a
// candidate that has not booked yet. No calendar event is created.
func (s *Service) ProposeSlots(ctx context.Context, ownerID, candidateID string, slots []time.Time) (*Candidate, error) {
	return s.propose(ctx, ownerID, candidateID, slots, true)
}

func (s *Service) propose(ctx context.Context, ownerID, candidateID string, slots []time.Time, repropose bool) (*Candidate, error) {
	proposed, err := normalizeSlots(slots)
	if err != nil {
		return nil, err
	}
	cand, job, err := s.ownedCandidate(ctx, ownerID, candidateID)
	if err != nil {
		return nil, err
	}

	var (
		from Status
		ev   Event
	)
	updated, err := s.commit(ctx, cand, func(c *Candidate) error {
		from = c.Status
		now := s.now()
		switch {
		case CanTransition(c.Status, EventApprove):
			ev = EventApprove
			c.record(EventApprove, string(c.Status), string(StatusApproved), now)
			c.Status = StatusApproved
			c.InterviewStatus = InterviewInviteSent
		case repropose && c.AwaitingBooking():
			ev = EventProposeSlots
			c.record(EventProposeSlots, string(InterviewInviteSent), string(InterviewInviteSent), now)
		case repropose && c.InterviewStatus == InterviewScheduled:
			return illegal(c, EventProposeSlots, "interview already scheduled")
		case repropose:
			return illegal(c, EventProposeSlots, "")
		default:
			return illegal(c, EventApprove, "")
		}
		c.ProposedSlots = proposed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.Dispatch(ctx, ApprovalInvite{
		CandidateID: updated.ID,
		To:          updated.Email,
		Name:        updated.Name,
		JobTitle:    job.Title,
		BookingLink: s.link("meet", updated.ID),
	})
	s.dispatch.Publish(ctx, TransitionEvent{
		CandidateID:     updated.ID,
		JobID:           updated.JobID,
		Event:           ev,
		From:            from,
		To:              updated.Status,
		InterviewStatus: updated.InterviewStatus,
	})
	return updated, nil
}

// normalizeSlots rejects empty, oversized and duplicated lists. Slots are
// kept in the given order, in UTC at second precision.
func normalizeSlots(slots []time.Time) ([]time.Time, error) {
	switch {
	case len(slots) == 0:
		return nil, &ValidationError{Field: "slots", Msg: "At least one interview slot is required"}
	case len(slots) > MaxProposedSlots:
		return nil, &ValidationError{Field: "slots", Msg: fmt.Sprintf("At most %d interview slots may be proposed", MaxProposedSlots)}
	}
	out := make([]time.Time, 0, len(slots))
	for i, t := range slots {
		if t.IsZero() {
			return nil, &ValidationError{Field: "slots", Msg: fmt.Sprintf("Slot %d is not a valid time", i+1)}
		}
		t = t.UTC().Truncate(time.Second)
		for _, prev := range out {
			if prev.Equal(t) {
				return nil, &ValidationError{Field: "slots", Msg: "Interview slots must be distinct"}
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// ─── Booking ─────────────────────────────────────────────────────────────────

// BookSlot books one of the proposed slots on the job owner's calendar.
//
// The calendar event is created before the state change is committed. If the
// commit then fails, typically because a concurrent booking won, the event
// is cancelled and the caller gets the commit error.
func (s *Service) BookSlot(ctx context.Context, candidateID string, slot time.Time) (*Candidate, error) {
	cand, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if err := checkBookable(cand, slot); err != nil {
		return nil, err
	}
	job, err := s.store.GetJob(ctx, cand.JobID)
	if err != nil {
		return nil, err
	}
	if s.calendar == nil {
		return nil, &CollaboratorError{Collaborator: "calendar", Err: errCalendarNotConfigured}
	}

	start := slot.UTC().Truncate(time.Second)
	event, err := s.calendar.CreateEvent(ctx, job.OwnerID, EventRequest{
		Summary:       fmt.Sprintf("Interview: %s (for %s)", cand.Name, job.Title),
		Description:   fmt.Sprintf("Interview for %s.\n\nCandidate: %s\nEmail: %s\n\nView details: %s/dashboard", job.Title, cand.Name, cand.Email, s.appURL),
		Start:         start,
		End:           start.Add(InterviewDuration),
		AttendeeEmail: cand.Email,
	})
	if err != nil {
		return nil, &CollaboratorError{Collaborator: "calendar", Retryable: true, Err: err}
	}

	updated, err := s.commit(ctx, cand, func(c *Candidate) error {
		if err := checkBookable(c, start); err != nil {
			return err
		}
		s.schedule(c, start, event)
		return nil
	})
	if err != nil {
		s.cancelOrphan(ctx, job.OwnerID, event.ID, candidateID)
		return nil, err
	}

	slog.Info("interview booked", "candidateId", updated.ID, "start", start)
	s.publishScheduled(ctx, updated, EventBookSlot)
	return updated, nil
}

func checkBookable(c *Candidate, slot time.Time) error {
	if !c.AwaitingBooking() {
		if c.InterviewStatus == InterviewScheduled {
			return illegal(c, EventBookSlot, "interview already scheduled")
		}
		return illegal(c, EventBookSlot, "no open interview invite")
	}
	if !c.HasProposedSlot(slot) {
		return illegal(c, EventBookSlot, "slot is not one of the proposed times")
	}
	return nil
}

// schedule applies the INVITE_SENT → SCHEDULED transition.
func (s *Service) schedule(c *Candidate, start time.Time, ev *CalendarEvent) {
	c.record(EventBookSlot, string(InterviewInviteSent), string(InterviewScheduled), s.now())
	c.InterviewStatus = InterviewScheduled
	c.InterviewDate = &start
	c.MeetingLink = ev.MeetingLink
	if c.MeetingLink == "" {
		c.MeetingLink = ev.EventURL
	}
	c.CalendarEventID = ev.ID
	c.ProposedSlots = nil
}

func (s *Service) cancelOrphan(ctx context.Context, ownerID, eventID, candidateID string) {
	if eventID == "" {
		return
	}
	if err := s.calendar.CancelEvent(ctx, ownerID, eventID); err != nil {
		slog.Warn("cancel orphan calendar event failed", "candidateId", candidateID, "eventId", eventID, "err", err)
	}
}

func (s *Service) publishScheduled(ctx context.Context, c *Candidate, ev Event) {
	s.dispatch.Publish(ctx, TransitionEvent{
		CandidateID:     c.ID,
		JobID:           c.JobID,
		Event:           ev,
		From:            c.Status,
		To:              c.Status,
		InterviewStatus: c.InterviewStatus,
	})
}

// ─── Reconciliation ──────────────────────────────────────────────────────────

// ReconcileBooking looks for an event the candidate booked directly on the
// owner's calendar and, when one is found, schedules the interview at its
// start time. The calendar is trusted: the time need not be a proposed slot.
func (s *Service) ReconcileBooking(ctx context.Context, ownerID, candidateID string) (*ReconcileResult, error) {
	cand, job, err := s.ownedCandidate(ctx, ownerID, candidateID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, cand, job)
}

func (s *Service) reconcile(ctx context.Context, cand *Candidate, job *Job) (*ReconcileResult, error) {
	if !cand.AwaitingBooking() {
		return nil, illegal(cand, EventBookSlot, "no open interview invite")
	}
	if s.calendar == nil {
		return nil, &CollaboratorError{Collaborator: "calendar", Err: errCalendarNotConfigured}
	}
	events, err := s.calendar.FindEvents(ctx, job.OwnerID, cand.Email, s.now().Add(-ReconcileLookback))
	if err != nil {
		return nil, &CollaboratorError{Collaborator: "calendar", Retryable: true, Err: err}
	}
	if len(events) == 0 {
		return &ReconcileResult{Candidate: cand}, nil
	}

	match := events[0]
	start := match.Start.UTC().Truncate(time.Second)
	updated, err := s.commit(ctx, cand, func(c *Candidate) error {
		if !c.AwaitingBooking() {
			return illegal(c, EventBookSlot, "no open interview invite")
		}
		s.schedule(c, start, &match)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("booking reconciled from calendar", "candidateId", updated.ID, "eventId", match.ID, "start", start)
	s.publishScheduled(ctx, updated, EventBookSlot)
	return &ReconcileResult{Booked: true, Candidate: updated}, nil
}

// SweepBookings reconciles every candidate awaiting a booking. Per-candidate
// failures are logged and skipped. It returns how many were booked.
func (s *Service) SweepBookings(ctx context.Context) (int, error) {
	pending, err := s.store.ListAwaitingBooking(ctx)
	if err != nil {
		return 0, fmt.Errorf("listAwaitingBooking: %w", err)
	}
	jobs := make(map[string]*Job)
	booked := 0
	for i := range pending {
		if ctx.Err() != nil {
			return booked, ctx.Err()
		}
		c := &pending[i]
		job, ok := jobs[c.JobID]
		if !ok {
			job, err = s.store.GetJob(ctx, c.JobID)
			if err != nil {
				slog.Warn("sweep: load job failed", "jobId", c.JobID, "err", err)
				continue
			}
			jobs[c.JobID] = job
		}
		res, err := s.reconcile(ctx, c, job)
		if err != nil {
			slog.Warn("sweep: reconcile failed", "candidateId", c.ID, "err", err)
			continue
		}
		if res.Booked {
			booked++
		}
	}
	return booked, nil
}

// ─── Availability ────────────────────────────────────────────────────────────

// ListBusy returns the owner's busy periods in [start, end).
func (s *Service) ListBusy(ctx context.Context, ownerID string, start, end time.Time) ([]BusyPeriod, error) {
	if ownerID == "" {
		return nil, ErrForbidden
	}
	if !end.After(start) {
		return nil, &ValidationError{Field: "end", Msg: "End must be after start"}
	}
	if end.Sub(start) > MaxBusyRange {
		return nil, &ValidationError{Field: "end", Msg: "Range must not exceed 31 days"}
	}
	if s.calendar == nil {
		return nil, &CollaboratorError{Collaborator: "calendar", Err: errCalendarNotConfigured}
	}
	busy, err := s.calendar.ListBusy(ctx, ownerID, start, end)
	if err != nil {
		return nil, &CollaboratorError{Collaborator: "calendar", Retryable: true, Err: err}
	}
	return busy, nil
}
