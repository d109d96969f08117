package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/pipeline-service/internal/pipeline"
)

// ── Approve / ProposeSlots ─────────────────────────────────────────────────

func TestApprove_StoresSlotsInOrder(t *testing.T) {
	h := newHarness(t)
	c := h.candidateAt(t, nil)
	slots := threeSlots()
	// Out of chronological order on purpose: proposal order is kept.
	slots[0], slots[2] = slots[2], slots[0]

	got, err := h.svc.Approve(context.Background(), owner, c.ID, slots)
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusApproved, got.Status)
	assert.Equal(t, pipeline.InterviewInviteSent, got.InterviewStatus)
	assert.Equal(t, slots, got.ProposedSlots)
	assert.NoError(t, got.CheckInvariants())

	require.Len(t, h.notifier.approvals, 1)
	assert.Equal(t, "https://hire.example.com/meet/"+c.ID, h.notifier.approvals[0].BookingLink)
	assert.Empty(t, h.calendar.created, "proposing creates no calendar event")
}

func TestApprove_FromAssignmentReceived(t *testing.T) {
	h := newHarness(t)
	c := h.candidateAt(t, intPtr(90))
	_, err := h.svc.SubmitAssignment(context.Background(), c.ID, pipeline.AssignmentInput{Link: "https://github.com/ada/x"})
	require.NoError(t, err)

	got, err := h.svc.Approve(context.Background(), owner, c.ID, threeSlots()[:1])
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusApproved, got.Status)
}

func TestApprove_IllegalFromAssignmentSent(t *testing.T) {
	h := newHarness(t)
	c := h.candidateAt(t, intPtr(90))
	before := h.reload(t, c.ID)

	_, err := h.svc.Approve(context.Background(), owner, c.ID, threeSlots())
	ie := requireIllegal(t, err)
	assert.Equal(t, pipeline.EventApprove, ie.Event)
	assert.Equal(t, before, h.reload(t, c.ID))
	assert.Empty(t, h.notifier.approvals)
}

func TestProposeSlots_FourthSlotRejected(t *testing.T) {
	h := newHarness(t)
	c := h.candidateAt(t, nil)
	slots := append(threeSlots(), threeSlots()[2].Add(24*time.Hour))

	_, err := h.svc.ProposeSlots(context.Background(), owner, c.ID, slots)
	assert.Equal(t, "slots", validationField(t, err))
	assert.Equal(t, pipeline.StatusApplied, h.reload(t, c.ID).Status, "no truncation, no mutation")
}

func TestProposeSlots_InvalidLists(t *testing.T) {
	h := newHarness(t)
	c := h.candidateAt(t, nil)
	s := threeSlots()

	for name, slots := range map[string][]time.Time{
		"empty":     nil,
		"duplicate": {s[0], s[0].In(time.FixedZone("CET", 3600))},
		"zero":      {{}},
	} {
		_, err := h.svc.ProposeSlots(context.Background(), owner, c.ID, slots)
		assert.Equal(t, "slots", validationField(t, err), name)
	}
}

func TestProposeSlots_Repropose(t *testing.T) {
	h := newHarness(t)
	c := h.invited(t, threeSlots())
	next := []time.Time{threeSlots()[0].Add(2 * time.Hour)}

	got, err := h.svc.ProposeSlots(context.Background(), owner, c.ID, next)
	require.NoError(t, err)
	assert.Equal(t, next, got.ProposedSlots)
	assert.Equal(t, pipeline.InterviewInviteSent, got.InterviewStatus)
	assert.Len(t, h.notifier.approvals, 2, "invite re-sent")

	// Approve is not a re-proposal.
	_, err = h.svc.Approve(context.Background(), owner, c.ID, next)
	requireIllegal(t, err)
}

func TestProposeSlots_NormalisesToUTC(t *testing.T) {
	h := newHarness(t)
	c := h.candidateAt(t, nil)
	local := time.Date(2026, 3, 10, 15, 0, 0, 500, time.FixedZone("CET", 3600))

	got, err := h.svc.ProposeSlots(context.Background(), owner, c.ID, []time.Time{local})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), got.ProposedSlots[0])
}

// ── BookSlot ───────────────────────────────────────────────────────────────

func TestBookSlot_SecondProposedSlot(t *testing.T) {
	h := newHarness(t)
	slots := threeSlots()
	c := h.invited(t, slots)

	got, err := h.svc.BookSlot(context.Background(), c.ID, slots[1])
	require.NoError(t, err)

	require.Len(t, h.calendar.created, 1)
	ev := h.calendar.created[0]
	assert.True(t, ev.Start.Equal(slots[1]))
	assert.Equal(t, 45*time.Minute, ev.End.Sub(ev.Start))
	assert.Equal(t, "ada@example.com", ev.AttendeeEmail)

	assert.Equal(t, pipeline.InterviewScheduled, got.InterviewStatus)
	assert.Nil(t, got.ProposedSlots)
	require.NotNil(t, got.InterviewDate)
	assert.True(t, got.InterviewDate.Equal(slots[1]))
	assert.Equal(t, "https://meet.example.com/evt-1", got.MeetingLink)

	stored := h.reload(t, c.ID)
	assert.NoError(t, stored.CheckInvariants())
	assert.Equal(t, "evt-1", stored.CalendarEventID)
}

func TestBookSlot_NotProposedIsIllegal(t *testing.T) {
	h := newHarness(t)
	slots := threeSlots()
	c := h.invited(t, slots)
	before := h.reload(t, c.ID)

	for _, slot := range []time.Time{slots[0].Add(time.Minute), slots[0].Add(time.Nanosecond)} {
		_, err := h.svc.BookSlot(context.Background(), c.ID, slot)
		requireIllegal(t, err)
	}
	assert.Equal(t, before, h.reload(t, c.ID))
	assert.Zero(t, h.calendar.createdCount())
}

func TestBookSlot_SameInstantOtherZoneMatches(t *testing.T) {
	h := newHarness(t)
	slots := threeSlots()
	c := h.invited(t, slots)

	_, err := h.svc.BookSlot(context.Background(), c.ID, slots[0].In(time.FixedZone("EST", -5*3600)))
	assert.NoError(t, err)
}

func TestBookSlot_CalendarFailureMutatesNothing(t *testing.T) {
	h := newHarness(t)
	c := h.invited(t, threeSlots())
	before := h.reload(t, c.ID)
	h.calendar.createErr = errDown

	_, err := h.svc.BookSlot(context.Background(), c.ID, threeSlots()[0])
	var ce *pipeline.CollaboratorError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Retryable)
	assert.Equal(t, before, h.reload(t, c.ID))
}

func TestBookSlot_AlreadyScheduled(t *testing.T) {
	h := newHarness(t)
	c := h.invited(t, threeSlots())
	_, err := h.svc.BookSlot(context.Background(), c.ID, threeSlots()[0])
	require.NoError(t, err)

	_, err = h.svc.BookSlot(context.Background(), c.ID, threeSlots()[0])
	ie := requireIllegal(t, err)
	assert.Contains(t, ie.Reason, "already scheduled")
	assert.Equal(t, 1, h.calendar.createdCount())
}

func TestBookSlot_BeforeApproval(t *testing.T) {
	h := newHarness(t)
	c := h.candidateAt(t, nil)
	_, err := h.svc.BookSlot(context.Background(), c.ID, threeSlots()[0])
	requireIllegal(t, err)
}

func TestBookSlot_ConcurrentBookingsOneWins(t *testing.T) {
	h := newHarness(t)
	slots := threeSlots()
	c := h.invited(t, slots)

	// Both requests pass the precheck before either commits.
	h.calendar.gate = make(chan struct{})
	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.BookSlot(context.Background(), c.ID, slots[i])
		}(i)
	}
	// Give both goroutines time to reach the calendar call.
	time.Sleep(50 * time.Millisecond)
	close(h.calendar.gate)
	wg.Wait()

	var ok, illegal int
	for _, err := range errs {
		var ie *pipeline.IllegalTransitionError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &ie):
			illegal++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, illegal)

	stored := h.reload(t, c.ID)
	assert.Equal(t, pipeline.InterviewScheduled, stored.InterviewStatus)
	assert.NoError(t, stored.CheckInvariants())

	// Every event created for the losing request is cancelled.
	h.calendar.mu.Lock()
	defer h.calendar.mu.Unlock()
	assert.Len(t, h.calendar.cancelled, len(h.calendar.created)-1)
	assert.NotContains(t, h.calendar.cancelled, stored.CalendarEventID)
}

// ── ReconcileBooking ───────────────────────────────────────────────────────

func TestReconcileBooking_TrustsCalendar(t *testing.T) {
	h := newHarness(t)
	c := h.invited(t, threeSlots())
	offList := time.Date(2026, 3, 11, 16, 30, 0, 0, time.UTC)
	h.calendar.found = []pipeline.CalendarEvent{{ID: "direct-1", Start: offList, EventURL: "https://calendar.example.com/direct-1"}}

	res, err := h.svc.ReconcileBooking(context.Background(), owner, c.ID)
	require.NoError(t, err)
	require.True(t, res.Booked)
	assert.Equal(t, pipeline.InterviewScheduled, res.Candidate.InterviewStatus)
	assert.True(t, res.Candidate.InterviewDate.Equal(offList))
	assert.Equal(t, "https://calendar.example.com/direct-1", res.Candidate.MeetingLink, "falls back to the event URL")
	assert.Nil(t, res.Candidate.ProposedSlots)
}

func TestReconcileBooking_NoMatch(t *testing.T) {
	h := newHarness(t)
	c := h.invited(t, threeSlots())

	res, err := h.svc.ReconcileBooking(context.Background(), owner, c.ID)
	require.NoError(t, err)
	assert.False(t, res.Booked)
	assert.Equal(t, pipeline.InterviewInviteSent, h.reload(t, c.ID).InterviewStatus)
}

func TestReconcileBooking_Errors(t *testing.T) {
	h := newHarness(t)
	c := h.candidateAt(t, nil)
	_, err := h.svc.ReconcileBooking(context.Background(), owner, c.ID)
	requireIllegal(t, err)

	c = h.invited(t, threeSlots())
	h.calendar.findErr = errDown
	_, err = h.svc.ReconcileBooking(context.Background(), owner, c.ID)
	var ce *pipeline.CollaboratorError
	assert.True(t, errors.As(err, &ce))

	_, err = h.svc.ReconcileBooking(context.Background(), "someone-else", c.ID)
	assert.ErrorIs(t, err, pipeline.ErrForbidden)
}

func TestSweepBookings(t *testing.T) {
	h := newHarness(t)
	a := h.invited(t, threeSlots())
	b := h.invited(t, threeSlots())
	h.calendar.found = []pipeline.CalendarEvent{{ID: "direct", Start: threeSlots()[0], MeetingLink: "https://meet.example.com/direct"}}

	n, err := h.svc.SweepBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, pipeline.InterviewScheduled, h.reload(t, a.ID).InterviewStatus)
	assert.Equal(t, pipeline.InterviewScheduled, h.reload(t, b.ID).InterviewStatus)

	n, err = h.svc.SweepBookings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "nothing left to reconcile")
}

// ── ListBusy ───────────────────────────────────────────────────────────────

func TestListBusy(t *testing.T) {
	h := newHarness(t)
	start := h.now
	h.calendar.busy = []pipeline.BusyPeriod{{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour)}}

	busy, err := h.svc.ListBusy(context.Background(), owner, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, busy, 1)

	_, err = h.svc.ListBusy(context.Background(), owner, start, start)
	validationField(t, err)
	_, err = h.svc.ListBusy(context.Background(), owner, start, start.Add(40*24*time.Hour))
	validationField(t, err)
}

// ── Invariant: proposedSlots iff INVITE_SENT ───────────────────────────────

func TestProposedSlotsIffInviteSent_AcrossLifecycle(t *testing.T) {
	h := newHarness(t)
	c := h.candidateAt(t, nil)
	check := func() {
		t.Helper()
		got := h.reload(t, c.ID)
		assert.Equal(t, got.InterviewStatus == pipeline.InterviewInviteSent, got.ProposedSlots != nil)
		assert.NoError(t, got.CheckInvariants())
	}
	check()
	_, err := h.svc.Approve(context.Background(), owner, c.ID, threeSlots())
	require.NoError(t, err)
	check()
	_, err = h.svc.ProposeSlots(context.Background(), owner, c.ID, threeSlots()[:2])
	require.NoError(t, err)
	check()
	_, err = h.svc.BookSlot(context.Background(), c.ID, threeSlots()[1])
	require.NoError(t, err)
	check()
}
