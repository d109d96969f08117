package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hirelane/pipeline-service/internal/pipeline"
	"hirelane/pipeline-service/internal/store/memory"
)

const owner = "recruiter-1"

var errDown = errors.New("service down")

// ── Scorer / extractor ─────────────────────────────────────────────────────

type fakeScorer struct {
	mu     sync.Mutex
	result pipeline.ScreeningResult
	err    error
	calls  []pipeline.ResumeContent
}

func (f *fakeScorer) Score(_ context.Context, rc pipeline.ResumeContent, _ pipeline.JobContext) (pipeline.ScreeningResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rc)
	return f.result, f.err
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(context.Context, []byte) (string, error) {
	return f.text, f.err
}

// ── File storage ───────────────────────────────────────────────────────────

type fakeFiles struct {
	mu    sync.Mutex
	err   error
	saved []string
}

func (f *fakeFiles) Save(_ context.Context, kind pipeline.FileKind, filename, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	ref := fmt.Sprintf("s3://test/%s/%s", kind, filename)
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeFiles) Link(_ context.Context, ref string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://signed.example.com/" + strings.TrimPrefix(ref, "s3://"), nil
}

// ── Calendar ───────────────────────────────────────────────────────────────

type fakeCalendar struct {
	mu        sync.Mutex
	createErr error
	findErr   error
	found     []pipeline.CalendarEvent
	busy      []pipeline.BusyPeriod
	created   []pipeline.EventRequest
	cancelled []string
	// gate, when set, blocks CreateEvent until it is closed.
	gate chan struct{}
}

func (f *fakeCalendar) ListBusy(context.Context, string, time.Time, time.Time) ([]pipeline.BusyPeriod, error) {
	return f.busy, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ string, req pipeline.EventRequest) (*pipeline.CalendarEvent, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	id := fmt.Sprintf("evt-%d", len(f.created))
	return &pipeline.CalendarEvent{
		ID:          id,
		Start:       req.Start,
		EventURL:    "https://calendar.example.com/" + id,
		MeetingLink: "https://meet.example.com/" + id,
	}, nil
}

func (f *fakeCalendar) FindEvents(context.Context, string, string, time.Time) ([]pipeline.CalendarEvent, error) {
	return f.found, f.findErr
}

func (f *fakeCalendar) CancelEvent(_ context.Context, _ string, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, eventID)
	return nil
}

func (f *fakeCalendar) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// ── Notifier / events ──────────────────────────────────────────────────────

type fakeNotifier struct {
	mu          sync.Mutex
	err         error
	assignments []pipeline.AssignmentInvite
	rejections  []pipeline.Rejection
	approvals   []pipeline.ApprovalInvite
}

func (f *fakeNotifier) SendAssignmentInvite(_ context.Context, m pipeline.AssignmentInvite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments = append(f.assignments, m)
	return f.err
}

func (f *fakeNotifier) SendRejection(_ context.Context, m pipeline.Rejection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejections = append(f.rejections, m)
	return f.err
}

func (f *fakeNotifier) SendApprovalInvite(_ context.Context, m pipeline.ApprovalInvite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvals = append(f.approvals, m)
	return f.err
}

func (f *fakeNotifier) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.assignments) + len(f.rejections) + len(f.approvals)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []pipeline.TransitionEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev pipeline.TransitionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type fakeFailures struct {
	mu      sync.Mutex
	records []pipeline.FailedNotification
}

func (f *fakeFailures) Record(_ context.Context, rec pipeline.FailedNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

// ── Harness ────────────────────────────────────────────────────────────────

type harness struct {
	svc       *pipeline.Service
	store     *memory.Store
	scorer    *fakeScorer
	extractor *fakeExtractor
	files     *fakeFiles
	calendar  *fakeCalendar
	notifier  *fakeNotifier
	publisher *fakePublisher
	failures  *fakeFailures
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     memory.New(),
		scorer:    &fakeScorer{},
		extractor: &fakeExtractor{},
		files:     &fakeFiles{},
		calendar:  &fakeCalendar{},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		failures:  &fakeFailures{},
		now:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	h.svc = h.build(pipeline.Options{})
	return h
}

func (h *harness) build(opts pipeline.Options) *pipeline.Service {
	opts.AppURL = "https://hire.example.com/"
	opts.Now = func() time.Time { return h.now }
	return pipeline.NewService(pipeline.Deps{
		Store:      h.store,
		Scorer:     h.scorer,
		Extractor:  h.extractor,
		Files:      h.files,
		Linker:     h.files,
		Calendar:   h.calendar,
		Dispatcher: pipeline.NewDispatcher(h.notifier, h.publisher, h.failures),
	}, opts)
}

func (h *harness) job(t *testing.T, fc pipeline.FormConfig) *pipeline.Job {
	t.Helper()
	job, err := h.svc.CreateJob(context.Background(), owner, pipeline.JobInput{
		Title:             "Backend Engineer",
		Description:       "Build and run the hiring pipeline service.",
		Keywords:          "go, postgres",
		AssignmentDetails: "Build a rate limiter.",
		FormConfig:        fc,
	})
	require.NoError(t, err)
	return job
}

func (h *harness) apply(t *testing.T, jobID string) (*pipeline.Candidate, error) {
	t.Helper()
	return h.svc.SubmitApplication(context.Background(), pipeline.ApplicationInput{
		JobID:  jobID,
		Name:   "Ada Lovelace",
		Email:  "ada@example.com",
		Resume: &pipeline.Upload{Filename: "cv.pdf", ContentType: "application/pdf", Data: pdfBytes},
	})
}

// candidateAt creates a candidate at the status produced by the given score.
func (h *harness) candidateAt(t *testing.T, score *int) *pipeline.Candidate {
	t.Helper()
	job := h.job(t, pipeline.FormConfig{IncludeResume: true})
	h.extractor.text = longResumeText
	h.scorer.result = pipeline.ScreeningResult{Score: score, Reason: "scored"}
	c, err := h.apply(t, job.ID)
	require.NoError(t, err)
	return c
}

// invited returns a candidate approved with the given slots.
func (h *harness) invited(t *testing.T, slots []time.Time) *pipeline.Candidate {
	t.Helper()
	c := h.candidateAt(t, nil)
	c, err := h.svc.Approve(context.Background(), owner, c.ID, slots)
	require.NoError(t, err)
	return c
}

func (h *harness) reload(t *testing.T, id string) *pipeline.Candidate {
	t.Helper()
	c, err := h.store.GetCandidate(context.Background(), id)
	require.NoError(t, err)
	return c
}

// 80 characters of resume text.
const longResumeText = "Go engineer, 6 years building distributed systems with Postgres and Redis today."

func threeSlots() []time.Time {
	base := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return []time.Time{base, base.Add(24 * time.Hour), base.Add(48 * time.Hour)}
}

func requireIllegal(t *testing.T, err error) *pipeline.IllegalTransitionError {
	t.Helper()
	var ie *pipeline.IllegalTransitionError
	require.True(t, errors.As(err, &ie), "want *IllegalTransitionError, got %v", err)
	return ie
}
