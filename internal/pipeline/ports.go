package pipeline

import (
	"context"
	"time"
)

// Store persists jobs and candidates. UpdateCandidate must be a
// compare-and-set on Version: when the stored version differs from
// expectedVersion it returns ErrVersionConflict and writes nothing. On
// success it increments c.Version and refreshes c.UpdatedAt.
type Store interface {
	CreateJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, ownerID string) ([]Job, error)
	SetJobOpen(ctx context.Context, id string, open bool) (*Job, error)

	CreateCandidate(ctx context.Context, c *Candidate) error
	GetCandidate(ctx context.Context, id string) (*Candidate, error)
	ListCandidates(ctx context.Context, jobID string) ([]Candidate, error)
	UpdateCandidate(ctx context.Context, c *Candidate, expectedVersion int64) error
	ListAwaitingBooking(ctx context.Context) ([]Candidate, error)
}

// JobContext is the job description handed to the scorer.
type JobContext struct {
	OwnerID          string
	Title            string
	Description      string
	Responsibilities string
	Keywords         string
}

// ResumeContent is either extracted text or the raw document, never both.
type ResumeContent struct {
	Text        string
	Document    []byte
	ContentType string
}

// Scorer rates a resume against a job. A missing score is a valid result;
// errors are reserved for transport and configuration failures.
type Scorer interface {
	Score(ctx context.Context, resume ResumeContent, job JobContext) (ScreeningResult, error)
}

// TextExtractor pulls plain text out of a document. It is best effort.
type TextExtractor interface {
	ExtractText(ctx context.Context, document []byte) (string, error)
}

// FileKind selects the storage prefix of an uploaded file.
type FileKind string

const (
	FileResume     FileKind = "resumes"
	FileAssignment FileKind = "assignments"
)

// FileStore keeps uploaded files and returns an opaque reference.
type FileStore interface {
	Save(ctx context.Context, kind FileKind, filename, contentType string, data []byte) (string, error)
}

// FileLinker turns a stored file reference into a short-lived URL a browser
// can open.
type FileLinker interface {
	Link(ctx context.Context, ref string) (string, error)
}

// BusyPeriod is a busy block on a calendar.
type BusyPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventRequest describes an interview event to create.
type EventRequest struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
}

// CalendarEvent is an event on a recruiter's calendar.
type CalendarEvent struct {
	ID          string
	Start       time.Time
	EventURL    string
	MeetingLink string
}

// Calendar is the recruiter's connected calendar. All calls are made on
// behalf of ownerID.
type Calendar interface {
	ListBusy(ctx context.Context, ownerID string, start, end time.Time) ([]BusyPeriod, error)
	CreateEvent(ctx context.Context, ownerID string, req EventRequest) (*CalendarEvent, error)
	FindEvents(ctx context.Context, ownerID, query string, since time.Time) ([]CalendarEvent, error)
	CancelEvent(ctx context.Context, ownerID, eventID string) error
}

// Notifier delivers candidate emails.
type Notifier interface {
	SendAssignmentInvite(ctx context.Context, msg AssignmentInvite) error
	SendRejection(ctx context.Context, msg Rejection) error
	SendApprovalInvite(ctx context.Context, msg ApprovalInvite) error
}

// EventPublisher broadcasts committed transitions.
type EventPublisher interface {
	Publish(ctx context.Context, ev TransitionEvent) error
}

// FailureLog records notifications that could not be delivered so a human
// can resend them.
type FailureLog interface {
	Record(ctx context.Context, f FailedNotification) error
}
