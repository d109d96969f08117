// Package pipeline contains the transport-agnostic business logic of the
// pipeline service. It is used by the HTTP handler and the gRPC server.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultRejectionReason is sent when a recruiter rejects without a reason.
	DefaultRejectionReason = "After careful consideration, we have decided to move forward with other candidates whose experience more closely matches our current needs."

	defaultAssignmentDetails = "No specific assignment details provided. Please wait for further contact."

	reasonNoResume      = "No resume provided. Manual review required."
	reasonParseFailed   = "Resume parsing failed. Manual review required."
	reasonScoringFailed = "AI screening failed. Manual review required."
	defaultMaxDocBytes  = 20 << 20
	maxCommitAttempts   = 3
)

// ─── Service ─────────────────────────────────────────────────────────────────

// Deps are the collaborators of a Service. Store is required; the others
// degrade as documented on each operation when nil.
type Deps struct {
	Store      Store
	Scorer     Scorer
	Extractor  TextExtractor
	Files      FileStore
	Linker     FileLinker
	Calendar   Calendar
	Dispatcher *Dispatcher
}

// Options tune a Service.
type Options struct {
	// AppURL prefixes the links sent to candidates.
	AppURL string
	// MaxDocumentBytes caps the raw document size sent for document-mode
	// screening. Larger documents are not sent.
	MaxDocumentBytes int
	Now              func() time.Time
}

// Service encapsulates all pipeline business logic.
// It has no dependency on net/http: it can be used by any transport layer.
type Service struct {
	store     Store
	scorer    Scorer
	extractor TextExtractor
	files     FileStore
	linker    FileLinker
	calendar  Calendar
	dispatch  *Dispatcher
	appURL    string
	maxDoc    int
	now       func() time.Time
}

// NewService returns a configured Service.
func NewService(d Deps, opts Options) *Service {
	s := &Service{
		store:     d.Store,
		scorer:    d.Scorer,
		extractor: d.Extractor,
		files:     d.Files,
		linker:    d.Linker,
		calendar:  d.Calendar,
		dispatch:  d.Dispatcher,
		appURL:    strings.TrimRight(opts.AppURL, "/"),
		maxDoc:    opts.MaxDocumentBytes,
		now:       opts.Now,
	}
	if s.maxDoc <= 0 {
		s.maxDoc = defaultMaxDocBytes
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

// CreateJob validates in and stores an open job owned by ownerID.
func (s *Service) CreateJob(ctx context.Context, ownerID string, in JobInput) (*Job, error) {
	if ownerID == "" {
		return nil, ErrForbidden
	}
	if err := ValidateJob(&in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	job := &Job{
		ID:                uuid.NewString(),
		OwnerID:           ownerID,
		Title:             in.Title,
		Description:       in.Description,
		Responsibilities:  strings.TrimSpace(in.Responsibilities),
		Keywords:          strings.TrimSpace(in.Keywords),
		AssignmentDetails: strings.TrimSpace(in.AssignmentDetails),
		IsOpen:            true,
		FormConfig:        in.FormConfig,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("createJob: %w", err)
	}
	return job, nil
}

// GetJob returns a job by ID. Jobs are public: the application page reads them.
func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// ListJobs returns the jobs owned by ownerID, newest first.
func (s *Service) ListJobs(ctx context.Context, ownerID string) ([]Job, error) {
	return s.store.ListJobs(ctx, ownerID)
}

// SetJobOpen opens or closes a job. Only the owner may toggle it.
func (s *Service) SetJobOpen(ctx context.Context, ownerID, jobID string, open bool) (*Job, error) {
	if _, err := s.ownedJob(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	job, err := s.store.SetJobOpen(ctx, jobID, open)
	if err != nil {
		return nil, fmt.Errorf("setJobOpen: %w", err)
	}
	return job, nil
}

// ─── Candidates: reads ───────────────────────────────────────────────────────

// GetCandidate returns a candidate of a job owned by ownerID.
func (s *Service) GetCandidate(ctx context.Context, ownerID, candidateID string) (*Candidate, error) {
	c, _, err := s.ownedCandidate(ctx, ownerID, candidateID)
	return c, err
}

// ListCandidates returns the candidates of a job owned by ownerID.
func (s *Service) ListCandidates(ctx context.Context, ownerID, jobID string) ([]Candidate, error) {
	if _, err := s.ownedJob(ctx, ownerID, jobID); err != nil {
		return nil, err
	}
	return s.store.ListCandidates(ctx, jobID)
}

// Document kinds accepted by DocumentURL.
const (
	DocumentResume     = "resume"
	DocumentAssignment = "assignment"
)

// DocumentURL returns a URL the owner of the candidate's job can open to
// read the resume or the assignment submission. Stored files get a
// short-lived signed link; submitted links are returned as they are.
func (s *Service) DocumentURL(ctx context.Context, ownerID, candidateID, kind string) (string, error) {
	c, _, err := s.ownedCandidate(ctx, ownerID, candidateID)
	if err != nil {
		return "", err
	}
	var ref string
	switch kind {
	case DocumentResume:
		ref = c.ResumeURL
	case DocumentAssignment:
		ref = c.AssignmentSubmission
	default:
		return "", &ValidationError{Field: "type", Msg: fmt.Sprintf("unknown document type %q", kind)}
	}
	if ref == "" {
		return "", ErrDocumentNotFound
	}
	if !strings.HasPrefix(ref, "s3://") {
		return ref, nil
	}
	if s.linker == nil {
		return "", &CollaboratorError{Collaborator: "file storage", Err: errors.New("not configured")}
	}
	url, err := s.linker.Link(ctx, ref)
	if err != nil {
		return "", &CollaboratorError{Collaborator: "file storage", Retryable: true, Err: err}
	}
	return url, nil
}

// CandidateView is the public projection a candidate sees on the booking
// and assignment pages.
type CandidateView struct {
	CandidateID       string          `json:"candidateId"`
	Name              string          `json:"name"`
	JobTitle          string          `json:"jobTitle"`
	AssignmentDetails string          `json:"assignmentDetails,omitempty"`
	Status            Status          `json:"status"`
	StatusLabel       string          `json:"statusLabel"`
	InterviewStatus   InterviewStatus `json:"interviewStatus,omitempty"`
	ProposedSlots     []time.Time     `json:"proposedSlots"`
	InterviewDate     *time.Time      `json:"interviewDate"`
	MeetingLink       string          `json:"meetingLink,omitempty"`
}

// GetCandidateView returns the public view of a candidate.
func (s *Service) GetCandidateView(ctx context.Context, candidateID string) (*CandidateView, error) {
	c, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	job, err := s.store.GetJob(ctx, c.JobID)
	if err != nil {
		return nil, err
	}
	return &CandidateView{
		CandidateID:       c.ID,
		Name:              c.Name,
		JobTitle:          job.Title,
		AssignmentDetails: job.AssignmentDetails,
		Status:            c.Status,
		StatusLabel:       c.Status.Label(),
		InterviewStatus:   c.InterviewStatus,
		ProposedSlots:     c.ProposedSlots,
		InterviewDate:     c.InterviewDate,
		MeetingLink:       c.MeetingLink,
	}, nil
}

// ─── Candidates: transitions ─────────────────────────────────────────────────

// SubmitApplication validates an application, screens the resume and creates
// the candidate at the status the screening outcome selects.
//
// Steps run in a fixed order: form validation, file persistence, text
// extraction, then text-mode scoring when at least MinResumeTextLen
// characters were extracted, document-mode scoring when the raw PDF is
// usable, and no scoring at all otherwise.
func (s *Service) SubmitApplication(ctx context.Context, in ApplicationInput) (*Candidate, error) {
	job, err := s.store.GetJob(ctx, in.JobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOpen {
		return nil, &ValidationError{Field: "jobId", Msg: "This job is no longer accepting applications"}
	}
	if err := ValidateApplication(job.FormConfig, &in); err != nil {
		return nil, err
	}

	var resumeURL string
	result := ScreeningResult{Reason: reasonNoResume}
	if job.FormConfig.IncludeResume {
		resumeURL, err = s.saveFile(ctx, FileResume, in.Resume)
		if err != nil {
			return nil, err
		}
		result = s.screen(ctx, job, in.Resume.Data)
	}
	outcome := Adjudicate(result.Score)

	now := s.now().UTC()
	c := &Candidate{
		ID:                uuid.NewString(),
		JobID:             job.ID,
		Name:              in.Name,
		Email:             in.Email,
		ResumeURL:         resumeURL,
		PortfolioURL:      in.PortfolioURL,
		NoticePeriod:      in.NoticePeriod,
		CurrentOrg:        in.CurrentOrg,
		YearsOfExperience: in.YearsOfExperience,
		ScreeningScore:    result.Score,
		ScreeningReason:   result.Reason,
		Status:            outcome.Status(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	c.record("", "", string(c.Status), now)
	if err := s.store.CreateCandidate(ctx, c); err != nil {
		s.orphaned(FileResume, resumeURL, err)
		return nil, fmt.Errorf("createCandidate: %w", err)
	}
	slog.Info("application submitted", "candidateId", c.ID, "jobId", job.ID, "outcome", outcome)

	switch outcome {
	case Pass:
		details := job.AssignmentDetails
		if details == "" {
			details = defaultAssignmentDetails
		}
		s.dispatch.Dispatch(ctx, AssignmentInvite{
			CandidateID: c.ID,
			To:          c.Email,
			Name:        c.Name,
			JobTitle:    job.Title,
			Details:     details,
			Link:        s.link("assignment", c.ID),
		})
	case Fail:
		s.dispatch.Dispatch(ctx, Rejection{
			CandidateID: c.ID,
			To:          c.Email,
			Name:        c.Name,
			JobTitle:    job.Title,
			Reason:      c.ScreeningReason,
		})
	}
	s.dispatch.Publish(ctx, TransitionEvent{CandidateID: c.ID, JobID: job.ID, To: c.Status})
	return c, nil
}

// screen picks the screening mode and never fails: every collaborator
// failure degrades to an absent score.
func (s *Service) screen(ctx context.Context, job *Job, document []byte) ScreeningResult {
	var text string
	if s.extractor != nil {
		t, err := s.extractor.ExtractText(ctx, document)
		if err != nil {
			slog.Warn("resume text extraction failed", "jobId", job.ID, "err", err)
		} else {
			text = strings.TrimSpace(t)
		}
	}

	var content ResumeContent
	switch {
	case utf8.RuneCountInString(text) >= MinResumeTextLen:
		content = ResumeContent{Text: text}
	case len(document) > 0 && len(document) <= s.maxDoc:
		slog.Info("resume text too short, using document screening", "jobId", job.ID, "textLen", utf8.RuneCountInString(text))
		content = ResumeContent{Document: document, ContentType: "application/pdf"}
	default:
		return ScreeningResult{Reason: reasonParseFailed}
	}

	if s.scorer == nil {
		return ScreeningResult{Reason: reasonScoringFailed}
	}
	res, err := s.scorer.Score(ctx, content, JobContext{
		OwnerID:          job.OwnerID,
		Title:            job.Title,
		Description:      job.Description,
		Responsibilities: job.Responsibilities,
		Keywords:         job.Keywords,
	})
	if err != nil {
		slog.Warn("resume scoring failed", "jobId", job.ID, "err", err)
		return ScreeningResult{Reason: reasonScoringFailed}
	}
	if res.Score != nil && (*res.Score < 0 || *res.Score > 100) {
		slog.Warn("scorer returned out-of-range score", "jobId", job.ID, "score", *res.Score)
		return ScreeningResult{Reason: reasonScoringFailed}
	}
	if res.Reason == "" {
		res.Reason = "No reason provided"
	}
	return res
}

// SubmitAssignment records an assignment submission and moves the candidate
// to ASSIGNMENT_RECEIVED.
func (s *Service) SubmitAssignment(ctx context.Context, candidateID string, in AssignmentInput) (*Candidate, error) {
	if err := ValidateAssignment(&in); err != nil {
		return nil, err
	}
	cand, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cand.Status, EventAssignmentSubmitted) {
		return nil, illegal(cand, EventAssignmentSubmitted, "")
	}

	submission := in.Link
	if submission == "" {
		submission, err = s.saveFile(ctx, FileAssignment, in.File)
		if err != nil {
			return nil, err
		}
	}

	var from Status
	updated, err := s.commit(ctx, cand, func(c *Candidate) error {
		to, err := Next(c.Status, EventAssignmentSubmitted)
		if err != nil {
			return err
		}
		from = c.Status
		c.record(EventAssignmentSubmitted, string(from), string(to), s.now())
		c.Status = to
		c.AssignmentSubmission = submission
		return nil
	})
	if err != nil {
		if in.Link == "" {
			s.orphaned(FileAssignment, submission, err)
		}
		return nil, err
	}
	s.dispatch.Publish(ctx, TransitionEvent{
		CandidateID: updated.ID, JobID: updated.JobID, Event: EventAssignmentSubmitted, From: from, To: updated.Status,
	})
	return updated, nil
}

// Reject moves a candidate to REJECTED and notifies them with reason, or
// DefaultRejectionReason when reason is empty.
func (s *Service) Reject(ctx context.Context, ownerID, candidateID, reason string) (*Candidate, error) {
	cand, job, err := s.ownedCandidate(ctx, ownerID, candidateID)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	var from Status
	updated, err := s.commit(ctx, cand, func(c *Candidate) error {
		to, err := Next(c.Status, EventReject)
		if err != nil {
			return err
		}
		from = c.Status
		c.record(EventReject, string(from), string(to), s.now())
		c.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.Dispatch(ctx, Rejection{
		CandidateID: updated.ID,
		To:          updated.Email,
		Name:        updated.Name,
		JobTitle:    job.Title,
		Reason:      reason,
	})
	s.dispatch.Publish(ctx, TransitionEvent{
		CandidateID: updated.ID, JobID: updated.JobID, Event: EventReject, From: from, To: updated.Status,
	})
	return updated, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// commit applies mutate to a copy of cur and stores it with a version check.
// On a lost race it reloads the candidate and runs mutate again, so
// preconditions are always evaluated against the latest committed state.
func (s *Service) commit(ctx context.Context, cur *Candidate, mutate func(c *Candidate) error) (*Candidate, error) {
	for attempt := 1; ; attempt++ {
		next := cur.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}
		err := s.store.UpdateCandidate(ctx, next, cur.Version)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrVersionConflict) || attempt == maxCommitAttempts {
			return nil, fmt.Errorf("updateCandidate: %w", err)
		}
		slog.Debug("candidate version conflict, retrying", "candidateId", cur.ID, "attempt", attempt)
		cur, err = s.store.GetCandidate(ctx, cur.ID)
		if err != nil {
			return nil, err
		}
	}
}

func (s *Service) ownedJob(ctx context.Context, ownerID, jobID string) (*Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if ownerID == "" || job.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return job, nil
}

func (s *Service) ownedCandidate(ctx context.Context, ownerID, candidateID string) (*Candidate, *Job, error) {
	c, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, nil, err
	}
	job, err := s.ownedJob(ctx, ownerID, c.JobID)
	if err != nil {
		return nil, nil, err
	}
	return c, job, nil
}

func (s *Service) saveFile(ctx context.Context, kind FileKind, u *Upload) (string, error) {
	if s.files == nil {
		return "", &CollaboratorError{Collaborator: "file storage", Err: errors.New("not configured")}
	}
	ref, err := s.files.Save(ctx, kind, u.Filename, u.ContentType, u.Data)
	if err != nil {
		return "", &CollaboratorError{Collaborator: "file storage", Retryable: true, Err: err}
	}
	return ref, nil
}

// orphaned logs a stored file whose candidate change did not commit.
func (s *Service) orphaned(kind FileKind, ref string, cause error) {
	if ref == "" {
		return
	}
	slog.Warn("orphaned upload", "kind", kind, "ref", ref, "err", cause)
}

func (s *Service) link(page, candidateID string) string {
	return fmt.Sprintf("%s/%s/%s", s.appURL, page, candidateID)
}
