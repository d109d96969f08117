package grpcserver

import (
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"hirelane/pipeline-service/internal/pipeline"
)

// ─── Requests ────────────────────────────────────────────────────────────────

type ListJobsRequest struct{}

type ListCandidatesRequest struct {
	JobID string `json:"jobId"`
}

type CandidateRequest struct {
	CandidateID string `json:"candidateId"`
}

type DocumentRequest struct {
	CandidateID string `json:"candidateId"`
	Type        string `json:"type"`
}

type DocumentResponse struct {
	URL string `json:"url"`
}

type SlotsRequest struct {
	CandidateID string                   `json:"candidateId"`
	Slots       []*timestamppb.Timestamp `json:"slots"`
}

type RejectRequest struct {
	CandidateID string `json:"candidateId"`
	Reason      string `json:"reason"`
}

type ListBusyRequest struct {
	Start *timestamppb.Timestamp `json:"start"`
	End   *timestamppb.Timestamp `json:"end"`
}

// ─── Responses ───────────────────────────────────────────────────────────────

type JobProto struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	IsOpen    bool                   `json:"isOpen"`
	CreatedAt *timestamppb.Timestamp `json:"createdAt"`
}

type ListJobsResponse struct {
	Jobs []*JobProto `json:"jobs"`
}

type CandidateProto struct {
	ID                   string                   `json:"id"`
	JobID                string                   `json:"jobId"`
	Name                 string                   `json:"name"`
	Email                string                   `json:"email"`
	Status               string                   `json:"status"`
	StatusLabel          string                   `json:"statusLabel"`
	InterviewStatus      string                   `json:"interviewStatus,omitempty"`
	ScreeningScore       int32                    `json:"screeningScore"`
	HasScreeningScore    bool                     `json:"hasScreeningScore"`
	ScreeningReason      string                   `json:"screeningReason"`
	ResumeURL            string                   `json:"resumeUrl,omitempty"`
	AssignmentSubmission string                   `json:"assignmentSubmission,omitempty"`
	ProposedSlots        []*timestamppb.Timestamp `json:"proposedSlots,omitempty"`
	InterviewDate        *timestamppb.Timestamp   `json:"interviewDate,omitempty"`
	MeetingLink          string                   `json:"meetingLink,omitempty"`
	Version              int64                    `json:"version"`
	CreatedAt            *timestamppb.Timestamp   `json:"createdAt"`
	UpdatedAt            *timestamppb.Timestamp   `json:"updatedAt"`
}

type ListCandidatesResponse struct {
	Candidates []*CandidateProto `json:"candidates"`
}

type ReconcileResponse struct {
	Booked    bool            `json:"booked"`
	Candidate *CandidateProto `json:"candidate"`
}

type BusyPeriodProto struct {
	Start *timestamppb.Timestamp `json:"start"`
	End   *timestamppb.Timestamp `json:"end"`
}

type ListBusyResponse struct {
	Busy []*BusyPeriodProto `json:"busy"`
}

// ─── Conversion ──────────────────────────────────────────────────────────────

func jobToProto(j *pipeline.Job) *JobProto {
	return &JobProto{
		ID:        j.ID,
		Title:     j.Title,
		IsOpen:    j.IsOpen,
		CreatedAt: timestamppb.New(j.CreatedAt),
	}
}

// candidateToProto converts a pipeline.Candidate. A missing screening score
// is reported through HasScreeningScore.
func candidateToProto(c *pipeline.Candidate) *CandidateProto {
	p := &CandidateProto{
		ID:                   c.ID,
		JobID:                c.JobID,
		Name:                 c.Name,
		Email:                c.Email,
		Status:               string(c.Status),
		StatusLabel:          c.Status.Label(),
		InterviewStatus:      string(c.InterviewStatus),
		ScreeningReason:      c.ScreeningReason,
		ResumeURL:            c.ResumeURL,
		AssignmentSubmission: c.AssignmentSubmission,
		MeetingLink:          c.MeetingLink,
		Version:              c.Version,
		CreatedAt:            timestamppb.New(c.CreatedAt),
		UpdatedAt:            timestamppb.New(c.UpdatedAt),
	}
	if c.ScreeningScore != nil {
		p.ScreeningScore = int32(*c.ScreeningScore)
		p.HasScreeningScore = true
	}
	for _, s := range c.ProposedSlots {
		p.ProposedSlots = append(p.ProposedSlots, timestamppb.New(s))
	}
	if c.InterviewDate != nil {
		p.InterviewDate = timestamppb.New(*c.InterviewDate)
	}
	return p
}

func fromTimestamps(ts []*timestamppb.Timestamp) []time.Time {
	out := make([]time.Time, 0, len(ts))
	for _, t := range ts {
		if t == nil {
			out = append(out, time.Time{})
			continue
		}
		out = append(out, t.AsTime())
	}
	return out
}
