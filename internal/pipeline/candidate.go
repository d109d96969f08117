package pipeline

import (
	"fmt"
	"slices"
	"time"
)

// FormConfig selects which optional application fields a job asks for.
// Name and email are always required. It is fixed at job creation.
type FormConfig struct {
	IncludeResume          bool `json:"includeResume"`
	IncludePortfolio       bool `json:"includePortfolio"`
	IncludeNoticePeriod    bool `json:"includeNoticePeriod"`
	IncludeCurrentOrg      bool `json:"includeCurrentOrg"`
	IncludeYearsExperience bool `json:"includeYearsExperience"`
}

// Job is a posting owned by a recruiter.
type Job struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"ownerId"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Responsibilities  string     `json:"responsibilities,omitempty"`
	Keywords          string     `json:"keywords,omitempty"`
	AssignmentDetails string     `json:"assignmentDetails,omitempty"`
	IsOpen            bool       `json:"isOpen"`
	FormConfig        FormConfig `json:"formConfig"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// HistoryEntry is one committed transition in a candidate's log.
type HistoryEntry struct {
	Event Event  `json:"event,omitempty"`
	From  string `json:"from"`
	To    string `json:"to"`
	At    string `json:"at"`
}

// Candidate is the workflow entity: one application to one job.
type Candidate struct {
	ID                   string          `json:"id"`
	JobID                string          `json:"jobId"`
	Name                 string          `json:"name"`
	Email                string          `json:"email"`
	ResumeURL            string          `json:"resumeUrl,omitempty"`
	PortfolioURL         string          `json:"portfolioUrl,omitempty"`
	NoticePeriod         string          `json:"noticePeriod,omitempty"`
	CurrentOrg           string          `json:"currentOrg,omitempty"`
	YearsOfExperience    string          `json:"yearsOfExperience,omitempty"`
	ScreeningScore       *int            `json:"screeningScore"`
	ScreeningReason      string          `json:"screeningReason"`
	Status               Status          `json:"status"`
	InterviewStatus      InterviewStatus `json:"interviewStatus,omitempty"`
	ProposedSlots        []time.Time     `json:"proposedSlots"`
	InterviewDate        *time.Time      `json:"interviewDate"`
	MeetingLink          string          `json:"meetingLink,omitempty"`
	CalendarEventID      string          `json:"-"`
	AssignmentSubmission string          `json:"assignmentSubmission,omitempty"`
	History              []HistoryEntry  `json:"history"`
	Version              int64           `json:"version"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy so the engine can mutate a candidate without
// touching the snapshot it read.
func (c *Candidate) Clone() *Candidate {
	cp := *c
	if c.ScreeningScore != nil {
		s := *c.ScreeningScore
		cp.ScreeningScore = &s
	}
	if c.InterviewDate != nil {
		d := *c.InterviewDate
		cp.InterviewDate = &d
	}
	if c.ProposedSlots != nil {
		cp.ProposedSlots = slices.Clone(c.ProposedSlots)
	}
	cp.History = slices.Clone(c.History)
	return &cp
}

// HasProposedSlot reports whether slot exactly matches one of the stored
// proposals.
func (c *Candidate) HasProposedSlot(slot time.Time) bool {
	for _, s := range c.ProposedSlots {
		if s.Equal(slot) {
			return true
		}
	}
	return false
}

// AwaitingBooking is true while the candidate holds an open invite.
func (c *Candidate) AwaitingBooking() bool {
	return c.Status == StatusApproved && c.InterviewStatus == InterviewInviteSent
}

// CheckInvariants validates the cross-field rules of a candidate record.
func (c *Candidate) CheckInvariants() error {
	if c.ScreeningScore != nil && (*c.ScreeningScore < 0 || *c.ScreeningScore > 100) {
		return fmt.Errorf("screening score %d out of range", *c.ScreeningScore)
	}
	if c.InterviewStatus != InterviewNone && c.Status != StatusApproved {
		return fmt.Errorf("interview status %s requires APPROVED, have %s", c.InterviewStatus, c.Status)
	}
	if (c.ProposedSlots != nil) != (c.InterviewStatus == InterviewInviteSent) {
		return fmt.Errorf("proposed slots must be set only while INVITE_SENT (interview status %q)", c.InterviewStatus)
	}
	scheduled := c.InterviewStatus == InterviewScheduled
	if (c.InterviewDate != nil) != scheduled || (c.MeetingLink != "" && !scheduled) {
		return fmt.Errorf("interview date and meeting link must be set only while SCHEDULED")
	}
	return nil
}

func (c *Candidate) record(ev Event, from, to string, at time.Time) {
	c.History = append(c.History, HistoryEntry{
		Event: ev,
		From:  from,
		To:    to,
		At:    at.UTC().Format(time.RFC3339),
	})
}
