// Package postgres is the pgx-backed pipeline.Store. Candidate updates are
// a compare-and-set on the version column.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hirelane/pipeline-service/internal/pipeline"
)

// Store implements pipeline.Store on a pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ pipeline.Store = (*Store)(nil)

const jobColumns = `id, owner_id, title, description, responsibilities, keywords,
	assignment_details, is_open, form_config, created_at, updated_at`

const candidateColumns = `id, job_id, name, email, resume_url, portfolio_url,
	notice_period, current_org, years_of_experience, screening_score,
	screening_reason, status, interview_status, proposed_slots, interview_date,
	meeting_link, calendar_event_id, assignment_submission, history, version,
	created_at, updated_at`

// ─── Jobs ────────────────────────────────────────────────────────────────────

func (s *Store) CreateJob(ctx context.Context, j *pipeline.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		j.ID, j.OwnerID, j.Title, j.Description, j.Responsibilities, j.Keywords,
		j.AssignmentDetails, j.IsOpen, j.FormConfig, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("createJob: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*pipeline.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pipeline.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getJob: %w", err)
	}
	return j, nil
}

func (s *Store) ListJobs(ctx context.Context, ownerID string) ([]pipeline.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listJobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]pipeline.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listJobs scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (s *Store) SetJobOpen(ctx context.Context, id string, open bool) (*pipeline.Job, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE jobs SET is_open = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+jobColumns, id, open)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pipeline.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("setJobOpen: %w", err)
	}
	return j, nil
}

// ─── Candidates ──────────────────────────────────────────────────────────────

func (s *Store) CreateCandidate(ctx context.Context, c *pipeline.Candidate) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO candidates (`+candidateColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		         $16, $17, $18, $19, 1, $20, $21)`,
		c.ID, c.JobID, c.Name, c.Email, c.ResumeURL, c.PortfolioURL,
		c.NoticePeriod, c.CurrentOrg, c.YearsOfExperience, c.ScreeningScore,
		c.ScreeningReason, c.Status, c.InterviewStatus, c.ProposedSlots, c.InterviewDate,
		c.MeetingLink, c.CalendarEventID, c.AssignmentSubmission, history(c),
		c.CreatedAt, c.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return pipeline.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("createCandidate: %w", err)
	}
	c.Version = 1
	return nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (*pipeline.Candidate, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pipeline.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getCandidate: %w", err)
	}
	return c, nil
}

func (s *Store) ListCandidates(ctx context.Context, jobID string) ([]pipeline.Candidate, error) {
	return s.listCandidates(ctx, "listCandidates",
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE job_id = $1
		 ORDER BY created_at DESC`, jobID)
}

func (s *Store) ListAwaitingBooking(ctx context.Context) ([]pipeline.Candidate, error) {
	return s.listCandidates(ctx, "listAwaitingBooking",
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE status = $1 AND interview_status = $2
		 ORDER BY created_at DESC`,
		pipeline.StatusApproved, pipeline.InterviewInviteSent)
}

// UpdateCandidate writes every mutable column when the stored version still
// equals expectedVersion. Zero affected rows means either a missing row or a
// lost race; a follow-up existence check tells them apart.
func (s *Store) UpdateCandidate(ctx context.Context, c *pipeline.Candidate, expectedVersion int64) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE candidates SET
		        screening_score = $3, screening_reason = $4, status = $5,
		        interview_status = $6, proposed_slots = $7, interview_date = $8,
		        meeting_link = $9, calendar_event_id = $10, assignment_submission = $11,
		        history = $12, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2
		 RETURNING version, updated_at`,
		c.ID, expectedVersion,
		c.ScreeningScore, c.ScreeningReason, c.Status,
		c.InterviewStatus, c.ProposedSlots, c.InterviewDate,
		c.MeetingLink, c.CalendarEventID, c.AssignmentSubmission,
		history(c),
	).Scan(&c.Version, &c.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("updateCandidate: %w", err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM candidates WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
		return fmt.Errorf("updateCandidate exists: %w", err)
	}
	if !exists {
		return pipeline.ErrNotFound
	}
	return pipeline.ErrVersionConflict
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *Store) listCandidates(ctx context.Context, op, query string, args ...any) ([]pipeline.Candidate, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", op, err)
	}
	defer rows.Close()

	out := make([]pipeline.Candidate, 0)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*pipeline.Job, error) {
	var j pipeline.Job
	err := row.Scan(
		&j.ID, &j.OwnerID, &j.Title, &j.Description, &j.Responsibilities, &j.Keywords,
		&j.AssignmentDetails, &j.IsOpen, &j.FormConfig, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func scanCandidate(row pgx.Row) (*pipeline.Candidate, error) {
	var c pipeline.Candidate
	err := row.Scan(
		&c.ID, &c.JobID, &c.Name, &c.Email, &c.ResumeURL, &c.PortfolioURL,
		&c.NoticePeriod, &c.CurrentOrg, &c.YearsOfExperience, &c.ScreeningScore,
		&c.ScreeningReason, &c.Status, &c.InterviewStatus, &c.ProposedSlots, &c.InterviewDate,
		&c.MeetingLink, &c.CalendarEventID, &c.AssignmentSubmission, &c.History, &c.Version,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(c.ProposedSlots) == 0 {
		c.ProposedSlots = nil
	}
	for i := range c.ProposedSlots {
		c.ProposedSlots[i] = c.ProposedSlots[i].UTC()
	}
	if c.InterviewDate != nil {
		d := c.InterviewDate.UTC()
		c.InterviewDate = &d
	}
	return &c, nil
}

// history never writes SQL NULL into the NOT NULL jsonb column.
func history(c *pipeline.Candidate) []pipeline.HistoryEntry {
	if c.History == nil {
		return []pipeline.HistoryEntry{}
	}
	return c.History
}
