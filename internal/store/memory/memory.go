// Package memory is an in-process pipeline.Store. The mutex stands in for
// the row lock of the database; compare-and-set semantics match the
// Postgres store.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"hirelane/pipeline-service/internal/pipeline"
)

// Store keeps jobs and candidates in maps. The zero value is not usable;
// call New.
type Store struct {
	mu         sync.Mutex
	jobs       map[string]pipeline.Job
	candidates map[string]*pipeline.Candidate
	now        func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		jobs:       make(map[string]pipeline.Job),
		candidates: make(map[string]*pipeline.Candidate),
		now:        time.Now,
	}
}

var _ pipeline.Store = (*Store)(nil)

// ─── Jobs ────────────────────────────────────────────────────────────────────

func (s *Store) CreateJob(_ context.Context, j *pipeline.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = *j
	return nil
}

func (s *Store) GetJob(_ context.Context, id string) (*pipeline.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, pipeline.ErrJobNotFound
	}
	return &j, nil
}

func (s *Store) ListJobs(_ context.Context, ownerID string) ([]pipeline.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pipeline.Job
	for _, j := range s.jobs {
		if j.OwnerID == ownerID {
			out = append(out, j)
		}
	}
	slices.SortFunc(out, func(a, b pipeline.Job) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *Store) SetJobOpen(_ context.Context, id string, open bool) (*pipeline.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, pipeline.ErrJobNotFound
	}
	j.IsOpen = open
	j.UpdatedAt = s.now().UTC()
	s.jobs[id] = j
	return &j, nil
}

// ─── Candidates ──────────────────────────────────────────────────────────────

func (s *Store) CreateCandidate(_ context.Context, c *pipeline.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[c.JobID]; !ok {
		return pipeline.ErrJobNotFound
	}
	c.Version = 1
	s.candidates[c.ID] = c.Clone()
	return nil
}

func (s *Store) GetCandidate(_ context.Context, id string) (*pipeline.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, pipeline.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *Store) ListCandidates(_ context.Context, jobID string) ([]pipeline.Candidate, error) {
	return s.filter(func(c *pipeline.Candidate) bool { return c.JobID == jobID }), nil
}

func (s *Store) ListAwaitingBooking(_ context.Context) ([]pipeline.Candidate, error) {
	return s.filter((*pipeline.Candidate).AwaitingBooking), nil
}

func (s *Store) UpdateCandidate(_ context.Context, c *pipeline.Candidate, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.candidates[c.ID]
	if !ok {
		return pipeline.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return pipeline.ErrVersionConflict
	}
	c.Version = expectedVersion + 1
	c.UpdatedAt = s.now().UTC()
	s.candidates[c.ID] = c.Clone()
	return nil
}

func (s *Store) filter(keep func(*pipeline.Candidate) bool) []pipeline.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pipeline.Candidate
	for _, c := range s.candidates {
		if keep(c) {
			out = append(out, *c.Clone())
		}
	}
	slices.SortFunc(out, func(a, b pipeline.Candidate) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}
