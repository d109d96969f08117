package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hirelane/pipeline-service/internal/db"
	"hirelane/pipeline-service/internal/pipeline"
	"hirelane/pipeline-service/internal/store/postgres"
)

// newStore connects to DATABASE_URL and applies the schema. Tests using it
// are skipped when no database is configured.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool))
	return postgres.New(pool)
}

func seedCandidate(t *testing.T, s *postgres.Store) *pipeline.Candidate {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &pipeline.Job{
		ID:          uuid.NewString(),
		OwnerID:     "recruiter-it",
		Title:       "Backend Engineer",
		Description: "Own the pipeline service end to end",
		IsOpen:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateJob(ctx, job))

	c := &pipeline.Candidate{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Name:      "Ada",
		Email:     "ada@example.com",
		Status:    pipeline.StatusApplied,
		History:   []pipeline.HistoryEntry{{To: "APPLIED", At: now.Format(time.RFC3339)}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateCandidate(ctx, c))
	require.Equal(t, int64(1), c.Version)
	return c
}

func TestUpdateCandidate_CompareAndSet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	c := seedCandidate(t, s)

	stale := c.Clone()
	c.Status = pipeline.StatusApproved
	c.InterviewStatus = pipeline.InterviewInviteSent
	c.ProposedSlots = []time.Time{time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)}
	require.NoError(t, s.UpdateCandidate(ctx, c, 1))
	assert.Equal(t, int64(2), c.Version)

	stale.Status = pipeline.StatusRejected
	err := s.UpdateCandidate(ctx, stale, 1)
	assert.ErrorIs(t, err, pipeline.ErrVersionConflict)

	got, err := s.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusApproved, got.Status)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, c.ProposedSlots, got.ProposedSlots)
}

func TestUpdateCandidate_MissingRow(t *testing.T) {
	s := newStore(t)
	missing := &pipeline.Candidate{ID: uuid.NewString(), Status: pipeline.StatusApplied}
	err := s.UpdateCandidate(context.Background(), missing, 1)
	assert.ErrorIs(t, err, pipeline.ErrNotFound)
}

func TestUpdateCandidate_ConcurrentWritersOneWins(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	c := seedCandidate(t, s)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		won       int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := c.Clone()
			next.Status = pipeline.StatusRejected
			err := s.UpdateCandidate(ctx, next, c.Version)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case assert.ErrorIs(t, err, pipeline.ErrVersionConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, writers-1, conflicts)
	got, err := s.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func TestCreateCandidate_UnknownJob(t *testing.T) {
	s := newStore(t)
	err := s.CreateCandidate(context.Background(), &pipeline.Candidate{
		ID:     uuid.NewString(),
		JobID:  uuid.NewString(),
		Status: pipeline.StatusApplied,
	})
	assert.ErrorIs(t, err, pipeline.ErrJobNotFound)
}
