package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/timestamppb"

	"hirelane/pipeline-service/internal/pipeline"
	"hirelane/pipeline-service/internal/store/memory"
)

const owner = "recruiter-1"

type fixture struct {
	svc  *pipeline.Service
	conn *grpc.ClientConn
	job  *pipeline.Job
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := pipeline.NewService(pipeline.Deps{Store: memory.New()}, pipeline.Options{AppURL: "https://app.example.com"})

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	Register(gs, NewServer(svc))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	job, err := svc.CreateJob(context.Background(), owner, pipeline.JobInput{
		Title:       "Backend Engineer",
		Description: "Own the pipeline service end to end",
	})
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn, job: job}
}

func (f *fixture) apply(t *testing.T, name string) *pipeline.Candidate {
	t.Helper()
	c, err := f.svc.SubmitApplication(context.Background(), pipeline.ApplicationInput{
		JobID: f.job.ID,
		Name:  name,
		Email: fmt.Sprintf("%s@example.com", name),
	})
	require.NoError(t, err)
	return c
}

func asUser(userID string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "x-user-id", userID)
}

func TestGetCandidate(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "ada")

	var out CandidateProto
	err := f.conn.Invoke(asUser(owner), FullMethod("GetCandidate"), &CandidateRequest{CandidateID: c.ID}, &out)
	require.NoError(t, err)
	assert.Equal(t, c.ID, out.ID)
	assert.Equal(t, "APPLIED", out.Status)
	assert.Equal(t, "Applied", out.StatusLabel)
	assert.False(t, out.HasScreeningScore)
}

func TestGetCandidate_Errors(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "ada")

	err := f.conn.Invoke(context.Background(), FullMethod("GetCandidate"), &CandidateRequest{CandidateID: c.ID}, &CandidateProto{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = f.conn.Invoke(asUser("someone-else"), FullMethod("GetCandidate"), &CandidateRequest{CandidateID: c.ID}, &CandidateProto{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	err = f.conn.Invoke(asUser(owner), FullMethod("GetCandidate"), &CandidateRequest{CandidateID: "missing"}, &CandidateProto{})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestApproveThenReject(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "ada")
	slot := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	var approved CandidateProto
	err := f.conn.Invoke(asUser(owner), FullMethod("Approve"),
		&SlotsRequest{CandidateID: c.ID, Slots: []*timestamppb.Timestamp{timestamppb.New(slot)}}, &approved)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.Equal(t, "INVITE_SENT", approved.InterviewStatus)
	require.Len(t, approved.ProposedSlots, 1)
	assert.True(t, approved.ProposedSlots[0].AsTime().Equal(slot))

	err = f.conn.Invoke(asUser(owner), FullMethod("Reject"), &RejectRequest{CandidateID: c.ID}, &CandidateProto{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err), "APPROVED is terminal")
}

func TestApprove_InvalidSlots(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "ada")

	err := f.conn.Invoke(asUser(owner), FullMethod("Approve"), &SlotsRequest{CandidateID: c.ID}, &CandidateProto{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestReconcile_NoCalendar(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "ada")
	_, err := f.svc.Approve(context.Background(), owner, c.ID, []time.Time{time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	err = f.conn.Invoke(asUser(owner), FullMethod("ReconcileBooking"), &CandidateRequest{CandidateID: c.ID}, &ReconcileResponse{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestListJobsAndCandidates(t *testing.T) {
	f := newFixture(t)
	f.apply(t, "ada")
	f.apply(t, "grace")

	var jobs ListJobsResponse
	require.NoError(t, f.conn.Invoke(asUser(owner), FullMethod("ListJobs"), &ListJobsRequest{}, &jobs))
	require.Len(t, jobs.Jobs, 1)
	assert.Equal(t, f.job.ID, jobs.Jobs[0].ID)

	var cands ListCandidatesResponse
	require.NoError(t, f.conn.Invoke(asUser(owner), FullMethod("ListCandidates"), &ListCandidatesRequest{JobID: f.job.ID}, &cands))
	assert.Len(t, cands.Candidates, 2)
}

func TestListBusy_RequiresRange(t *testing.T) {
	f := newFixture(t)
	err := f.conn.Invoke(asUser(owner), FullMethod("ListBusy"), &ListBusyRequest{}, &ListBusyResponse{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetDocumentURL(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "ada")

	err := f.conn.Invoke(asUser(owner), FullMethod("GetDocumentURL"), &DocumentRequest{CandidateID: c.ID, Type: "resume"}, &DocumentResponse{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = f.conn.Invoke(asUser(owner), FullMethod("GetDocumentURL"), &DocumentRequest{CandidateID: c.ID, Type: "cover-letter"}, &DocumentResponse{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = f.conn.Invoke(asUser("someone-else"), FullMethod("GetDocumentURL"), &DocumentRequest{CandidateID: c.ID, Type: "resume"}, &DocumentResponse{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestToGRPCError(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{&pipeline.ValidationError{Field: "email", Msg: "Email is required"}, codes.InvalidArgument},
		{&pipeline.IllegalTransitionError{From: pipeline.StatusRejected, Event: pipeline.EventApprove}, codes.FailedPrecondition},
		{&pipeline.CollaboratorError{Collaborator: "calendar", Err: errors.New("down")}, codes.Unavailable},
		{fmt.Errorf("get: %w", pipeline.ErrNotFound), codes.NotFound},
		{pipeline.ErrJobNotFound, codes.NotFound},
		{pipeline.ErrDocumentNotFound, codes.NotFound},
		{pipeline.ErrForbidden, codes.PermissionDenied},
		{pipeline.ErrVersionConflict, codes.Aborted},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(toGRPCError(tt.err)), tt.err.Error())
	}
}
