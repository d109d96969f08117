// Package grpcserver implements the PipelineService gRPC server.
//
// It delegates all business logic to pipeline.Service and handles
// only the gRPC transport concerns: metadata extraction, error mapping,
// and type conversion between the domain model and wire messages.
package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"hirelane/pipeline-service/internal/pipeline"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ats.pipeline.v1.PipelineService"

// PipelineServer is the server API for PipelineService.
type PipelineServer interface {
	ListJobs(context.Context, *ListJobsRequest) (*ListJobsResponse, error)
	ListCandidates(context.Context, *ListCandidatesRequest) (*ListCandidatesResponse, error)
	GetCandidate(context.Context, *CandidateRequest) (*CandidateProto, error)
	Approve(context.Context, *SlotsRequest) (*CandidateProto, error)
	ProposeSlots(context.Context, *SlotsRequest) (*CandidateProto, error)
	Reject(context.Context, *RejectRequest) (*CandidateProto, error)
	ReconcileBooking(context.Context, *CandidateRequest) (*ReconcileResponse, error)
	ListBusy(context.Context, *ListBusyRequest) (*ListBusyResponse, error)
	GetDocumentURL(context.Context, *DocumentRequest) (*DocumentResponse, error)
}

// Server implements PipelineServer.
type Server struct {
	svc *pipeline.Service
}

// NewServer constructs a gRPC Server backed by the given pipeline.Service.
func NewServer(svc *pipeline.Service) *Server {
	return &Server{svc: svc}
}

// Register adds the service to gs.
func Register(gs *grpc.Server, srv PipelineServer) {
	gs.RegisterService(&serviceDesc, srv)
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// ListJobs returns the caller's jobs.
func (s *Server) ListJobs(ctx context.Context, _ *ListJobsRequest) (*ListJobsResponse, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	jobs, err := s.svc.ListJobs(ctx, userID)
	if err != nil {
		return nil, toGRPCError(err)
	}

	protos := make([]*JobProto, 0, len(jobs))
	for i := range jobs {
		protos = append(protos, jobToProto(&jobs[i]))
	}
	return &ListJobsResponse{Jobs: protos}, nil
}

// ListCandidates returns every candidate of a job owned by the caller.
func (s *Server) ListCandidates(ctx context.Context, req *ListCandidatesRequest) (*ListCandidatesResponse, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	cands, err := s.svc.ListCandidates(ctx, userID, req.JobID)
	if err != nil {
		return nil, toGRPCError(err)
	}

	protos := make([]*CandidateProto, 0, len(cands))
	for i := range cands {
		protos = append(protos, candidateToProto(&cands[i]))
	}
	return &ListCandidatesResponse{Candidates: protos}, nil
}

func (s *Server) GetCandidate(ctx context.Context, req *CandidateRequest) (*CandidateProto, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.svc.GetCandidate(ctx, userID, req.CandidateID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return candidateToProto(c), nil
}

// GetDocumentURL returns a link to the candidate's resume or assignment.
func (s *Server) GetDocumentURL(ctx context.Context, req *DocumentRequest) (*DocumentResponse, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	url, err := s.svc.DocumentURL(ctx, userID, req.CandidateID, req.Type)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return &DocumentResponse{URL: url}, nil
}

// Approve approves a candidate and sends the interview invite with the
// proposed slots.
func (s *Server) Approve(ctx context.Context, req *SlotsRequest) (*CandidateProto, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.svc.Approve(ctx, userID, req.CandidateID, fromTimestamps(req.Slots))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return candidateToProto(c), nil
}

// ProposeSlots replaces the proposed slots of an open invite.
func (s *Server) ProposeSlots(ctx context.Context, req *SlotsRequest) (*CandidateProto, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.svc.ProposeSlots(ctx, userID, req.CandidateID, fromTimestamps(req.Slots))
	if err != nil {
		return nil, toGRPCError(err)
	}
	return candidateToProto(c), nil
}

func (s *Server) Reject(ctx context.Context, req *RejectRequest) (*CandidateProto, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.svc.Reject(ctx, userID, req.CandidateID, req.Reason)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return candidateToProto(c), nil
}

// ReconcileBooking checks the calendar for a booking made outside the
// booking page.
func (s *Server) ReconcileBooking(ctx context.Context, req *CandidateRequest) (*ReconcileResponse, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.svc.ReconcileBooking(ctx, userID, req.CandidateID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return &ReconcileResponse{Booked: res.Booked, Candidate: candidateToProto(res.Candidate)}, nil
}

func (s *Server) ListBusy(ctx context.Context, req *ListBusyRequest) (*ListBusyResponse, error) {
	userID, err := userIDFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if req.Start == nil || req.End == nil {
		return nil, status.Error(codes.InvalidArgument, "start and end are required")
	}

	busy, err := s.svc.ListBusy(ctx, userID, req.Start.AsTime(), req.End.AsTime())
	if err != nil {
		return nil, toGRPCError(err)
	}

	out := make([]*BusyPeriodProto, 0, len(busy))
	for _, b := range busy {
		out = append(out, &BusyPeriodProto{Start: timestamppb.New(b.Start), End: timestamppb.New(b.End)})
	}
	return &ListBusyResponse{Busy: out}, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// userIDFromCtx extracts the x-user-id value forwarded by the Gateway
// via gRPC metadata.
func userIDFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	return vals[0], nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	var (
		ve *pipeline.ValidationError
		ie *pipeline.IllegalTransitionError
		ce *pipeline.CollaboratorError
	)
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Msg)
	case errors.As(err, &ie):
		return status.Error(codes.FailedPrecondition, ie.Error())
	case errors.As(err, &ce):
		return status.Errorf(codes.Unavailable, "%s is unavailable, please try again later", ce.Collaborator)
	case errors.Is(err, pipeline.ErrNotFound), errors.Is(err, pipeline.ErrJobNotFound),
		errors.Is(err, pipeline.ErrDocumentNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, pipeline.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, pipeline.ErrVersionConflict):
		return status.Error(codes.Aborted, err.Error())
	}
	return status.Error(codes.Internal, "internal server error")
}
