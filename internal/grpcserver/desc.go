package grpcserver

import (
	"context"

	"google.golang.org/grpc"
)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PipelineServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListJobs", PipelineServer.ListJobs),
		unary("ListCandidates", PipelineServer.ListCandidates),
		unary("GetCandidate", PipelineServer.GetCandidate),
		unary("Approve", PipelineServer.Approve),
		unary("ProposeSlots", PipelineServer.ProposeSlots),
		unary("Reject", PipelineServer.Reject),
		unary("ReconcileBooking", PipelineServer.ReconcileBooking),
		unary("ListBusy", PipelineServer.ListBusy),
		unary("GetDocumentURL", PipelineServer.GetDocumentURL),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pipeline.json",
}

// FullMethod returns the path clients invoke for method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary adapts a PipelineServer method to a grpc.MethodDesc, running the
// server's interceptor chain when one is installed.
func unary[Req, Resp any](name string, call func(PipelineServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(PipelineServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}
