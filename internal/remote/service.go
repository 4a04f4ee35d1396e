// Package remote runs LAStools on another host over gRPC. LAStools is
// licensed per machine and is Windows-first, so a workstation without it
// can hand command lines to a host that has it.
//
// The service is described by hand instead of from a .proto file: both
// messages are google.protobuf.Struct, so no generated code is needed.
package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "lastools.v1.Runner"

const (
	runMethod       = "/" + ServiceName + "/Run"
	listToolsMethod = "/" + ServiceName + "/ListTools"
)

// RunnerServer is the server API of the runner service.
type RunnerServer interface {
	Run(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListTools(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc registers a RunnerServer on a grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RunnerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: runHandler},
		{MethodName: "ListTools", Handler: listToolsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lastools/v1/runner.proto",
}

// RegisterRunnerServer adds srv to s.
func RegisterRunnerServer(s grpc.ServiceRegistrar, srv RunnerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func runHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RunnerServer).Run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RunnerServer).Run(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listToolsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RunnerServer).ListTools(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listToolsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RunnerServer).ListTools(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
