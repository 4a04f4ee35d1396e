package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/lasrun/internal/lastools"
	"github.com/banshee-data/lasrun/internal/monitoring"
	"github.com/banshee-data/lasrun/internal/security"
)

var logf = monitoring.Prefixed("remote")

// maxMsgSize bounds requests and responses; console output of a long
// pipeline can exceed the 4MB default.
const maxMsgSize = 16 * 1024 * 1024

// maxConsoleLines bounds the console lines returned with a run. Each
// result also carries at most lastools.MaxOutputLines of its own output.
const maxConsoleLines = 2000

// Registry is the tool catalogue the server resolves names against.
type Registry interface {
	Lookup(name string) (*lastools.Tool, error)
	List() []*lastools.Tool
}

// Ensure Server implements the gRPC interface.
var _ RunnerServer = (*Server)(nil)

// Server implements the runner service.
type Server struct {
	registry Registry
	env      *lastools.Env
	defaults lastools.Defaults
	// allowedDirs bounds every file, folder and pattern a caller may pass.
	// Empty refuses all paths.
	allowedDirs []string
}

// NewServer creates a runner service backed by env.
func NewServer(registry Registry, env *lastools.Env, defaults lastools.Defaults, allowedDirs []string) *Server {
	return &Server{
		registry:    registry,
		env:         env,
		defaults:    defaults,
		allowedDirs: allowedDirs,
	}
}

// NewGRPCServer returns a grpc.Server with s registered.
func NewGRPCServer(s *Server) *grpc.Server {
	gs := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	RegisterRunnerServer(gs, s)
	return gs
}

// Serve runs a grpc server for s on lis until ctx is done.
func Serve(ctx context.Context, lis net.Listener, s *Server) error {
	gs := NewGRPCServer(s)
	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()
	logf("runner service listening on %s", lis.Addr())
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// ListTools implements RunnerServer.
func (s *Server) ListTools(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out, err := toolsToStruct(s.registry.List())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode tools: %v", err)
	}
	return out, nil
}

// Run implements RunnerServer.
func (s *Server) Run(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := runRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	logf("run %s (%d params, dry_run=%v, halt_on_error=%v)", req.Tool, len(req.Params), req.DryRun, req.HaltOnError)

	tool, err := s.registry.Lookup(req.Tool)
	if err != nil {
		return nil, status.Error(codes.NotFound, err.Error())
	}

	fs, err := s.flagSet(tool, req.Params)
	if err != nil {
		return nil, err
	}

	env := *s.env
	env.HaltOnError = env.HaltOnError || req.HaltOnError
	if req.DryRun {
		runner := *s.env.Runner
		runner.DryRun = true
		env.Runner = &runner
	}

	// the caller gets everything; the server log keeps command lines,
	// warnings and errors
	capture := &lastools.CaptureFeedback{MaxConsole: maxConsoleLines}
	results, runErr := tool.Run(ctx, &env, fs, lastools.Tee(capture, lastools.LogFeedback{Quiet: true}))
	if runErr != nil && len(results) == 0 {
		return nil, toStatus(ctx, runErr)
	}
	if runErr != nil {
		// a pipeline that halted still returns the stages that ran
		capture.ReportError(runErr.Error())
	}

	resp := &RunResponse{
		Status:   overall(results),
		Results:  results,
		Messages: capture.Messages(),
	}
	out, err := resp.toStruct()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	logf("run %s finished: %s", req.Tool, resp.Status)
	return out, nil
}

// flagSet declares tool's parameters and applies the caller's values. The
// caller's paths are checked before server defaults are filled in.
func (s *Server) flagSet(tool *lastools.Tool, params map[string]string) (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet(tool.Name, pflag.ContinueOnError)
	tool.Define(fs)
	for _, name := range sortedKeys(params) {
		if fs.Lookup(name) == nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s has no parameter %q", tool.Name, name)
		}
		if err := fs.Set(name, params[name]); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "parameter %s: %v", name, err)
		}
	}
	if v := params[lastools.FlagAdditionalOptions]; v != "" {
		return nil, status.Error(codes.PermissionDenied, "additional options are not accepted by the runner service")
	}
	if v := params[lastools.FlagOutputAppendix]; v != "" && security.SanitizeFilename(v) != v {
		return nil, status.Errorf(codes.PermissionDenied, "%s %q may only contain letters, digits, dot, underscore and dash", lastools.FlagOutputAppendix, v)
	}
	for _, p := range tool.PathValues(fs) {
		if err := security.ValidatePatternWithinAllowedDirs(p, s.allowedDirs); err != nil {
			return nil, status.Error(codes.PermissionDenied, err.Error())
		}
	}
	if err := lastools.ApplyDefaults(fs, s.defaults); err != nil {
		return nil, status.Errorf(codes.Internal, "apply defaults: %v", err)
	}
	return fs, nil
}

func toStatus(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return status.FromContextError(ctxErr).Err()
	}
	switch {
	case errors.Is(err, lastools.ErrMissingParam), errors.Is(err, lastools.ErrInvalidParam):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, lastools.ErrUnknownTool):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// overall buckets a set of results the way a pipeline does: any error,
// then dry run, then any warning.
func overall(results []*lastools.Result) lastools.Status {
	st := lastools.StatusOK
	for _, r := range results {
		switch r.Status {
		case lastools.StatusError:
			return lastools.StatusError
		case lastools.StatusDryRun:
			st = lastools.StatusDryRun
		case lastools.StatusWarning:
			if st == lastools.StatusOK {
				st = lastools.StatusWarning
			}
		}
	}
	return st
}
