package remote

import (
	"context"
	"math"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/lasrun/internal/lastools"
	"github.com/banshee-data/lasrun/internal/provider"
	"github.com/banshee-data/lasrun/internal/testutil"
)

type harness struct {
	client  *Client
	builder *lastools.MockCommandBuilder
	env     *lastools.Env
	dir     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	env, builder := testutil.MockEnv("linux", "/opt/LAStools")
	srv := NewServer(provider.Default(), env, lastools.Defaults{TemporaryDirectory: "/tmp/lasrun"}, []string{dir})

	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &harness{client: NewClient(conn), builder: builder, env: env, dir: dir}
}

func TestListTools(t *testing.T) {
	h := newHarness(t)
	tools, err := h.client.ListTools(context.Background())
	require.NoError(t, err)

	byName := make(map[string]ToolInfo)
	for _, ti := range tools {
		byName[ti.Name] = ti
	}
	assert.Equal(t, lastools.GroupTools, byName["lasinfo"].Group)
	assert.Equal(t, lastools.GroupProduction, byName["lasground_pro"].Group)
	assert.Equal(t, lastools.GroupPipelines, byName["flightlines_to_dtm_and_dsm"].Group)
	assert.NotEmpty(t, byName["las2dem"].Summary)
}

func TestRun(t *testing.T) {
	h := newHarness(t)
	h.builder.SetNextExecutor(&lastools.MockCommandExecutor{
		Output: []byte("reporting all LAS header entries\nWARNING: 12 points outside bounding box\n"),
	})
	input := filepath.Join(h.dir, "in.laz")

	resp, err := h.client.Run(context.Background(), &RunRequest{
		Tool:   "lasinfo",
		Params: map[string]string{"input": input, "compute_density": "true"},
	})
	require.NoError(t, err)

	assert.Equal(t, lastools.StatusWarning, resp.Status)
	require.Len(t, resp.Results, 1)
	res := resp.Results[0]
	assert.Equal(t, "lasinfo", res.Tool)
	assert.Equal(t, 1, res.Warnings)
	assert.Equal(t, []string{"reporting all LAS header entries", "WARNING: 12 points outside bounding box"}, res.Output)
	assert.Equal(t, testutil.Epoch, res.StartedAt)

	cmd := h.builder.LastCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"/opt/LAStools/bin/lasinfo", "-i", input, "-cd"}, cmd.Argv())

	var warnings []string
	for _, m := range resp.Messages {
		if m.Level == lastools.LevelWarning {
			warnings = append(warnings, m.Text)
		}
	}
	assert.Equal(t, []string{"WARNING: 12 points outside bounding box"}, warnings)
}

func TestRun_ToolErrorIsNotRPCError(t *testing.T) {
	h := newHarness(t)
	h.builder.SetNextExecutor(&lastools.MockCommandExecutor{Output: []byte("ERROR: cannot open file\n"), ExitCode: 1})

	resp, err := h.client.Run(context.Background(), &RunRequest{
		Tool:   "lasinfo",
		Params: map[string]string{"input": filepath.Join(h.dir, "missing.laz")},
	})
	require.NoError(t, err)
	assert.Equal(t, lastools.StatusError, resp.Status)
	assert.Equal(t, 1, resp.Results[0].ExitCode)
}

func TestRun_DryRun(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.Run(context.Background(), &RunRequest{
		Tool:   "lasinfo",
		Params: map[string]string{"input": filepath.Join(h.dir, "in.laz")},
		DryRun: true,
	})
	require.NoError(t, err)
	assert.Equal(t, lastools.StatusDryRun, resp.Status)
	assert.Empty(t, h.builder.Commands)
	assert.False(t, h.env.Runner.DryRun, "dry run must not leak into the shared runner")
}

func TestRun_Pipeline(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.Run(context.Background(), &RunRequest{
		Tool: "flightlines_to_dtm_and_dsm",
		Params: map[string]string{
			"input_directory":  h.dir,
			"output_directory": filepath.Join(h.dir, "out"),
		},
		DryRun: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 4)
	var stages []string
	for _, r := range resp.Results {
		stages = append(stages, r.Stage)
		assert.NotEmpty(t, r.PipelineRunID)
	}
	assert.Equal(t, []string{"tile", "ground", "dtm", "dsm"}, stages)
}

func TestRun_OutputAppendix(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.Run(context.Background(), &RunRequest{
		Tool:   "lasground_pro",
		Params: map[string]string{"input_directory": h.dir, "output_appendix": "_g"},
		DryRun: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].CommandLine, "-odix _g")
}

func TestRun_HaltOnError(t *testing.T) {
	tests := []struct {
		name string
		halt bool
		want int
	}{
		{"continues", false, 5},
		{"halts", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.builder.ExecutorFactory = func(string, []string) *lastools.MockCommandExecutor {
				return &lastools.MockCommandExecutor{Output: []byte("ERROR: boom\n"), ExitCode: 1}
			}
			resp, err := h.client.Run(context.Background(), &RunRequest{
				Tool: "huge_file_classify",
				Params: map[string]string{
					"input":  filepath.Join(h.dir, "big.laz"),
					"output": filepath.Join(h.dir, "big_c.laz"),
				},
				HaltOnError: tt.halt,
			})
			require.NoError(t, err)
			assert.Equal(t, lastools.StatusError, resp.Status)
			assert.Len(t, resp.Results, tt.want)
			assert.Len(t, h.builder.Commands, tt.want)
			assert.False(t, h.env.HaltOnError, "halt on error must not leak into the shared env")
		})
	}
}

func TestRun_Errors(t *testing.T) {
	h := newHarness(t)
	inside := filepath.Join(h.dir, "in.laz")
	tests := []struct {
		name string
		req  *RunRequest
		want codes.Code
	}{
		{"no tool", &RunRequest{}, codes.InvalidArgument},
		{"unknown tool", &RunRequest{Tool: "lasmagic"}, codes.NotFound},
		{"unknown param", &RunRequest{Tool: "lasinfo", Params: map[string]string{"input": inside, "colour": "red"}}, codes.InvalidArgument},
		{"bad value", &RunRequest{Tool: "lasinfo", Params: map[string]string{"input": inside, "compute_density": "maybe"}}, codes.InvalidArgument},
		{"missing input", &RunRequest{Tool: "lasinfo"}, codes.InvalidArgument},
		{"path outside", &RunRequest{Tool: "lasinfo", Params: map[string]string{"input": "/etc/passwd"}}, codes.PermissionDenied},
		{"traversal", &RunRequest{Tool: "lasinfo", Params: map[string]string{"input": filepath.Join(h.dir, "..", "x.laz")}}, codes.PermissionDenied},
		{"additional options", &RunRequest{Tool: "lasinfo", Params: map[string]string{"input": inside, "additional_options": "-o /etc/x"}}, codes.PermissionDenied},
		{"appendix with separators", &RunRequest{Tool: "lasground_pro", Params: map[string]string{"input_directory": h.dir, "output_appendix": "/../../etc/x"}}, codes.PermissionDenied},
		{"flag in compound value", &RunRequest{Tool: "lasheight", Params: map[string]string{
			"input": inside, "drop_above": "true", "drop_above_value": "30 -o /etc/evil.laz",
		}}, codes.InvalidArgument},
		{"flag in operation value", &RunRequest{Tool: "las2las_filter", Params: map[string]string{
			"input": inside, "filter_coords_intensity1": "drop_z_above", "filter_coords_intensity1_value": "100 -i /root/secret.laz",
		}}, codes.InvalidArgument},
		{"non-finite step", &RunRequest{Tool: "lasgrid", Params: map[string]string{"input": inside, "step": "NaN"}}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.client.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err), err.Error())
		})
	}
	assert.Empty(t, h.builder.Commands)
}

func TestValueString(t *testing.T) {
	list, err := structpb.NewList([]any{"*.laz", "*.las"})
	require.NoError(t, err)
	tests := []struct {
		name string
		in   *structpb.Value
		want string
		ok   bool
	}{
		{"string", structpb.NewStringValue("a b"), "a b", true},
		{"integer", structpb.NewNumberValue(2), "2", true},
		{"fraction", structpb.NewNumberValue(0.5), "0.5", true},
		{"bool", structpb.NewBoolValue(true), "true", true},
		{"list", structpb.NewListValue(list), "*.laz *.las", true},
		{"null", structpb.NewNullValue(), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := valueString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, _, err = valueString(structpb.NewNumberValue(math.Inf(1)))
	assert.ErrorIs(t, err, lastools.ErrInvalidParam)
}

func TestReplay(t *testing.T) {
	resp := &RunResponse{Messages: []lastools.Message{
		{Level: lastools.LevelCommand, Text: "lasinfo -i a.laz"},
		{Level: lastools.LevelConsole, Text: "ok"},
		{Level: lastools.LevelWarning, Text: "WARNING: x"},
		{Level: lastools.LevelError, Text: "ERROR: y"},
		{Level: lastools.LevelInfo, Text: "done"},
	}}
	capture := &lastools.CaptureFeedback{}
	resp.Replay(capture)
	assert.Equal(t, resp.Messages, capture.Messages())
}

func TestMessages_CarryHaltAndOmittedLines(t *testing.T) {
	in, err := (&RunRequest{Tool: "huge_file_classify", HaltOnError: true}).toStruct()
	require.NoError(t, err)
	req, err := runRequestFromStruct(in)
	require.NoError(t, err)
	assert.True(t, req.HaltOnError)

	out, err := (&RunResponse{Status: lastools.StatusOK, Results: []*lastools.Result{
		{Tool: "lasinfo", Status: lastools.StatusOK, Output: []string{"last"}, OmittedLines: 1500},
	}}).toStruct()
	require.NoError(t, err)
	resp := runResponseFromStruct(out)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1500, resp.Results[0].OmittedLines)
	assert.Equal(t, []string{"last"}, resp.Results[0].Output)
}

func TestOverall(t *testing.T) {
	r := func(s lastools.Status) *lastools.Result { return &lastools.Result{Status: s} }
	assert.Equal(t, lastools.StatusOK, overall(nil))
	assert.Equal(t, lastools.StatusWarning, overall([]*lastools.Result{r(lastools.StatusOK), r(lastools.StatusWarning)}))
	assert.Equal(t, lastools.StatusDryRun, overall([]*lastools.Result{r(lastools.StatusDryRun), r(lastools.StatusDryRun)}))
	assert.Equal(t, lastools.StatusError, overall([]*lastools.Result{r(lastools.StatusWarning), r(lastools.StatusError)}))
}
