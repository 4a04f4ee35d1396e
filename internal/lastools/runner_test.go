package lastools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lasrun/internal/monitoring"
	"github.com/banshee-data/lasrun/internal/timeutil"
)

var testStart = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeRecorder struct {
	runs []*Result
	err  error
}

func (f *fakeRecorder) RecordRun(_ context.Context, res *Result) error {
	f.runs = append(f.runs, res)
	return f.err
}

func newTestRunner(trust bool) (*Runner, *MockCommandBuilder) {
	builder := NewMockCommandBuilder()
	return &Runner{
		Builder:       builder,
		Clock:         timeutil.NewSteppingClock(testStart, 3*time.Second),
		TrustExitCode: trust,
	}, builder
}

func TestRunner_Run_Duration(t *testing.T) {
	clock := timeutil.NewMockClock(testStart)
	builder := NewMockCommandBuilder()
	builder.ExecutorFactory = func(string, []string) *MockCommandExecutor {
		clock.Advance(95 * time.Second)
		return &MockCommandExecutor{Output: []byte("done\n")}
	}
	r := &Runner{Builder: builder, Clock: clock, TrustExitCode: true}

	res, err := r.Run(context.Background(), Request{Tool: "lasground", Argv: groundArgv}, &CaptureFeedback{})
	require.NoError(t, err)
	assert.Equal(t, testStart, res.StartedAt)
	assert.Equal(t, 95*time.Second, res.Duration)
}

var groundArgv = []string{"/opt/LAStools/bin/lasground64", "-i", "in.laz", "-city", "-o", "out_g.laz"}

func TestRunner_Run_OK(t *testing.T) {
	r, builder := newTestRunner(true)
	builder.SetNextExecutor(&MockCommandExecutor{Output: []byte("lasground (240220) licensed\r\nprocessing 'in.laz'\ndone in 1.2 sec\n")})
	fb := &CaptureFeedback{}

	res, err := r.Run(context.Background(), Request{Tool: "lasground", Argv: groundArgv}, fb)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "lasground", res.Tool)
	assert.Equal(t, "/opt/LAStools/bin/lasground64 -i in.laz -city -o out_g.laz", res.CommandLine)
	assert.Equal(t, testStart, res.StartedAt)
	assert.Equal(t, 3*time.Second, res.Duration)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Output, 3)
	assert.NoError(t, res.Err())

	require.Len(t, builder.Commands, 1)
	if diff := cmp.Diff(groundArgv, builder.Commands[0].Argv()); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"LAStools command line", res.CommandLine}, fb.Texts(LevelCommand))
	assert.Equal(t, []string{
		"LAStools console output",
		"lasground (240220) licensed",
		"processing 'in.laz'",
		"done in 1.2 sec",
	}, fb.Texts(LevelConsole))
}

func TestRunner_Run_Classification(t *testing.T) {
	tests := []struct {
		name     string
		trust    bool
		output   string
		exitCode int
		want     Status
		errors   int
		warnings int
	}{
		{"clean", true, "done\n", 0, StatusOK, 0, 0},
		{"warning line", true, "WARNING: bounding box is off\ndone\n", 0, StatusWarning, 0, 1},
		{"error line with zero exit", false, "ERROR: cannot open 'x.laz'\n", 0, StatusError, 1, 0},
		{"error beats warning", true, "WARNING: a\nERROR: b\n", 0, StatusError, 1, 1},
		{"trusted non-zero exit", true, "done\n", 1, StatusError, 0, 0},
		{"distrusted non-zero exit", false, "done\n", 1, StatusOK, 0, 0},
		{"distrusted exit with warning", false, "WARNING: x\n", 3, StatusWarning, 0, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, builder := newTestRunner(tc.trust)
			builder.SetNextExecutor(&MockCommandExecutor{Output: []byte(tc.output), ExitCode: tc.exitCode})
			fb := &CaptureFeedback{}

			res, err := r.Run(context.Background(), Request{Tool: "lasinfo", Argv: []string{"lasinfo", "-i", "x.laz"}}, fb)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Status)
			assert.Equal(t, tc.errors, res.Errors)
			assert.Equal(t, tc.warnings, res.Warnings)
			assert.Equal(t, tc.exitCode, res.ExitCode)
			assert.Len(t, fb.Texts(LevelError), tc.errors)
			assert.Len(t, fb.Texts(LevelWarning), tc.warnings)
			if tc.want == StatusError {
				assert.True(t, errors.Is(res.Err(), ErrToolFailed))
			}
		})
	}
}

func TestRunner_Run_StartFailure(t *testing.T) {
	r, builder := newTestRunner(true)
	rec := &fakeRecorder{}
	r.Recorder = rec
	builder.SetNextExecutor(&MockCommandExecutor{ExitCode: -1, Err: errors.New("executable file not found")})
	fb := &CaptureFeedback{}

	res, err := r.Run(context.Background(), Request{Tool: "lasground", Argv: groundArgv}, fb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executable file not found")
	require.NotNil(t, res)
	assert.Equal(t, StatusError, res.Status)
	assert.Len(t, rec.runs, 1)
	assert.Len(t, fb.Texts(LevelError), 1)
}

func TestRunner_Run_Cancelled(t *testing.T) {
	r, builder := newTestRunner(true)
	ctx, cancel := context.WithCancel(context.Background())
	builder.ExecutorFactory = func(string, []string) *MockCommandExecutor {
		cancel()
		return &MockCommandExecutor{ExitCode: -1, Err: errors.New("signal: killed")}
	}

	_, err := r.Run(ctx, Request{Tool: "lasground", Argv: groundArgv}, &CaptureFeedback{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunner_Run_DryRun(t *testing.T) {
	r, builder := newTestRunner(true)
	r.DryRun = true
	fb := &CaptureFeedback{}

	res, err := r.Run(context.Background(), Request{Tool: "lasground", Argv: groundArgv}, fb)
	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, res.Status)
	assert.Empty(t, builder.Commands)
	assert.NoError(t, res.Err())
	assert.Contains(t, fb.Texts(LevelCommand), res.CommandLine)
}

func TestRunner_Run_RecordsRuns(t *testing.T) {
	r, _ := newTestRunner(true)
	rec := &fakeRecorder{}
	r.Recorder = rec

	res, err := r.Run(context.Background(), Request{
		Tool:          "las2dem",
		Stage:         "chm",
		PipelineRunID: "p-1",
		Argv:          []string{"las2dem", "-i", "a.laz"},
	}, &CaptureFeedback{})
	require.NoError(t, err)
	require.Len(t, rec.runs, 1)
	assert.Same(t, res, rec.runs[0])
	assert.Equal(t, "chm", rec.runs[0].Stage)
	assert.Equal(t, "p-1", rec.runs[0].PipelineRunID)
}

func TestRunner_Run_RecorderFailureIsLogged(t *testing.T) {
	var logged []string
	prev := monitoring.Logger()
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(prev) })

	r, _ := newTestRunner(true)
	r.Recorder = &fakeRecorder{err: errors.New("database is locked")}

	res, err := r.Run(context.Background(), Request{Tool: "lasinfo", Argv: []string{"lasinfo"}}, &CaptureFeedback{})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	require.NotEmpty(t, logged)
	assert.True(t, strings.Contains(strings.Join(logged, "\n"), "database is locked"))
}

func TestRunner_Run_EmptyArgv(t *testing.T) {
	r, _ := newTestRunner(true)
	_, err := r.Run(context.Background(), Request{Tool: "x"}, &CaptureFeedback{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidParam))
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := &lineWriter{fn: func(s string) { lines = append(lines, s) }}

	fmt.Fprint(w, "first li")
	fmt.Fprint(w, "ne\r\n\nprogress 10%\rprogress 20%\r")
	fmt.Fprint(w, "tail without newline")
	assert.Equal(t, []string{"first line", "progress 10%", "progress 20%"}, lines)

	w.Flush()
	assert.Equal(t, "tail without newline", lines[len(lines)-1])
}

func TestRunner_Run_OutputIsBounded(t *testing.T) {
	for _, extra := range []int{5, MaxOutputLines + 10} {
		t.Run(fmt.Sprintf("extra=%d", extra), func(t *testing.T) {
			total := MaxOutputLines + extra
			var out strings.Builder
			for i := 1; i <= total; i++ {
				fmt.Fprintf(&out, "line %d\n", i)
			}
			r, builder := newTestRunner(true)
			builder.SetNextExecutor(&MockCommandExecutor{Output: []byte(out.String())})
			fb := &CaptureFeedback{}

			res, err := r.Run(context.Background(), Request{Tool: "lasinfo", Argv: []string{"lasinfo"}}, fb)
			require.NoError(t, err)

			require.Len(t, res.Output, MaxOutputLines)
			assert.Equal(t, extra, res.OmittedLines)
			assert.Equal(t, fmt.Sprintf("line %d", total), res.Output[MaxOutputLines-1])
			assert.Equal(t, fmt.Sprintf("line %d", extra+1), res.Output[0])
			// the sink still sees everything, plus the banner
			assert.Len(t, fb.Texts(LevelConsole), total+1)
		})
	}
}
