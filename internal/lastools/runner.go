package lastools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lasrun/internal/monitoring"
	"github.com/banshee-data/lasrun/internal/timeutil"
)

// ErrToolFailed is returned when a tool ends in the error bucket.
var ErrToolFailed = errors.New("LAStools tool failed")

// Status is the outcome bucket of one run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusDryRun  Status = "dry_run"
)

// Result describes one executed command line.
type Result struct {
	RunID         string
	PipelineRunID string
	Tool          string
	Stage         string
	CommandLine   string
	Argv          []string
	ExitCode      int
	Status        Status
	Errors        int
	Warnings      int
	Output        []string
	// OmittedLines counts console lines dropped from the front of Output.
	OmittedLines  int
	StartedAt     time.Time
	Duration      time.Duration
}

// Err returns an error wrapping ErrToolFailed when the run failed.
func (r *Result) Err() error {
	if r.Status != StatusError {
		return nil
	}
	return fmt.Errorf("%w: %s exited %d with %d error line(s)", ErrToolFailed, r.Tool, r.ExitCode, r.Errors)
}

// Recorder stores finished runs, usually in the run history.
type Recorder interface {
	RecordRun(ctx context.Context, res *Result) error
}

// Request is one command line to run.
type Request struct {
	Tool          string
	Stage         string
	PipelineRunID string
	Argv          []string
}

// Runner executes LAStools command lines and classifies their output.
type Runner struct {
	Builder CommandBuilder
	Clock   timeutil.Clock
	// TrustExitCode makes a non-zero exit code an error even without
	// ERROR: lines. See Locator.ExitCodeReliable.
	TrustExitCode bool
	// DryRun logs command lines without executing them.
	DryRun bool
	// Recorder, when set, receives every run. Recording failures are
	// logged and do not fail the run.
	Recorder Recorder
}

// NewRunner creates a Runner that executes real processes.
func NewRunner(trustExitCode bool) *Runner {
	return &Runner{
		Builder:       NewRealCommandBuilder(),
		Clock:         timeutil.RealClock{},
		TrustExitCode: trustExitCode,
	}
}

// Run executes req.Argv and streams its console output to fb. The returned
// error is non-nil only when the process could not be run; a tool that
// ran and failed reports StatusError in the Result.
func (r *Runner) Run(ctx context.Context, req Request, fb Feedback) (*Result, error) {
	if len(req.Argv) == 0 {
		return nil, fmt.Errorf("%w: empty command line", ErrInvalidParam)
	}
	res := &Result{
		RunID:         uuid.NewString(),
		PipelineRunID: req.PipelineRunID,
		Tool:          req.Tool,
		Stage:         req.Stage,
		Argv:          req.Argv,
		CommandLine:   JoinCommandLine(req.Argv),
		StartedAt:     r.Clock.Now(),
	}

	fb.PushCommandInfo("LAStools command line")
	fb.PushCommandInfo(res.CommandLine)

	if r.DryRun {
		res.Status = StatusDryRun
		fb.PushInfo("dry run: command not executed")
		return res, nil
	}

	monitoring.Debugf("running %s (stage=%q pipeline=%q)", req.Tool, req.Stage, req.PipelineRunID)
	fb.PushConsoleInfo("LAStools console output")

	lw := &lineWriter{fn: func(line string) { r.classify(res, line, fb) }}
	exe := r.Builder.BuildCommand(ctx, req.Argv[0], req.Argv[1:]...)
	code, err := exe.Run(lw)
	lw.Flush()
	trimOutput(res, MaxOutputLines)
	res.ExitCode = code
	res.Duration = r.Clock.Since(res.StartedAt)

	if err != nil {
		res.Status = StatusError
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		fb.ReportError(fmt.Sprintf("%s: %v", req.Tool, err))
		r.record(ctx, res)
		return res, fmt.Errorf("running %s: %w", req.Tool, err)
	}

	res.Status = r.status(res)
	r.record(ctx, res)
	return res, nil
}

// MaxOutputLines bounds Result.Output to the most recent console lines.
// The feedback sink still receives every line.
const MaxOutputLines = 1000

func trimOutput(res *Result, keep int) {
	if n := len(res.Output) - keep; n > 0 {
		res.OmittedLines += n
		res.Output = append([]string(nil), res.Output[n:]...)
	}
}

func (r *Runner) classify(res *Result, line string, fb Feedback) {
	res.Output = append(res.Output, line)
	if len(res.Output) >= 2*MaxOutputLines {
		trimOutput(res, MaxOutputLines)
	}
	switch {
	case strings.Contains(line, "ERROR:"):
		res.Errors++
		fb.ReportError(line)
	case strings.Contains(line, "WARNING:"):
		res.Warnings++
		fb.PushWarning(line)
	default:
		fb.PushConsoleInfo(line)
	}
}

func (r *Runner) status(res *Result) Status {
	switch {
	case res.Errors > 0:
		return StatusError
	case r.TrustExitCode && res.ExitCode != 0:
		return StatusError
	case res.Warnings > 0:
		return StatusWarning
	default:
		return StatusOK
	}
}

func (r *Runner) record(ctx context.Context, res *Result) {
	if r.Recorder == nil {
		return
	}
	// record even when ctx was cancelled mid-run
	if err := r.Recorder.RecordRun(context.WithoutCancel(ctx), res); err != nil {
		monitoring.Logf("[lastools] failed to record run %s: %v", res.RunID, err)
	}
}

// lineWriter splits a byte stream into lines. LAStools prints progress with
// bare carriage returns, so both \n and \r end a line.
type lineWriter struct {
	buf bytes.Buffer
	fn  func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		line := string(data[:i])
		w.buf.Next(i + 1)
		if strings.TrimSpace(line) != "" {
			w.fn(line)
		}
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	if line := w.buf.String(); strings.TrimSpace(line) != "" {
		w.fn(line)
	}
	w.buf.Reset()
}

// PipelineRun summarises one multi-stage run.
type PipelineRun struct {
	ID        string
	Name      string
	Status    Status
	Stages    int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// PipelineRecorder is implemented by recorders that also store pipeline
// summaries.
type PipelineRecorder interface {
	RecordPipelineRun(ctx context.Context, run *PipelineRun) error
}
