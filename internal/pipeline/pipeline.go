// Package pipeline runs multi-stage LAStools workflows: the built-in
// flightline and huge-file pipelines, and declarative pipelines loaded from
// HCL files. Stages run one after another; intermediate files live in a
// per-run work directory and are named by suffix convention.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/lasrun/internal/lastools"
	"github.com/banshee-data/lasrun/internal/monitoring"
)

// FlagHaltOnError stops a pipeline at its first failed stage.
const FlagHaltOnError = "halt_on_error"

var logf = monitoring.Prefixed("pipeline")

// newRunID is replaced in tests.
var newRunID = uuid.NewString

// Stage is one command line of a pipeline.
type Stage struct {
	Name string
	Tool string
	Argv []string
}

// Pipeline is an ordered list of stages ready to run.
type Pipeline struct {
	ID          string
	Name        string
	Stages      []Stage
	HaltOnError bool
}

// Execute runs the stages of p in order. A failed stage is reported and
// the next stage still runs, unless p.HaltOnError is set. Cancellation
// always stops the pipeline. The returned results hold one entry per stage
// that was started.
func Execute(ctx context.Context, env *lastools.Env, p *Pipeline, fb lastools.Feedback) ([]*lastools.Result, error) {
	if p.ID == "" {
		p.ID = newRunID()
	}
	run := &lastools.PipelineRun{
		ID:        p.ID,
		Name:      p.Name,
		Stages:    len(p.Stages),
		StartedAt: env.Runner.Clock.Now(),
	}

	var (
		results []*lastools.Result
		runErr  error
	)
	for i, st := range p.Stages {
		fb.PushInfo(fmt.Sprintf("%s: stage %d/%d %s", p.Name, i+1, len(p.Stages), st.Name))
		res, err := env.Runner.Run(ctx, lastools.Request{
			Tool:          st.Tool,
			Stage:         st.Name,
			PipelineRunID: p.ID,
			Argv:          st.Argv,
		}, fb)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			run.Failed++
			if ctx.Err() != nil || p.HaltOnError {
				runErr = fmt.Errorf("stage %s: %w", st.Name, err)
				break
			}
			fb.PushWarning(fmt.Sprintf("stage %s could not run, continuing: %v", st.Name, err))
			continue
		}
		if res.Status == lastools.StatusError {
			run.Failed++
			if p.HaltOnError {
				runErr = fmt.Errorf("stage %s: %w", st.Name, res.Err())
				break
			}
			fb.PushWarning(fmt.Sprintf("stage %s failed, continuing", st.Name))
		}
	}

	run.Duration = env.Runner.Clock.Since(run.StartedAt)
	run.Status = summarize(results, run.Failed, env.Runner.DryRun)
	logf("%s %s: %d/%d stage(s) failed in %s", p.Name, run.Status, run.Failed, run.Stages, run.Duration)
	record(ctx, env.Runner, run)
	return results, runErr
}

func summarize(results []*lastools.Result, failed int, dryRun bool) lastools.Status {
	switch {
	case failed > 0:
		return lastools.StatusError
	case dryRun:
		return lastools.StatusDryRun
	}
	for _, r := range results {
		if r.Status == lastools.StatusWarning {
			return lastools.StatusWarning
		}
	}
	return lastools.StatusOK
}

func record(ctx context.Context, r *lastools.Runner, run *lastools.PipelineRun) {
	pr, ok := r.Recorder.(lastools.PipelineRecorder)
	if !ok {
		return
	}
	if err := pr.RecordPipelineRun(context.WithoutCancel(ctx), run); err != nil {
		logf("failed to record pipeline run %s: %v", run.ID, err)
	}
}
