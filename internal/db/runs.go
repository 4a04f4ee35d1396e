package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lasrun/internal/lastools"
)

// OutputTailLines is how many trailing console lines are kept per run.
const OutputTailLines = 40

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = errors.New("not found")

// Run is one stored command line execution.
type Run struct {
	RunID         string        `json:"run_id"`
	PipelineRunID string        `json:"pipeline_run_id,omitempty"`
	Tool          string        `json:"tool"`
	Stage         string        `json:"stage,omitempty"`
	CommandLine   string        `json:"command_line"`
	ExitCode      int           `json:"exit_code"`
	Status        string        `json:"status"`
	Warnings      int           `json:"warnings"`
	Errors        int           `json:"errors"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	OutputTail    []string      `json:"output_tail,omitempty"`
	Host          string        `json:"host,omitempty"`
}

// PipelineRun is one stored pipeline execution.
type PipelineRun struct {
	PipelineRunID string        `json:"pipeline_run_id"`
	Name          string        `json:"name"`
	Status        string        `json:"status"`
	Stages        int           `json:"stages"`
	Failed        int           `json:"failed"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
}

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	Tool          string
	Status        string
	PipelineRunID string
	Since         time.Time
	Limit         int
}

// RecordRun stores res. It implements lastools.Recorder.
func (db *DB) RecordRun(ctx context.Context, res *lastools.Result) error {
	if res.RunID == "" {
		res.RunID = uuid.New().String()
	}
	tail := res.Output
	if len(tail) > OutputTailLines {
		tail = tail[len(tail)-OutputTailLines:]
	}
	return retryOnBusy(func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO lastools_runs (
				run_id, pipeline_run_id, tool, stage, command_line,
				exit_code, status, warnings, errors,
				started_at_ns, duration_ns, output_tail, host
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, nullString(res.PipelineRunID), res.Tool, nullString(res.Stage), res.CommandLine,
			res.ExitCode, string(res.Status), res.Warnings, res.Errors,
			res.StartedAt.UnixNano(), int64(res.Duration), strings.Join(tail, "\n"), db.Host,
		)
		if err != nil {
			return fmt.Errorf("insert run %s: %w", res.RunID, err)
		}
		return nil
	})
}

// RecordPipelineRun stores run. It implements lastools.PipelineRecorder.
func (db *DB) RecordPipelineRun(ctx context.Context, run *lastools.PipelineRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	return retryOnBusy(func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO lastools_pipeline_runs (
				pipeline_run_id, name, status, stages, failed, started_at_ns, duration_ns
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Name, string(run.Status), run.Stages, run.Failed,
			run.StartedAt.UnixNano(), int64(run.Duration),
		)
		if err != nil {
			return fmt.Errorf("insert pipeline run %s: %w", run.ID, err)
		}
		return nil
	})
}

const runColumns = `run_id, pipeline_run_id, tool, stage, command_line,
	exit_code, status, warnings, errors, started_at_ns, duration_ns, output_tail, host`

// ListRuns returns runs matching f, newest first.
func (db *DB) ListRuns(ctx context.Context, f RunFilter) ([]*Run, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Tool != "" {
		where = append(where, "tool = ?")
		args = append(args, f.Tool)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.PipelineRunID != "" {
		where = append(where, "pipeline_run_id = ?")
		args = append(args, f.PipelineRunID)
	}
	if !f.Since.IsZero() {
		where = append(where, "started_at_ns >= ?")
		args = append(args, f.Since.UnixNano())
	}

	query := "SELECT " + runColumns + " FROM lastools_runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at_ns DESC, run_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given ID or an error wrapping
// ErrNotFound.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM lastools_runs WHERE run_id = ?", runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return r, err
}

// ListPipelineRuns returns the most recent pipeline runs, newest first.
func (db *DB) ListPipelineRuns(ctx context.Context, limit int) ([]*PipelineRun, error) {
	query := `
		SELECT pipeline_run_id, name, status, stages, failed, started_at_ns, duration_ns
		FROM lastools_pipeline_runs
		ORDER BY started_at_ns DESC, pipeline_run_id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []*PipelineRun
	for rows.Next() {
		var (
			p                   PipelineRun
			startedNs, duration int64
		)
		if err := rows.Scan(&p.PipelineRunID, &p.Name, &p.Status, &p.Stages, &p.Failed, &startedNs, &duration); err != nil {
			return nil, fmt.Errorf("scan pipeline run: %w", err)
		}
		p.StartedAt = time.Unix(0, startedNs).UTC()
		p.Duration = time.Duration(duration)
		runs = append(runs, &p)
	}
	return runs, rows.Err()
}

// DeleteBefore removes runs and pipeline runs started before t and
// returns how many run rows were deleted.
func (db *DB) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	var deleted int64
	err := retryOnBusy(func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, "DELETE FROM lastools_runs WHERE started_at_ns < ?", t.UnixNano())
		if err != nil {
			return fmt.Errorf("delete runs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM lastools_pipeline_runs WHERE started_at_ns < ?", t.UnixNano()); err != nil {
			return fmt.Errorf("delete pipeline runs: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r                   Run
		pipelineID, stage   sql.NullString
		tail                sql.NullString
		startedNs, duration int64
	)
	err := s.Scan(
		&r.RunID, &pipelineID, &r.Tool, &stage, &r.CommandLine,
		&r.ExitCode, &r.Status, &r.Warnings, &r.Errors,
		&startedNs, &duration, &tail, &r.Host,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	r.PipelineRunID = pipelineID.String
	r.Stage = stage.String
	r.StartedAt = time.Unix(0, startedNs).UTC()
	r.Duration = time.Duration(duration)
	if tail.Valid && tail.String != "" {
		r.OutputTail = strings.Split(tail.String, "\n")
	}
	return &r, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
