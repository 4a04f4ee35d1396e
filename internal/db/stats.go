package db

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ToolStats summarises the stored runs of one tool. Durations are in
// seconds; dry runs are not counted.
type ToolStats struct {
	Tool     string  `json:"tool"`
	Count    int     `json:"count"`
	OK       int     `json:"ok"`
	Warning  int     `json:"warning"`
	Error    int     `json:"error"`
	Mean     float64 `json:"mean_s"`
	StdDev   float64 `json:"stddev_s"`
	Median   float64 `json:"median_s"`
	P95      float64 `json:"p95_s"`
	Shortest float64 `json:"min_s"`
	Longest  float64 `json:"max_s"`
}

// Stats returns per-tool duration statistics for runs started at or after
// since, ordered by tool name.
func (db *DB) Stats(ctx context.Context, since time.Time) ([]ToolStats, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT tool, status, duration_ns
		FROM lastools_runs
		WHERE status != 'dry_run' AND started_at_ns >= ?`, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query run durations: %w", err)
	}
	defer rows.Close()

	type acc struct {
		ToolStats
		durations []float64
	}
	byTool := make(map[string]*acc)
	for rows.Next() {
		var (
			tool, status string
			durationNs   int64
		)
		if err := rows.Scan(&tool, &status, &durationNs); err != nil {
			return nil, fmt.Errorf("scan run duration: %w", err)
		}
		a, ok := byTool[tool]
		if !ok {
			a = &acc{ToolStats: ToolStats{Tool: tool}}
			byTool[tool] = a
		}
		a.Count++
		switch status {
		case "ok":
			a.OK++
		case "warning":
			a.Warning++
		case "error":
			a.Error++
		}
		a.durations = append(a.durations, time.Duration(durationNs).Seconds())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ToolStats, 0, len(byTool))
	for _, a := range byTool {
		summarize(&a.ToolStats, a.durations)
		out = append(out, a.ToolStats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out, nil
}

func summarize(s *ToolStats, xs []float64) {
	if len(xs) == 0 {
		return
	}
	sort.Float64s(xs)
	s.Mean = stat.Mean(xs, nil)
	if len(xs) > 1 {
		s.StdDev = stat.StdDev(xs, nil)
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, xs, nil)
	s.P95 = stat.Quantile(0.95, stat.Empirical, xs, nil)
	s.Shortest = xs[0]
	s.Longest = xs[len(xs)-1]
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}
}
