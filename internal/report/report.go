// Package report renders the run history as charts: an HTML page built
// with go-echarts and a PNG scatter of run durations built with gonum/plot.
package report

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"tailscale.com/tsweb"

	"github.com/banshee-data/lasrun/internal/db"
	"github.com/banshee-data/lasrun/internal/httputil"
)

// DefaultWindow is how far back a report looks when no window is given.
const DefaultWindow = 30 * 24 * time.Hour

// AssetsHost serves the echarts javascript. Empty uses the go-echarts default.
var AssetsHost = ""

// Source is the part of the run history a report reads.
type Source interface {
	Stats(ctx context.Context, since time.Time) ([]db.ToolStats, error)
	ListRuns(ctx context.Context, f db.RunFilter) ([]*db.Run, error)
	GetRun(ctx context.Context, runID string) (*db.Run, error)
	ListPipelineRuns(ctx context.Context, limit int) ([]*db.PipelineRun, error)
}

// statusColors keeps the PNG legend stable across reports.
var statusColors = map[string]color.Color{
	"ok":      color.RGBA{R: 46, G: 139, B: 87, A: 255},
	"warning": color.RGBA{R: 218, G: 165, B: 32, A: 255},
	"error":   color.RGBA{R: 178, G: 34, B: 34, A: 255},
}

var statusOrder = []string{"ok", "warning", "error"}

// WriteHTML renders a page with a duration bar chart (mean and p95 per
// tool) and a stacked status breakdown.
func WriteHTML(w io.Writer, stats []db.ToolStats, subtitle string) error {
	tools := make([]string, len(stats))
	mean := make([]opts.BarData, len(stats))
	p95 := make([]opts.BarData, len(stats))
	ok := make([]opts.BarData, len(stats))
	warn := make([]opts.BarData, len(stats))
	fail := make([]opts.BarData, len(stats))
	for i, s := range stats {
		tools[i] = s.Tool
		mean[i] = opts.BarData{Value: round2(s.Mean)}
		p95[i] = opts.BarData{Value: round2(s.P95)}
		ok[i] = opts.BarData{Value: s.OK}
		warn[i] = opts.BarData{Value: s.Warning}
		fail[i] = opts.BarData{Value: s.Error}
	}

	durations := charts.NewBar()
	durations.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "LAStools run report", Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Run duration (s)", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tool", AxisLabel: &opts.AxisLabel{Rotate: 30}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)
	durations.SetXAxis(tools).
		AddSeries("mean", mean).
		AddSeries("p95", p95)

	statuses := charts.NewBar()
	statuses.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Runs by status", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tool", AxisLabel: &opts.AxisLabel{Rotate: 30}}),
	)
	statuses.SetXAxis(tools).
		AddSeries("ok", ok, charts.WithBarChartOpts(opts.BarChart{Stack: "status"})).
		AddSeries("warning", warn, charts.WithBarChartOpts(opts.BarChart{Stack: "status"})).
		AddSeries("error", fail, charts.WithBarChartOpts(opts.BarChart{Stack: "status"}))

	page := components.NewPage()
	if AssetsHost != "" {
		page.SetAssetsHost(AssetsHost)
	}
	page.PageTitle = "LAStools run report"
	page.AddCharts(durations, statuses)
	return page.Render(w)
}

// WritePNG plots the duration of every run against its start time, one
// series per status.
func WritePNG(w io.Writer, runs []*db.Run) error {
	p := plot.New()
	p.Title.Text = "LAStools run durations"
	p.X.Label.Text = "Started"
	p.Y.Label.Text = "Duration (s)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "01-02 15:04"}
	p.Add(plotter.NewGrid())

	byStatus := make(map[string]plotter.XYs)
	for _, r := range runs {
		byStatus[r.Status] = append(byStatus[r.Status], plotter.XY{
			X: float64(r.StartedAt.Unix()),
			Y: r.Duration.Seconds(),
		})
	}
	for _, status := range statusOrder {
		pts := byStatus[status]
		if len(pts) == 0 {
			continue
		}
		sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("plot %s runs: %w", status, err)
		}
		sc.GlyphStyle.Color = statusColors[status]
		sc.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(sc)
		p.Legend.Add(status, sc)
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// AttachAdminRoutes adds the report pages to the debug mux.
func AttachAdminRoutes(mux *http.ServeMux, src Source) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("report", "LAStools run report (?window=720h)", htmlHandler(src))
	debug.HandleFunc("report.png", "LAStools run durations as PNG (?window=720h)", pngHandler(src))
	debug.HandleFunc("runs.json", "Recent runs as JSON (?tool=&status=&pipeline=&window=&limit=)", runsHandler(src))
	debug.HandleFunc("run.json", "One run with its output (?id=)", runHandler(src))
	debug.HandleFunc("pipelines.json", "Recent pipeline runs as JSON (?limit=)", pipelinesHandler(src))
	debug.HandleFunc("stats.json", "Per-tool duration statistics as JSON (?window=)", statsHandler(src))
}

func windowFrom(r *http.Request) (time.Duration, error) {
	return httputil.DurationParam(r, "window", DefaultWindow)
}

func htmlHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := windowFrom(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		since := time.Now().Add(-window)
		stats, err := src.Stats(r.Context(), since)
		if err != nil {
			http.Error(w, fmt.Sprintf("load stats: %v", err), http.StatusInternalServerError)
			return
		}
		var buf bytes.Buffer
		if err := WriteHTML(&buf, stats, "since "+since.UTC().Format(time.RFC3339)); err != nil {
			http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}

func pngHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := windowFrom(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		runs, err := src.ListRuns(r.Context(), db.RunFilter{Since: time.Now().Add(-window)})
		if err != nil {
			http.Error(w, fmt.Sprintf("load runs: %v", err), http.StatusInternalServerError)
			return
		}
		var buf bytes.Buffer
		if err := WritePNG(&buf, runs); err != nil {
			http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}
}
