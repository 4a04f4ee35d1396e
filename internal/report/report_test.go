package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lasrun/internal/db"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

type fakeSource struct {
	stats     []db.ToolStats
	runs      []*db.Run
	pipelines []*db.PipelineRun
	err       error
	since     time.Time
	filter    db.RunFilter
	limit     int
}

func (f *fakeSource) Stats(_ context.Context, since time.Time) ([]db.ToolStats, error) {
	f.since = since
	return f.stats, f.err
}

func (f *fakeSource) ListRuns(_ context.Context, filter db.RunFilter) ([]*db.Run, error) {
	f.since = filter.Since
	f.filter = filter
	return f.runs, f.err
}

func (f *fakeSource) GetRun(_ context.Context, runID string) (*db.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.runs {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("run %s: %w", runID, db.ErrNotFound)
}

func (f *fakeSource) ListPipelineRuns(_ context.Context, limit int) ([]*db.PipelineRun, error) {
	f.limit = limit
	return f.pipelines, f.err
}

func sampleStats() []db.ToolStats {
	return []db.ToolStats{
		{Tool: "las2dem", Count: 3, OK: 2, Warning: 1, Mean: 4.2, P95: 7.9},
		{Tool: "lasground_pro", Count: 2, OK: 1, Error: 1, Mean: 61.5, P95: 80},
	}
}

func sampleRuns() []*db.Run {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []*db.Run{
		{RunID: "a", Tool: "las2dem", Status: "ok", StartedAt: start, Duration: 3 * time.Second},
		{RunID: "b", Tool: "las2dem", Status: "warning", StartedAt: start.Add(time.Hour), Duration: 5 * time.Second},
		{RunID: "c", Tool: "lasground_pro", Status: "error", StartedAt: start.Add(2 * time.Hour), Duration: time.Minute},
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleStats(), "last week"))

	page := buf.String()
	assert.Contains(t, page, "LAStools run report")
	assert.Contains(t, page, "lasground_pro")
	assert.Contains(t, page, "Runs by status")
	assert.Contains(t, page, "echarts")
}

func TestWriteHTML_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, nil, ""))
	assert.Contains(t, buf.String(), "Run duration (s)")
}

func TestWritePNG(t *testing.T) {
	for name, runs := range map[string][]*db.Run{
		"runs":  sampleRuns(),
		"empty": nil,
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WritePNG(&buf, runs))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic), "output is not a PNG")
		})
	}
}

func TestHTMLHandler(t *testing.T) {
	src := &fakeSource{stats: sampleStats()}
	rec := httptest.NewRecorder()
	htmlHandler(src)(rec, httptest.NewRequest(http.MethodGet, "/debug/report?window=24h", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "las2dem")
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), src.since, time.Minute)
}

func TestPNGHandler(t *testing.T) {
	src := &fakeSource{runs: sampleRuns()}
	rec := httptest.NewRecorder()
	pngHandler(src)(rec, httptest.NewRequest(http.MethodGet, "/debug/report.png", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))
	assert.WithinDuration(t, time.Now().Add(-DefaultWindow), src.since, time.Minute)
}

func TestHandlers_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  string
		want    int
	}{
		{"bad window", htmlHandler(&fakeSource{}), "/debug/report?window=soon", http.StatusBadRequest},
		{"negative window", pngHandler(&fakeSource{}), "/debug/report.png?window=-1h", http.StatusBadRequest},
		{"stats failure", htmlHandler(&fakeSource{err: errors.New("disk gone")}), "/debug/report", http.StatusInternalServerError},
		{"runs failure", pngHandler(&fakeSource{err: errors.New("disk gone")}), "/debug/report.png", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAttachAdminRoutes(t *testing.T) {
	mux := http.NewServeMux()
	AttachAdminRoutes(mux, &fakeSource{})

	for _, path := range []string{"/debug/report", "/debug/report.png", "/debug/runs.json", "/debug/run.json", "/debug/pipelines.json", "/debug/stats.json"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		// tsweb refuses non-local callers; a 404 would mean the route is missing
		assert.NotEqual(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 4.2, round2(4.2))
	assert.Equal(t, 0.33, round2(1.0/3))
}
