package report

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/banshee-data/lasrun/internal/db"
	"github.com/banshee-data/lasrun/internal/httputil"
)

const defaultListLimit = 50

// runsHandler lists runs newest first. The window only applies when given.
func runsHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, err := httputil.IntParam(r, "limit", defaultListLimit)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		f := db.RunFilter{
			Tool:          q.Get("tool"),
			Status:        q.Get("status"),
			PipelineRunID: q.Get("pipeline"),
			Limit:         limit,
		}
		if q.Get("window") != "" {
			window, err := windowFrom(r)
			if err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
			f.Since = time.Now().Add(-window)
		}
		runs, err := src.ListRuns(r.Context(), f)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("load runs: %v", err))
			return
		}
		if runs == nil {
			runs = []*db.Run{}
		}
		httputil.WriteJSONOK(w, runs)
	}
}

func runHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			httputil.BadRequest(w, "missing id")
			return
		}
		run, err := src.GetRun(r.Context(), id)
		switch {
		case errors.Is(err, db.ErrNotFound):
			httputil.NotFound(w, err.Error())
		case err != nil:
			httputil.InternalServerError(w, fmt.Sprintf("load run: %v", err))
		default:
			httputil.WriteJSONOK(w, run)
		}
	}
}

func pipelinesHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := httputil.IntParam(r, "limit", defaultListLimit)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		runs, err := src.ListPipelineRuns(r.Context(), limit)
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("load pipeline runs: %v", err))
			return
		}
		if runs == nil {
			runs = []*db.PipelineRun{}
		}
		httputil.WriteJSONOK(w, runs)
	}
}

func statsHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, err := windowFrom(r)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		stats, err := src.Stats(r.Context(), time.Now().Add(-window))
		if err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("load stats: %v", err))
			return
		}
		if stats == nil {
			stats = []db.ToolStats{}
		}
		httputil.WriteJSONOK(w, stats)
	}
}
