package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusTeapot, "short and stout")

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "short and stout" {
		t.Errorf("error = %q, want 'short and stout'", resp["error"])
	}
}

func TestWriteJSONOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"count": 42})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["count"] != 42 {
		t.Errorf("count = %d, want 42", resp["count"])
	}
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		write func(http.ResponseWriter, string)
		want  int
	}{
		{"bad request", BadRequest, http.StatusBadRequest},
		{"internal", InternalServerError, http.StatusInternalServerError},
		{"not found", NotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec, "nope")
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestDurationParam(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query   string
		want    time.Duration
		wantErr bool
	}{
		{"", time.Hour, false},
		{"?window=24h", 24 * time.Hour, false},
		{"?window=90m", 90 * time.Minute, false},
		{"?window=soon", 0, true},
		{"?window=-1h", 0, true},
		{"?window=0s", 0, true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/x"+tc.query, nil)
		got, err := DurationParam(r, "window", time.Hour)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.query)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.query, err)
		}
		if got != tc.want {
			t.Errorf("%q: got %s, want %s", tc.query, got, tc.want)
		}
	}
}

func TestIntParam(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 50, false},
		{"?limit=0", 0, false},
		{"?limit=7", 7, false},
		{"?limit=-3", 0, true},
		{"?limit=many", 0, true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/x"+tc.query, nil)
		got, err := IntParam(r, "limit", 50)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.query)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.query, err)
		}
		if got != tc.want {
			t.Errorf("%q: got %d, want %d", tc.query, got, tc.want)
		}
	}
}
