package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"riel/internal/core"
)

// parseFilter builds a FilterSpec from the common query parameters:
// user, start, end (dates in the service zone, end exclusive), category,
// page, page_size.
func (s *Server) parseFilter(r *http.Request) (core.FilterSpec, error) {
	q := r.URL.Query()
	f := core.FilterSpec{
		OwnerID:  strings.TrimSpace(q.Get("user")),
		Category: strings.TrimSpace(q.Get("category")),
	}

	loc := s.reports.Location()
	if v := strings.TrimSpace(q.Get("start")); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return core.FilterSpec{}, core.ErrMalformedFilter
		}
		f.Start = &t
	}
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return core.FilterSpec{}, core.ErrMalformedFilter
		}
		f.End = &t
	}

	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return core.FilterSpec{}, core.ErrMalformedFilter
		}
		f.Page = n
	}
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return core.FilterSpec{}, core.ErrMalformedFilter
		}
		f.PageSize = n
	}

	if err := f.Validate(); err != nil {
		return core.FilterSpec{}, err
	}
	return f, nil
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed encoding JSON response", "error", err)
	}
}

// httpError maps domain errors onto status codes.
func (s *Server) httpError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrMalformedFilter), errors.Is(err, core.ErrUnknownPeriod):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, core.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
