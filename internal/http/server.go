// Package http serves the dashboard JSON API: day and category
// summaries, the paginated entry table, inline mutations, and the CSV
// export route.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"riel/internal/core"
	"riel/internal/report"
)

// EntryMutator covers the write operations the dashboard exposes.
type EntryMutator interface {
	Update(ctx context.Context, ownerID string, id int64, fields report.UpdateFields) (core.Entry, error)
	Delete(ctx context.Context, ownerID string, id int64) error
}

type Server struct {
	http.Server
	reports      *report.Service
	mutator      EntryMutator
	limiter      *rateLimiter
	adminUser    string
	adminPass    string
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
// Every route except the health check requires the admin credentials
// via basic auth.
func NewServer(addr string, reports *report.Service, mutator EntryMutator, adminUser, adminPass string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		reports:   reports,
		mutator:   mutator,
		limiter:   newRateLimiter(120),
		adminUser: adminUser,
		adminPass: adminPass,
	}

	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return s.withTrace(s.withLimit(s.withAuth(withHeaders(h))))
	}

	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/api/summary/day", wrap(s.handleSummaryDay))
	mux.HandleFunc("/api/summary/categories", wrap(s.handleSummaryCategories))
	mux.HandleFunc("/api/entries", wrap(s.handleEntries))
	mux.HandleFunc("/api/entry/update", wrap(s.handleEntryUpdate))
	mux.HandleFunc("/api/entry/delete", wrap(s.handleEntryDelete))
	mux.HandleFunc("/export.csv", wrap(s.handleExportCSV))

	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
