package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"riel/internal/core"
	"riel/internal/export"
	"riel/internal/report"
)

type seriesResponse struct {
	Labels []string `json:"labels"`
	Values []string `json:"values"`
}

type entryRow struct {
	ID       int64  `json:"id"`
	OwnerID  string `json:"owner_id"`
	WhenISO  string `json:"when_iso"`
	Category string `json:"category"`
	Text     string `json:"text"`
	Amount   string `json:"amount"`
}

type pageResponse struct {
	Rows     []entryRow `json:"rows"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Total    int        `json:"total"`
}

// handleSummaryDay returns per-day totals for the filtered set as a
// chart-ready label/value series, oldest day first.
func (s *Server) handleSummaryDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, err := s.parseFilter(r)
	if err != nil {
		s.httpError(w, r, err)
		return
	}

	res, err := s.reports.Sum(r.Context(), f, false)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeries(res.Buckets))
}

// handleSummaryCategories returns the top category totals ranked by
// magnitude.
func (s *Server) handleSummaryCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, err := s.parseFilter(r)
	if err != nil {
		s.httpError(w, r, err)
		return
	}

	buckets, err := s.reports.Breakdown(r.Context(), f)
	if err != nil {
		s.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeries(buckets))
}

// handleEntries returns one page of the entry table, newest first.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, err := s.parseFilter(r)
	if err != nil {
		s.httpError(w, r, err)
		return
	}

	page, err := s.reports.Page(r.Context(), f)
	if err != nil {
		s.httpError(w, r, err)
		return
	}

	rows := make([]entryRow, 0, len(page.Rows))
	for _, e := range page.Rows {
		amount := ""
		if e.HasAmount() {
			amount = e.Amount.String()
		}
		rows = append(rows, entryRow{
			ID:       e.ID,
			OwnerID:  e.OwnerID,
			WhenISO:  e.Timestamp.In(s.reports.Location()).Format(time.RFC3339),
			Category: e.Category,
			Text:     e.RawText,
			Amount:   amount,
		})
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Rows:     rows,
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
	})
}

// handleEntryUpdate edits the text, amount, or category of one entry.
// An explicitly empty amount field clears the stored amount.
func (s *Server) handleEntryUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	ownerID := r.PostForm.Get("user_id")
	id, ok := parseID(r.PostForm.Get("entry_id"))
	if ownerID == "" || !ok {
		http.Error(w, "user_id and entry_id are required", http.StatusBadRequest)
		return
	}

	var fields report.UpdateFields
	if r.PostForm.Has("text") {
		text := r.PostForm.Get("text")
		fields.RawText = &text
	}
	if r.PostForm.Has("amount") {
		raw := r.PostForm.Get("amount")
		if raw == "" {
			fields.ClearAmount = true
		} else {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				http.Error(w, "invalid amount", http.StatusBadRequest)
				return
			}
			fields.Amount = &d
		}
	}
	if r.PostForm.Has("category") {
		category := r.PostForm.Get("category")
		fields.Category = &category
	}

	if _, err := s.mutator.Update(r.Context(), ownerID, id, fields); err != nil {
		s.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleEntryDelete removes one entry by id, scoped to its owner.
func (s *Server) handleEntryDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	ownerID := r.PostForm.Get("user_id")
	id, ok := parseID(r.PostForm.Get("entry_id"))
	if ownerID == "" || !ok {
		http.Error(w, "user_id and entry_id are required", http.StatusBadRequest)
		return
	}

	if err := s.mutator.Delete(r.Context(), ownerID, id); err != nil {
		s.httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleExportCSV streams the filtered entries as a CSV attachment.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, err := s.parseFilter(r)
	if err != nil {
		s.httpError(w, r, err)
		return
	}

	entries, err := s.reports.List(r.Context(), f)
	if err != nil {
		s.httpError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="export.csv"`)
	if err := export.WriteCSV(w, entries, s.reports.Location()); err != nil {
		slog.ErrorContext(r.Context(), "Failed streaming CSV export", "error", err)
	}
}

func toSeries(buckets []core.BucketedSum) seriesResponse {
	res := seriesResponse{Labels: make([]string, 0, len(buckets)), Values: make([]string, 0, len(buckets))}
	for _, b := range buckets {
		res.Labels = append(res.Labels, b.Label)
		res.Values = append(res.Values, b.Total.String())
	}
	return res
}
