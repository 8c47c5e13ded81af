// Package core implements the entry-parsing and aggregation engine:
// numeral normalization across scripts, sign and category inference,
// period windows and bucketed sums. It holds no state between calls;
// every operation is a pure function of its inputs.
package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodKind selects a reporting bucket size.
type PeriodKind string

const (
	Daily   PeriodKind = "daily"
	Weekly  PeriodKind = "weekly"
	Monthly PeriodKind = "monthly"
)

// GroupBy selects the aggregation key.
type GroupBy string

const (
	GroupByNone     GroupBy = "none"
	GroupByDay      GroupBy = "day"
	GroupByCategory GroupBy = "category"
)

// Uncategorized is the reserved bucket label for entries without a category.
const Uncategorized = "uncategorized"

var (
	ErrMalformedFilter = errors.New("malformed filter")
	ErrUnknownPeriod   = errors.New("unknown period")
	ErrNotFound        = errors.New("entry not found")
)

// Entry is one logged record, scoped to exactly one owner.
type Entry struct {
	ID        int64
	OwnerID   string
	RawText   string
	Amount    *decimal.Decimal // nil when no numeral was detected
	Category  string           // empty when unset
	Timestamp time.Time
}

// HasAmount reports whether a numeral was detected at creation time.
func (e Entry) HasAmount() bool {
	return e.Amount != nil
}

// Candidate is the result of extracting one raw message. It carries no ID:
// assignment happens at insert time, owned by the persistence layer.
type Candidate struct {
	OwnerID   string
	RawText   string
	Amount    *decimal.Decimal
	Category  string
	Timestamp time.Time
}

// Entry converts the candidate into an unsaved Entry.
func (c Candidate) Entry() Entry {
	return Entry{
		OwnerID:   c.OwnerID,
		RawText:   c.RawText,
		Amount:    c.Amount,
		Category:  c.Category,
		Timestamp: c.Timestamp,
	}
}

// FilterSpec narrows a reporting operation. Start/End are half-open:
// an entry matches when Start <= Timestamp < End. Category matches as a
// case-insensitive substring. OwnerID may be empty for the admin dashboard,
// which aggregates across owners; chat operations always set it.
type FilterSpec struct {
	OwnerID  string
	Category string
	Start    *time.Time
	End      *time.Time
	Page     int // 1-based, 0 means first page
	PageSize int // 0 means caller default
}

// Validate rejects filters before any data access happens.
func (f FilterSpec) Validate() error {
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return ErrMalformedFilter
	}
	if f.Page < 0 || f.PageSize < 0 {
		return ErrMalformedFilter
	}
	return nil
}

// Matches reports whether e passes the owner, time and category
// constraints. Pagination fields are ignored here.
func (f FilterSpec) Matches(e Entry) bool {
	if f.OwnerID != "" && e.OwnerID != f.OwnerID {
		return false
	}
	if f.Start != nil && e.Timestamp.Before(*f.Start) {
		return false
	}
	if f.End != nil && !e.Timestamp.Before(*f.End) {
		return false
	}
	if f.Category != "" && !strings.Contains(strings.ToLower(e.Category), strings.ToLower(f.Category)) {
		return false
	}
	return true
}

// WithWindow returns a copy of f narrowed to the window w. The tighter
// bound wins on each side.
func (f FilterSpec) WithWindow(w PeriodWindow) FilterSpec {
	out := f
	if out.Start == nil || w.Start.After(*out.Start) {
		s := w.Start
		out.Start = &s
	}
	if out.End == nil || w.End.Before(*out.End) {
		e := w.End
		out.End = &e
	}
	return out
}

// BucketedSum is one row of an aggregation result.
type BucketedSum struct {
	Label    string
	Total    decimal.Decimal
	Count    int
	Positive decimal.Decimal
	Negative decimal.Decimal
}

// PeriodWindow is a half-open instant range [Start, End) with a label
// suitable for humans and filenames.
type PeriodWindow struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
	Label string
}

// Contains reports whether t falls inside the window.
func (w PeriodWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Page is the envelope returned by table-style listing operations.
type Page struct {
	Rows     []Entry
	Total    int
	Page     int
	PageSize int
}

// ParsePeriod maps a user-supplied keyword to a PeriodKind.
func ParsePeriod(s string) (PeriodKind, error) {
	switch PeriodKind(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	}
	return "", ErrUnknownPeriod
}
