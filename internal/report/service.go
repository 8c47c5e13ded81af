// Package report exposes the reporting facade consumed by the chat and
// web transports. Every operation is a pure function of its filter and
// the persisted entry set; mutation stays with the storage layer.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"riel/internal/core"
)

// Store is the data-access interface the facade requires from the
// persistence layer. Every call carries the owner partition key; Query
// orders newest first and applies the filter's time, category and
// pagination constraints.
type Store interface {
	Insert(ctx context.Context, e core.Entry) (int64, error)
	Query(ctx context.Context, f core.FilterSpec) ([]core.Entry, error)
	Count(ctx context.Context, f core.FilterSpec) (int, error)
	Get(ctx context.Context, ownerID string, id int64) (core.Entry, error)
	Update(ctx context.Context, ownerID string, id int64, fields UpdateFields) (core.Entry, error)
	Delete(ctx context.Context, ownerID string, id int64) error
	DeleteRange(ctx context.Context, ownerID string, w core.PeriodWindow) (int64, error)
}

// UpdateFields selects which entry fields an update touches. Nil leaves
// a field alone; ClearAmount removes the amount regardless of Amount.
type UpdateFields struct {
	RawText     *string
	Amount      *decimal.Decimal
	ClearAmount bool
	Category    *string
}

// Config tunes the facade. Zero values fall back to the defaults below.
type Config struct {
	Location        *time.Location
	BreakdownTopK   int
	DefaultPageSize int
	MaxPageSize     int
}

const (
	defaultBreakdownTopK = 12
	defaultPageSize      = 20
	maxPageSize          = 200
)

// Service is the reporting facade over a Store.
type Service struct {
	store Store
	cfg   Config
}

// NewService builds the facade, filling config defaults.
func NewService(store Store, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.BreakdownTopK <= 0 {
		cfg.BreakdownTopK = defaultBreakdownTopK
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = maxPageSize
	}
	return &Service{store: store, cfg: cfg}
}

// Location returns the configured owner calendar zone.
func (s *Service) Location() *time.Location {
	return s.cfg.Location
}

// SumResult bundles grouped sums with the grand total, and optionally
// the matching entries themselves (the chat /sum view shows both).
type SumResult struct {
	Entries []core.Entry // nil unless requested
	Buckets []core.BucketedSum
	Grand   core.BucketedSum
}

// List returns matching entries newest first. Note-only entries are
// included; a zero-match result is an empty slice, not an error.
func (s *Service) List(ctx context.Context, f core.FilterSpec) ([]core.Entry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.store.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return entries, nil
}

// Sum aggregates the filtered set by day. With withEntries the matching
// entries ride along for rendering next to the totals.
func (s *Service) Sum(ctx context.Context, f core.FilterSpec, withEntries bool) (SumResult, error) {
	if err := f.Validate(); err != nil {
		return SumResult{}, err
	}
	entries, err := s.store.Query(ctx, withoutPagination(f))
	if err != nil {
		return SumResult{}, fmt.Errorf("query entries: %w", err)
	}

	buckets, err := core.Aggregate(entries, core.GroupByDay, f, s.cfg.Location, 0)
	if err != nil {
		return SumResult{}, err
	}
	grand, err := core.Aggregate(entries, core.GroupByNone, f, s.cfg.Location, 0)
	if err != nil {
		return SumResult{}, err
	}

	res := SumResult{Buckets: buckets, Grand: grand[0]}
	if withEntries {
		res.Entries = entries
	}
	return res, nil
}

// Total returns the grand total bucket for the filtered set.
func (s *Service) Total(ctx context.Context, f core.FilterSpec) (core.BucketedSum, error) {
	res, err := s.Sum(ctx, f, false)
	if err != nil {
		return core.BucketedSum{}, err
	}
	return res.Grand, nil
}

// Breakdown returns category-grouped totals ranked by magnitude,
// capped to the configured top-K.
func (s *Service) Breakdown(ctx context.Context, f core.FilterSpec) ([]core.BucketedSum, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.store.Query(ctx, withoutPagination(f))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return core.Aggregate(entries, core.GroupByCategory, f, s.cfg.Location, s.cfg.BreakdownTopK)
}

// Page returns one table page plus the total row count for the filter.
func (s *Service) Page(ctx context.Context, f core.FilterSpec) (core.Page, error) {
	if err := f.Validate(); err != nil {
		return core.Page{}, err
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = s.cfg.DefaultPageSize
	}
	if f.PageSize > s.cfg.MaxPageSize {
		f.PageSize = s.cfg.MaxPageSize
	}

	total, err := s.store.Count(ctx, f)
	if err != nil {
		return core.Page{}, fmt.Errorf("count entries: %w", err)
	}
	rows, err := s.store.Query(ctx, f)
	if err != nil {
		return core.Page{}, fmt.Errorf("query entries: %w", err)
	}
	return core.Page{Rows: rows, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// Trend returns one grand-total bucket per consecutive window, oldest
// first, zero-filled where a window has no entries. Drives trend charts.
func (s *Service) Trend(ctx context.Context, f core.FilterSpec, kind core.PeriodKind, count int, endingAt time.Time) ([]core.BucketedSum, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	windows, err := core.Enumerate(kind, count, endingAt, s.cfg.Location)
	if err != nil {
		return nil, err
	}

	span := f.WithWindow(core.PeriodWindow{Start: windows[0].Start, End: windows[count-1].End})
	entries, err := s.store.Query(ctx, withoutPagination(span))
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}

	buckets := make([]core.BucketedSum, 0, count)
	for _, w := range windows {
		grand, err := core.Aggregate(entries, core.GroupByNone, f.WithWindow(w), s.cfg.Location, 0)
		if err != nil {
			return nil, err
		}
		grand[0].Label = w.Label
		buckets = append(buckets, grand[0])
	}
	return buckets, nil
}

// ResolveWindow is a convenience passthrough so transports resolve
// period keywords against the service's configured zone.
func (s *Service) ResolveWindow(kind core.PeriodKind, ref time.Time) (core.PeriodWindow, error) {
	return core.Resolve(kind, ref, s.cfg.Location)
}

func withoutPagination(f core.FilterSpec) core.FilterSpec {
	f.Page = 0
	f.PageSize = 0
	return f
}
