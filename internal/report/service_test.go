package report

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riel/internal/core"
)

// memStore is a minimal in-memory Store for facade tests. It mirrors
// the storage contract: newest first, half-open ranges, substring
// category matching, pagination applied after filtering.
type memStore struct {
	nextID  int64
	entries []core.Entry
}

func (m *memStore) Insert(_ context.Context, e core.Entry) (int64, error) {
	m.nextID++
	e.ID = m.nextID
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *memStore) matching(f core.FilterSpec) []core.Entry {
	var out []core.Entry
	for _, e := range m.entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (m *memStore) Query(_ context.Context, f core.FilterSpec) ([]core.Entry, error) {
	out := m.matching(f)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		off := (page - 1) * f.PageSize
		if off >= len(out) {
			return nil, nil
		}
		end := off + f.PageSize
		if end > len(out) {
			end = len(out)
		}
		out = out[off:end]
	}
	return out, nil
}

func (m *memStore) Count(_ context.Context, f core.FilterSpec) (int, error) {
	return len(m.matching(f)), nil
}

func (m *memStore) Get(_ context.Context, ownerID string, id int64) (core.Entry, error) {
	for _, e := range m.entries {
		if e.ID == id && e.OwnerID == ownerID {
			return e, nil
		}
	}
	return core.Entry{}, core.ErrNotFound
}

func (m *memStore) Update(_ context.Context, ownerID string, id int64, fields UpdateFields) (core.Entry, error) {
	for i, e := range m.entries {
		if e.ID == id && e.OwnerID == ownerID {
			if fields.RawText != nil {
				m.entries[i].RawText = *fields.RawText
			}
			if fields.ClearAmount {
				m.entries[i].Amount = nil
			} else if fields.Amount != nil {
				m.entries[i].Amount = fields.Amount
			}
			if fields.Category != nil {
				m.entries[i].Category = *fields.Category
			}
			return m.entries[i], nil
		}
	}
	return core.Entry{}, core.ErrNotFound
}

func (m *memStore) Delete(_ context.Context, ownerID string, id int64) error {
	for i, e := range m.entries {
		if e.ID == id && e.OwnerID == ownerID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteRange(_ context.Context, ownerID string, w core.PeriodWindow) (int64, error) {
	var kept []core.Entry
	var n int64
	for _, e := range m.entries {
		if e.OwnerID == ownerID && w.Contains(e.Timestamp) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return n, nil
}

func seedStore(t *testing.T) *memStore {
	t.Helper()
	st := &memStore{}
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	seed := []struct {
		amount string
		cat    string
		at     time.Time
		text   string
	}{
		{"100", "salary", base, "salary 100"},
		{"-30", "food", base.Add(2 * time.Hour), "paid lunch 30 #food"},
		{"50", "", base.AddDate(0, 0, 1), "50"},
		{"", "", base.AddDate(0, 0, 1).Add(time.Hour), "note without numbers"},
	}
	for _, s := range seed {
		e := core.Entry{OwnerID: "owner-1", RawText: s.text, Category: s.cat, Timestamp: s.at}
		if s.amount != "" {
			d, _ := decimal.NewFromString(s.amount)
			e.Amount = &d
		}
		if _, err := st.Insert(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestListIncludesNoteOnlyEntries(t *testing.T) {
	svc := NewService(seedStore(t), Config{})
	entries, err := svc.List(context.Background(), core.FilterSpec{OwnerID: "owner-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4 (note-only included)", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Fatal("list must be newest first")
		}
	}
}

func TestSumExcludesNoteOnlyEntries(t *testing.T) {
	svc := NewService(seedStore(t), Config{})
	res, err := svc.Sum(context.Background(), core.FilterSpec{OwnerID: "owner-1"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Grand.Total.String() != "120" || res.Grand.Count != 3 {
		t.Fatalf("grand = %+v", res.Grand)
	}
	if len(res.Entries) != 4 {
		t.Fatal("withEntries must still carry note-only rows")
	}
	var daySum decimal.Decimal
	for _, b := range res.Buckets {
		daySum = daySum.Add(b.Total)
	}
	if !daySum.Equal(res.Grand.Total) {
		t.Fatalf("bucket sum %s != grand %s", daySum, res.Grand.Total)
	}
}

func TestTotalWithCategoryFilter(t *testing.T) {
	svc := NewService(seedStore(t), Config{})
	got, err := svc.Total(context.Background(), core.FilterSpec{OwnerID: "owner-1", Category: "foo"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Total.String() != "-30" || got.Count != 1 {
		t.Fatalf("total = %+v", got)
	}
}

func TestBreakdownOrdering(t *testing.T) {
	svc := NewService(seedStore(t), Config{})
	buckets, err := svc.Breakdown(context.Background(), core.FilterSpec{OwnerID: "owner-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 3 {
		t.Fatalf("got %d buckets", len(buckets))
	}
	if buckets[0].Label != "salary" || buckets[1].Label != "uncategorized" || buckets[2].Label != "food" {
		t.Fatalf("order = %s, %s, %s", buckets[0].Label, buckets[1].Label, buckets[2].Label)
	}
}

func TestPageIdempotence(t *testing.T) {
	svc := NewService(seedStore(t), Config{DefaultPageSize: 2})
	f := core.FilterSpec{OwnerID: "owner-1", Page: 1, PageSize: 2}

	first, err := svc.Page(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Page(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	if first.Total != 4 || first.Total != second.Total || len(first.Rows) != len(second.Rows) {
		t.Fatalf("page drifted: %+v vs %+v", first, second)
	}
	for i := range first.Rows {
		if first.Rows[i].ID != second.Rows[i].ID {
			t.Fatal("identical filters must return identical pages")
		}
	}
}

func TestPageClampsSize(t *testing.T) {
	svc := NewService(seedStore(t), Config{MaxPageSize: 3})
	p, err := svc.Page(context.Background(), core.FilterSpec{OwnerID: "owner-1", PageSize: 500})
	if err != nil {
		t.Fatal(err)
	}
	if p.PageSize != 3 {
		t.Fatalf("page size = %d, want clamp to 3", p.PageSize)
	}
}

func TestMalformedFilterRejectedBeforeDataAccess(t *testing.T) {
	svc := NewService(seedStore(t), Config{})
	start := time.Now()
	end := start.Add(-time.Hour)
	if _, err := svc.List(context.Background(), core.FilterSpec{Start: &start, End: &end}); err != core.ErrMalformedFilter {
		t.Fatalf("err = %v, want ErrMalformedFilter", err)
	}
	if _, err := svc.Page(context.Background(), core.FilterSpec{Page: -2}); err != core.ErrMalformedFilter {
		t.Fatalf("err = %v, want ErrMalformedFilter", err)
	}
}

func TestTrendZeroFillsWindows(t *testing.T) {
	svc := NewService(seedStore(t), Config{})
	endingAt := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	buckets, err := svc.Trend(context.Background(), core.FilterSpec{OwnerID: "owner-1"}, core.Daily, 4, endingAt)
	if err != nil {
		t.Fatal(err)
	}
	if len(buckets) != 4 {
		t.Fatalf("got %d windows, want 4", len(buckets))
	}
	wantTotals := []string{"0", "70", "50", "0"} // May 31, Jun 1, Jun 2, Jun 3
	for i, b := range buckets {
		if b.Total.String() != wantTotals[i] {
			t.Fatalf("window %d (%s) total = %s, want %s", i, b.Label, b.Total, wantTotals[i])
		}
	}
}

func TestEmptyResultIsNotAnError(t *testing.T) {
	svc := NewService(&memStore{}, Config{})
	entries, err := svc.List(context.Background(), core.FilterSpec{OwnerID: "ghost"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatal("expected empty result")
	}
	total, err := svc.Total(context.Background(), core.FilterSpec{OwnerID: "ghost"})
	if err != nil {
		t.Fatal(err)
	}
	if !total.Total.IsZero() || total.Count != 0 {
		t.Fatalf("total = %+v", total)
	}
}
