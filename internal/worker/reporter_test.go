package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riel/internal/amqp"
	"riel/internal/core"
)

type fakeEntries struct {
	entries []core.Entry
	gotSpec core.FilterSpec
}

func (f *fakeEntries) Query(_ context.Context, spec core.FilterSpec) ([]core.Entry, error) {
	f.gotSpec = spec
	var out []core.Entry
	for _, e := range f.entries {
		if spec.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeSheet struct {
	appended int
}

func (f *fakeSheet) AppendEntries(_ context.Context, entries []core.Entry, _ *time.Location) error {
	f.appended += len(entries)
	return nil
}

func entryAt(id int64, owner string, ts time.Time, amount string) core.Entry {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	return core.Entry{ID: id, OwnerID: owner, RawText: "x " + amount, Amount: &d, Timestamp: ts}
}

func TestReporter_HandleJob(t *testing.T) {
	dir := t.TempDir()
	source := &fakeEntries{entries: []core.Entry{
		entryAt(1, "alice", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), "100"),
		entryAt(2, "alice", time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC), "-30"),
		// Outside the daily window.
		entryAt(3, "alice", time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC), "999"),
	}}
	sheet := &fakeSheet{}
	r := NewReporter(source, time.UTC, dir, sheet)

	job := &amqp.ReportJob{
		OwnerID:  "alice",
		Period:   "daily",
		IssuedAt: time.Date(2024, 6, 1, 23, 55, 0, 0, time.UTC),
	}
	if err := r.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}

	if source.gotSpec.OwnerID != "alice" {
		t.Errorf("queried owner = %s, want alice", source.gotSpec.OwnerID)
	}

	path := filepath.Join(dir, "alice_daily_report_2024-06-01.csv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "x 100") || !strings.Contains(body, "x -30") {
		t.Errorf("report body missing rows:\n%s", body)
	}
	if strings.Contains(body, "999") {
		t.Errorf("report includes out-of-window entry:\n%s", body)
	}
	if !strings.Contains(body, "total,70") {
		t.Errorf("report missing total row:\n%s", body)
	}

	if sheet.appended != 2 {
		t.Errorf("sheet rows = %d, want 2", sheet.appended)
	}
}

func TestReporter_HandleJob_EmptyWindow(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(&fakeEntries{}, time.UTC, dir, nil)

	job := &amqp.ReportJob{
		OwnerID:  "alice",
		Period:   "daily",
		IssuedAt: time.Date(2024, 6, 1, 23, 55, 0, 0, time.UTC),
	}
	if err := r.HandleJob(context.Background(), job); err != nil {
		t.Fatalf("HandleJob() error = %v", err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("empty window wrote %d files, want none", len(files))
	}
}

func TestReporter_HandleJob_BadPeriod(t *testing.T) {
	r := NewReporter(&fakeEntries{}, time.UTC, t.TempDir(), nil)
	job := &amqp.ReportJob{OwnerID: "alice", Period: "hourly"}
	if err := r.HandleJob(context.Background(), job); err == nil {
		t.Error("HandleJob() should reject unknown period")
	}
}
