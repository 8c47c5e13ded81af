package worker

import (
	"context"
	"testing"
	"time"

	"riel/internal/amqp"
	"riel/internal/core"
)

func TestNextRun_Daily(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "morning runs same day",
			after: time.Date(2024, 6, 1, 9, 0, 0, 0, loc),
			want:  time.Date(2024, 6, 1, 23, 55, 0, 0, loc),
		},
		{
			name:  "past 23:55 runs next day",
			after: time.Date(2024, 6, 1, 23, 56, 0, 0, loc),
			want:  time.Date(2024, 6, 2, 23, 55, 0, 0, loc),
		},
		{
			name:  "exactly 23:55 runs next day",
			after: time.Date(2024, 6, 1, 23, 55, 0, 0, loc),
			want:  time.Date(2024, 6, 2, 23, 55, 0, 0, loc),
		},
		{
			name:  "month boundary",
			after: time.Date(2024, 6, 30, 23, 56, 0, 0, loc),
			want:  time.Date(2024, 7, 1, 23, 55, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(core.Daily, tt.after, loc)
			if !got.Equal(tt.want) {
				t.Errorf("NextRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextRun_Weekly(t *testing.T) {
	loc := time.UTC
	// 2024-06-03 is a Monday.
	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "midweek runs next Monday",
			after: time.Date(2024, 6, 5, 12, 0, 0, 0, loc),
			want:  time.Date(2024, 6, 10, 23, 59, 0, 0, loc),
		},
		{
			name:  "Monday morning runs same Monday",
			after: time.Date(2024, 6, 3, 8, 0, 0, 0, loc),
			want:  time.Date(2024, 6, 3, 23, 59, 0, 0, loc),
		},
		{
			name:  "Sunday runs next Monday",
			after: time.Date(2024, 6, 9, 12, 0, 0, 0, loc),
			want:  time.Date(2024, 6, 10, 23, 59, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(core.Weekly, tt.after, loc)
			if !got.Equal(tt.want) {
				t.Errorf("NextRun() = %v, want %v", got, tt.want)
			}
			if got.Weekday() != time.Monday {
				t.Errorf("NextRun() weekday = %v, want Monday", got.Weekday())
			}
		})
	}
}

func TestNextRun_Monthly(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "midmonth runs on next 1st",
			after: time.Date(2024, 6, 15, 12, 0, 0, 0, loc),
			want:  time.Date(2024, 7, 1, 0, 5, 0, 0, loc),
		},
		{
			name:  "1st before 00:05 runs same day",
			after: time.Date(2024, 6, 1, 0, 2, 0, 0, loc),
			want:  time.Date(2024, 6, 1, 0, 5, 0, 0, loc),
		},
		{
			name:  "December rolls into January",
			after: time.Date(2024, 12, 15, 0, 0, 0, 0, loc),
			want:  time.Date(2025, 1, 1, 0, 5, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(core.Monthly, tt.after, loc)
			if !got.Equal(tt.want) {
				t.Errorf("NextRun() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportReference(t *testing.T) {
	loc := time.UTC

	// Daily run at 23:55 reports the day it fires on.
	dailyRun := time.Date(2024, 6, 1, 23, 55, 0, 0, loc)
	w, err := core.Resolve(core.Daily, reportReference(core.Daily, dailyRun), loc)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if w.Label != "2024-06-01" {
		t.Errorf("daily window = %s, want 2024-06-01", w.Label)
	}

	// Weekly run on Monday 23:59 reports the week that ended that
	// Monday at midnight.
	weeklyRun := time.Date(2024, 6, 10, 23, 59, 0, 0, loc)
	w, err = core.Resolve(core.Weekly, reportReference(core.Weekly, weeklyRun), loc)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if w.Label != "2024-06-03_to_2024-06-09" {
		t.Errorf("weekly window = %s, want 2024-06-03_to_2024-06-09", w.Label)
	}

	// Monthly run on the 1st at 00:05 reports the month that just ended.
	monthlyRun := time.Date(2024, 7, 1, 0, 5, 0, 0, loc)
	w, err = core.Resolve(core.Monthly, reportReference(core.Monthly, monthlyRun), loc)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if w.Label != "2024-06" {
		t.Errorf("monthly window = %s, want 2024-06", w.Label)
	}
}

type fakeOwners struct {
	owners []string
	gotWin core.PeriodWindow
}

func (f *fakeOwners) ActiveOwners(_ context.Context, w core.PeriodWindow) ([]string, error) {
	f.gotWin = w
	return f.owners, nil
}

type fakePublisher struct {
	jobs []*amqp.ReportJob
}

func (f *fakePublisher) PublishReportJob(_ context.Context, job *amqp.ReportJob) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func TestScheduler_Fire(t *testing.T) {
	owners := &fakeOwners{owners: []string{"alice", "bob"}}
	pub := &fakePublisher{}
	s := NewScheduler(owners, pub, time.UTC)

	at := time.Date(2024, 7, 1, 0, 5, 0, 0, time.UTC)
	if err := s.fire(context.Background(), core.Monthly, at); err != nil {
		t.Fatalf("fire() error = %v", err)
	}

	if owners.gotWin.Label != "2024-06" {
		t.Errorf("queried window = %s, want 2024-06", owners.gotWin.Label)
	}
	if len(pub.jobs) != 2 {
		t.Fatalf("published %d jobs, want 2", len(pub.jobs))
	}
	if pub.jobs[0].OwnerID != "alice" || pub.jobs[1].OwnerID != "bob" {
		t.Errorf("job owners = %s, %s", pub.jobs[0].OwnerID, pub.jobs[1].OwnerID)
	}
	if pub.jobs[0].Period != "monthly" {
		t.Errorf("job period = %s, want monthly", pub.jobs[0].Period)
	}
	if !pub.jobs[0].IssuedAt.Equal(at) {
		t.Errorf("job issued at = %v, want %v", pub.jobs[0].IssuedAt, at)
	}
}
