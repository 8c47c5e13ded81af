package core

import (
	"testing"
	"time"
)

func TestResolveDaily(t *testing.T) {
	loc := time.UTC
	// Leap day: window must cover exactly 2024-02-29.
	ref := time.Date(2024, 2, 29, 10, 0, 0, 0, loc)
	w, err := Resolve(Daily, ref, loc)
	if err != nil {
		t.Fatal(err)
	}
	wantStart := time.Date(2024, 2, 29, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantEnd) {
		t.Fatalf("window = [%v, %v), want [%v, %v)", w.Start, w.End, wantStart, wantEnd)
	}
	if w.Label != "2024-02-29" {
		t.Fatalf("label = %q", w.Label)
	}
	if !w.Contains(ref) || w.Contains(wantEnd) {
		t.Fatal("window must be half-open [start, end)")
	}
}

func TestResolveWeeklyStartsMonday(t *testing.T) {
	loc := time.UTC
	for day := 1; day <= 14; day++ {
		ref := time.Date(2024, 7, day, 15, 0, 0, 0, loc)
		w, err := Resolve(Weekly, ref, loc)
		if err != nil {
			t.Fatal(err)
		}
		if w.Start.Weekday() != time.Monday {
			t.Fatalf("week containing %v starts on %v", ref, w.Start.Weekday())
		}
		if got := w.End.Sub(w.Start); got != 7*24*time.Hour {
			t.Fatalf("week length = %v", got)
		}
		if !w.Contains(ref) {
			t.Fatalf("week window must contain its reference %v", ref)
		}
	}
}

func TestResolveMonthlyActualLengths(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		ref  time.Time
		days int
	}{
		{time.Date(2024, 2, 15, 0, 0, 0, 0, loc), 29}, // leap February
		{time.Date(2023, 2, 15, 0, 0, 0, 0, loc), 28},
		{time.Date(2024, 4, 1, 0, 0, 0, 0, loc), 30},
		{time.Date(2024, 12, 31, 23, 59, 59, 0, loc), 31},
	}
	for _, tc := range cases {
		w, err := Resolve(Monthly, tc.ref, loc)
		if err != nil {
			t.Fatal(err)
		}
		if got := int(w.End.Sub(w.Start).Hours() / 24); got != tc.days {
			t.Fatalf("month of %v has %d days, want %d", tc.ref, got, tc.days)
		}
	}
}

func TestResolveUsesLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	// 01:00 UTC is already 08:00 the same day in ICT; but 18:00 UTC is
	// 01:00 the NEXT day in ICT.
	ref := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	w, err := Resolve(Daily, ref, loc)
	if err != nil {
		t.Fatal(err)
	}
	if w.Label != "2024-05-02" {
		t.Fatalf("label = %q, want the owner-zone day 2024-05-02", w.Label)
	}
}

func TestResolveUnknownPeriod(t *testing.T) {
	if _, err := Resolve(PeriodKind("hourly"), time.Now(), time.UTC); err != ErrUnknownPeriod {
		t.Fatalf("err = %v, want ErrUnknownPeriod", err)
	}
}

func TestEnumerate(t *testing.T) {
	loc := time.UTC
	end := time.Date(2024, 3, 2, 12, 0, 0, 0, loc)

	days, err := Enumerate(Daily, 4, end, loc)
	if err != nil {
		t.Fatal(err)
	}
	wantLabels := []string{"2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}
	if len(days) != len(wantLabels) {
		t.Fatalf("got %d windows", len(days))
	}
	for i, w := range days {
		if w.Label != wantLabels[i] {
			t.Fatalf("window %d label = %q, want %q", i, w.Label, wantLabels[i])
		}
	}

	weeks, err := Enumerate(Weekly, 3, end, loc)
	if err != nil {
		t.Fatal(err)
	}
	for i, w := range weeks {
		if w.Start.Weekday() != time.Monday {
			t.Fatalf("week %d starts on %v", i, w.Start.Weekday())
		}
		if i > 0 && !weeks[i-1].End.Equal(w.Start) {
			t.Fatal("weekly windows must be consecutive")
		}
	}
	if !weeks[2].Contains(end) {
		t.Fatal("last window must contain endingAt")
	}

	months, err := Enumerate(Monthly, 3, end, loc)
	if err != nil {
		t.Fatal(err)
	}
	wantMonths := []string{"2024-01", "2024-02", "2024-03"}
	for i, w := range months {
		if w.Label != wantMonths[i] {
			t.Fatalf("month %d label = %q, want %q", i, w.Label, wantMonths[i])
		}
	}

	if _, err := Enumerate(Daily, 0, end, loc); err != ErrMalformedFilter {
		t.Fatalf("count 0: err = %v, want ErrMalformedFilter", err)
	}
}
