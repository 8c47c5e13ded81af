package core

import (
	"testing"
	"time"
)

func TestFilterSpecValidate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	valid := []FilterSpec{
		{},
		{Start: &earlier, End: &now},
		{Start: &now, End: &now}, // empty window, still well-formed
		{Page: 3, PageSize: 20},
	}
	for i, f := range valid {
		if err := f.Validate(); err != nil {
			t.Fatalf("case %d: unexpected error %v", i, err)
		}
	}

	invalid := []FilterSpec{
		{Start: &now, End: &earlier},
		{Page: -1},
		{PageSize: -5},
	}
	for i, f := range invalid {
		if err := f.Validate(); err != ErrMalformedFilter {
			t.Fatalf("case %d: err = %v, want ErrMalformedFilter", i, err)
		}
	}
}

func TestFilterSpecWithWindow(t *testing.T) {
	loc := time.UTC
	w, err := Resolve(Daily, time.Date(2024, 6, 2, 9, 0, 0, 0, loc), loc)
	if err != nil {
		t.Fatal(err)
	}

	narrowed := FilterSpec{OwnerID: "o"}.WithWindow(w)
	if narrowed.Start == nil || !narrowed.Start.Equal(w.Start) {
		t.Fatal("window start must apply when filter has none")
	}
	if narrowed.End == nil || !narrowed.End.Equal(w.End) {
		t.Fatal("window end must apply when filter has none")
	}

	tight := w.Start.Add(2 * time.Hour)
	narrowed = FilterSpec{Start: &tight}.WithWindow(w)
	if !narrowed.Start.Equal(tight) {
		t.Fatal("the tighter start bound must win")
	}
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"daily", "Weekly", " MONTHLY "} {
		if _, err := ParsePeriod(s); err != nil {
			t.Fatalf("ParsePeriod(%q): %v", s, err)
		}
	}
	if _, err := ParsePeriod("fortnightly"); err != ErrUnknownPeriod {
		t.Fatalf("err = %v, want ErrUnknownPeriod", err)
	}
}
