package core

import "time"

// Resolve computes the period window containing ref, in the calendar of
// loc. Windows are half-open [start, end): a daily window runs from
// local midnight to the next midnight, a weekly window is the ISO week
// (Monday through Sunday), a monthly window is the calendar month with
// its actual length.
func Resolve(kind PeriodKind, ref time.Time, loc *time.Location) (PeriodWindow, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := ref.In(loc)

	switch kind {
	case Daily:
		start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		return PeriodWindow{
			Kind:  Daily,
			Start: start,
			End:   start.AddDate(0, 0, 1),
			Label: start.Format("2006-01-02"),
		}, nil

	case Weekly:
		daysSinceMonday := (int(local.Weekday()) + 6) % 7
		start := time.Date(local.Year(), local.Month(), local.Day()-daysSinceMonday, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 0, 7)
		return PeriodWindow{
			Kind:  Weekly,
			Start: start,
			End:   end,
			Label: start.Format("2006-01-02") + "_to_" + end.AddDate(0, 0, -1).Format("2006-01-02"),
		}, nil

	case Monthly:
		start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return PeriodWindow{
			Kind:  Monthly,
			Start: start,
			End:   start.AddDate(0, 1, 0),
			Label: start.Format("2006-01"),
		}, nil
	}
	return PeriodWindow{}, ErrUnknownPeriod
}

// Enumerate produces count consecutive windows, oldest first, ending
// with (and including) the window containing endingAt. Calendar
// arithmetic runs through time.Date normalization so month lengths and
// leap years come from the calendar, never a fixed approximation.
func Enumerate(kind PeriodKind, count int, endingAt time.Time, loc *time.Location) ([]PeriodWindow, error) {
	if count < 1 {
		return nil, ErrMalformedFilter
	}
	last, err := Resolve(kind, endingAt, loc)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	windows := make([]PeriodWindow, count)
	for i := 0; i < count; i++ {
		back := count - 1 - i
		var ref time.Time
		switch kind {
		case Daily:
			ref = last.Start.AddDate(0, 0, -back)
		case Weekly:
			ref = last.Start.AddDate(0, 0, -7*back)
		case Monthly:
			ref = last.Start.AddDate(0, -back, 0)
		}
		w, err := Resolve(kind, ref, loc)
		if err != nil {
			return nil, err
		}
		windows[i] = w
	}
	return windows, nil
}

// daysBetween enumerates every daily window whose start falls inside
// [from, until), oldest first. Used to zero-fill day buckets so trend
// charts have no gaps.
func daysBetween(from, until time.Time, loc *time.Location) []PeriodWindow {
	first, _ := Resolve(Daily, from, loc)
	var windows []PeriodWindow
	for w := first; w.Start.Before(until); {
		windows = append(windows, w)
		next, _ := Resolve(Daily, w.End, loc)
		w = next
	}
	return windows
}
