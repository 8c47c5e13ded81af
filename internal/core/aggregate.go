package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregate filters entries and folds them into ordered buckets. Sums
// use exact decimal arithmetic throughout; float accumulation never
// appears here. Entries without an amount are excluded: they are notes,
// visible in list operations only.
//
//   - GroupByNone: one bucket holding grand total, count, and the
//     positive/negative split.
//   - GroupByDay: one bucket per calendar day in the requested range,
//     ascending, including zero buckets for days without entries.
//   - GroupByCategory: one bucket per category (Uncategorized for unset),
//     ordered by descending absolute total, label ascending on ties;
//     capped to topK when topK > 0.
//
// loc is the owner's calendar zone for day bucketing; nil means UTC.
func Aggregate(entries []Entry, groupBy GroupBy, filter FilterSpec, loc *time.Location, topK int) ([]BucketedSum, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	matched := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.HasAmount() && filter.Matches(e) {
			matched = append(matched, e)
		}
	}

	switch groupBy {
	case GroupByNone:
		return []BucketedSum{fold("total", matched)}, nil
	case GroupByDay:
		return aggregateByDay(matched, filter, loc)
	case GroupByCategory:
		return aggregateByCategory(matched, topK), nil
	}
	return nil, ErrMalformedFilter
}

func fold(label string, entries []Entry) BucketedSum {
	b := BucketedSum{
		Label:    label,
		Total:    decimal.Zero,
		Positive: decimal.Zero,
		Negative: decimal.Zero,
	}
	for _, e := range entries {
		amt := *e.Amount
		b.Total = b.Total.Add(amt)
		b.Count++
		if amt.Sign() >= 0 {
			b.Positive = b.Positive.Add(amt)
		} else {
			b.Negative = b.Negative.Add(amt)
		}
	}
	return b
}

func aggregateByDay(matched []Entry, filter FilterSpec, loc *time.Location) ([]BucketedSum, error) {
	from, until, ok := dayRange(matched, filter)
	if !ok {
		return []BucketedSum{}, nil
	}

	byLabel := make(map[string][]Entry)
	for _, e := range matched {
		w, err := Resolve(Daily, e.Timestamp, loc)
		if err != nil {
			return nil, err
		}
		byLabel[w.Label] = append(byLabel[w.Label], e)
	}

	windows := daysBetween(from, until, loc)
	buckets := make([]BucketedSum, 0, len(windows))
	for _, w := range windows {
		buckets = append(buckets, fold(w.Label, byLabel[w.Label]))
	}
	return buckets, nil
}

// dayRange picks the overall day span: the filter bounds when present,
// otherwise the span of the matched entries themselves. ok is false when
// neither the filter nor the data pin the range down.
func dayRange(matched []Entry, filter FilterSpec) (from, until time.Time, ok bool) {
	if filter.Start != nil {
		from = *filter.Start
	}
	if filter.End != nil {
		until = *filter.End
	}
	if filter.Start != nil && filter.End != nil {
		return from, until, true
	}
	if len(matched) == 0 {
		return from, until, false
	}

	first, last := matched[0].Timestamp, matched[0].Timestamp
	for _, e := range matched[1:] {
		if e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	if filter.Start == nil {
		from = first
	}
	if filter.End == nil {
		until = last.Add(time.Nanosecond)
	}
	return from, until, true
}

func aggregateByCategory(matched []Entry, topK int) []BucketedSum {
	byCat := make(map[string][]Entry)
	for _, e := range matched {
		label := strings.ToLower(strings.TrimSpace(e.Category))
		if label == "" {
			label = Uncategorized
		}
		byCat[label] = append(byCat[label], e)
	}

	buckets := make([]BucketedSum, 0, len(byCat))
	for label, group := range byCat {
		buckets = append(buckets, fold(label, group))
	}
	sort.Slice(buckets, func(i, j int) bool {
		ai, aj := buckets[i].Total.Abs(), buckets[j].Total.Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return buckets[i].Label < buckets[j].Label
	})
	if topK > 0 && len(buckets) > topK {
		buckets = buckets[:topK]
	}
	return buckets
}
