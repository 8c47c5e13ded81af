package core

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// digitScripts maps every supported non-ASCII digit glyph to its ASCII
// equivalent. New scripts are added by extending this table, not by
// branching logic.
var digitScripts = map[rune]rune{
	// Khmer numerals U+17E0..U+17E9
	'០': '0',
	'១': '1',
	'២': '2',
	'៣': '3',
	'៤': '4',
	'៥': '5',
	'៦': '6',
	'៧': '7',
	'៨': '8',
	'៩': '9',
}

// NormalizeDigits rewrites every mapped digit glyph in s to its ASCII
// form. All other runes pass through unchanged, so mixed-script numerals
// normalize digit by digit.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := digitScripts[r]; ok {
			return d
		}
		return r
	}, s)
}

// NumberToken is one numeral found in free text. Start and End are byte
// offsets into the original string; Raw is the original substring.
type NumberToken struct {
	Value decimal.Decimal
	Raw   string
	Start int
	End   int
}

// Grouped includes whether the numeral carried grouping separators,
// e.g. "2,000". Used by the money-likeness heuristic during inference.
func (t NumberToken) Grouped() bool {
	return strings.ContainsAny(t.Raw, ", ")
}

// Numerals like 2,000 or ១៥០០០០ or 12.50, with optional sign and comma
// or space grouping. Word boundaries are enforced separately because
// RE2 has no lookaround.
var numberRE = regexp.MustCompile(`[+-]?(?:\d{1,3}(?:[, ]\d{3})+|\d+)(?:\.\d+)?`)

// Numbers scans text for numeric tokens in any supported script and
// returns them in order of appearance. It never fails: text without any
// numeral yields an empty slice, which callers store as a note-only entry.
//
// RE2 cannot backtrack, so a greedy grouped match that runs into a word
// rune ("50 200" inside "50 2000") is retried at shorter valid ends
// before the scan moves on, the way a backtracking engine would retreat.
func Numbers(text string) []NumberToken {
	norm, offsets := normalizeWithOffsets(text)

	var tokens []NumberToken
	pos := 0
	for pos < len(norm) {
		m := numberRE.FindStringIndex(norm[pos:])
		if m == nil {
			break
		}
		start, end := pos+m[0], pos+m[1]
		pos = end

		if isWordRune(runeBefore(norm, start)) {
			// Starts mid-word ("abc123"); every shorter start inside
			// the run fails the same check, so skip the whole region.
			continue
		}
		if isWordRune(runeAt(norm, end)) {
			shrunk := false
			for _, e := range shorterEnds(norm[start:end]) {
				if !isWordRune(runeAt(norm, start+e)) {
					end = start + e
					pos = end
					shrunk = true
					break
				}
			}
			if !shrunk {
				continue
			}
		}

		raw := norm[start:end]
		cleaned := strings.NewReplacer(",", "", " ", "").Replace(raw)
		value, err := decimal.NewFromString(cleaned)
		if err != nil {
			continue
		}
		origStart := offsets[start]
		origEnd := len(text)
		if end < len(norm) {
			origEnd = offsets[end]
		}
		tokens = append(tokens, NumberToken{
			Value: value,
			Raw:   text[origStart:origEnd],
			Start: origStart,
			End:   origEnd,
		})
	}
	return tokens
}

// shorterEnds lists the valid match ends of raw shorter than its full
// length, longest first: the decimal part is given back before grouping
// blocks, and the leading digit run always remains a valid plain match.
func shorterEnds(raw string) []int {
	var ends []int
	cur := raw
	if i := strings.IndexByte(cur, '.'); i >= 0 {
		cur = cur[:i]
		ends = append(ends, len(cur))
	}
	for {
		i := strings.LastIndexAny(cur, ", ")
		if i < 0 {
			break
		}
		cur = cur[:i]
		ends = append(ends, len(cur))
	}
	return ends
}

// normalizeWithOffsets returns the digit-normalized text together with a
// byte-offset map back into the original, so token spans can reference
// the original substring even when glyph byte widths differ.
func normalizeWithOffsets(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s))
	for i, r := range s {
		out := r
		if d, ok := digitScripts[r]; ok {
			out = d
		}
		before := b.Len()
		b.WriteRune(out)
		for j := before; j < b.Len(); j++ {
			offsets = append(offsets, i)
		}
	}
	return b.String(), offsets
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func runeBefore(s string, i int) rune {
	if i <= 0 {
		return -1
	}
	r, _ := decodeLastRune(s[:i])
	return r
}

func runeAt(s string, i int) rune {
	if i >= len(s) {
		return -1
	}
	for _, r := range s[i:] {
		return r
	}
	return -1
}

func decodeLastRune(s string) (rune, int) {
	var last rune = -1
	var size int
	for i, r := range s {
		last = r
		size = len(s) - i
	}
	return last, size
}
