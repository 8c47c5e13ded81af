package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Sign is the direction applied to an extracted amount.
type Sign int

const (
	SignCredit Sign = 1
	SignDebit  Sign = -1
)

// ParseSign maps a configuration keyword to a Sign.
func ParseSign(s string) (Sign, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit", "positive", "deposit":
		return SignCredit, true
	case "debit", "negative", "withdraw":
		return SignDebit, true
	}
	return SignCredit, false
}

// InferConfig holds the keyword sets and policy knobs for sign and
// category inference. The zero value is not usable; start from
// DefaultInferConfig.
type InferConfig struct {
	PositiveHints []string
	NegativeHints []string

	// DefaultSign applies when the text carries no directional hint, or
	// hints in both directions. Policy, not a hard default.
	DefaultSign Sign

	// MinAmount discards bare numerals below the threshold unless they
	// look like money (carry grouping separators). Zero disables the
	// heuristic.
	MinAmount decimal.Decimal

	// KeywordTags are auto-tag rules applied in order when no explicit
	// marker is present; the first matching keyword wins.
	KeywordTags []TagRule
}

// TagRule assigns Tag when Keyword appears in the lowered message text.
type TagRule struct {
	Keyword string
	Tag     string
}

// DefaultInferConfig returns the stock hint sets, covering English and
// Khmer keywords.
func DefaultInferConfig() InferConfig {
	return InferConfig{
		PositiveHints: []string{
			"deposit", "income", "revenue", "sale", "sales", "add", "topup", "top-up",
			"ឈ្នះ", "បញ្ចូល", "ដាក់", "ចូល",
		},
		NegativeHints: []string{
			"withdraw", "expense", "cost", "bet", "pay", "paid", "payout", "minus",
			"ដក", "ចេញ", "ចំណាយ", "ភ្នាល់", "បង់",
		},
		DefaultSign: SignCredit,
		KeywordTags: []TagRule{
			{"salary", "salary"},
			{"wage", "salary"},
			{"deposit", "deposit"},
			{"topup", "deposit"},
			{"top-up", "deposit"},
			{"betting", "betting"},
			{"bet", "betting"},
			{"win", "betting"},
			{"lose", "betting"},
			{"expense", "expense"},
			{"payout", "expense"},
			{"paid", "expense"},
			{"pay", "expense"},
		},
	}
}

var (
	// Explicit markers: "category: food", "cat: salary", or "#lunch".
	categoryMarkerRE = regexp.MustCompile(`(?i)(?:^|\s)(?:category|cat)\s*:\s*([A-Za-z0-9_\- \x{1780}-\x{17FF}]{2,40})`)
	hashtagRE        = regexp.MustCompile(`#([A-Za-z0-9_\-]{2,40})`)
)

// InferSign inspects the whole message for directional hints,
// case-insensitive and independent of numeral position. A hint in only
// one direction decides the sign; none or both fall back to DefaultSign.
func (c InferConfig) InferSign(text string) Sign {
	lowered := strings.ToLower(NormalizeDigits(text))
	pos := containsAny(lowered, c.PositiveHints)
	neg := containsAny(lowered, c.NegativeHints)
	switch {
	case neg && !pos:
		return SignDebit
	case pos && !neg:
		return SignCredit
	}
	return c.DefaultSign
}

// InferCategory derives a category label, by priority: explicit
// "category:"/"cat:" marker, hashtag, keyword auto-tag rule, then a
// directional fallback ("income"/"expense") when exactly one hint
// direction is present. Returns "" when nothing applies.
func (c InferConfig) InferCategory(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}

	if m := categoryMarkerRE.FindStringSubmatch(t); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	if m := hashtagRE.FindStringSubmatch(t); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}

	lowered := strings.ToLower(t)
	for _, rule := range c.KeywordTags {
		if strings.Contains(lowered, rule.Keyword) {
			return rule.Tag
		}
	}

	pos := containsAny(lowered, c.PositiveHints)
	neg := containsAny(lowered, c.NegativeHints)
	if pos && !neg {
		return "income"
	}
	if neg && !pos {
		return "expense"
	}
	return ""
}

// Keep reports whether a numeral token should become an amount under the
// money-likeness policy: grouped tokens always pass, bare ones must meet
// MinAmount.
func (c InferConfig) Keep(t NumberToken) bool {
	if c.MinAmount.IsZero() || t.Grouped() {
		return true
	}
	return t.Value.Abs().Cmp(c.MinAmount) >= 0
}

func containsAny(lowered string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}
