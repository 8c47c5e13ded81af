package bot

import (
	"strings"

	"github.com/shopspring/decimal"
)

// formatAmount renders an amount for chat: thousands separators,
// no decimals for whole numbers, two decimals otherwise.
func formatAmount(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return groupDigits(d.Truncate(0).String())
	}
	return groupDigits(d.StringFixed(2))
}

func groupDigits(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}

	out := b.String() + frac
	if neg {
		return "-" + out
	}
	return out
}

// truncateText caps a note for list rendering.
func truncateText(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
