// Package export renders ledger entries into report artifacts: CSV files
// for download and scheduled delivery, and rows for the optional Google
// Sheets target.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"riel/internal/core"
)

var csvHeader = []string{"owner_id", "entry_id", "created_at_utc", "created_at_local", "category", "amount", "text"}

// WriteCSV writes entries as CSV with a trailing total row. Local timestamps
// use loc; note-only entries appear with an empty amount column and do not
// count toward the total.
func WriteCSV(w io.Writer, entries []core.Entry, loc *time.Location) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	total := decimal.Zero
	counted := 0
	for _, e := range entries {
		if err := cw.Write(entryRow(e, loc)); err != nil {
			return fmt.Errorf("write row %d: %w", e.ID, err)
		}
		if e.HasAmount() {
			total = total.Add(*e.Amount)
			counted++
		}
	}

	totalRow := []string{"", "", "", "", "total", total.String(), fmt.Sprintf("%d amounts", counted)}
	if err := cw.Write(totalRow); err != nil {
		return fmt.Errorf("write total row: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

func entryRow(e core.Entry, loc *time.Location) []string {
	amount := ""
	if e.HasAmount() {
		amount = e.Amount.String()
	}
	// Flatten multi-line notes so one entry stays one row in naive viewers.
	text := strings.ReplaceAll(e.RawText, "\n", " ")
	return []string{
		e.OwnerID,
		fmt.Sprintf("%d", e.ID),
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
		e.Category,
		amount,
		text,
	}
}

// Filename names a periodic report file for one owner and window.
func Filename(ownerID string, kind core.PeriodKind, label string) string {
	return fmt.Sprintf("%s_%s_report_%s.csv", sanitize(ownerID), kind, sanitize(label))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, s)
}
