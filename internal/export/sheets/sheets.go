// Package sheets appends report rows to a Google Sheets spreadsheet.
// It is an optional report target; the reporter skips it when no
// spreadsheet is configured.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"riel/internal/core"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

type Config struct {
	SpreadsheetID string
	SheetName     string
	// One of the two credential sources must be set.
	CredentialsFile string
	CredentialsJSON string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Reports"
	}

	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendEntries appends one row per entry below the existing data.
func (c *Client) AppendEntries(ctx context.Context, entries []core.Entry, loc *time.Location) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(entries) == 0 {
		return nil
	}

	values := make([][]any, 0, len(entries))
	for _, e := range entries {
		values = append(values, entryRow(e, loc))
	}

	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	vr := &gsheet.ValueRange{Values: values}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Appended report rows to sheet",
		"sheet", c.sheetName,
		"rows", len(values))
	return nil
}

func entryRow(e core.Entry, loc *time.Location) []any {
	amount := ""
	if e.HasAmount() {
		amount = e.Amount.String()
	}
	return []any{
		e.OwnerID,
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
		e.Category,
		amount,
		strings.ReplaceAll(e.RawText, "\n", " "),
	}
}
