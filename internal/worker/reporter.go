package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"riel/internal/amqp"
	"riel/internal/core"
	"riel/internal/export"
	"riel/internal/export/sheets"
)

// EntrySource provides the rows a report covers.
type EntrySource interface {
	Query(ctx context.Context, f core.FilterSpec) ([]core.Entry, error)
}

// SheetTarget mirrors report rows into a spreadsheet. Optional.
type SheetTarget interface {
	AppendEntries(ctx context.Context, entries []core.Entry, loc *time.Location) error
}

var _ SheetTarget = (*sheets.Client)(nil)

// Reporter turns a consumed report job into a CSV file under exportDir
// and, when a sheet target is configured, appended spreadsheet rows.
type Reporter struct {
	entries   EntrySource
	loc       *time.Location
	exportDir string
	sheet     SheetTarget
}

func NewReporter(entries EntrySource, loc *time.Location, exportDir string, sheet SheetTarget) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{entries: entries, loc: loc, exportDir: exportDir, sheet: sheet}
}

// HandleJob builds the export for one job. Jobs with no entries in the
// window produce no file.
func (r *Reporter) HandleJob(ctx context.Context, job *amqp.ReportJob) error {
	kind, err := job.Kind()
	if err != nil {
		return fmt.Errorf("job period: %w", err)
	}

	issued := job.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	window, err := core.Resolve(kind, reportReference(kind, issued), r.loc)
	if err != nil {
		return fmt.Errorf("resolve window: %w", err)
	}

	rows, err := r.entries.Query(ctx, core.FilterSpec{
		OwnerID: job.OwnerID,
		Start:   &window.Start,
		End:     &window.End,
	})
	if err != nil {
		return fmt.Errorf("query entries: %w", err)
	}
	if len(rows) == 0 {
		slog.InfoContext(ctx, "No entries in window, skipping report",
			"owner", job.OwnerID,
			"window", window.Label)
		return nil
	}

	path, err := r.writeFile(job.OwnerID, kind, window.Label, rows)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Wrote report file",
		"owner", job.OwnerID,
		"window", window.Label,
		"rows", len(rows),
		"path", path)

	if r.sheet != nil {
		if err := r.sheet.AppendEntries(ctx, rows, r.loc); err != nil {
			return fmt.Errorf("append to sheet: %w", err)
		}
	}
	return nil
}

func (r *Reporter) writeFile(ownerID string, kind core.PeriodKind, label string, rows []core.Entry) (string, error) {
	if err := os.MkdirAll(r.exportDir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(r.exportDir, export.Filename(ownerID, kind, label))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := export.WriteCSV(f, rows, r.loc); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
