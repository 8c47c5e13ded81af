// Package storage persists entries in SQLite. Per-owner isolation is a
// partition key (owner_id) on every statement, not separate databases;
// the physical layout is invisible to the core.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"riel/internal/core"
	"riel/internal/report"
)

// timeLayout is fixed width so that stored timestamps compare correctly
// as strings. Always UTC on disk.
const timeLayout = "2006-01-02 15:04:05.000000000"

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath
// and applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Insert implements report.Store.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Entry) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (owner_id, raw_text, amount, category, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.OwnerID, e.RawText, amountParam(e.Amount), categoryParam(e.Category),
		e.Timestamp.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("entry id: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"id", id,
		"owner", e.OwnerID,
		"has_amount", e.HasAmount(),
		"category", e.Category)
	return id, nil
}

// Query implements report.Store: newest first, half-open time range,
// case-insensitive category substring, optional pagination.
func (r *SQLiteRepository) Query(ctx context.Context, f core.FilterSpec) ([]core.Entry, error) {
	where, args := buildWhere(f)
	q := `SELECT id, owner_id, raw_text, amount, category, created_at FROM entries` +
		where + ` ORDER BY created_at DESC, id DESC`
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.PageSize, (page-1)*f.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count implements report.Store.
func (r *SQLiteRepository) Count(ctx context.Context, f core.FilterSpec) (int, error) {
	where, args := buildWhere(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Get implements report.Store. A miss and a foreign owner's id are the
// same ErrNotFound: owners never learn about each other's entries.
func (r *SQLiteRepository) Get(ctx context.Context, ownerID string, id int64) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, raw_text, amount, category, created_at
		 FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	return e, err
}

// Update implements report.Store. Timestamp never changes on update.
func (r *SQLiteRepository) Update(ctx context.Context, ownerID string, id int64, fields report.UpdateFields) (core.Entry, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if fields.RawText != nil {
		sets = append(sets, "raw_text = ?")
		args = append(args, *fields.RawText)
	}
	if fields.ClearAmount {
		sets = append(sets, "amount = NULL")
	} else if fields.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, fields.Amount.String())
	}
	if fields.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, categoryParam(*fields.Category))
	}
	if len(sets) == 0 {
		return r.Get(ctx, ownerID, id)
	}

	args = append(args, id, ownerID)
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET `+strings.Join(sets, ", ")+` WHERE id = ? AND owner_id = ?`, args...)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	} else if n == 0 {
		return core.Entry{}, core.ErrNotFound
	}
	return r.Get(ctx, ownerID, id)
}

// Delete implements report.Store.
func (r *SQLiteRepository) Delete(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	} else if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteLast removes the owner's most recent entry. Returns ErrNotFound
// when the owner has none.
func (r *SQLiteRepository) DeleteLast(ctx context.Context, ownerID string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM entries WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		ownerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find last entry: %w", err)
	}
	return id, r.Delete(ctx, ownerID, id)
}

// DeleteRange implements report.Store.
func (r *SQLiteRepository) DeleteRange(ctx context.Context, ownerID string, w core.PeriodWindow) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE owner_id = ? AND created_at >= ? AND created_at < ?`,
		ownerID, w.Start.UTC().Format(timeLayout), w.End.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("delete range: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete range: %w", err)
	}
	slog.InfoContext(ctx, "Entries cleared",
		"owner", ownerID, "window", w.Label, "deleted", n)
	return n, nil
}

// ActiveOwners returns the distinct owners with at least one entry in
// the window. Used by the report scheduler.
func (r *SQLiteRepository) ActiveOwners(ctx context.Context, w core.PeriodWindow) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM entries WHERE created_at >= ? AND created_at < ? ORDER BY owner_id`,
		w.Start.UTC().Format(timeLayout), w.End.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("query active owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func buildWhere(f core.FilterSpec) (string, []any) {
	var conds []string
	var args []any
	if f.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Start != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Start.UTC().Format(timeLayout))
	}
	if f.End != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, f.End.UTC().Format(timeLayout))
	}
	if f.Category != "" {
		conds = append(conds, "category IS NOT NULL AND instr(lower(category), lower(?)) > 0")
		args = append(args, f.Category)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		e        core.Entry
		amount   sql.NullString
		category sql.NullString
		created  string
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.RawText, &amount, &category, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Entry{}, err
		}
		return core.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return core.Entry{}, fmt.Errorf("decode amount %q: %w", amount.String, err)
		}
		e.Amount = &d
	}
	if category.Valid {
		e.Category = category.String
	}
	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		return core.Entry{}, fmt.Errorf("decode timestamp %q: %w", created, err)
	}
	e.Timestamp = ts.UTC()
	return e, nil
}

func amountParam(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func categoryParam(c string) any {
	if c == "" {
		return nil
	}
	return c
}
