package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
	"github.com/reviewnudge/reviewnudge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LedgerStore = (*LedgerRepo)(nil)

// LedgerRepo is the SQLite implementation of the LedgerStore port.
type LedgerRepo struct {
	db *DB
}

// NewLedgerRepo creates a new LedgerRepo backed by the given DB.
func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Snapshot returns all ledger entries together with the current ledger version.
func (r *LedgerRepo) Snapshot(ctx context.Context) (model.Ledger, error) {
	var ledger model.Ledger

	const versionQuery = `SELECT version FROM ledger_state WHERE id = 1`
	if err := r.db.Reader.QueryRowContext(ctx, versionQuery).Scan(&ledger.Version); err != nil {
		return ledger, fmt.Errorf("read ledger version: %w", err)
	}

	const entriesQuery = `
		SELECT request_id, reviewer, notified_at
		FROM ledger_entries
		ORDER BY request_id, reviewer
	`

	rows, err := r.db.Reader.QueryContext(ctx, entriesQuery)
	if err != nil {
		return ledger, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry model.LedgerEntry
		var notifiedAt string
		if err := rows.Scan(&entry.RequestID, &entry.Reviewer, &notifiedAt); err != nil {
			return ledger, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.NotifiedAt, err = parseTime(notifiedAt)
		if err != nil {
			return ledger, fmt.Errorf("parse notified_at: %w", err)
		}
		ledger.Entries = append(ledger.Entries, entry)
	}

	if err := rows.Err(); err != nil {
		return ledger, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return ledger, nil
}

// Commit upserts entries and bumps the ledger version in a single transaction
// on the writer connection. version must match the version the run snapshotted;
// a mismatch means another run committed in between and fails with
// model.ErrLedgerConflict without writing anything. An existing entry keeps
// whichever notified_at is newer.
func (r *LedgerRepo) Commit(ctx context.Context, version int64, entries []model.LedgerEntry) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const bumpQuery = `UPDATE ledger_state SET version = version + 1 WHERE id = 1 AND version = ?`
	res, err := tx.ExecContext(ctx, bumpQuery, version)
	if err != nil {
		return fmt.Errorf("bump ledger version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump ledger version: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: expected version %d", model.ErrLedgerConflict, version)
	}

	const upsertQuery = `
		INSERT INTO ledger_entries (request_id, reviewer, notified_at)
		VALUES (?, ?, ?)
		ON CONFLICT(request_id, reviewer) DO UPDATE SET
			notified_at = MAX(notified_at, excluded.notified_at)
	`

	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, upsertQuery,
			entry.RequestID, entry.Reviewer, entry.NotifiedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("upsert ledger entry %s/%s: %w", entry.RequestID, entry.Reviewer, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}

	return nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

// Prune removes entries for review requests no longer in the open set, keeping
// the ledger from growing without bound. Called with the IDs seen this run.
func (r *LedgerRepo) Prune(ctx context.Context, openRequestIDs []string) error {
	open := make(map[string]bool, len(openRequestIDs))
	for _, id := range openRequestIDs {
		open[id] = true
	}

	const listQuery = `SELECT DISTINCT request_id FROM ledger_entries`
	rows, err := r.db.Reader.QueryContext(ctx, listQuery)
	if err != nil {
		return fmt.Errorf("list ledger request ids: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan ledger request id: %w", err)
		}
		if !open[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate ledger request ids: %w", err)
	}

	const deleteQuery = `DELETE FROM ledger_entries WHERE request_id = ?`
	for _, id := range stale {
		if _, err := r.db.Writer.ExecContext(ctx, deleteQuery, id); err != nil {
			return fmt.Errorf("prune ledger entries for %s: %w", id, err)
		}
	}

	return nil
}
