package driven

import (
	"context"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
)

// LedgerStore defines the driven port for notification ledger persistence.
type LedgerStore interface {
	// Snapshot returns the current ledger entries together with the ledger
	// version for optimistic commits.
	Snapshot(ctx context.Context) (model.Ledger, error)

	// Commit atomically appends entries and bumps the ledger version.
	// version must match the version read at Snapshot time; on mismatch
	// Commit writes nothing and fails with model.ErrLedgerConflict.
	// An entry for an existing (request, reviewer) pair keeps the newest
	// notified-at timestamp.
	Commit(ctx context.Context, version int64, entries []model.LedgerEntry) error

	// Prune drops entries whose review request is no longer open, given the
	// full set of open request IDs from the current fetch.
	Prune(ctx context.Context, openRequestIDs []string) error
}
