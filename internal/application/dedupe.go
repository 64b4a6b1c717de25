package application

import (
	"time"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
)

// FilterNotified splits findings into those that still need a notification
// and those already covered by the ledger. Pure function; idempotent:
// filtering the same findings against a ledger that already contains their
// entries yields an empty toNotify set.
//
// A finding is suppressed when a ledger entry exists for its (request,
// reviewer) pair and that entry was written at or after the start of the
// finding's pending episode. A re-assignment after a response moves
// PendingSince forward past the old entry, so the new episode is notified
// again; the stale entry is overwritten on the next commit.
func FilterNotified(findings []model.OverdueFinding, ledger model.Ledger) (toNotify, suppressed []model.OverdueFinding) {
	for _, f := range findings {
		entry := ledger.Lookup(f.RequestID, f.Reviewer)
		if entry != nil && !entry.NotifiedAt.Before(f.PendingSince) {
			suppressed = append(suppressed, f)
			continue
		}
		toNotify = append(toNotify, f)
	}
	return toNotify, suppressed
}

// LedgerEntriesFor builds the ledger entries to commit for delivered findings.
func LedgerEntriesFor(delivered []model.OverdueFinding, notifiedAt time.Time) []model.LedgerEntry {
	entries := make([]model.LedgerEntry, 0, len(delivered))
	for _, f := range delivered {
		entries = append(entries, model.LedgerEntry{
			RequestID:  f.RequestID,
			Reviewer:   f.Reviewer,
			NotifiedAt: notifiedAt,
		})
	}
	return entries
}
