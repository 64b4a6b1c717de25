package model

import "time"

// LedgerEntry records that a notification was sent for one (review request,
// reviewer) pair. It is the Deduplicator's sole durable state.
type LedgerEntry struct {
	RequestID  string
	Reviewer   string
	NotifiedAt time.Time
}

// Ledger is a versioned snapshot of the notification ledger. Version is used
// for optimistic commits: a commit carrying a stale version fails with
// ErrLedgerConflict instead of clobbering a concurrent run's entries.
type Ledger struct {
	Version int64
	Entries []LedgerEntry
}

// Lookup returns the entry for the given (request, reviewer) pair, or nil.
func (l Ledger) Lookup(requestID, reviewer string) *LedgerEntry {
	for i := range l.Entries {
		if l.Entries[i].RequestID == requestID && l.Entries[i].Reviewer == reviewer {
			return &l.Entries[i]
		}
	}
	return nil
}
