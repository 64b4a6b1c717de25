package model

import (
	"fmt"
	"strings"
	"time"
)

// OverdueFinding is a derived value: one reviewer on one review request whose
// pending time has exceeded the turnaround deadline. Computed fresh each run,
// never persisted directly.
type OverdueFinding struct {
	RequestID    string
	Reviewer     string
	Title        string
	URL          string
	PendingSince time.Time     // Start of the pending episode; dedup scope.
	Overdue      time.Duration // How far past the deadline, always > 0.
}

// WaitingTime renders the total time the reviewer has been waiting as a
// human-readable string, e.g. "2 days, 3 hours". Sub-hour waits render as
// "less than an hour".
func WaitingTime(pendingSince, now time.Time) string {
	delta := now.Sub(pendingSince)
	days := int(delta.Hours()) / 24
	hours := int(delta.Hours()) % 24

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d day%s", days, plural(days)))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hour%s", hours, plural(hours)))
	}
	if len(parts) == 0 {
		return "less than an hour"
	}
	return strings.Join(parts, ", ")
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
