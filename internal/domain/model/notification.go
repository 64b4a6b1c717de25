package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Notification is a formatted message destined for a discussion thread.
// Transient: produced and consumed within a single run.
type Notification struct {
	Category string // Discussion category name, e.g. "Reviewer notifications".
	Title    string // Discussion title the comment is posted under.
	Body     string
	Findings []OverdueFinding // The findings this message covers; committed to the ledger on delivery.
}

// BuildNotification formats the overdue findings into a single message,
// grouped per reviewer with one line per pending review request.
func BuildNotification(category, title string, findings []OverdueFinding, now time.Time) Notification {
	byReviewer := make(map[string][]OverdueFinding)
	for _, f := range findings {
		byReviewer[f.Reviewer] = append(byReviewer[f.Reviewer], f)
	}

	reviewers := make([]string, 0, len(byReviewer))
	for reviewer := range byReviewer {
		reviewers = append(reviewers, reviewer)
	}
	sort.Strings(reviewers)

	var b strings.Builder
	for _, reviewer := range reviewers {
		fmt.Fprintf(&b, "@%s, these reviews are waiting on you:\n", reviewer)
		for _, f := range byReviewer[reviewer] {
			fmt.Fprintf(&b, "- [%s](%s), pending for %s\n", f.Title, f.URL, WaitingTime(f.PendingSince, now))
		}
		b.WriteString("\n")
	}

	return Notification{
		Category: category,
		Title:    title,
		Body:     strings.TrimRight(b.String(), "\n"),
		Findings: findings,
	}
}
