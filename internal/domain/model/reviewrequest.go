package model

import (
	"fmt"
	"time"
)

// RequestStatus represents the state of a review request.
type RequestStatus string

const (
	RequestStatusOpen     RequestStatus = "open"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusClosed   RequestStatus = "closed"
)

// Reviewer is a single reviewer assignment on a review request.
// AssignedAt is derived from the newest review_requested timeline event for
// this login; it falls back to the request's CreatedAt when the timeline
// carried no such event. RespondedAt is nil until the reviewer submits a
// review after their assignment.
type Reviewer struct {
	Login       string
	AssignedAt  time.Time
	RespondedAt *time.Time
}

// HasResponded reports whether the reviewer has submitted a review since
// their latest assignment. A response that predates a re-assignment does not
// count; the re-assignment opens a new pending episode.
func (r Reviewer) HasResponded() bool {
	return r.RespondedAt != nil && !r.RespondedAt.Before(r.AssignedAt)
}

// PendingSince returns the start of the reviewer's current pending episode.
func (r Reviewer) PendingSince() time.Time {
	return r.AssignedAt
}

// ReviewRequest is a read-only mirror of a pull request awaiting review,
// owned by the hosting platform and fetched fresh each run.
type ReviewRequest struct {
	ID        string // "owner/repo#number", unique per review unit.
	Number    int
	Title     string
	URL       string
	Author    string
	Status    RequestStatus
	IsDraft   bool
	Reviewers []Reviewer
	CreatedAt time.Time
}

// RequestID builds the canonical review request identifier.
func RequestID(repoFullName string, number int) string {
	return fmt.Sprintf("%s#%d", repoFullName, number)
}

// Reviewer returns the reviewer with the given login, or nil if absent.
func (rr *ReviewRequest) Reviewer(login string) *Reviewer {
	for i := range rr.Reviewers {
		if rr.Reviewers[i].Login == login {
			return &rr.Reviewers[i]
		}
	}
	return nil
}
