// Package application contains use-case orchestration services.
package application

import (
	"time"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
)

// Evaluate computes which reviewers on a review request are overdue relative
// to the turnaround deadline. Pure function of its inputs: no clock reads, no
// side effects.
//
// A finding is produced for each reviewer who has not responded since their
// latest assignment, on an open non-draft request, whose pending time exceeds
// the deadline. The request author is never counted as a pending reviewer,
// even when self-assigned.
func Evaluate(req model.ReviewRequest, deadline time.Duration, now time.Time) []model.OverdueFinding {
	if req.Status != model.RequestStatusOpen || req.IsDraft {
		return nil
	}

	var findings []model.OverdueFinding
	for _, reviewer := range req.Reviewers {
		if reviewer.Login == req.Author {
			continue
		}
		if reviewer.HasResponded() {
			continue
		}

		overdue := now.Sub(reviewer.PendingSince()) - deadline
		if overdue <= 0 {
			continue
		}

		findings = append(findings, model.OverdueFinding{
			RequestID:    req.ID,
			Reviewer:     reviewer.Login,
			Title:        req.Title,
			URL:          req.URL,
			PendingSince: reviewer.PendingSince(),
			Overdue:      overdue,
		})
	}

	return findings
}

// EvaluateAll applies Evaluate across a fetched set of review requests.
func EvaluateAll(reqs []model.ReviewRequest, deadline time.Duration, now time.Time) []model.OverdueFinding {
	var findings []model.OverdueFinding
	for _, req := range reqs {
		findings = append(findings, Evaluate(req, deadline, now)...)
	}
	return findings
}
