package application

import (
	"time"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
)

// ActivityTier classifies how recently the watched repository saw review
// activity. The adaptive schedule polls busy repositories more often.
type ActivityTier int

const (
	// TierHot indicates activity within the last hour. Runs every 15 minutes.
	TierHot ActivityTier = iota
	// TierActive indicates activity within the last day. Runs every hour.
	TierActive
	// TierWarm indicates activity within the last 7 days. Runs every 6 hours.
	TierWarm
	// TierStale indicates no activity for 7+ days. Runs once a day.
	TierStale
)

// Run intervals per activity tier.
const (
	intervalHot    = 15 * time.Minute
	intervalActive = time.Hour
	intervalWarm   = 6 * time.Hour
	intervalStale  = 24 * time.Hour
)

// String returns a human-readable name for the activity tier.
func (t ActivityTier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierActive:
		return "active"
	case TierWarm:
		return "warm"
	case TierStale:
		return "stale"
	default:
		return "unknown"
	}
}

// tierInterval returns the run interval for the given activity tier.
func tierInterval(tier ActivityTier) time.Duration {
	switch tier {
	case TierHot:
		return intervalHot
	case TierActive:
		return intervalActive
	case TierWarm:
		return intervalWarm
	case TierStale:
		return intervalStale
	default:
		return intervalActive
	}
}

// classifyActivity determines the activity tier from the time elapsed since
// the last review activity. A zero-value time is treated as TierStale.
func classifyActivity(lastActivity, now time.Time) ActivityTier {
	if lastActivity.IsZero() {
		return TierStale
	}

	elapsed := now.Sub(lastActivity)

	switch {
	case elapsed < 1*time.Hour:
		return TierHot
	case elapsed < 24*time.Hour:
		return TierActive
	case elapsed < 7*24*time.Hour:
		return TierWarm
	default:
		return TierStale
	}
}

// freshestActivity finds the most recent review activity across the open
// requests: a request opening, a reviewer being assigned, or a reviewer
// responding. Returns the zero time for an empty slice, which classifies as
// TierStale.
func freshestActivity(requests []model.ReviewRequest) time.Time {
	var newest time.Time
	for _, req := range requests {
		if req.CreatedAt.After(newest) {
			newest = req.CreatedAt
		}
		for _, reviewer := range req.Reviewers {
			if reviewer.AssignedAt.After(newest) {
				newest = reviewer.AssignedAt
			}
			if reviewer.RespondedAt != nil && reviewer.RespondedAt.After(newest) {
				newest = *reviewer.RespondedAt
			}
		}
	}
	return newest
}
