package driven

import (
	"context"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
)

// ReviewSource defines the driven port for reading review state from the
// hosting platform. Implementations must page through every open review
// request; a partial page failure must abort the fetch rather than return a
// truncated set, so a failed run can never look like "nothing overdue".
type ReviewSource interface {
	// FetchReviewRequests returns all open review requests for the
	// repository with per-reviewer assignment and response timestamps
	// resolved. Errors are classified: model.ErrAuth for credential
	// failures, model.ErrTransient for connectivity failures.
	FetchReviewRequests(ctx context.Context, repoFullName string) ([]model.ReviewRequest, error)
}
