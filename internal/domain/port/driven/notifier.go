package driven

import (
	"context"

	"github.com/reviewnudge/reviewnudge/internal/domain/model"
)

// Notifier defines the driven port for posting a notification message to the
// destination channel. Failures are classified model.ErrDelivery (retryable)
// or model.ErrAuth (fatal).
type Notifier interface {
	PostNotification(ctx context.Context, n model.Notification) error
}
