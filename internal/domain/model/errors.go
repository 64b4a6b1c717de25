package model

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying failures by recovery strategy. Adapters wrap
// these with %w so callers can branch on errors.Is without knowing the
// underlying transport detail.
var (
	// ErrTransient marks a connectivity or rate-limit failure. Retryable
	// with bounded backoff.
	ErrTransient = errors.New("transient network error")

	// ErrAuth marks invalid or insufficient credentials. Fatal, never retried.
	ErrAuth = errors.New("authentication failed")

	// ErrDelivery marks a rejected notification post. Retryable with bounded
	// backoff, then fatal.
	ErrDelivery = errors.New("notification delivery failed")

	// ErrLedgerConflict marks an optimistic ledger commit that lost to a
	// concurrent run. The whole run is retried once against the refreshed
	// ledger, then fatal.
	ErrLedgerConflict = errors.New("ledger version conflict")
)

// TransientError wraps err as a retryable transient failure.
func TransientError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// AuthError wraps err as a fatal credential failure.
func AuthError(err error) error {
	return fmt.Errorf("%w: %w", ErrAuth, err)
}

// DeliveryError wraps err as a retryable delivery failure.
func DeliveryError(err error) error {
	return fmt.Errorf("%w: %w", ErrDelivery, err)
}
