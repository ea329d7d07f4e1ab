package domain

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")

	// ErrInconsistentState signals a stored subscription row whose
	// amount/interval cannot be normalized. No movement may be written from
	// such a row; the event aborts and the row is left untouched.
	ErrInconsistentState = errors.New("inconsistent_subscription_state")
)
