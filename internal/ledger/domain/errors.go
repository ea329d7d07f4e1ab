package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")

	// Validation failures are rejected before any write.
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidInterval      = errors.New("invalid_interval")
	ErrInvalidIntervalCount = errors.New("invalid_interval_count")
	ErrMissingSubscription  = errors.New("missing_external_subscription_id")
	ErrMissingCustomer      = errors.New("missing_external_customer_id")
)
