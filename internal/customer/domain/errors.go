package domain

import "errors"

var (
	// ErrCustomerNotFound signals an event referencing a customer that has
	// not been synced yet. Callers drop the event; the next sync pass is
	// expected to reconcile it.
	ErrCustomerNotFound = errors.New("customer_not_found")

	// ErrCustomerExists signals a concurrent sync already claimed one of
	// the external IDs.
	ErrCustomerExists = errors.New("customer_exists")
)
