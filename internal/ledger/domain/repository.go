package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// FirstAcquisition is a customer's earliest `new` movement, used to assign
// cohort keys.
type FirstAcquisition struct {
	CustomerID    snowflake.ID `gorm:"column:customer_id"`
	EffectiveDate time.Time    `gorm:"column:effective_date"`
}

type Repository interface {
	// Append inserts one movement. Movements are never updated or deleted.
	Append(ctx context.Context, db *gorm.DB, movement *Movement) error

	// FindLatestAsOf returns the movement that governs a subscription's MRR
	// at the given date: greatest effective_date <= date, ties broken by
	// created_at then id, all descending. Nil when no movement qualifies.
	FindLatestAsOf(ctx context.Context, db *gorm.DB, orgID, subscriptionID snowflake.ID, date time.Time) (*Movement, error)

	// HasChurned reports whether the customer has at least one churn movement.
	HasChurned(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID) (bool, error)

	// ListBySubscription returns every movement for a subscription in replay
	// order (effective_date, created_at, id ascending).
	ListBySubscription(ctx context.Context, db *gorm.DB, orgID, subscriptionID snowflake.ID) ([]Movement, error)

	// ListByCustomers returns every movement for the given customers in
	// replay order.
	ListByCustomers(ctx context.Context, db *gorm.DB, orgID snowflake.ID, customerIDs []snowflake.ID) ([]Movement, error)

	// ListFirstAcquisitions returns, per customer, the effective date of the
	// earliest `new` movement in the organization.
	ListFirstAcquisitions(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]FirstAcquisition, error)

	// SumByTypeInRange aggregates movement magnitudes per type over
	// [from, to).
	SumByTypeInRange(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (map[MovementType]int64, error)

	// CountCustomersByTypeInRange counts distinct customers with a movement
	// of the given type over [from, to).
	CountCustomersByTypeInRange(ctx context.Context, db *gorm.DB, orgID snowflake.ID, movementType MovementType, from, to time.Time) (int64, error)
}
