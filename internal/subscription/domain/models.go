// Package domain contains the current-state subscription model. A
// subscription row reflects only the latest billing agreement; history lives
// in the movement ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/mrr"
	"gorm.io/datatypes"
)

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusTrialing   Status = "trialing"
	StatusCanceled   Status = "canceled"
	StatusIncomplete Status = "incomplete"
	StatusUnpaid     Status = "unpaid"
)

// Billable reports whether the status contributes recognized revenue.
func (s Status) Billable() bool {
	return s == StatusActive || s == StatusPastDue
}

// Subscription captures a customer's billing agreement as currently synced.
// Exactly one row exists per external subscription ID; each event overwrites
// it in place.
type Subscription struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID              snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_subscription_external_id,priority:1" json:"organization_id"`
	CustomerID         snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	ExternalID         string            `gorm:"type:text;not null;uniqueIndex:ux_subscription_external_id,priority:2" json:"external_id"`
	Status             Status            `gorm:"type:text;not null" json:"status"`
	Amount             int64             `gorm:"not null" json:"amount"`
	Interval           mrr.Interval      `gorm:"type:text;not null" json:"interval"`
	IntervalCount      int               `gorm:"not null;default:1" json:"interval_count"`
	CurrentPeriodStart *time.Time        `gorm:"" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time        `gorm:"" json:"current_period_end,omitempty"`
	StartedAt          *time.Time        `gorm:"" json:"started_at,omitempty"`
	CanceledAt         *time.Time        `gorm:"" json:"canceled_at,omitempty"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// CurrentMRR normalizes the stored amount into monthly-equivalent revenue.
// Non-billable statuses contribute zero.
func (s Subscription) CurrentMRR() int64 {
	if !s.Status.Billable() {
		return 0
	}
	return mrr.Normalize(s.Amount, s.Interval, s.IntervalCount)
}
