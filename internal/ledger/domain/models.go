// Package domain contains the append-only MRR movement ledger. Movement rows
// are the audit trail behind every revenue figure: they are inserted once and
// never updated or deleted.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MovementType classifies an MRR-affecting state transition.
type MovementType string

const (
	MovementNew          MovementType = "new"
	MovementExpansion    MovementType = "expansion"
	MovementContraction  MovementType = "contraction"
	MovementChurn        MovementType = "churn"
	MovementReactivation MovementType = "reactivation"
)

// Positive reports whether the movement adds revenue.
func (t MovementType) Positive() bool {
	switch t {
	case MovementNew, MovementExpansion, MovementReactivation:
		return true
	default:
		return false
	}
}

// Movement is one immutable ledger entry. AmountDelta is always a
// non-negative magnitude; the sign is implied by the type. EffectiveDate is
// the business date the change took effect, CreatedAt the processing time.
// Replay tie-break order is (effective_date, created_at, id) ascending, so
// the most recently processed event for a day wins.
type Movement struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID  `gorm:"not null;index" json:"organization_id"`
	CustomerID     snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	SubscriptionID *snowflake.ID `gorm:"index" json:"subscription_id,omitempty"`
	Type           MovementType  `gorm:"type:text;not null" json:"type"`
	AmountDelta    int64         `gorm:"not null" json:"amount_delta"`
	PreviousMRR    int64         `gorm:"not null" json:"previous_mrr"`
	NewMRR         int64         `gorm:"not null" json:"new_mrr"`
	EffectiveDate  time.Time     `gorm:"not null;index" json:"effective_date"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Movement) TableName() string { return "mrr_movements" }
