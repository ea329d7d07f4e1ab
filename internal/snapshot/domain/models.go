package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MRRSnapshot is one aggregate capture of organization-wide MRR for a day.
// Rows are insert-only: a re-run for the same date appends a fresh row and
// readers take the newest one per date.
type MRRSnapshot struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID `gorm:"not null;index" json:"organization_id"`
	SnapshotDate     time.Time    `gorm:"not null;index" json:"snapshot_date"`
	TotalMRR         int64        `gorm:"not null" json:"total_mrr"`
	NewMRR           int64        `gorm:"not null" json:"new_mrr"`
	ExpansionMRR     int64        `gorm:"not null" json:"expansion_mrr"`
	ContractionMRR   int64        `gorm:"not null" json:"contraction_mrr"`
	ChurnMRR         int64        `gorm:"not null" json:"churn_mrr"`
	ReactivationMRR  int64        `gorm:"not null" json:"reactivation_mrr"`
	CustomerCount    int64        `gorm:"not null" json:"customer_count"`
	NewCustomers     int64        `gorm:"not null" json:"new_customers"`
	ChurnedCustomers int64        `gorm:"not null" json:"churned_customers"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (MRRSnapshot) TableName() string { return "mrr_snapshots" }
