package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Customer is a billable entity within an organization. It carries at most
// one billing-provider ID and one CRM company ID, each unique per org.
// Customers are created on the first sync or webhook referencing an unseen
// external ID and are never hard-deleted; their lifecycle ends when their
// movements reach zero MRR.
type Customer struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_customer_billing_id,priority:1;uniqueIndex:ux_customer_crm_id,priority:1" json:"organization_id"`
	Name              string            `gorm:"not null" json:"name"`
	Email             string            `gorm:"not null" json:"email"`
	BillingCustomerID *string           `gorm:"type:text;uniqueIndex:ux_customer_billing_id,priority:2" json:"billing_customer_id,omitempty"`
	CRMCompanyID      *string           `gorm:"type:text;uniqueIndex:ux_customer_crm_id,priority:2" json:"crm_company_id,omitempty"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }
