package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Customer, error)
	FindByBillingID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, billingCustomerID string) (*Customer, error)
	FindByCRMCompanyID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, crmCompanyID string) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]*Customer, error)
}
