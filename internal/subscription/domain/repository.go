package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Subscription, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, externalID string) (*Subscription, error)
	FindByExternalIDForUpdate(ctx context.Context, db *gorm.DB, orgID snowflake.ID, externalID string) (*Subscription, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID) ([]Subscription, error)
	ListBillable(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Subscription, error)
}
