// Package seed bootstraps the default organization so a fresh local or
// self-hosted install is usable immediately.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization/domain"
	"gorm.io/gorm"
)

const defaultOrgName = "Main"

// EnsureDefaultOrg creates the default organization when none exists.
func EnsureDefaultOrg(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).Model(&organizationdomain.Organization{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		return tx.WithContext(ctx).Create(&organizationdomain.Organization{
			ID:        node.Generate(),
			Name:      defaultOrgName,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error
	})
}
