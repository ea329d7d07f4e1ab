package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, snapshot *MRRSnapshot) error

	// ListRecent returns the newest snapshot per date, most recent date
	// first, at most limit rows.
	ListRecent(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit int) ([]MRRSnapshot, error)

	// List returns all snapshots for the organization, newest first.
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]MRRSnapshot, error)
}
