package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() organizationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, org *organizationdomain.Organization) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO organizations (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.CreatedAt,
		org.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at, updated_at FROM organizations WHERE id = ?`,
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]organizationdomain.Organization, error) {
	var orgs []organizationdomain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at, updated_at FROM organizations ORDER BY created_at ASC`,
	).Scan(&orgs).Error
	if err != nil {
		return nil, err
	}
	return orgs, nil
}
