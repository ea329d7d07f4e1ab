package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	"gorm.io/gorm"
)

const subscriptionColumns = `id, org_id, customer_id, external_id, status, amount, interval, interval_count,
	 current_period_start, current_period_end, started_at, canceled_at, metadata, created_at, updated_at`

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (
			id, org_id, customer_id, external_id, status, amount, interval, interval_count,
			current_period_start, current_period_end, started_at, canceled_at, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (org_id, external_id)
		DO UPDATE SET status = EXCLUDED.status,
		              amount = EXCLUDED.amount,
		              interval = EXCLUDED.interval,
		              interval_count = EXCLUDED.interval_count,
		              current_period_start = EXCLUDED.current_period_start,
		              current_period_end = EXCLUDED.current_period_end,
		              started_at = EXCLUDED.started_at,
		              canceled_at = EXCLUDED.canceled_at,
		              metadata = EXCLUDED.metadata,
		              updated_at = EXCLUDED.updated_at`,
		subscription.ID,
		subscription.OrgID,
		subscription.CustomerID,
		subscription.ExternalID,
		subscription.Status,
		subscription.Amount,
		subscription.Interval,
		subscription.IntervalCount,
		subscription.CurrentPeriodStart,
		subscription.CurrentPeriodEnd,
		subscription.StartedAt,
		subscription.CanceledAt,
		subscription.Metadata,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, externalID string) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE org_id = ? AND external_id = ?`,
		orgID,
		externalID,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) FindByExternalIDForUpdate(ctx context.Context, db *gorm.DB, orgID snowflake.ID, externalID string) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	query := `SELECT ` + subscriptionColumns + `
		 FROM subscriptions WHERE org_id = ? AND external_id = ?`
	if db.Dialector.Name() == "postgres" {
		query += " FOR UPDATE"
	}
	err := db.WithContext(ctx).Raw(query, orgID, externalID).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions WHERE org_id = ? AND customer_id = ? ORDER BY created_at ASC`,
		orgID,
		customerID,
	).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repo) ListBillable(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]subscriptiondomain.Subscription, error) {
	var subscriptions []subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+`
		 FROM subscriptions
		 WHERE org_id = ? AND status IN ?
		 ORDER BY created_at ASC`,
		orgID,
		[]subscriptiondomain.Status{subscriptiondomain.StatusActive, subscriptiondomain.StatusPastDue},
	).Scan(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}
