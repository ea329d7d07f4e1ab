package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	"gorm.io/gorm"
)

const movementColumns = `id, org_id, customer_id, subscription_id, type, amount_delta,
	 previous_mrr, new_mrr, effective_date, created_at`

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, movement *ledgerdomain.Movement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO mrr_movements (
			id, org_id, customer_id, subscription_id, type, amount_delta,
			previous_mrr, new_mrr, effective_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movement.ID,
		movement.OrgID,
		movement.CustomerID,
		movement.SubscriptionID,
		movement.Type,
		movement.AmountDelta,
		movement.PreviousMRR,
		movement.NewMRR,
		movement.EffectiveDate,
		movement.CreatedAt,
	).Error
}

func (r *repo) FindLatestAsOf(ctx context.Context, db *gorm.DB, orgID, subscriptionID snowflake.ID, date time.Time) (*ledgerdomain.Movement, error) {
	var movement ledgerdomain.Movement
	err := db.WithContext(ctx).Raw(
		`SELECT `+movementColumns+`
		 FROM mrr_movements
		 WHERE org_id = ? AND subscription_id = ? AND effective_date <= ?
		 ORDER BY effective_date DESC, created_at DESC, id DESC
		 LIMIT 1`,
		orgID,
		subscriptionID,
		date,
	).Scan(&movement).Error
	if err != nil {
		return nil, err
	}
	if movement.ID == 0 {
		return nil, nil
	}
	return &movement, nil
}

func (r *repo) HasChurned(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM mrr_movements
		 WHERE org_id = ? AND customer_id = ? AND type = ?`,
		orgID,
		customerID,
		ledgerdomain.MovementChurn,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListBySubscription(ctx context.Context, db *gorm.DB, orgID, subscriptionID snowflake.ID) ([]ledgerdomain.Movement, error) {
	var movements []ledgerdomain.Movement
	err := db.WithContext(ctx).Raw(
		`SELECT `+movementColumns+`
		 FROM mrr_movements
		 WHERE org_id = ? AND subscription_id = ?
		 ORDER BY effective_date ASC, created_at ASC, id ASC`,
		orgID,
		subscriptionID,
	).Scan(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repo) ListByCustomers(ctx context.Context, db *gorm.DB, orgID snowflake.ID, customerIDs []snowflake.ID) ([]ledgerdomain.Movement, error) {
	if len(customerIDs) == 0 {
		return nil, nil
	}
	var movements []ledgerdomain.Movement
	err := db.WithContext(ctx).Raw(
		`SELECT `+movementColumns+`
		 FROM mrr_movements
		 WHERE org_id = ? AND customer_id IN ?
		 ORDER BY effective_date ASC, created_at ASC, id ASC`,
		orgID,
		customerIDs,
	).Scan(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repo) ListFirstAcquisitions(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]ledgerdomain.FirstAcquisition, error) {
	// MIN(effective_date) loses the declared column type under sqlite and
	// cannot be scanned back into a timestamp, so the earliest row per
	// customer is folded here from the replay-ordered result instead.
	var movements []ledgerdomain.Movement
	err := db.WithContext(ctx).Raw(
		`SELECT customer_id, effective_date
		 FROM mrr_movements
		 WHERE org_id = ? AND type = ?
		 ORDER BY effective_date ASC, created_at ASC, id ASC`,
		orgID,
		ledgerdomain.MovementNew,
	).Scan(&movements).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[snowflake.ID]struct{}, len(movements))
	acquisitions := make([]ledgerdomain.FirstAcquisition, 0, len(movements))
	for _, m := range movements {
		if _, ok := seen[m.CustomerID]; ok {
			continue
		}
		seen[m.CustomerID] = struct{}{}
		acquisitions = append(acquisitions, ledgerdomain.FirstAcquisition{
			CustomerID:    m.CustomerID,
			EffectiveDate: m.EffectiveDate,
		})
	}
	return acquisitions, nil
}

type typeSumRow struct {
	Type  ledgerdomain.MovementType `gorm:"column:type"`
	Total int64                     `gorm:"column:total"`
}

func (r *repo) SumByTypeInRange(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (map[ledgerdomain.MovementType]int64, error) {
	var rows []typeSumRow
	err := db.WithContext(ctx).Raw(
		`SELECT type, SUM(amount_delta) AS total
		 FROM mrr_movements
		 WHERE org_id = ? AND effective_date >= ? AND effective_date < ?
		 GROUP BY type`,
		orgID,
		from,
		to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[ledgerdomain.MovementType]int64, len(rows))
	for _, row := range rows {
		sums[row.Type] = row.Total
	}
	return sums, nil
}

func (r *repo) CountCustomersByTypeInRange(ctx context.Context, db *gorm.DB, orgID snowflake.ID, movementType ledgerdomain.MovementType, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT customer_id)
		 FROM mrr_movements
		 WHERE org_id = ? AND type = ? AND effective_date >= ? AND effective_date < ?`,
		orgID,
		movementType,
		from,
		to,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
