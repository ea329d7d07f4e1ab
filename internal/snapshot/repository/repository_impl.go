package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	snapshotdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/domain"
	"gorm.io/gorm"
)

const snapshotColumns = `id, org_id, snapshot_date, total_mrr, new_mrr, expansion_mrr, contraction_mrr,
	 churn_mrr, reactivation_mrr, customer_count, new_customers, churned_customers, created_at`

type repo struct{}

func Provide() snapshotdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, snapshot *snapshotdomain.MRRSnapshot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO mrr_snapshots (
			id, org_id, snapshot_date, total_mrr, new_mrr, expansion_mrr, contraction_mrr,
			churn_mrr, reactivation_mrr, customer_count, new_customers, churned_customers, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ID,
		snapshot.OrgID,
		snapshot.SnapshotDate,
		snapshot.TotalMRR,
		snapshot.NewMRR,
		snapshot.ExpansionMRR,
		snapshot.ContractionMRR,
		snapshot.ChurnMRR,
		snapshot.ReactivationMRR,
		snapshot.CustomerCount,
		snapshot.NewCustomers,
		snapshot.ChurnedCustomers,
		snapshot.CreatedAt,
	).Error
}

func (r *repo) ListRecent(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit int) ([]snapshotdomain.MRRSnapshot, error) {
	if limit <= 0 {
		limit = 6
	}
	var snapshots []snapshotdomain.MRRSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT `+snapshotColumns+`
		 FROM mrr_snapshots s
		 WHERE org_id = ?
		   AND created_at = (
		     SELECT MAX(created_at) FROM mrr_snapshots
		     WHERE org_id = s.org_id AND snapshot_date = s.snapshot_date
		   )
		 ORDER BY snapshot_date DESC
		 LIMIT ?`,
		orgID,
		limit,
	).Scan(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]snapshotdomain.MRRSnapshot, error) {
	var snapshots []snapshotdomain.MRRSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT `+snapshotColumns+`
		 FROM mrr_snapshots
		 WHERE org_id = ?
		 ORDER BY snapshot_date DESC, created_at DESC`,
		orgID,
	).Scan(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
