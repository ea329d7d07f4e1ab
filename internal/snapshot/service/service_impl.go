package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	snapshotdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/domain"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service aggregates the live subscription table into daily MRR snapshots.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo             snapshotdomain.Repository
	ledgerRepo       ledgerdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock

	Repo             snapshotdomain.Repository
	LedgerRepo       ledgerdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("snapshot.service"),
		genID: p.GenID,
		clock: p.Clock,

		repo:             p.Repo,
		ledgerRepo:       p.LedgerRepo,
		subscriptionRepo: p.SubscriptionRepo,
	}
}

// BuildDaily sums the live billable subscriptions into one snapshot row for
// today and appends it. The total comes from current rows, not ledger
// replay; the per-type period columns come from the day's movements.
// Every run inserts a fresh row; readers take the newest per date.
func (s *Service) BuildDaily(ctx context.Context, orgID snowflake.ID) (*snapshotdomain.MRRSnapshot, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}

	now := s.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	subscriptions, err := s.subscriptionRepo.ListBillable(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	var totalMRR int64
	customers := make(map[snowflake.ID]struct{})
	for _, sub := range subscriptions {
		value := sub.CurrentMRR()
		totalMRR += value
		if value > 0 {
			customers[sub.CustomerID] = struct{}{}
		}
	}

	sums, err := s.ledgerRepo.SumByTypeInRange(ctx, s.db, orgID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	newCustomers, err := s.ledgerRepo.CountCustomersByTypeInRange(ctx, s.db, orgID, ledgerdomain.MovementNew, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	churnedCustomers, err := s.ledgerRepo.CountCustomersByTypeInRange(ctx, s.db, orgID, ledgerdomain.MovementChurn, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	snapshot := &snapshotdomain.MRRSnapshot{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		SnapshotDate:     dayStart,
		TotalMRR:         totalMRR,
		NewMRR:           sums[ledgerdomain.MovementNew],
		ExpansionMRR:     sums[ledgerdomain.MovementExpansion],
		ContractionMRR:   sums[ledgerdomain.MovementContraction],
		ChurnMRR:         sums[ledgerdomain.MovementChurn],
		ReactivationMRR:  sums[ledgerdomain.MovementReactivation],
		CustomerCount:    int64(len(customers)),
		NewCustomers:     newCustomers,
		ChurnedCustomers: churnedCustomers,
		CreatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, snapshot); err != nil {
		return nil, err
	}

	s.log.Info("daily snapshot built",
		zap.String("org_id", orgID.String()),
		zap.Int64("total_mrr", totalMRR),
		zap.Int64("customer_count", snapshot.CustomerCount),
	)
	return snapshot, nil
}

// List returns all snapshots for the organization, newest first.
func (s *Service) List(ctx context.Context, orgID snowflake.ID) ([]snapshotdomain.MRRSnapshot, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	return s.repo.List(ctx, s.db, orgID)
}

// Recent returns the newest snapshot per date, most recent first.
func (s *Service) Recent(ctx context.Context, orgID snowflake.ID, limit int) ([]snapshotdomain.MRRSnapshot, error) {
	if orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	return s.repo.ListRecent(ctx, s.db, orgID, limit)
}
