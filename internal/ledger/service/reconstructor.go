package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/orgcontext"
)

// MRRAsOf reconstructs a subscription's MRR at an arbitrary date by reading
// the latest qualifying movement. This is the single source of truth for
// point-in-time revenue; nothing re-derives it by summing deltas, which
// drifts under out-of-order ledger writes.
func (s *Service) MRRAsOf(ctx context.Context, subscriptionID snowflake.ID, date time.Time) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, ledgerdomain.ErrInvalidOrganization
	}

	movement, err := s.repo.FindLatestAsOf(ctx, s.db, orgID, subscriptionID, date)
	if err != nil {
		return 0, err
	}
	if movement == nil {
		return 0, nil
	}
	return movement.NewMRR, nil
}

// CustomerMRRAsOf sums MRRAsOf over every subscription of the customer.
func (s *Service) CustomerMRRAsOf(ctx context.Context, customerID snowflake.ID, date time.Time) (int64, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, ledgerdomain.ErrInvalidOrganization
	}

	subscriptions, err := s.subscriptionRepo.ListByCustomer(ctx, s.db, orgID, customerID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, sub := range subscriptions {
		movement, err := s.repo.FindLatestAsOf(ctx, s.db, orgID, sub.ID, date)
		if err != nil {
			return 0, err
		}
		if movement != nil {
			total += movement.NewMRR
		}
	}
	return total, nil
}

// LoadIndex preloads every movement of the given customers into an
// in-memory replay index. The cohort engine uses it to answer many as-of
// queries without one round trip each.
func (s *Service) LoadIndex(ctx context.Context, customerIDs []snowflake.ID) (*ledgerdomain.MovementIndex, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}

	movements, err := s.repo.ListByCustomers(ctx, s.db, orgID, customerIDs)
	if err != nil {
		return nil, err
	}
	return ledgerdomain.NewMovementIndex(movements), nil
}
