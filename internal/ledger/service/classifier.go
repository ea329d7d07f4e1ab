package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/domain"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/mrr"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordResult reports what a classified change did to the ledger.
type RecordResult struct {
	// Movement is the appended ledger row, nil when the change had no
	// revenue effect.
	Movement *ledgerdomain.Movement

	// Customer is the resolved owner of the subscription.
	Customer *customerdomain.Customer

	// Previous is the pre-update subscription row, nil on first sighting.
	Previous *subscriptiondomain.Subscription

	// SubscriptionID is the internal ID the caller must upsert the current
	// state under. Freshly generated when Previous is nil.
	SubscriptionID snowflake.ID

	// NewMRR is the normalized monthly amount the event resolves to.
	NewMRR int64

	// Skipped is set when the event was dropped because the customer has
	// not been synced yet.
	Skipped bool
}

// RecordChange classifies one subscription-state change and appends at most
// one movement. It reads the pre-update subscription row (locked for the
// duration of tx) but never mutates it; persisting the new current state is
// the caller's responsibility, inside the same transaction.
func (s *Service) RecordChange(ctx context.Context, tx *gorm.DB, event ledgerdomain.ChangeEvent) (*RecordResult, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.FindByBillingID(ctx, tx, event.OrgID, event.ExternalCustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		// The customer sync has not landed yet. Dropping is safe: sync
		// passes are idempotent and will replay this subscription.
		s.log.Warn("dropping change event for unknown customer",
			zap.String("org_id", event.OrgID.String()),
			zap.String("external_customer_id", event.ExternalCustomerID),
			zap.String("external_subscription_id", event.ExternalSubscriptionID),
		)
		return &RecordResult{Skipped: true}, nil
	}

	previous, err := s.subscriptionRepo.FindByExternalIDForUpdate(ctx, tx, event.OrgID, event.ExternalSubscriptionID)
	if err != nil {
		return nil, err
	}

	var previousMRR int64
	subscriptionID := s.genID.Generate()
	if previous != nil {
		subscriptionID = previous.ID
		if previous.Status.Billable() && previous.Amount > 0 && previous.CurrentMRR() == 0 {
			s.log.Error("stored subscription row cannot be normalized",
				zap.String("org_id", event.OrgID.String()),
				zap.String("subscription_id", previous.ID.String()),
				zap.String("interval", string(previous.Interval)),
				zap.Int("interval_count", previous.IntervalCount),
			)
			return nil, subscriptiondomain.ErrInconsistentState
		}
		previousMRR = previous.CurrentMRR()
	}

	var newMRR int64
	if event.Status.Billable() {
		newMRR = mrr.Normalize(event.Amount, event.Interval, event.IntervalCount)
	}

	result := &RecordResult{
		Customer:       customer,
		Previous:       previous,
		SubscriptionID: subscriptionID,
		NewMRR:         newMRR,
	}

	movementType, ok, err := s.classify(ctx, tx, event.OrgID, customer.ID, previousMRR, newMRR)
	if err != nil {
		return nil, err
	}
	if !ok {
		return result, nil
	}

	effectiveDate := event.EffectiveDate
	if effectiveDate.IsZero() {
		effectiveDate = s.clock.Now()
	}

	movement := &ledgerdomain.Movement{
		ID:             s.genID.Generate(),
		OrgID:          event.OrgID,
		CustomerID:     customer.ID,
		SubscriptionID: &subscriptionID,
		Type:           movementType,
		AmountDelta:    abs(newMRR - previousMRR),
		PreviousMRR:    previousMRR,
		NewMRR:         newMRR,
		EffectiveDate:  effectiveDate.UTC(),
		CreatedAt:      s.clock.Now(),
	}
	if err := s.repo.Append(ctx, tx, movement); err != nil {
		return nil, err
	}

	result.Movement = movement
	return result, nil
}

// classify picks the movement type for a prior/new MRR pair. A customer
// returning from full churn gets a reactivation instead of a second new:
// they must have a churn movement on record and hold no revenue right now.
// A customer whose other subscriptions still pay is growing, not returning.
func (s *Service) classify(ctx context.Context, tx *gorm.DB, orgID, customerID snowflake.ID, previousMRR, newMRR int64) (ledgerdomain.MovementType, bool, error) {
	switch {
	case previousMRR == 0 && newMRR > 0:
		churned, err := s.repo.HasChurned(ctx, tx, orgID, customerID)
		if err != nil {
			return "", false, err
		}
		if !churned {
			return ledgerdomain.MovementNew, true, nil
		}
		live, err := s.customerLiveMRR(ctx, tx, orgID, customerID)
		if err != nil {
			return "", false, err
		}
		if live > 0 {
			return ledgerdomain.MovementNew, true, nil
		}
		return ledgerdomain.MovementReactivation, true, nil
	case newMRR > previousMRR:
		return ledgerdomain.MovementExpansion, true, nil
	case newMRR > 0 && newMRR < previousMRR:
		return ledgerdomain.MovementContraction, true, nil
	case newMRR == 0 && previousMRR > 0:
		return ledgerdomain.MovementChurn, true, nil
	default:
		return "", false, nil
	}
}

// customerLiveMRR sums the current monthly revenue across every subscription
// the customer holds. The subscription being changed contributes its stored
// pre-update state, which is zero in the branch that needs this.
func (s *Service) customerLiveMRR(ctx context.Context, tx *gorm.DB, orgID, customerID snowflake.ID) (int64, error) {
	subscriptions, err := s.subscriptionRepo.ListByCustomer(ctx, tx, orgID, customerID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, sub := range subscriptions {
		total += sub.CurrentMRR()
	}
	return total, nil
}

func validateEvent(event ledgerdomain.ChangeEvent) error {
	if event.OrgID == 0 {
		return ledgerdomain.ErrInvalidOrganization
	}
	if strings.TrimSpace(event.ExternalSubscriptionID) == "" {
		return ledgerdomain.ErrMissingSubscription
	}
	if strings.TrimSpace(event.ExternalCustomerID) == "" {
		return ledgerdomain.ErrMissingCustomer
	}
	if event.Amount < 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	if event.IntervalCount < 1 {
		return ledgerdomain.ErrInvalidIntervalCount
	}
	if !event.Interval.Valid() {
		return ledgerdomain.ErrInvalidInterval
	}
	return nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
