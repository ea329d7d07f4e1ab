// Package ingest accepts subscription-state change events, serializes them
// per subscription and applies classify-then-upsert in one transaction.
package ingest

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	customerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/domain"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	ledgerservice "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/service"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result reports what one event did. Skipped events had no matching customer
// and were dropped without writes; a later sync pass re-delivers them.
type Result struct {
	Skipped        bool                   `json:"skipped"`
	SubscriptionID snowflake.ID           `json:"subscription_id,omitempty"`
	Movement       *ledgerdomain.Movement `json:"movement,omitempty"`
	MRR            int64                  `json:"mrr"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	genID *snowflake.Node

	serializer   *Serializer
	ledger       *ledgerservice.Service
	subRepo      subscriptiondomain.Repository
	customerRepo customerdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node

	Serializer   *Serializer
	Ledger       *ledgerservice.Service
	SubRepo      subscriptiondomain.Repository
	CustomerRepo customerdomain.Repository
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ingest.service"),
		clock: p.Clock,
		genID: p.GenID,

		serializer:   p.Serializer,
		ledger:       p.Ledger,
		subRepo:      p.SubRepo,
		customerRepo: p.CustomerRepo,
	}
}

// Ingest applies one change event. Events for the same external subscription
// are processed one at a time; within the transaction the classifier reads
// prior state under a row lock, appends at most one movement, then the
// current-state row is upserted.
func (s *Service) Ingest(ctx context.Context, event ledgerdomain.ChangeEvent) (*Result, error) {
	key := fmt.Sprintf("ingest:lock:%d:%s", event.OrgID, event.ExternalSubscriptionID)
	release, err := s.serializer.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recorded, err := s.ledger.RecordChange(ctx, tx, event)
		if err != nil {
			return err
		}
		if recorded.Skipped {
			result = &Result{Skipped: true}
			return nil
		}

		sub := s.currentState(event, recorded)
		if err := s.subRepo.Upsert(ctx, tx, sub); err != nil {
			return err
		}

		result = &Result{
			SubscriptionID: recorded.SubscriptionID,
			Movement:       recorded.Movement,
			MRR:            recorded.NewMRR,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// currentState builds the subscription row the event leaves behind,
// carrying forward timestamps from the previous row where the event is
// silent.
func (s *Service) currentState(event ledgerdomain.ChangeEvent, recorded *ledgerservice.RecordResult) *subscriptiondomain.Subscription {
	now := s.clock.Now()

	sub := &subscriptiondomain.Subscription{
		ID:            recorded.SubscriptionID,
		OrgID:         event.OrgID,
		CustomerID:    recorded.Customer.ID,
		ExternalID:    event.ExternalSubscriptionID,
		Status:        event.Status,
		Amount:        event.Amount,
		Interval:      event.Interval,
		IntervalCount: event.IntervalCount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if prev := recorded.Previous; prev != nil {
		sub.CreatedAt = prev.CreatedAt
		sub.StartedAt = prev.StartedAt
		sub.CanceledAt = prev.CanceledAt
		sub.Metadata = prev.Metadata
	}
	if sub.StartedAt == nil && event.Status.Billable() {
		started := event.EffectiveDate
		if started.IsZero() {
			started = now
		}
		sub.StartedAt = &started
	}
	if event.Status == subscriptiondomain.StatusCanceled && sub.CanceledAt == nil {
		canceled := event.EffectiveDate
		if canceled.IsZero() {
			canceled = now
		}
		sub.CanceledAt = &canceled
	}
	return sub
}

var Module = fx.Module("ingest",
	fx.Provide(
		NewSerializer,
		NewService,
	),
)
