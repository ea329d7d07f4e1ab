package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/mrr"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
)

// ChangeEvent is one subscription-state change as delivered by a webhook or
// a full sync pass. EffectiveDate defaults to processing time when the
// source did not supply one.
type ChangeEvent struct {
	OrgID                  snowflake.ID
	ExternalSubscriptionID string
	ExternalCustomerID     string
	Status                 subscriptiondomain.Status
	Amount                 int64
	Interval               mrr.Interval
	IntervalCount          int
	EffectiveDate          time.Time
}
