package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
)

// MovementIndex is an in-memory replay index: movements grouped per
// subscription in replay order, queried by binary search. It answers the
// same question as the as-of ledger query without going back to the store
// for every (customer, month) pair, which is what keeps cohort computation
// from being quadratic in queries.
type MovementIndex struct {
	bySubscription map[snowflake.ID][]Movement
	byCustomer     map[snowflake.ID][]snowflake.ID
	unlinked       map[snowflake.ID][]Movement
}

// NewMovementIndex builds an index from movements already in replay order
// (effective_date, created_at, id ascending). Movements with no linked
// subscription are tracked per customer.
func NewMovementIndex(movements []Movement) *MovementIndex {
	idx := &MovementIndex{
		bySubscription: make(map[snowflake.ID][]Movement),
		byCustomer:     make(map[snowflake.ID][]snowflake.ID),
		unlinked:       make(map[snowflake.ID][]Movement),
	}

	seen := make(map[snowflake.ID]map[snowflake.ID]struct{})
	for _, m := range movements {
		if m.SubscriptionID == nil {
			idx.unlinked[m.CustomerID] = append(idx.unlinked[m.CustomerID], m)
			continue
		}
		subID := *m.SubscriptionID
		idx.bySubscription[subID] = append(idx.bySubscription[subID], m)

		if seen[m.CustomerID] == nil {
			seen[m.CustomerID] = make(map[snowflake.ID]struct{})
		}
		if _, ok := seen[m.CustomerID][subID]; !ok {
			seen[m.CustomerID][subID] = struct{}{}
			idx.byCustomer[m.CustomerID] = append(idx.byCustomer[m.CustomerID], subID)
		}
	}

	return idx
}

// MRRAsOf returns the subscription's MRR in effect at the given date: the
// NewMRR of the last movement with effective_date <= date, or 0.
func (idx *MovementIndex) MRRAsOf(subscriptionID snowflake.ID, date time.Time) int64 {
	return asOf(idx.bySubscription[subscriptionID], date)
}

// CustomerMRRAsOf sums MRRAsOf over every subscription the customer has
// movements for, plus any movements that never got a subscription link.
func (idx *MovementIndex) CustomerMRRAsOf(customerID snowflake.ID, date time.Time) int64 {
	var total int64
	for _, subID := range idx.byCustomer[customerID] {
		total += asOf(idx.bySubscription[subID], date)
	}
	total += asOf(idx.unlinked[customerID], date)
	return total
}

func asOf(movements []Movement, date time.Time) int64 {
	if len(movements) == 0 {
		return 0
	}

	i := sort.Search(len(movements), func(i int) bool {
		return movements[i].EffectiveDate.After(date)
	})
	if i == 0 {
		return 0
	}
	return movements[i-1].NewMRR
}
