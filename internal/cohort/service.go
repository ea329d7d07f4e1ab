// Package cohort groups customers by the month of their first acquisition
// and replays the movement ledger to produce retention matrices.
package cohort

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	ledgerservice "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/service"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// trailingMonths bounds both the number of cohorts kept and the retention
// window per cohort.
const trailingMonths = 12

// RevenueCohort is one cohort's MRR across its first twelve months. Monthly
// values run from the join month onward and stop at the current month;
// future months are absent rather than zero.
type RevenueCohort struct {
	CohortMonth   string  `json:"cohort_month"`
	InitialMRR    int64   `json:"initial_mrr"`
	MonthlyValues []int64 `json:"monthly_values"`
}

// CustomerCohort mirrors RevenueCohort with active-customer counts.
type CustomerCohort struct {
	CohortMonth   string  `json:"cohort_month"`
	InitialSize   int64   `json:"initial_size"`
	MonthlyValues []int64 `json:"monthly_values"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	ledgerRepo ledgerdomain.Repository
	ledgerSvc  *ledgerservice.Service
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock

	LedgerRepo ledgerdomain.Repository
	LedgerSvc  *ledgerservice.Service
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("cohort.service"),
		clock: p.Clock,

		ledgerRepo: p.LedgerRepo,
		ledgerSvc:  p.LedgerSvc,
	}
}

// RevenueCohorts builds the MRR retention matrix for the 12 most recent
// cohorts.
func (s *Service) RevenueCohorts(ctx context.Context) ([]RevenueCohort, error) {
	groups, index, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cohorts := make([]RevenueCohort, 0, len(groups))
	for _, g := range groups {
		values := make([]int64, 0, trailingMonths)
		for offset := 0; offset < trailingMonths; offset++ {
			target := monthEnd(g.month, offset)
			if target.After(now) {
				break
			}
			var total int64
			for _, customerID := range g.customerIDs {
				total += index.CustomerMRRAsOf(customerID, target)
			}
			values = append(values, total)
		}

		cohort := RevenueCohort{
			CohortMonth:   g.month.Format("2006-01"),
			MonthlyValues: values,
		}
		if len(values) > 0 {
			cohort.InitialMRR = values[0]
		}
		cohorts = append(cohorts, cohort)
	}
	return cohorts, nil
}

// CustomerCohorts builds the active-customer retention matrix for the 12
// most recent cohorts. A customer counts as retained while their summed MRR
// at the month end is above zero.
func (s *Service) CustomerCohorts(ctx context.Context) ([]CustomerCohort, error) {
	groups, index, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cohorts := make([]CustomerCohort, 0, len(groups))
	for _, g := range groups {
		values := make([]int64, 0, trailingMonths)
		for offset := 0; offset < trailingMonths; offset++ {
			target := monthEnd(g.month, offset)
			if target.After(now) {
				break
			}
			var active int64
			for _, customerID := range g.customerIDs {
				if index.CustomerMRRAsOf(customerID, target) > 0 {
					active++
				}
			}
			values = append(values, active)
		}

		cohort := CustomerCohort{
			CohortMonth:   g.month.Format("2006-01"),
			MonthlyValues: values,
		}
		if len(values) > 0 {
			cohort.InitialSize = values[0]
		}
		cohorts = append(cohorts, cohort)
	}
	return cohorts, nil
}

type cohortGroup struct {
	month       time.Time
	customerIDs []snowflake.ID
}

// load assigns each customer to the month of their earliest `new` movement,
// keeps the 12 most recent cohorts and preloads their movements into one
// replay index.
func (s *Service) load(ctx context.Context) ([]cohortGroup, *ledgerdomain.MovementIndex, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, nil, ledgerdomain.ErrInvalidOrganization
	}

	acquisitions, err := s.ledgerRepo.ListFirstAcquisitions(ctx, s.db, orgID)
	if err != nil {
		return nil, nil, err
	}

	byMonth := make(map[time.Time][]snowflake.ID)
	for _, a := range acquisitions {
		month := monthStart(a.EffectiveDate)
		byMonth[month] = append(byMonth[month], a.CustomerID)
	}

	months := make([]time.Time, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].After(months[j]) })
	if len(months) > trailingMonths {
		months = months[:trailingMonths]
	}
	// Oldest cohort first in the response.
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	groups := make([]cohortGroup, 0, len(months))
	var customerIDs []snowflake.ID
	for _, month := range months {
		groups = append(groups, cohortGroup{month: month, customerIDs: byMonth[month]})
		customerIDs = append(customerIDs, byMonth[month]...)
	}

	index, err := s.ledgerSvc.LoadIndex(ctx, customerIDs)
	if err != nil {
		return nil, nil, err
	}
	return groups, index, nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthEnd returns the last instant of the month offset months after the
// given month start.
func monthEnd(month time.Time, offset int) time.Time {
	return month.AddDate(0, offset+1, 0).Add(-time.Nanosecond)
}

var Module = fx.Module("cohort",
	fx.Provide(NewService),
)
