// Package forecast projects MRR forward from the snapshot history using a
// compound monthly growth rate.
package forecast

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/orgcontext"
	snapshotdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/domain"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// historyWindow is how many recent snapshots feed the growth rate.
	historyWindow = 6

	// defaultGrowthRate applies when there are not enough snapshots to
	// derive a rate.
	defaultGrowthRate = 0.05

	DefaultMonths = 12
	MaxMonths     = 36
)

// Point is one month on a forecast curve. Kind is "historical" for the
// current observed MRR and "projected" for everything after it.
type Point struct {
	Month time.Time `json:"month"`
	MRR   int64     `json:"mrr"`
	Kind  string    `json:"kind"`
}

type Forecast struct {
	GrowthRate   float64 `json:"growth_rate"`
	Conservative []Point `json:"conservative"`
	Moderate     []Point `json:"moderate"`
	Aggressive   []Point `json:"aggressive"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	snapshotRepo     snapshotdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock

	SnapshotRepo     snapshotdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("forecast.service"),
		clock: p.Clock,

		snapshotRepo:     p.SnapshotRepo,
		subscriptionRepo: p.SubscriptionRepo,
	}
}

// Project builds three growth curves over the given horizon. Each curve
// opens with the current live MRR and compounds monthly from there.
func (s *Service) Project(ctx context.Context, months int) (*Forecast, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if months <= 0 {
		months = DefaultMonths
	}
	if months > MaxMonths {
		months = MaxMonths
	}

	rate, err := s.growthRate(ctx, orgID)
	if err != nil {
		return nil, err
	}

	current, err := s.currentMRR(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start := monthStart(s.clock.Now())
	f := &Forecast{
		GrowthRate:   rate,
		Conservative: curve(current, math.Max(0, rate*0.5), start, months),
		Moderate:     curve(current, rate, start, months),
		Aggressive:   curve(current, rate*1.5, start, months),
	}
	return f, nil
}

// growthRate derives the compound monthly rate from the snapshot history.
// With fewer than two snapshots, or a zero starting point, it falls back to
// the default.
func (s *Service) growthRate(ctx context.Context, orgID snowflake.ID) (float64, error) {
	snapshots, err := s.snapshotRepo.ListRecent(ctx, s.db, orgID, historyWindow)
	if err != nil {
		return 0, err
	}
	if len(snapshots) < 2 {
		return defaultGrowthRate, nil
	}

	// ListRecent is newest first.
	newest := snapshots[0]
	oldest := snapshots[len(snapshots)-1]
	if oldest.TotalMRR <= 0 || newest.TotalMRR <= 0 {
		return defaultGrowthRate, nil
	}

	spans := float64(len(snapshots) - 1)
	ratio := float64(newest.TotalMRR) / float64(oldest.TotalMRR)
	return math.Pow(ratio, 1/spans) - 1, nil
}

func (s *Service) currentMRR(ctx context.Context, orgID snowflake.ID) (int64, error) {
	subscriptions, err := s.subscriptionRepo.ListBillable(ctx, s.db, orgID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, sub := range subscriptions {
		total += sub.CurrentMRR()
	}
	return total, nil
}

// curve compounds rate month over month. Values are rounded half up to whole
// cents and clamped at zero so a negative rate decays toward zero rather
// than crossing it.
func curve(current int64, rate float64, start time.Time, months int) []Point {
	points := make([]Point, 0, months+1)
	points = append(points, Point{Month: start, MRR: current, Kind: "historical"})

	value := float64(current)
	for i := 1; i <= months; i++ {
		value *= 1 + rate
		if value < 0 {
			value = 0
		}
		points = append(points, Point{
			Month: start.AddDate(0, i, 0),
			MRR:   int64(math.Round(value)),
			Kind:  "projected",
		})
	}
	return points
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

var Module = fx.Module("forecast",
	fx.Provide(NewService),
)
