package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/mrr"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/orgcontext"
	snapshotdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/domain"
	snapshotrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/repository"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	subscriptionrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/repository"
	"github.com/maguire-murphy/rev-ops-platform-sub000/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	t     *testing.T
	db    *gorm.DB
	clk   *clock.FakeClock
	node  *snowflake.Node
	svc   *Service
	orgID snowflake.ID

	snapshotRepo snapshotdomain.Repository
	subRepo      subscriptiondomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&subscriptiondomain.Subscription{},
		&snapshotdomain.MRRSnapshot{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	snapshotRepo := snapshotrepository.Provide()
	subRepo := subscriptionrepository.Provide()

	svc := NewService(ServiceParam{
		DB:               conn,
		Log:              zap.NewNop(),
		Clock:            clk,
		SnapshotRepo:     snapshotRepo,
		SubscriptionRepo: subRepo,
	})

	return &fixture{
		t:            t,
		db:           conn,
		clk:          clk,
		node:         node,
		svc:          svc,
		orgID:        node.Generate(),
		snapshotRepo: snapshotRepo,
		subRepo:      subRepo,
	}
}

func (f *fixture) ctx() context.Context {
	return orgcontext.WithOrgID(context.Background(), f.orgID)
}

func (f *fixture) seedSnapshot(daysAgo int, totalMRR int64) {
	f.t.Helper()
	now := f.clk.Now()
	day := now.AddDate(0, 0, -daysAgo)
	err := f.snapshotRepo.Insert(context.Background(), f.db, &snapshotdomain.MRRSnapshot{
		ID:           f.node.Generate(),
		OrgID:        f.orgID,
		SnapshotDate: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		TotalMRR:     totalMRR,
		CreatedAt:    day,
	})
	if err != nil {
		f.t.Fatalf("seed snapshot: %v", err)
	}
}

func (f *fixture) seedActiveSubscription(amount int64) {
	f.t.Helper()
	now := f.clk.Now()
	err := f.subRepo.Upsert(context.Background(), f.db, &subscriptiondomain.Subscription{
		ID:            f.node.Generate(),
		OrgID:         f.orgID,
		CustomerID:    f.node.Generate(),
		ExternalID:    f.node.Generate().String(),
		Status:        subscriptiondomain.StatusActive,
		Amount:        amount,
		Interval:      mrr.IntervalMonth,
		IntervalCount: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		f.t.Fatalf("seed subscription: %v", err)
	}
}

func TestProjectDerivesCompoundGrowthRate(t *testing.T) {
	f := newFixture(t)

	// 10000 -> 14400 across two spans is 20% compound monthly growth.
	f.seedSnapshot(3, 10000)
	f.seedSnapshot(2, 12000)
	f.seedSnapshot(1, 14400)
	f.seedActiveSubscription(10000)

	forecast, err := f.svc.Project(f.ctx(), 2)
	require.NoError(t, err)

	assert.InDelta(t, 0.2, forecast.GrowthRate, 1e-9)

	moderate := forecast.Moderate
	require.Len(t, moderate, 3)
	assert.Equal(t, "historical", moderate[0].Kind)
	assert.Equal(t, int64(10000), moderate[0].MRR)
	assert.Equal(t, int64(12000), moderate[1].MRR)
	assert.Equal(t, int64(14400), moderate[2].MRR)

	assert.Equal(t, int64(11000), forecast.Conservative[1].MRR)
	assert.Equal(t, int64(13000), forecast.Aggressive[1].MRR)
}

func TestProjectDefaultsRateWithThinHistory(t *testing.T) {
	f := newFixture(t)

	f.seedSnapshot(1, 10000)
	f.seedActiveSubscription(10000)

	forecast, err := f.svc.Project(f.ctx(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.05, forecast.GrowthRate)
	assert.Equal(t, int64(10500), forecast.Moderate[1].MRR)
}

func TestProjectDefaultsRateOnZeroBase(t *testing.T) {
	f := newFixture(t)

	f.seedSnapshot(2, 0)
	f.seedSnapshot(1, 14400)

	forecast, err := f.svc.Project(f.ctx(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.05, forecast.GrowthRate)
}

func TestProjectNegativeGrowthConservativeClampsToFlat(t *testing.T) {
	f := newFixture(t)

	// Shrinking history: 20000 -> 10000 is -50% monthly.
	f.seedSnapshot(2, 20000)
	f.seedSnapshot(1, 10000)
	f.seedActiveSubscription(10000)

	forecast, err := f.svc.Project(f.ctx(), 2)
	require.NoError(t, err)
	assert.Negative(t, forecast.GrowthRate)

	// Conservative is max(0, r/2), so the curve stays flat.
	assert.Equal(t, int64(10000), forecast.Conservative[1].MRR)
	assert.Equal(t, int64(10000), forecast.Conservative[2].MRR)
	// Moderate follows the negative rate down.
	assert.Equal(t, int64(5000), forecast.Moderate[1].MRR)
}

func TestProjectClampsHorizon(t *testing.T) {
	f := newFixture(t)
	f.seedActiveSubscription(10000)

	forecast, err := f.svc.Project(f.ctx(), 500)
	require.NoError(t, err)
	assert.Len(t, forecast.Moderate, MaxMonths+1)

	forecast, err = f.svc.Project(f.ctx(), 0)
	require.NoError(t, err)
	assert.Len(t, forecast.Moderate, DefaultMonths+1)
}
