package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/config"
	customerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/domain"
	customerrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/repository"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	ledgerrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/repository"
	ledgerservice "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/service"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/mrr"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	subscriptionrepository "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/repository"
	"github.com/maguire-murphy/rev-ops-platform-sub000/pkg/db"
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

	customerRepo customerdomain.Repository
	subRepo      subscriptiondomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&customerdomain.Customer{},
		&subscriptiondomain.Subscription{},
		&ledgerdomain.Movement{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	customerRepo := customerrepository.Provide()
	subRepo := subscriptionrepository.Provide()

	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB:               conn,
		Log:              zap.NewNop(),
		GenID:            node,
		Clock:            clk,
		Repo:             ledgerrepository.Provide(),
		CustomerRepo:     customerRepo,
		SubscriptionRepo: subRepo,
	})

	svc := NewService(ServiceParam{
		DB:           conn,
		Log:          zap.NewNop(),
		Clock:        clk,
		GenID:        node,
		Serializer:   NewSerializer(config.Config{}),
		Ledger:       ledgerSvc,
		SubRepo:      subRepo,
		CustomerRepo: customerRepo,
	})

	return &fixture{
		t:            t,
		db:           conn,
		clk:          clk,
		node:         node,
		svc:          svc,
		orgID:        node.Generate(),
		customerRepo: customerRepo,
		subRepo:      subRepo,
	}
}

func (f *fixture) syncCustomer(billingID string) *customerdomain.Customer {
	f.t.Helper()
	customer, err := f.svc.SyncCustomer(context.Background(), CustomerSync{
		OrgID:             f.orgID,
		BillingCustomerID: billingID,
		Name:              "Acme",
		Email:             "ops@acme.test",
	})
	if err != nil {
		f.t.Fatalf("sync customer: %v", err)
	}
	return customer
}

func (f *fixture) event(amount int64, status subscriptiondomain.Status) ledgerdomain.ChangeEvent {
	return ledgerdomain.ChangeEvent{
		OrgID:                  f.orgID,
		ExternalSubscriptionID: "sub_1",
		ExternalCustomerID:     "cus_1",
		Status:                 status,
		Amount:                 amount,
		Interval:               mrr.IntervalMonth,
		IntervalCount:          1,
	}
}

func TestIngestWritesMovementAndCurrentState(t *testing.T) {
	f := newFixture(t)
	customer := f.syncCustomer("cus_1")

	result, err := f.svc.Ingest(context.Background(), f.event(10000, subscriptiondomain.StatusActive))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Skipped {
		t.Fatal("unexpected skip")
	}
	if result.Movement == nil || result.Movement.Type != ledgerdomain.MovementNew {
		t.Fatalf("movement = %+v, want new", result.Movement)
	}
	if result.MRR != 10000 {
		t.Fatalf("mrr = %d, want 10000", result.MRR)
	}

	sub, err := f.subRepo.FindByExternalID(context.Background(), f.db, f.orgID, "sub_1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if sub == nil {
		t.Fatal("subscription row missing after ingest")
	}
	if sub.CustomerID != customer.ID || sub.Amount != 10000 || sub.Status != subscriptiondomain.StatusActive {
		t.Fatalf("subscription row = %+v", sub)
	}
	if sub.StartedAt == nil {
		t.Fatal("started_at not set on first billable event")
	}
}

func TestIngestUpdatesRowInPlace(t *testing.T) {
	f := newFixture(t)
	f.syncCustomer("cus_1")

	first, err := f.svc.Ingest(context.Background(), f.event(10000, subscriptiondomain.StatusActive))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := f.svc.Ingest(context.Background(), f.event(20000, subscriptiondomain.StatusActive))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if first.SubscriptionID != second.SubscriptionID {
		t.Fatalf("subscription id changed across events")
	}
	if second.Movement == nil || second.Movement.Type != ledgerdomain.MovementExpansion {
		t.Fatalf("movement = %+v, want expansion", second.Movement)
	}

	var count int64
	if err := f.db.Model(&subscriptiondomain.Subscription{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("subscription rows = %d, want 1", count)
	}
}

func TestIngestCancellationStampsCanceledAt(t *testing.T) {
	f := newFixture(t)
	f.syncCustomer("cus_1")

	if _, err := f.svc.Ingest(context.Background(), f.event(10000, subscriptiondomain.StatusActive)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := f.svc.Ingest(context.Background(), f.event(10000, subscriptiondomain.StatusCanceled)); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	sub, err := f.subRepo.FindByExternalID(context.Background(), f.db, f.orgID, "sub_1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if sub.CanceledAt == nil {
		t.Fatal("canceled_at not set")
	}
	if sub.StartedAt == nil {
		t.Fatal("started_at must survive cancellation")
	}
}

func TestIngestSkipsUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Ingest(context.Background(), f.event(10000, subscriptiondomain.StatusActive))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !result.Skipped {
		t.Fatal("expected skip")
	}

	var count int64
	if err := f.db.Model(&subscriptiondomain.Subscription{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("subscription rows = %d, want 0", count)
	}
}

func TestSyncCustomerUpsertsByExternalID(t *testing.T) {
	f := newFixture(t)

	created := f.syncCustomer("cus_1")

	updated, err := f.svc.SyncCustomer(context.Background(), CustomerSync{
		OrgID:             f.orgID,
		BillingCustomerID: "cus_1",
		Name:              "Acme Renamed",
		Email:             "billing@acme.test",
	})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("sync created a duplicate: %s vs %s", updated.ID, created.ID)
	}
	if updated.Name != "Acme Renamed" || updated.Email != "billing@acme.test" {
		t.Fatalf("customer not refreshed: %+v", updated)
	}

	var count int64
	if err := f.db.Model(&customerdomain.Customer{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("customer rows = %d, want 1", count)
	}
}

func TestSyncCustomerRequiresAnExternalID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SyncCustomer(context.Background(), CustomerSync{
		OrgID: f.orgID,
		Name:  "No IDs",
	})
	if err == nil {
		t.Fatal("expected error without external IDs")
	}
}

func TestSerializerFallbackIsMutuallyExclusive(t *testing.T) {
	s := NewSerializer(config.Config{})

	release, err := s.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	entered := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r, err := s.Acquire(context.Background(), "k")
		if err != nil {
			t.Errorf("second acquire: %v", err)
			return
		}
		close(entered)
		r()
	}()

	select {
	case <-entered:
		t.Fatal("second holder entered while the lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	wg.Wait()

	select {
	case <-entered:
	default:
		t.Fatal("second holder never entered after release")
	}
}

func TestSerializerIndependentKeysDoNotBlock(t *testing.T) {
	s := NewSerializer(config.Config{})

	releaseA, err := s.Acquire(context.Background(), "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB, err := s.Acquire(context.Background(), "b")
		if err == nil {
			releaseB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent key blocked")
	}
}
