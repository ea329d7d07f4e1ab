package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	"github.com/maguire-murphy/rev-ops-platform-sub000/pkg/db"
	"gorm.io/gorm"
)

type fixture struct {
	t     *testing.T
	db    *gorm.DB
	node  *snowflake.Node
	repo  ledgerdomain.Repository
	orgID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&ledgerdomain.Movement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	return &fixture{
		t:     t,
		db:    conn,
		node:  node,
		repo:  Provide(),
		orgID: node.Generate(),
	}
}

func (f *fixture) append(customerID snowflake.ID, movementType ledgerdomain.MovementType, effective time.Time, newMRR int64) {
	f.t.Helper()
	err := f.repo.Append(context.Background(), f.db, &ledgerdomain.Movement{
		ID:            f.node.Generate(),
		OrgID:         f.orgID,
		CustomerID:    customerID,
		Type:          movementType,
		AmountDelta:   newMRR,
		NewMRR:        newMRR,
		EffectiveDate: effective,
		CreatedAt:     effective,
	})
	if err != nil {
		f.t.Fatalf("append movement: %v", err)
	}
}

func TestListFirstAcquisitionsEarliestNewPerCustomer(t *testing.T) {
	f := newFixture(t)
	alice := f.node.Generate()
	bob := f.node.Generate()

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	may := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	// Alice churns and comes back with a second new; only the first counts.
	f.append(alice, ledgerdomain.MovementNew, jan, 10000)
	f.append(alice, ledgerdomain.MovementChurn, mar, 0)
	f.append(alice, ledgerdomain.MovementNew, may, 8000)
	f.append(bob, ledgerdomain.MovementNew, mar, 5000)

	acquisitions, err := f.repo.ListFirstAcquisitions(context.Background(), f.db, f.orgID)
	if err != nil {
		t.Fatalf("list first acquisitions: %v", err)
	}
	if len(acquisitions) != 2 {
		t.Fatalf("acquisitions = %d, want 2", len(acquisitions))
	}

	byCustomer := make(map[snowflake.ID]time.Time, len(acquisitions))
	for _, a := range acquisitions {
		byCustomer[a.CustomerID] = a.EffectiveDate
	}
	if got := byCustomer[alice]; !got.Equal(jan) {
		t.Fatalf("alice first acquisition = %v, want %v", got, jan)
	}
	if got := byCustomer[bob]; !got.Equal(mar) {
		t.Fatalf("bob first acquisition = %v, want %v", got, mar)
	}
}

func TestListFirstAcquisitionsIgnoresOtherMovementTypes(t *testing.T) {
	f := newFixture(t)
	customer := f.node.Generate()

	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	f.append(customer, ledgerdomain.MovementExpansion, feb, 12000)
	f.append(customer, ledgerdomain.MovementChurn, feb.AddDate(0, 1, 0), 0)

	acquisitions, err := f.repo.ListFirstAcquisitions(context.Background(), f.db, f.orgID)
	if err != nil {
		t.Fatalf("list first acquisitions: %v", err)
	}
	if len(acquisitions) != 0 {
		t.Fatalf("acquisitions = %d, want 0 without a new movement", len(acquisitions))
	}
}
