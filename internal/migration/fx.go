package migration

import (
	customerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/domain"
	ledgerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/domain"
	organizationdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization/domain"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/seed"
	snapshotdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/domain"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		// Versioned SQL migrations are postgres only. The sqlite dev mode
		// derives the schema from the models instead.
		if conn.Dialector.Name() != "postgres" {
			if err := conn.AutoMigrate(
				&organizationdomain.Organization{},
				&customerdomain.Customer{},
				&subscriptiondomain.Subscription{},
				&ledgerdomain.Movement{},
				&snapshotdomain.MRRSnapshot{},
			); err != nil {
				return err
			}
			return seed.EnsureDefaultOrg(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		return seed.EnsureDefaultOrg(conn)
	}),
)
