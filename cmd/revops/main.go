package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/cohort"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/config"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/forecast"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/ingest"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/migration"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/observability"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/ratelimit"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/scheduler"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/server"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription"
	"github.com/maguire-murphy/rev-ops-platform-sub000/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		db.Module,
		fx.Provide(RegisterSnowflake),
		migration.Module,

		organization.Module,
		customer.Module,
		subscription.Module,
		ledger.Module,
		snapshot.Module,
		cohort.Module,
		forecast.Module,
		ingest.Module,
		ratelimit.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
