// Package server exposes the ingestion and analytics API over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/cohort"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/config"
	customerdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/customer/domain"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/forecast"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/ingest"
	ledgerservice "github.com/maguire-murphy/rev-ops-platform-sub000/internal/ledger/service"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/observability"
	obsmiddleware "github.com/maguire-murphy/rev-ops-platform-sub000/internal/observability/logger"
	obsmetrics "github.com/maguire-murphy/rev-ops-platform-sub000/internal/observability/metrics"
	organizationdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization/domain"
	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/ratelimit"
	snapshotservice "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/service"
	subscriptiondomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/subscription/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node
	clock  clock.Clock

	ingestSvc   *ingest.Service
	ledgerSvc   *ledgerservice.Service
	snapshotSvc *snapshotservice.Service
	cohortSvc   *cohort.Service
	forecastSvc *forecast.Service

	orgRepo      organizationdomain.Repository
	customerRepo customerdomain.Repository
	subRepo      subscriptiondomain.Repository

	limiter *ratelimit.IngestLimiter
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node
	Clock clock.Clock

	IngestSvc   *ingest.Service
	LedgerSvc   *ledgerservice.Service
	SnapshotSvc *snapshotservice.Service
	CohortSvc   *cohort.Service
	ForecastSvc *forecast.Service

	OrgRepo      organizationdomain.Repository
	CustomerRepo customerdomain.Repository
	SubRepo      subscriptiondomain.Repository

	Limiter *ratelimit.IngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		genID:  p.GenID,
		clock:  p.Clock,

		ingestSvc:   p.IngestSvc,
		ledgerSvc:   p.LedgerSvc,
		snapshotSvc: p.SnapshotSvc,
		cohortSvc:   p.CohortSvc,
		forecastSvc: p.ForecastSvc,

		orgRepo:      p.OrgRepo,
		customerRepo: p.CustomerRepo,
		subRepo:      p.SubRepo,

		limiter: p.Limiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/orgs", s.CreateOrganization)
	v1.GET("/orgs", s.ListOrganizations)

	org := v1.Group("/orgs/:org_id", s.OrgRequired())

	org.POST("/subscription-events", s.RateLimited(), s.IngestSubscriptionEvent)
	org.POST("/customers", s.RateLimited(), s.SyncCustomer)
	org.GET("/customers", s.ListCustomers)

	org.GET("/subscriptions/:id/mrr", s.SubscriptionMRRAsOf)

	org.GET("/snapshots", s.ListSnapshots)
	org.POST("/snapshots:build", s.BuildSnapshot)

	org.GET("/cohorts/revenue", s.RevenueCohorts)
	org.GET("/cohorts/customers", s.CustomerCohorts)

	org.GET("/forecast", s.Forecast)
}
