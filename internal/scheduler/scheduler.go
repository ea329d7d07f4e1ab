// Package scheduler runs the periodic aggregation jobs, currently the daily
// snapshot pass over every organization.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maguire-murphy/rev-ops-platform-sub000/internal/clock"
	obsmetrics "github.com/maguire-murphy/rev-ops-platform-sub000/internal/observability/metrics"
	organizationdomain "github.com/maguire-murphy/rev-ops-platform-sub000/internal/organization/domain"
	snapshotservice "github.com/maguire-murphy/rev-ops-platform-sub000/internal/snapshot/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	OrgRepo     organizationdomain.Repository
	SnapshotSvc *snapshotservice.Service
	Config      Config `optional:"true"`
}

type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	orgRepo     organizationdomain.Repository
	snapshotSvc *snapshotservice.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.OrgRepo == nil || p.SnapshotSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		clock:       p.Clock,
		orgRepo:     p.OrgRepo,
		snapshotSvc: p.SnapshotSvc,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	jobMetrics := obsmetrics.Jobs()
	jobMetrics.IncJobRun(name)

	err := fn(ctx)
	jobMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		jobMetrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	jobMetrics.IncJobError(name)
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes one full scheduler pass.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, "daily_snapshot", s.cfg.JobTimeout, s.DailySnapshotJob)
}

// DailySnapshotJob builds one snapshot per organization. A failing org is
// logged and skipped so the remaining tenants still get their row.
func (s *Scheduler) DailySnapshotJob(ctx context.Context) error {
	orgs, err := s.orgRepo.List(ctx, s.db)
	if err != nil {
		return err
	}

	var jobErr error
	for _, org := range orgs {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		snapshot, err := s.snapshotSvc.BuildDaily(ctx, org.ID)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			s.log.Error("daily snapshot failed",
				zap.String("org_id", org.ID.String()),
				zap.Error(err),
			)
			continue
		}
		s.log.Debug("daily snapshot built",
			zap.String("org_id", org.ID.String()),
			zap.String("snapshot_id", snapshot.ID.String()),
			zap.Int64("total_mrr", snapshot.TotalMRR),
		)
	}
	return jobErr
}

// RunForever ticks RunOnce on the configured interval until the context is
// canceled. An immediate pass runs first so a fresh deploy is never a full
// interval behind.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
