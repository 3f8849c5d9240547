package cron

import (
	"context"
	"fmt"
	"time"

	"opsboard/config"
	"opsboard/internal/core"
	"opsboard/internal/service"

	"github.com/google/wire"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ProviderSet = wire.NewSet(NewCron)

const (
	defaultLookbackDays = 3
	defaultConcurrency  = 4
)

// jobRunner JobService 中排程會用到的部分
type jobRunner interface {
	RunSalesLineItems(ctx context.Context, req service.JobRequest) (*service.Result, error)
	RunLaborHours(ctx context.Context, req service.JobRequest) (*service.Result, error)
	RunWorkerProfiles(ctx context.Context, trigger service.Trigger) (*service.Result, error)
	Locations(ctx context.Context, kind core.AggregationKind, r core.DateRange) ([]string, error)
}

type rangedJob func(ctx context.Context, req service.JobRequest) (*service.Result, error)

type Cron struct {
	logger   *zap.Logger
	server   *cron.Cron
	config   *config.Configuration
	jobs     jobRunner
	location *time.Location
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCron .
func NewCron(logger *zap.Logger, config *config.Configuration, jobs *service.JobService) (*Cron, error) {
	return newCron(logger, config, jobs)
}

func newCron(logger *zap.Logger, config *config.Configuration, jobs jobRunner) (*Cron, error) {
	location := time.UTC
	if tz := config.Aggregation.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load aggregation timezone %q: %w", tz, err)
		}
		location = loc
	}
	log := cronLogger{logger.Sugar()}
	server := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(location),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	ctx, cancel := context.WithCancel(context.Background())

	return &Cron{
		logger:   logger,
		server:   server,
		config:   config,
		jobs:     jobs,
		location: location,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func (c *Cron) Run() error {
	conf := c.config.Aggregation.Cron
	if !conf.Enabled {
		c.logger.Info("aggregation cron disabled")
		return nil
	}

	entries := []struct {
		spec string
		job  func()
	}{
		{conf.SalesSpec, func() { c.runRanged(core.KindSalesLineItems, c.jobs.RunSalesLineItems) }},
		{conf.LaborSpec, func() { c.runRanged(core.KindLaborHours, c.jobs.RunLaborHours) }},
		{conf.IdentitySpec, c.runIdentity},
	}
	for _, e := range entries {
		if e.spec == "" {
			continue
		}
		if _, err := c.server.AddFunc(e.spec, e.job); err != nil {
			return fmt.Errorf("add cron %q: %w", e.spec, err)
		}
	}

	c.server.Start()
	return nil
}

func (c *Cron) Stop(ctx context.Context) error {
	done := c.server.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		// 逾時則取消進行中的 pass，marker 不會前進
		c.cancel()
		<-done.Done()
	}
	c.cancel()
	return nil
}

// lookback 門市時區的今天往回 LookbackDays 天
func (c *Cron) lookback() core.DateRange {
	days := c.config.Aggregation.Cron.LookbackDays
	if days <= 0 {
		days = defaultLookbackDays
	}
	today := core.TruncateDay(c.now().In(c.location))
	return core.DateRange{From: today.AddDate(0, 0, -days), To: today}
}

// runRanged 每個門市一個工作，並行數以 Concurrency 限制；單一門市失敗不影響其他門市
func (c *Cron) runRanged(kind core.AggregationKind, job rangedJob) {
	r := c.lookback()
	log := c.logger.With(zap.String("kind", string(kind)), zap.String("range", r.String()))

	locations, err := c.jobs.Locations(c.ctx, kind, r)
	if err != nil {
		log.Error("cron list locations failed", zap.Error(err))
		return
	}
	if len(locations) == 0 {
		log.Debug("cron found no locations")
		return
	}

	concurrency := c.config.Aggregation.Cron.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, loc := range locations {
		g.Go(func() error {
			result, err := job(c.ctx, service.JobRequest{Range: r, LocationID: loc, Trigger: service.TriggerCron})
			if err != nil {
				log.Warn("cron aggregation failed", zap.String("locationId", loc), zap.Error(err))
				return err
			}
			log.Debug("cron aggregation done",
				zap.String("locationId", loc),
				zap.Int("records", result.RecordsAggregated),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("cron aggregation finished with errors", zap.Error(err))
	}
}

func (c *Cron) runIdentity() {
	if _, err := c.jobs.RunWorkerProfiles(c.ctx, service.TriggerCron); err != nil {
		c.logger.Error("cron identity reconciliation failed", zap.Error(err))
	}
}

// cronLogger 把 robfig/cron 的 log 轉給 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
