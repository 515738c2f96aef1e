package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/config"
	"github.com/mamadbah2/simba/internal/service/collector"
)

const collectTimeout = 10 * time.Minute

// Collector refreshes the published data files.
type Collector interface {
	CollectCurrentYear(ctx context.Context) (collector.Summary, error)
}

// Invalidator drops cached data derived from a city's files.
type Invalidator interface {
	Invalidate(city string)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	collector Collector
	caches    []Invalidator
	cfg       config.CollectorConfig
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance. The schedule is a standard
// five field cron expression evaluated in cfg.Timezone. After each run the
// collected cities are invalidated in caches.
func NewScheduler(cfg config.CollectorConfig, collector Collector, logger *zap.Logger, caches ...Invalidator) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
		}
		loc = l
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		collector: collector,
		caches:    caches,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Start registers the collection job and starts the scheduler. An empty
// schedule leaves the scheduler idle.
func (s *Scheduler) Start() error {
	if s.cfg.CronSchedule == "" {
		s.logger.Info("scheduled collection disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.collect); err != nil {
		return fmt.Errorf("schedule collection %q: %w", s.cfg.CronSchedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule), zap.Strings("cities", s.cfg.Cities))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Entries reports the registered jobs.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) collect() {
	s.logger.Info("running scheduled collection")
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	summary, err := s.collector.CollectCurrentYear(ctx)
	if err != nil {
		s.logger.Error("scheduled collection failed", zap.Error(err))
		return
	}
	for _, city := range s.cfg.Cities {
		for _, c := range s.caches {
			c.Invalidate(city)
		}
	}
	s.logger.Info("scheduled collection finished",
		zap.Int("successful", summary.Successful),
		zap.Int("total", summary.Total),
	)
}
