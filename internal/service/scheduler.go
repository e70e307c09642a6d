package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vireolabs/vireo/internal/config"
	"github.com/vireolabs/vireo/internal/models"
)

// Scheduler periodically relaunches jobs stranded in pending, e.g. after a
// process restart killed their pipeline goroutine. The persisted status is
// the only in-progress marker: a job past pending is assumed to have a live
// run and is left alone.
type Scheduler struct {
	config   *config.SchedulerConfig
	logger   *zap.Logger
	jobs     JobStore
	pipeline *Pipeline
	ticker   *time.Ticker
	stopCh   chan struct{}
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, jobs JobStore, pipeline *Pipeline) *Scheduler {
	return &Scheduler{
		config:   cfg,
		logger:   logger,
		jobs:     jobs,
		pipeline: pipeline,
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.SweepInterval)
	if err != nil {
		s.logger.Error("Invalid sweep interval", zap.String("interval", s.config.SweepInterval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler", zap.String("sweep_interval", s.config.SweepInterval))

	s.ticker = time.NewTicker(interval)

	// Run first sweep immediately
	go func() {
		s.logger.Info("Running initial sweep")
		if err := s.runSweep(ctx); err != nil {
			s.logger.Error("Initial sweep failed", zap.Error(err))
		}
	}()

	// Start periodic sweep
	go func() {
		for {
			select {
			case <-s.ticker.C:
				if err := s.runSweep(ctx); err != nil {
					s.logger.Error("Scheduled sweep failed", zap.Error(err))
				}
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown completed")
}

func (s *Scheduler) runSweep(ctx context.Context) error {
	start := time.Now()

	stranded, err := s.jobs.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		return err
	}

	for _, job := range stranded {
		s.logger.Info("Relaunching stranded job", zap.String("job_id", job.ID))
		s.pipeline.Resume(job.ID)
	}

	s.logger.Debug("Sweep completed",
		zap.Int("relaunched", len(stranded)),
		zap.Duration("duration", time.Since(start)))
	return nil
}
