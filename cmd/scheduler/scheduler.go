package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/courseforge/backend/internal/models"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CourseResyncer rebuilds every course aggregate
type CourseResyncer interface {
	// ResyncAll rebuilds the aggregate of every course
	//
	// "ctx" is the context for the request.
	//
	// Returns a report of the run and an error if the courses could not be listed.
	ResyncAll(ctx context.Context) (*models.ResyncAllReport, error)
}

// Scheduler runs drift repair on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	expr     string
	resyncer CourseResyncer
	timeout  time.Duration
	running  sync.Mutex
	logger   *zap.Logger
}

// NewScheduler creates a scheduler for a standard five-field cron expression
func NewScheduler(expr string, resyncer CourseResyncer, logger *zap.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid resync schedule %q: %w", expr, err)
	}

	return &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		expr:     expr,
		resyncer: resyncer,
		timeout:  time.Hour,
		logger:   logger,
	}, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Schedule(s.schedule, cron.FuncJob(s.runOnce))
	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("schedule", s.expr),
		zap.Time("next_run", s.schedule.Next(time.Now())),
	)
}

// Stop stops the scheduler and waits for a running resync
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// runOnce resyncs every course. Overlapping runs are skipped.
func (s *Scheduler) runOnce() {
	if !s.running.TryLock() {
		s.logger.Warn("previous resync still running, skipping")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	report, err := s.resyncer.ResyncAll(ctx)
	if err != nil {
		s.logger.Error("scheduled resync failed", zap.Error(err))
		return
	}

	s.logger.Info("scheduled resync finished",
		zap.Int("courses", report.Total),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("took", time.Since(started)),
	)
}
