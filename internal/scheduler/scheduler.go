// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-ingester/internal/pipeline"
)

// Runner executes one ingestion for a logical run time.
type Runner interface {
	Run(ctx context.Context, logical time.Time) (*pipeline.Result, error)
}

// Scheduler manages the ingestion schedule.
// Runs execute one after another on the Start goroutine, so they never overlap.
type Scheduler struct {
	runner     Runner
	spec       string
	schedule   cron.Schedule
	runOnStart bool
	logger     zerolog.Logger
	now        func() time.Time

	mu        sync.RWMutex
	nextRunAt time.Time
	lastRunAt *time.Time
	running   bool
}

// New creates a new Scheduler for a standard cron expression or descriptor such as "@hourly".
func New(runner Runner, spec string, runOnStart bool, logger zerolog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	return &Scheduler{
		runner:     runner,
		spec:       spec,
		schedule:   schedule,
		runOnStart: runOnStart,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		now:        time.Now,
	}, nil
}

// Start starts the scheduler and blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Str("schedule", s.spec).Msg("starting scheduler")

	// Only the latest interval is caught up, older missed runs are skipped
	if s.runOnStart {
		logical := s.PreviousRunTime(s.now())
		s.logger.Info().
			Time("logicalTime", logical).
			Msg("running latest interval on start")
		s.runPipeline(ctx, logical)
	}

	next := s.schedule.Next(s.now())
	s.setNextRunAt(next)

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runPipeline(ctx, next)

			// Slots that passed while the run was in flight are skipped
			next = s.schedule.Next(s.now())
			s.setNextRunAt(next)

			timer.Reset(time.Until(next))
		}
	}
}

// PreviousRunTime returns the latest scheduled time at or before t.
func (s *Scheduler) PreviousRunTime(t time.Time) time.Time {
	// cron.Schedule only exposes Next. Schedules sparser than weekly fall back to t.
	var prev time.Time
	for c := s.schedule.Next(t.Add(-7 * 24 * time.Hour)); !c.IsZero() && !c.After(t); c = s.schedule.Next(c) {
		prev = c
	}
	if prev.IsZero() {
		return t
	}
	return prev
}

func (s *Scheduler) setNextRunAt(next time.Time) {
	s.mu.Lock()
	s.nextRunAt = next
	s.mu.Unlock()

	s.logger.Info().
		Time("nextRun", next).
		Dur("duration", time.Until(next)).
		Msg("next run scheduled")
}

// runPipeline runs the pipeline for one logical time.
func (s *Scheduler) runPipeline(ctx context.Context, logical time.Time) {
	s.logger.Info().Time("logicalTime", logical).Msg("running scheduled ingestion")

	now := s.now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	if _, err := s.runner.Run(ctx, logical); err != nil {
		s.logger.Error().Err(err).Msg("scheduled ingestion failed")
	} else {
		s.logger.Info().Msg("scheduled ingestion completed")
	}
}

// NextRunAt returns the time of the next scheduled run.
func (s *Scheduler) NextRunAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunAt
}

// LastRunAt returns the time the last run started.
func (s *Scheduler) LastRunAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunAt
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
