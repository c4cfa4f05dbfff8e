package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/metrics"
)

// ExpirySweeper periodically moves lapsed active subscriptions to expired
type ExpirySweeper struct {
	subscriptions subscription.Service
	schedule      string
	logger        *logger.Logger

	scheduler *cron.Cron
	mu        sync.Mutex
	now       func() time.Time
}

// NewExpirySweeper creates a sweeper for a standard cron schedule or an
// @every descriptor. An empty schedule disables it.
func NewExpirySweeper(subs subscription.Service, schedule string, log *logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		subscriptions: subs,
		schedule:      schedule,
		logger:        log,
		now:           time.Now,
	}
}

// Start runs one sweep and schedules the rest. It returns immediately.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("Expiry sweep disabled")
		return nil
	}
	if s.scheduler != nil {
		return fmt.Errorf("expiry sweeper is already running")
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid expiry sweep schedule: %w", err)
	}

	// SkipIfStillRunning keeps a slow sweep from overlapping the next tick.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}

	s.sweep(ctx)

	c.Start()
	s.scheduler = c

	s.logger.WithFields(map[string]interface{}{
		"schedule": s.schedule,
	}).Info("Expiry sweeper started")
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	c := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("Expiry sweeper stopped")
}

// RunOnce performs a single sweep and returns how many subscriptions expired
func (s *ExpirySweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.subscriptions.ExpireOverdue(ctx, s.now())
	metrics.RecordExpirySweep(time.Since(start))
	return n, err
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Expiry sweep failed")
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"expired": n,
	}).Debug("Expiry sweep completed")
}
