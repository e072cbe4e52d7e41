package scheduler

import (
	"context"
	"sync"
	"time"

	installmentapp "github.com/goldbooks/backend/internal/application/installment"
	"github.com/goldbooks/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// OverdueScheduler runs the overdue sweep on a fixed interval. The sweep is a
// single idempotent update, so overlapping runs across multiple instances are
// harmless; no leader election is needed.
type OverdueScheduler struct {
	service   *installmentapp.OverdueService
	logger    *zap.Logger
	config    config.SweeperConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewOverdueScheduler creates a new OverdueScheduler
func NewOverdueScheduler(service *installmentapp.OverdueService, cfg config.SweeperConfig, logger *zap.Logger) *OverdueScheduler {
	return &OverdueScheduler{
		service: service,
		logger:  logger,
		config:  cfg,
	}
}

// Start starts the sweep loop. Returns immediately; the loop runs in the
// background until Stop or context cancellation.
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Overdue sweeper is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Overdue sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight sweep
func (s *OverdueScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *OverdueScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.sweep(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OverdueScheduler) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if _, err := s.service.Sweep(sweepCtx, time.Now()); err != nil {
		s.logger.Error("Scheduled overdue sweep failed", zap.Error(err))
	}
}
