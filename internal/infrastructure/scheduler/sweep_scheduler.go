package scheduler

import (
	"context"
	"sync"
	"time"

	appinv "github.com/commercehub/backend/internal/application/inventory"
	"go.uber.org/zap"
)

// SweepSchedulerConfig holds configuration for the reservation sweep scheduler
type SweepSchedulerConfig struct {
	// Interval is how often the sweep runs
	Interval time.Duration
}

// DefaultSweepSchedulerConfig returns default scheduler configuration
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Interval: time.Hour,
	}
}

// SweepScheduler periodically runs the reservation sweep. Runs are
// sequential: a tick that fires while a sweep is still in progress waits
// for the next tick instead of overlapping.
type SweepScheduler struct {
	config  SweepSchedulerConfig
	service *appinv.ReservationSweepService
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweepScheduler creates a new sweep scheduler
func NewSweepScheduler(config SweepSchedulerConfig, service *appinv.ReservationSweepService, logger *zap.Logger) *SweepScheduler {
	return &SweepScheduler{
		config:  config,
		service: service,
		logger:  logger,
	}
}

// Start starts the scheduler
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Reservation sweep scheduler started",
		zap.Duration("interval", s.config.Interval),
	)
	return nil
}

// Stop stops the scheduler and waits for an in-flight sweep to finish
func (s *SweepScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Reservation sweep scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SweepScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SweepScheduler) runOnce(ctx context.Context) {
	stats, err := s.service.Sweep(ctx)
	if err != nil {
		s.logger.Error("Reservation sweep failed", zap.Error(err))
		return
	}
	if stats.ExpiredReservations > 0 || stats.AbandonedCarts > 0 || stats.Failures > 0 {
		s.logger.Info("Reservation sweep completed",
			zap.Int("expired_reservations", stats.ExpiredReservations),
			zap.Int("abandoned_carts", stats.AbandonedCarts),
			zap.Int("released_by_cart", stats.ReleasedByCart),
			zap.Int("failures", stats.Failures),
		)
	}
}
