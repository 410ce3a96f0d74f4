package escalation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Runner executes one sweep
type Runner interface {
	RunEscalation(ctx context.Context) (Report, error)
}

// Scheduler triggers a sweep on start and then every interval
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a Scheduler
func NewScheduler(runner Runner, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Start blocks until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Escalation scheduler started", zap.Duration("interval", s.interval))

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Escalation scheduler stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.RunEscalation(ctx); err != nil {
		s.logger.Error("Escalation sweep failed", zap.Error(err))
	}
}
