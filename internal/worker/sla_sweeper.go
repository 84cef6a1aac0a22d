package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-routing/internal/service"
)

// SLASweeper runs the SLA breach/warning sweep on a fixed interval.
type SLASweeper struct {
	slaService *service.SLAService
	interval   time.Duration
	logger     *zap.Logger
}

// NewSLASweeper creates the sweeper.
func NewSLASweeper(slaService *service.SLAService, interval time.Duration, logger *zap.Logger) *SLASweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SLASweeper{slaService: slaService, interval: interval, logger: logger}
}

// Start launches the sweep loop. It runs one tick immediately, then on
// every interval until the context is cancelled. A failed tick is logged
// and the loop continues; the sweep is idempotent, so the next tick picks
// up whatever the failed one left behind.
func (s *SLASweeper) Start(ctx context.Context) {
	go func() {
		s.runTick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("sla sweeper stopped")
				return
			case <-ticker.C:
				s.runTick(ctx)
			}
		}
	}()
}

func (s *SLASweeper) runTick(ctx context.Context) {
	start := time.Now()
	if err := s.slaService.Tick(ctx, start.UTC()); err != nil {
		s.logger.Error("sla sweep failed", zap.Error(err))
		return
	}
	s.logger.Debug("sla sweep completed", zap.Duration("duration", time.Since(start)))
}
