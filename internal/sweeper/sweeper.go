// Package sweeper runs the periodic expiry sweep that reaps stale pending
// and waiting_payment requests.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Engine is the sweep entry point the Sweeper drives, implemented by the
// request service.
type Engine interface {
	RunExpirySweep(ctx context.Context) (expired int, skipped []string, err error)
}

// Sweeper invokes the engine's expiry sweep on a fixed interval. Sweeps are
// idempotent, so a sweep racing with an interactive transition is harmless:
// the loser of the compare-and-set observes the new state and is skipped.
type Sweeper struct {
	engine   Engine
	interval time.Duration
	lg       *zap.Logger
}

// New creates a Sweeper that sweeps every interval.
func New(engine Engine, interval time.Duration, lg *zap.Logger) *Sweeper {
	return &Sweeper{engine: engine, interval: interval, lg: lg}
}

// Run sweeps until ctx is cancelled. It sweeps once immediately so restarts
// do not delay reaping by a full interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, skipped, err := s.engine.RunExpirySweep(ctx)
	if err != nil {
		s.lg.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if len(skipped) > 0 {
		// Requests that raced with an interactive transition; expected.
		s.lg.Debug("expiry sweep skipped requests", zap.Strings("ids", skipped))
	}
	if expired > 0 {
		s.lg.Info("expired stale requests", zap.Int("count", expired))
	}
}
