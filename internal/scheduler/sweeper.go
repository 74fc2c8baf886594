package scheduler

import (
	"context"
	"log/slog"
	"time"
)

const DefaultSweepInterval = time.Hour

// Expirer downgrades lapsed paid subscriptions
type Expirer interface {
	ExpireSubscriptions(ctx context.Context, now time.Time) (int, error)
}

// Sweeper runs the subscription expiry pass on its own interval
type Sweeper struct {
	loop
	expirer Expirer
	now     Clock
}

func NewSweeper(expirer Expirer, logger *slog.Logger, interval time.Duration, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	o := buildOptions(opts)

	s := &Sweeper{expirer: expirer, now: o.clock}
	s.loop = loop{
		name:     "subscription_sweep",
		interval: interval,
		logger:   logger,
		tick:     func(ctx context.Context) { s.Sweep(ctx) },
	}
	return s
}

// Sweep returns how many subscriptions were expired; errors are logged
func (s *Sweeper) Sweep(ctx context.Context) int {
	n, err := s.expirer.ExpireSubscriptions(ctx, s.now())
	if err != nil {
		s.logger.Error("Subscription sweep failed", "error", err)
	}
	return n
}
