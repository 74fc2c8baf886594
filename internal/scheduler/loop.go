package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Clock returns the current time
type Clock func() time.Time

type Option func(*options)

type options struct {
	clock Clock
}

// WithClock replaces time.Now
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// loop calls tick every interval. Stop cancels the loop and waits for a
// tick already running to finish.
type loop struct {
	name     string
	interval time.Duration
	tick     func(ctx context.Context)
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func (l *loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.running = true

	l.wg.Add(1)
	go l.run(ctx)

	l.logger.Info("Scheduler loop started", "loop", l.name, "interval", l.interval)
}

func (l *loop) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.safeTick(ctx)
		}
	}
}

func (l *loop) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Scheduler tick panicked", "loop", l.name, "panic", r)
		}
	}()
	l.tick(ctx)
}

func (l *loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.running = false
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Info("Scheduler loop stopped", "loop", l.name)
}
