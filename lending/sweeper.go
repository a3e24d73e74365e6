package lending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ExpiryRunner is the single operation the Sweeper drives. *Service implements it.
type ExpiryRunner interface {
	CancelExpiredReservations(ctx context.Context) (int, error)
}

// Sweeper periodically cancels reservations whose deadline has passed. Runs
// never overlap: one goroutine owns the ticker and sweeps inline.
type Sweeper struct {
	runner   ExpiryRunner
	interval time.Duration
	onStart  bool
	logger   Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SweeperOption func(*Sweeper)

// WithSweepOnStart runs one sweep immediately instead of waiting a full interval.
func WithSweepOnStart(on bool) SweeperOption {
	return func(s *Sweeper) { s.onStart = on }
}

func WithSweeperLogger(l Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSweeper(runner ExpiryRunner, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	s := &Sweeper{runner: runner, interval: interval, logger: nopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is done. A sweep in progress when ctx ends finishes its
// current record before Run returns.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.logger.Info("reservation sweeper started", "interval", s.interval.String())
	if s.onStart {
		s.sweepOnce(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reservation sweeper stopped")
			return
		case <-t.C:
			s.sweepOnce(ctx)
		}
	}
}

// Start runs the loop in the background. Calling Start twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.Run(ctx)
	}(s.done)
}

// Stop signals the loop and waits for it to exit, or for ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweepOnce never lets a failure escape: the next tick retries.
func (s *Sweeper) sweepOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reservation sweep panicked", "panic", fmt.Sprint(r))
		}
	}()
	n, err := s.runner.CancelExpiredReservations(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("reservation sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.logger.Info("reservations expired", "count", n)
	}
}
