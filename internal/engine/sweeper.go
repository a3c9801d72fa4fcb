package engine

import (
	"context"
	"sync"
	"time"

	"github.com/yiblet/clipd/internal/logger"
)

// DefaultSweepInterval is how often the Sweeper applies retention.
const DefaultSweepInterval = time.Hour

// Sweeper applies the retention policy periodically.
type Sweeper struct {
	engine   *Engine
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	done     sync.WaitGroup
}

// NewSweeper creates a sweeper for e. interval <= 0 selects
// DefaultSweepInterval.
func NewSweeper(e *Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		engine:   e,
		logger:   e.log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval until Stop is
// called or ctx ends.
func (s *Sweeper) Start(ctx context.Context) {
	s.Collect(ctx)

	ticker := time.NewTicker(s.interval)
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Collect(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the periodic sweep and waits for a running one to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.done.Wait()
}

// Collect runs a single sweep at the engine's current time.
func (s *Sweeper) Collect(ctx context.Context) int {
	n, err := s.engine.Sweep(ctx, s.engine.now())
	if err != nil {
		s.logger.Warn("retention sweep incomplete", logger.Error(err))
	}
	if n > 0 {
		s.logger.Info("retention sweep completed", logger.Int("removed", n))
	} else {
		s.logger.Debug("nothing to sweep")
	}
	return n
}
