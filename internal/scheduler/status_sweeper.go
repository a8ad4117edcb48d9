package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/berth/internal/logger"
)

// Reconciler refreshes recorded workspace statuses.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// StatusSweeper periodically reconciles recorded statuses with the
// runtime. berth is request driven, so the sweeper is optional.
type StatusSweeper struct {
	reconciler    Reconciler
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
	done          chan struct{}
}

// NewStatusSweeper creates a sweeper. manualTrigger may be nil.
func NewStatusSweeper(
	r Reconciler,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *StatusSweeper {
	return &StatusSweeper{
		reconciler:    r,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		done:          make(chan struct{}),
	}
}

// Start runs one sweep, then keeps sweeping every interval until Stop or
// ctx is done. A non-positive interval only serves manual triggers.
func (s *StatusSweeper) Start(ctx context.Context) {
	s.Sweep(ctx)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		tick = ticker.C
		go func() {
			<-s.done
			ticker.Stop()
		}()
	}

	go func() {
		defer close(s.done)
		for {
			select {
			case <-tick:
				s.Sweep(ctx)
			case <-s.manualTrigger:
				s.logger.Info("manual status sweep triggered")
				s.Sweep(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends a started sweeper and waits for its loop to exit. Safe to call twice.
func (s *StatusSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

// Sweep runs one reconciliation pass.
func (s *StatusSweeper) Sweep(ctx context.Context) {
	start := time.Now()
	changed, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		s.logger.Error("status sweep failed", logger.Error(err))
		return
	}
	s.logger.Info("status sweep completed",
		logger.Int("changed", changed),
		logger.Duration("duration", time.Since(start)))
}
