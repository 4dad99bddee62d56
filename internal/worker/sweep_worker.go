package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/sweeper"
)

// CycleRunner runs one sweep cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context, now time.Time, mode sweeper.Mode) (sweeper.Report, error)
}

// SweepWorker drives the sweeper on two schedules: a frequent re-score pass
// and a slower full pass that also auto-escalates.
type SweepWorker struct {
	runner             CycleRunner
	rescoreInterval    time.Duration
	escalationInterval time.Duration
	now                func() time.Time
	logger             *zap.Logger
}

// NewSweepWorker builds a worker. now defaults to time.Now.
func NewSweepWorker(runner CycleRunner, rescoreInterval, escalationInterval time.Duration, now func() time.Time, logger *zap.Logger) *SweepWorker {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepWorker{
		runner:             runner,
		rescoreInterval:    rescoreInterval,
		escalationInterval: escalationInterval,
		now:                now,
		logger:             logger,
	}
}

// Run blocks until ctx is cancelled.
func (w *SweepWorker) Run(ctx context.Context) error {
	rescore := time.NewTicker(w.rescoreInterval)
	defer rescore.Stop()
	full := time.NewTicker(w.escalationInterval)
	defer full.Stop()

	w.logger.Info("sweep worker started",
		zap.Duration("rescore_interval", w.rescoreInterval),
		zap.Duration("escalation_interval", w.escalationInterval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sweep worker stopped")
			return nil
		case <-rescore.C:
			w.tick(ctx, sweeper.ModeRescore)
		case <-full.C:
			w.tick(ctx, sweeper.ModeFull)
		}
	}
}

func (w *SweepWorker) tick(ctx context.Context, mode sweeper.Mode) {
	if _, err := w.runner.RunCycle(ctx, w.now().UTC(), mode); err != nil && ctx.Err() == nil {
		w.logger.Error("sweep cycle failed", zap.String("mode", string(mode)), zap.Error(err))
	}
}
