package worker

import (
	"context"
	"time"

	"module-monitor/feature/inventory/jobs"
	"module-monitor/feature/tasks"

	"go.uber.org/zap"
)

// ExpiredPurger removes expired entries from a shared store.
type ExpiredPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	Stale   []string `json:"stale"`
	Purged  int64    `json:"purged"`
	Expired int64    `json:"expired"`
}

// Sweeper fails tasks abandoned by a lost worker and purges old state.
type Sweeper struct {
	cfg      Config
	tasks    *tasks.Store
	payloads jobs.PayloadStore
	purger   ExpiredPurger
	logger   *zap.Logger
}

// NewSweeper creates a sweeper. purger may be nil when the store expires
// entries on its own.
func NewSweeper(cfg Config, store *tasks.Store, payloads jobs.PayloadStore, purger ExpiredPurger, logger *zap.Logger) *Sweeper {
	return &Sweeper{cfg: cfg, tasks: store, payloads: payloads, purger: purger, logger: logger}
}

// Sweep runs one pass.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	stale, err := s.tasks.FailStale(ctx, s.cfg.StaleAfter)
	report.Stale = stale
	if err != nil {
		return report, err
	}
	for _, id := range stale {
		t, err := s.tasks.Get(ctx, id)
		if err != nil || t.PayloadRef == "" {
			continue
		}
		if err := s.payloads.Delete(ctx, t.PayloadRef); err != nil {
			s.logger.Warn("Failed to delete payload of stale task", zap.String("task_id", id), zap.Error(err))
		}
	}

	if report.Purged, err = s.tasks.Purge(ctx, s.cfg.Retention); err != nil {
		return report, err
	}

	if s.purger != nil {
		if report.Expired, err = s.purger.DeleteExpired(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Serve implements suture.Service and sweeps every cfg.SweepInterval.
func (s *Sweeper) Serve(ctx context.Context) error {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("Task sweep failed", zap.Error(err))
				continue
			}
			if len(report.Stale) > 0 || report.Purged > 0 || report.Expired > 0 {
				s.logger.Info("Task sweep finished",
					zap.Strings("stale", report.Stale),
					zap.Int64("purged", report.Purged),
					zap.Int64("expired", report.Expired),
				)
			}
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (s *Sweeper) String() string {
	return "task-sweeper"
}
