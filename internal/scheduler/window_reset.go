package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/domain"
	"github.com/spec-kit/ticket-activity/internal/observability"
)

// weeklyResetDays are the calendar days whose midnight starts a new weekly
// sub-period. The fourth period runs from day 22 to the month's last day;
// its end never fires a reset.
var weeklyResetDays = map[int]bool{1: true, 8: true, 15: true, 22: true}

// ledgerResetter is the slice of the ledger the reset task mutates.
type ledgerResetter interface {
	ResetWindow(ctx context.Context, window domain.Window) error
	FlushDirty(ctx context.Context) error
}

// WindowResetTask flips each aggregation window to empty at its calendar
// boundary. The tick is coarser than the boundary instant, so each window
// remembers the dateKey it last fired for and fires exactly once per
// crossing even when several ticks land inside the boundary minute.
type WindowResetTask struct {
	ledger   ledgerResetter
	clock    Clock
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	lastFired map[domain.Window]string
}

// NewWindowResetTask builds the reset task with the given tick interval
// (one minute in production).
func NewWindowResetTask(ledger ledgerResetter, clock Clock, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics) *WindowResetTask {
	return &WindowResetTask{
		ledger:    ledger,
		clock:     clock,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
		lastFired: make(map[domain.Window]string, len(domain.Windows())),
	}
}

// Run ticks until the context is canceled.
func (t *WindowResetTask) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			t.Tick(ctx, t.clock.Now())
		}
	}
}

// Tick evaluates all three windows for the given moment and retries any
// flush that previously failed. Exported so tests can drive a simulated
// clock sequence.
func (t *WindowResetTask) Tick(ctx context.Context, now time.Time) {
	for _, window := range domain.Windows() {
		key, crossing := boundaryKey(window, now)
		if !crossing || t.lastFired[window] == key {
			continue
		}
		if err := t.ledger.ResetWindow(ctx, window); err != nil {
			// Persistence failed but the in-memory reset happened; record
			// the firing so the next tick does not reset twice.
			t.logger.Error("window reset flush failed",
				zap.String("window", string(window)), zap.Error(err))
			t.metrics.RecordFlushFailure()
		}
		t.lastFired[window] = key
		t.metrics.RecordWindowReset(string(window))
	}

	if err := t.ledger.FlushDirty(ctx); err != nil {
		t.logger.Warn("dirty flush retry failed", zap.Error(err))
	}
}

// boundaryKey reports whether now lies in a window's boundary minute
// (00:00 UTC on a firing day) and returns the dateKey identifying that
// boundary crossing.
func boundaryKey(window domain.Window, now time.Time) (string, bool) {
	now = now.UTC()
	if now.Hour() != 0 || now.Minute() != 0 {
		return "", false
	}

	switch window {
	case domain.WindowDaily:
		return now.Format("2006-01-02"), true
	case domain.WindowWeekly:
		if weeklyResetDays[now.Day()] {
			return now.Format("2006-01-02"), true
		}
	case domain.WindowMonthly:
		if now.Day() == 1 {
			return now.Format("2006-01"), true
		}
	}
	return "", false
}
