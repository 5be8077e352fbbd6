package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// reportDays are the calendar days whose midnight triggers the automated
// weekly report. Report days deliberately sit between the weekly reset days
// so each report covers a full sub-period of data.
var reportDays = map[int]bool{7: true, 14: true, 21: true, 28: true}

// reportSender is implemented by the tracker service.
type reportSender interface {
	SendWeeklyReport(ctx context.Context) error
}

// ReportTask sends the automated weekly report at 00:00 UTC on the report
// days, at most once per day, guarded by a last-sent dateKey like the
// window resets.
type ReportTask struct {
	sender   reportSender
	clock    Clock
	interval time.Duration
	logger   *zap.Logger

	lastSent string
}

// NewReportTask builds the automated report task.
func NewReportTask(sender reportSender, clock Clock, interval time.Duration, logger *zap.Logger) *ReportTask {
	return &ReportTask{sender: sender, clock: clock, interval: interval, logger: logger}
}

// Run ticks until the context is canceled.
func (t *ReportTask) Run(ctx context.Context) {
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

// Tick sends the report if now is a report boundary not yet served.
func (t *ReportTask) Tick(ctx context.Context, now time.Time) {
	now = now.UTC()
	if now.Hour() != 0 || now.Minute() != 0 || !reportDays[now.Day()] {
		return
	}
	key := now.Format("2006-01-02")
	if t.lastSent == key {
		return
	}
	t.lastSent = key

	if err := t.sender.SendWeeklyReport(ctx); err != nil {
		t.logger.Warn("automated report failed", zap.Error(err))
	}
}
