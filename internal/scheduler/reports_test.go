package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSender struct {
	sends int
	err   error
}

func (f *fakeSender) SendWeeklyReport(context.Context) error {
	f.sends++
	return f.err
}

func TestReportFiresOnReportDays(t *testing.T) {
	ctx := context.Background()

	for _, day := range []int{7, 14, 21, 28} {
		sender := &fakeSender{}
		task := NewReportTask(sender, &fakeClock{}, time.Minute, zap.NewNop())
		task.Tick(ctx, time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, 1, sender.sends, "day %d must send", day)
	}

	for _, day := range []int{1, 6, 8, 15, 22, 29} {
		sender := &fakeSender{}
		task := NewReportTask(sender, &fakeClock{}, time.Minute, zap.NewNop())
		task.Tick(ctx, time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC))
		assert.Zero(t, sender.sends, "day %d must not send", day)
	}
}

func TestReportSendsOncePerBoundary(t *testing.T) {
	sender := &fakeSender{}
	task := NewReportTask(sender, &fakeClock{}, time.Minute, zap.NewNop())
	ctx := context.Background()

	midnight := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	task.Tick(ctx, midnight)
	task.Tick(ctx, midnight.Add(45*time.Second))
	assert.Equal(t, 1, sender.sends)

	task.Tick(ctx, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, sender.sends)
}

func TestReportNotSentOutsideMidnight(t *testing.T) {
	sender := &fakeSender{}
	task := NewReportTask(sender, &fakeClock{}, time.Minute, zap.NewNop())

	task.Tick(context.Background(), time.Date(2026, 3, 7, 0, 1, 0, 0, time.UTC))
	assert.Zero(t, sender.sends)
}
