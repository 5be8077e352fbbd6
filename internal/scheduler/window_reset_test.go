package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/domain"
	"github.com/spec-kit/ticket-activity/internal/observability"
	"github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) NewTicker(time.Duration) Ticker {
	return &fakeTicker{ch: make(chan time.Time)}
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

type fakeResetter struct {
	resets     map[domain.Window]int
	flushCalls int
	resetErr   error
}

func newFakeResetter() *fakeResetter {
	return &fakeResetter{resets: make(map[domain.Window]int)}
}

func (f *fakeResetter) ResetWindow(_ context.Context, window domain.Window) error {
	f.resets[window]++
	return f.resetErr
}

func (f *fakeResetter) FlushDirty(context.Context) error {
	f.flushCalls++
	return nil
}

func newResetTask(ledger ledgerResetter) *WindowResetTask {
	return NewWindowResetTask(ledger, &fakeClock{}, time.Minute, zap.NewNop(), observability.NewMetrics())
}

func TestDailyResetFiresOncePerBoundary(t *testing.T) {
	ledger := newFakeResetter()
	task := newResetTask(ledger)
	ctx := context.Background()

	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// Several ticks land inside the boundary minute.
	task.Tick(ctx, midnight)
	task.Tick(ctx, midnight.Add(20*time.Second))
	task.Tick(ctx, midnight.Add(40*time.Second))

	assert.Equal(t, 1, ledger.resets[domain.WindowDaily])
	assert.Zero(t, ledger.resets[domain.WindowWeekly], "march 10 is not a weekly boundary")
	assert.Zero(t, ledger.resets[domain.WindowMonthly])
}

func TestDailyResetRearmsNextDay(t *testing.T) {
	ledger := newFakeResetter()
	task := newResetTask(ledger)
	ctx := context.Background()

	task.Tick(ctx, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	task.Tick(ctx, time.Date(2026, 3, 11, 0, 0, 30, 0, time.UTC))

	assert.Equal(t, 2, ledger.resets[domain.WindowDaily])
}

func TestNoResetOutsideBoundaryMinute(t *testing.T) {
	ledger := newFakeResetter()
	task := newResetTask(ledger)
	ctx := context.Background()

	task.Tick(ctx, time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC))
	task.Tick(ctx, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	assert.Empty(t, ledger.resets)
}

func TestWeeklyResetDays(t *testing.T) {
	ctx := context.Background()

	for _, day := range []int{1, 8, 15, 22} {
		ledger := newFakeResetter()
		task := newResetTask(ledger)
		task.Tick(ctx, time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC))
		require.Equal(t, 1, ledger.resets[domain.WindowWeekly], "day %d must fire weekly", day)
	}

	for _, day := range []int{2, 7, 14, 21, 28, 29} {
		ledger := newFakeResetter()
		task := newResetTask(ledger)
		task.Tick(ctx, time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC))
		require.Zero(t, ledger.resets[domain.WindowWeekly], "day %d must not fire weekly", day)
	}
}

func TestMonthlyResetOnFirstOnly(t *testing.T) {
	ledger := newFakeResetter()
	task := newResetTask(ledger)
	ctx := context.Background()

	task.Tick(ctx, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, ledger.resets[domain.WindowMonthly])
	assert.Equal(t, 1, ledger.resets[domain.WindowWeekly], "day 1 is also a weekly boundary")
	assert.Equal(t, 1, ledger.resets[domain.WindowDaily])

	task.Tick(ctx, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, ledger.resets[domain.WindowMonthly])
}

func TestMonthBoundaryCrossingResetsOnce(t *testing.T) {
	ledger := newFakeResetter()
	task := newResetTask(ledger)
	ctx := context.Background()

	// Minute ticks straddling the month boundary.
	start := time.Date(2026, 2, 28, 23, 59, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		task.Tick(ctx, start.Add(time.Duration(i)*time.Minute))
	}

	assert.Equal(t, 1, ledger.resets[domain.WindowMonthly])
	assert.Equal(t, 1, ledger.resets[domain.WindowWeekly])
	assert.Equal(t, 1, ledger.resets[domain.WindowDaily])
}

func TestResetFlushFailureDoesNotDoubleReset(t *testing.T) {
	ledger := newFakeResetter()
	ledger.resetErr = errorutil.NewPersistenceFailure(assert.AnError)
	task := newResetTask(ledger)
	ctx := context.Background()

	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	task.Tick(ctx, midnight)
	task.Tick(ctx, midnight.Add(30*time.Second))

	assert.Equal(t, 1, ledger.resets[domain.WindowDaily],
		"the in-memory reset happened; a failed flush must not trigger a second one")
}

func TestTickRetriesDirtyFlush(t *testing.T) {
	ledger := newFakeResetter()
	task := newResetTask(ledger)

	task.Tick(context.Background(), time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, 1, ledger.flushCalls)
}
