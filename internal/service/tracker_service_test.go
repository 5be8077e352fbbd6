package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/config"
	"github.com/spec-kit/ticket-activity/internal/domain"
	"github.com/spec-kit/ticket-activity/internal/events"
	"github.com/spec-kit/ticket-activity/internal/observability"
	"github.com/spec-kit/ticket-activity/internal/platform"
	"github.com/spec-kit/ticket-activity/internal/registry"
	"github.com/spec-kit/ticket-activity/internal/scheduler"
	"github.com/spec-kit/ticket-activity/internal/store"
	"github.com/spec-kit/ticket-activity/internal/tracker"
	"github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

type fakeConfigStore struct {
	cfg *store.Config
}

func (f *fakeConfigStore) LoadConfig(context.Context) (*store.Config, error) {
	return f.cfg, nil
}

func (f *fakeConfigStore) SaveConfig(_ context.Context, cfg *store.Config) error {
	f.cfg = cfg
	return nil
}

type fakeDataStore struct {
	snap     *store.ActivitySnapshot
	messages store.MessageLog
}

func (f *fakeDataStore) LoadActivity(context.Context, int64) (*store.ActivitySnapshot, error) {
	return f.snap, nil
}

func (f *fakeDataStore) SaveActivity(_ context.Context, snap *store.ActivitySnapshot) error {
	f.snap = snap
	return nil
}

func (f *fakeDataStore) LoadMessages(context.Context) (store.MessageLog, error) {
	return f.messages, nil
}

func (f *fakeDataStore) SaveMessages(_ context.Context, log store.MessageLog) error {
	f.messages = log
	return nil
}

type sentMessage struct {
	channelID int64
	content   string
}

type fakePlatform struct {
	mu       sync.Mutex
	live     map[int64]bool
	names    map[int64]string
	channels []platform.ChannelInfo
	listErr  error
	sent     []sentMessage
}

func (f *fakePlatform) IsChannelResolvable(_ context.Context, channelID int64) (bool, error) {
	live, ok := f.live[channelID]
	if !ok {
		return false, platform.ErrUnknown
	}
	return live, nil
}

func (f *fakePlatform) FetchDisplayName(_ context.Context, identity int64) (string, error) {
	name, ok := f.names[identity]
	if !ok {
		return "", platform.ErrNotFound
	}
	return name, nil
}

func (f *fakePlatform) ListChannels(context.Context, int64) ([]platform.ChannelInfo, error) {
	return f.channels, f.listErr
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID int64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: content})
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) NewTicker(time.Duration) scheduler.Ticker {
	panic("not used in tests")
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type testHarness struct {
	service    *TrackerService
	identities *registry.Identities
	ledger     *tracker.Ledger
	platform   *fakePlatform
	clock      *fakeClock
	dispatcher events.Dispatcher
}

func newHarness(t *testing.T, cfg *store.Config) *testHarness {
	t.Helper()
	logger := zap.NewNop()

	identities, err := registry.Load(context.Background(), &fakeConfigStore{cfg: cfg}, logger)
	require.NoError(t, err)

	ds := &fakeDataStore{snap: store.NewActivitySnapshot(), messages: make(store.MessageLog)}
	ledger, err := tracker.Load(context.Background(), identities, ds, logger)
	require.NoError(t, err)

	fp := &fakePlatform{live: make(map[int64]bool), names: make(map[int64]string)}
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	dispatcher := events.NewInMemoryDispatcher(logger)

	// Redis is pointed at a closed port; the resolver degrades to direct
	// platform lookups.
	names := platform.NewNameResolver(config.RedisConfig{Addr: "127.0.0.1:1", NameTTL: time.Minute}, fp, logger)
	t.Cleanup(names.Close)

	svc := NewTrackerService(Dependencies{
		Identities: identities,
		Ledger:     ledger,
		Classifier: tracker.NewClassifier(identities, ledger),
		Platform:   fp,
		Names:      names,
		Dispatcher: dispatcher,
		Clock:      clock,
		Logger:     logger,
		Metrics:    observability.NewMetrics(),
		WipeWindow: 30 * time.Second,
	})
	return &testHarness{
		service:    svc,
		identities: identities,
		ledger:     ledger,
		platform:   fp,
		clock:      clock,
		dispatcher: dispatcher,
	}
}

func defaultTestConfig() *store.Config {
	return &store.Config{
		TrackedUsers: []int64{7},
		SourceBotIDs: []int64{555},
		GuildID:      42,
	}
}

func TestRecordInboundModeratorMessage(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.service.AddChannel(ctx, 100, "ticket-0001", 0))

	var recorded []events.Event
	h.dispatcher.Subscribe(events.EventActivityRecorded, func(_ context.Context, ev events.Event) error {
		recorded = append(recorded, ev)
		return nil
	})

	err := h.service.RecordInboundMessage(ctx, domain.InboundMessage{
		AuthorID:   7,
		AuthorName: "alice",
		ChannelID:  100,
		Content:    "taking a look now",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ActivityCounts{Addressed: 1}, h.service.Aggregate(domain.WindowDaily, 7))

	messages, err := h.service.ChannelMessages(100)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "alice", messages[0].Username)
	assert.Equal(t, "taking a look now", messages[0].Content)

	require.Len(t, recorded, 1)
	assert.NotEmpty(t, recorded[0].ID)
}

func TestRecordInboundSourceSignal(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.service.AddChannel(ctx, 100, "ticket-0001", 0))

	// The source flag is not set by the caller; the registry recognizes the
	// author as a source bot.
	err := h.service.RecordInboundMessage(ctx, domain.InboundMessage{
		AuthorID:     555,
		ChannelID:    100,
		MentionedIDs: []int64{7},
		Content:      "<@7> closed the ticket",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ActivityCounts{Closed: 1}, h.service.Aggregate(domain.WindowDaily, 7))
	messages, err := h.service.ChannelMessages(100)
	require.NoError(t, err)
	assert.Empty(t, messages, "signals never hit the message log")
}

func TestSourceSignalInUnregisteredChannelIgnored(t *testing.T) {
	h := newHarness(t, defaultTestConfig())

	err := h.service.RecordInboundMessage(context.Background(), domain.InboundMessage{
		AuthorID:     555,
		ChannelID:    777,
		MentionedIDs: []int64{7},
		Content:      "<@7> closed the ticket",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ActivityCounts{}, h.service.Aggregate(domain.WindowDaily, 7))
	assert.False(t, h.ledger.HasChannel(777), "a stray signal never registers its channel")
}

func TestChannelMessagesForUnregisteredChannel(t *testing.T) {
	h := newHarness(t, defaultTestConfig())

	_, err := h.service.ChannelMessages(777)
	require.Error(t, err)
	assert.True(t, errorutil.IsCode(err, "NOT_TRACKED"))
}

func TestRecordInboundIgnoredMessage(t *testing.T) {
	h := newHarness(t, defaultTestConfig())

	err := h.service.RecordInboundMessage(context.Background(), domain.InboundMessage{
		AuthorID:  99,
		ChannelID: 100,
		Content:   "just passing by",
	})
	require.NoError(t, err)
	assert.Empty(t, h.ledger.AggregateAll(domain.WindowDaily))
}

func TestHandleChannelCreated(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	tests := []struct {
		name       string
		ev         platform.ChannelCreatedEvent
		registered bool
	}{
		{
			"source creates ticket channel",
			platform.ChannelCreatedEvent{ChannelID: 100, Name: "ticket-0001", GuildID: 42, CreatorID: 555},
			true,
		},
		{
			"non-source creator ignored",
			platform.ChannelCreatedEvent{ChannelID: 101, Name: "ticket-0002", GuildID: 42, CreatorID: 99},
			false,
		},
		{
			"name without separator ignored",
			platform.ChannelCreatedEvent{ChannelID: 102, Name: "general", GuildID: 42, CreatorID: 555},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, h.service.HandleChannelCreated(ctx, tt.ev))
			assert.Equal(t, tt.registered, h.ledger.HasChannel(tt.ev.ChannelID))
		})
	}

	// A duplicate creation event is tolerated.
	require.NoError(t, h.service.HandleChannelCreated(ctx, platform.ChannelCreatedEvent{
		ChannelID: 100, Name: "ticket-0001", GuildID: 42, CreatorID: 555,
	}))
}

func TestForceReconcilePrunesDeadChannels(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.service.AddChannel(ctx, 100, "ticket-dead", 0))
	require.NoError(t, h.service.AddChannel(ctx, 101, "ticket-live", 0))
	h.platform.live[100] = false
	h.platform.live[101] = true

	pruned, err := h.service.ForceReconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	assert.False(t, h.ledger.HasChannel(100))
	assert.True(t, h.ledger.HasChannel(101))
}

func TestUpdateStatsDiscoversTicketChannels(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.service.AddChannel(ctx, 100, "ticket-0001", 0))
	h.platform.live[100] = true
	h.platform.channels = []platform.ChannelInfo{
		{ID: 100, Name: "ticket-0001"},
		{ID: 103, Name: "ticket-0003"},
		{ID: 104, Name: "general"},
	}

	pruned, discovered, err := h.service.UpdateStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, pruned)
	assert.Equal(t, 1, discovered)
	assert.True(t, h.ledger.HasChannel(103))
	assert.False(t, h.ledger.HasChannel(104))
}

func TestUpdateStatsListingFailureIsBestEffort(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	h.platform.listErr = platform.ErrUnknown

	pruned, discovered, err := h.service.UpdateStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pruned)
	assert.Zero(t, discovered)
}

func TestBuildReportResolvesNames(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.ledger.Record(ctx, 7, 100, domain.ActionClosed, h.clock.Now()))
	h.platform.names[7] = "alice"

	rep := h.service.BuildReport(ctx, domain.WindowWeekly)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, "alice", rep.Entries[0].Name)
	assert.Equal(t, domain.ActivityCounts{Closed: 1}, rep.Entries[0].Counts)
}

func TestBuildBiweeklyReportUsesWeeklyData(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	// The harness clock sits on 2026-03-10, inside the first half-month.
	require.NoError(t, h.ledger.Record(ctx, 7, 100, domain.ActionClosed, h.clock.Now()))
	h.platform.names[7] = "alice"

	rep := h.service.BuildBiweeklyReport(ctx)
	assert.Equal(t, domain.WindowWeekly, rep.Window)
	assert.Equal(t, "Bi-Weekly Report (1-14 March)", rep.Title)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, domain.ActivityCounts{Closed: 1}, rep.Entries[0].Counts)
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", preview("short"))

	long := strings.Repeat("世", 30)
	got := preview(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("世", 26), got)
}

func TestSendWeeklyReportWithoutChannelIsNoOp(t *testing.T) {
	h := newHarness(t, defaultTestConfig())

	require.NoError(t, h.service.SendWeeklyReport(context.Background()))
	assert.Empty(t, h.platform.sent)
}

func TestSendWeeklyReportPostsToConfiguredChannel(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.service.SetReportsChannel(ctx, 900))
	require.NoError(t, h.ledger.Record(ctx, 7, 100, domain.ActionClosed, h.clock.Now()))
	h.platform.names[7] = "alice"

	require.NoError(t, h.service.SendWeeklyReport(ctx))
	require.Len(t, h.platform.sent, 1)
	assert.Equal(t, int64(900), h.platform.sent[0].channelID)
	assert.Contains(t, h.platform.sent[0].content, "Automated Weekly Report")
	assert.Contains(t, h.platform.sent[0].content, "alice (ID: 7)")
}

func TestWipeFlow(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.ledger.Record(ctx, 7, 100, domain.ActionClosed, h.clock.Now()))

	token, expiresAt := h.service.RequestWipe()
	assert.NotEmpty(t, token)
	assert.Equal(t, h.clock.Now().Add(30*time.Second), expiresAt)

	require.NoError(t, h.service.ConfirmWipe(ctx, token))
	assert.Empty(t, h.ledger.AggregateAll(domain.WindowDaily))

	// The token is single-use.
	err := h.service.ConfirmWipe(ctx, token)
	assert.True(t, errorutil.IsCode(err, "VALIDATION_FAILED"))
}

func TestWipeMismatchedToken(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.ledger.Record(ctx, 7, 100, domain.ActionClosed, h.clock.Now()))
	h.service.RequestWipe()

	err := h.service.ConfirmWipe(ctx, "not-the-token")
	assert.True(t, errorutil.IsCode(err, "VALIDATION_FAILED"))
	assert.NotEmpty(t, h.ledger.AggregateAll(domain.WindowDaily), "a rejected wipe never mutates")
}

func TestWipeExpiresAfterWindow(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.ledger.Record(ctx, 7, 100, domain.ActionClosed, h.clock.Now()))

	token, _ := h.service.RequestWipe()
	h.clock.Advance(31 * time.Second)

	err := h.service.ConfirmWipe(ctx, token)
	assert.True(t, errorutil.IsCode(err, "CONFLICT"))
	assert.NotEmpty(t, h.ledger.AggregateAll(domain.WindowDaily))
}

func TestNewWipeRequestReplacesPending(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	first, _ := h.service.RequestWipe()
	second, _ := h.service.RequestWipe()
	require.NotEqual(t, first, second)

	err := h.service.ConfirmWipe(ctx, first)
	assert.True(t, errorutil.IsCode(err, "VALIDATION_FAILED"))
	assert.NoError(t, h.service.ConfirmWipe(ctx, second))
}

func TestForceWindowReset(t *testing.T) {
	h := newHarness(t, defaultTestConfig())
	ctx := context.Background()

	require.NoError(t, h.ledger.Record(ctx, 7, 100, domain.ActionClosed, h.clock.Now()))
	require.NoError(t, h.service.ForceWindowReset(ctx, domain.WindowDaily))

	assert.Empty(t, h.ledger.AggregateAll(domain.WindowDaily))
	assert.NotEmpty(t, h.ledger.AggregateAll(domain.WindowWeekly))
}
