package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/config"
	"github.com/spec-kit/ticket-activity/internal/domain"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFileStore(config.StorageConfig{
		DataDir:      dir,
		ActivityFile: "activity_data.json",
		MessagesFile: "ticket_messages.json",
		ConfigFile:   "config.json",
	}, zap.NewNop())
	require.NoError(t, err)
	return fs, dir
}

func TestActivityRoundTrip(t *testing.T) {
	fs, _ := newTestStore(t)
	ctx := context.Background()

	snap := NewActivitySnapshot()
	snap.Channels = []domain.TicketChannel{
		{ID: 100, Name: "ticket-0001", GuildID: 42},
		{ID: 101, Name: "ticket-0002", GuildID: 42},
	}
	snap.Activity[domain.WindowDaily][7] = map[domain.ActionKind][]int64{
		domain.ActionAddressed: {100, 101},
		domain.ActionClosed:    {100},
	}
	snap.Activity[domain.WindowMonthly][7] = map[domain.ActionKind][]int64{
		domain.ActionDeleted: {101},
	}

	require.NoError(t, fs.SaveActivity(ctx, snap))

	loaded, err := fs.LoadActivity(ctx, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, snap.Channels, loaded.Channels)
	assert.Equal(t, []int64{100, 101}, loaded.Activity[domain.WindowDaily][7][domain.ActionAddressed])
	assert.Equal(t, []int64{100}, loaded.Activity[domain.WindowDaily][7][domain.ActionClosed])
	assert.Equal(t, []int64{101}, loaded.Activity[domain.WindowMonthly][7][domain.ActionDeleted])
	assert.Empty(t, loaded.Activity[domain.WindowWeekly])
}

func TestActivityIdsSerializeAsStrings(t *testing.T) {
	fs, dir := newTestStore(t)
	ctx := context.Background()

	snap := NewActivitySnapshot()
	snap.Channels = []domain.TicketChannel{{ID: 1275351977286570056, Name: "ticket-9999", GuildID: 9}}
	require.NoError(t, fs.SaveActivity(ctx, snap))

	raw, err := os.ReadFile(filepath.Join(dir, "activity_data.json"))
	require.NoError(t, err)

	var doc struct {
		TicketChannels map[string][]string `json:"ticket_channels"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, []string{"ticket-9999", "9"}, doc.TicketChannels["1275351977286570056"])
}

func TestLegacyChannelListMigrates(t *testing.T) {
	fs, dir := newTestStore(t)
	ctx := context.Background()

	legacy := `{"ticket_channels": ["100", 101], "user_activity": {}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "activity_data.json"), []byte(legacy), 0o644))

	snap, err := fs.LoadActivity(ctx, 42)
	require.NoError(t, err)
	require.Len(t, snap.Channels, 2)
	assert.Equal(t, domain.TicketChannel{ID: 100, Name: "unknown", GuildID: 42}, snap.Channels[0])
	assert.Equal(t, domain.TicketChannel{ID: 101, Name: "unknown", GuildID: 42}, snap.Channels[1])
}

func TestCorruptActivityStartsFresh(t *testing.T) {
	fs, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "activity_data.json"), []byte("{not json"), 0o644))

	snap, err := fs.LoadActivity(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Channels)
	assert.Empty(t, snap.Activity[domain.WindowDaily])
}

func TestMessagesRoundTrip(t *testing.T) {
	fs, _ := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 5, 12, 30, 0, 0, time.UTC)
	log := MessageLog{
		100: {
			{UserID: 7, Username: "mod-seven", Timestamp: ts, Content: "looking into it"},
			{UserID: 8, Username: "mod-eight", Timestamp: ts.Add(time.Minute), Content: "resolved"},
		},
	}
	require.NoError(t, fs.SaveMessages(ctx, log))

	loaded, err := fs.LoadMessages(ctx)
	require.NoError(t, err)
	require.Len(t, loaded[100], 2)
	assert.Equal(t, log[100], loaded[100])
}

func TestConfigFirstRunWritesDefaults(t *testing.T) {
	fs, dir := newTestStore(t)
	ctx := context.Background()

	cfg, err := fs.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Empty(t, cfg.TrackedUsers)
	assert.Equal(t, domain.KnownSourceIDs, cfg.SourceBotIDs)

	_, err = os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err)
}

func TestLegacyConfigMigrates(t *testing.T) {
	fs, dir := newTestStore(t)
	ctx := context.Background()

	legacy := `{
        "tracked_users": ["7", "8"],
        "source_bot_id": "555",
        "guild_id": "42",
        "reports_channel_id": "900"
    }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(legacy), 0o644))

	cfg, err := fs.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, cfg.TrackedUsers)
	assert.Contains(t, cfg.SourceBotIDs, int64(555))
	for _, id := range domain.KnownSourceIDs {
		assert.Contains(t, cfg.SourceBotIDs, id)
	}
	assert.Equal(t, int64(42), cfg.GuildID)
	assert.Equal(t, int64(900), cfg.ReportsChannelID)

	// The retired field never survives a save.
	require.NoError(t, fs.SaveConfig(ctx, cfg))
	raw, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"source_bot_id"`)
}

func TestWriteAtomicLeavesNoTempFile(t *testing.T) {
	fs, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, fs.SaveActivity(ctx, NewActivitySnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp")
	}
}
