package store

import (
	"context"

	"github.com/spec-kit/ticket-activity/internal/domain"
)

// ActivitySnapshot is the full persisted activity state: the channel
// registry plus the three time-windowed activity maps.
type ActivitySnapshot struct {
	Channels []domain.TicketChannel
	Activity map[domain.Window]map[int64]map[domain.ActionKind][]int64
}

// NewActivitySnapshot returns an empty snapshot with all windows present.
func NewActivitySnapshot() *ActivitySnapshot {
	activity := make(map[domain.Window]map[int64]map[domain.ActionKind][]int64, len(domain.Windows()))
	for _, w := range domain.Windows() {
		activity[w] = make(map[int64]map[domain.ActionKind][]int64)
	}
	return &ActivitySnapshot{Activity: activity}
}

// MessageLog maps channel ids to their logged moderator messages.
type MessageLog map[int64][]domain.TicketMessage

// Config is the persisted runtime configuration document.
type Config struct {
	TrackedUsers     []int64
	SourceBotIDs     []int64
	GuildID          int64
	ReportsChannelID int64
}

// ConfigStore persists the configuration document. It is loaded before the
// activity state so the data store can use the configured guild id when
// migrating legacy documents.
type ConfigStore interface {
	// LoadConfig returns the stored configuration, applying the legacy
	// single-source-id migration and merging the known source ids. A missing
	// document yields the default configuration.
	LoadConfig(ctx context.Context) (*Config, error)
	SaveConfig(ctx context.Context, cfg *Config) error
}

// DataStore persists the activity and message-log documents. Saves must be
// atomic: a crash mid-write never leaves a torn document behind.
type DataStore interface {
	// LoadActivity returns the stored activity state. Legacy documents that
	// carry channels as a bare id list are migrated in place; such entries
	// have no recorded guild, so they are rehomed to fallbackGuild.
	LoadActivity(ctx context.Context, fallbackGuild int64) (*ActivitySnapshot, error)
	SaveActivity(ctx context.Context, snap *ActivitySnapshot) error
	LoadMessages(ctx context.Context) (MessageLog, error)
	SaveMessages(ctx context.Context, log MessageLog) error
}

// Store combines both persistence roles; every backend implements it.
type Store interface {
	ConfigStore
	DataStore
}

// DefaultConfig returns the configuration used when no document exists yet.
func DefaultConfig() *Config {
	return &Config{
		SourceBotIDs: append([]int64(nil), domain.KnownSourceIDs...),
	}
}
