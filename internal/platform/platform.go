package platform

import (
	"context"
	"errors"

	"github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

// ErrUnknown means the platform could not determine an answer (connectivity
// loss, missing permission). Callers must treat the subject as unchanged;
// reconciliation in particular never prunes on an unknown answer. It carries
// the AMBIGUOUS domain code so the envelope stays meaningful when it
// surfaces through the API.
var ErrUnknown = errorutil.NewAmbiguous("platform: cannot determine")

// ErrNotFound means the identity or channel does not resolve on the
// platform.
var ErrNotFound = errors.New("platform: not found")

// Client is the chat-platform collaborator boundary. Implementations wrap
// the actual platform connection; the tracking core depends only on this
// interface.
type Client interface {
	// IsChannelResolvable reports whether the channel still exists on the
	// platform. Returns ErrUnknown when connectivity prevents an answer.
	IsChannelResolvable(ctx context.Context, channelID int64) (bool, error)

	// FetchDisplayName resolves an identity to its current display name.
	// Returns ErrNotFound for unresolvable identities.
	FetchDisplayName(ctx context.Context, identity int64) (string, error)

	// ListChannels returns the ids and names of all channels in a guild,
	// used by the stats-refresh sweep to discover untracked ticket channels.
	ListChannels(ctx context.Context, guildID int64) ([]ChannelInfo, error)

	// SendMessage posts content to a channel, used for automated reports.
	SendMessage(ctx context.Context, channelID int64, content string) error
}

// ChannelInfo is a minimal channel descriptor from a guild listing.
type ChannelInfo struct {
	ID   int64
	Name string
}

// ChannelCreatedEvent is delivered when the platform observes a new channel,
// enabling automatic ticket-channel discovery.
type ChannelCreatedEvent struct {
	ChannelID int64
	Name      string
	GuildID   int64
	CreatorID int64
}
