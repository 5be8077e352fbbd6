package dto

import "time"

// Identifiers travel as decimal strings on the wire to survive JSON
// number precision limits.

// InboundMessageRequest is a message observed on the platform.
type InboundMessageRequest struct {
	AuthorID       string   `json:"author_id"`
	AuthorName     string   `json:"author_name"`
	AuthorIsSource bool     `json:"author_is_source"`
	ChannelID      string   `json:"channel_id"`
	MentionedIDs   []string `json:"mentioned_ids"`
	Content        string   `json:"content"`
}

// ChannelCreatedRequest is a channel creation observed on the platform.
type ChannelCreatedRequest struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
	GuildID   string `json:"guild_id"`
	CreatorID string `json:"creator_id"`
}

// IdentityRequest names a single user identity.
type IdentityRequest struct {
	ID string `json:"id"`
}

// ChannelRequest registers a channel by hand.
type ChannelRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GuildID string `json:"guild_id,omitempty"`
}

// ReportsChannelRequest points reports at a channel.
type ReportsChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

// WipeConfirmRequest carries the confirmation token from a wipe request.
type WipeConfirmRequest struct {
	Token string `json:"token"`
}

// CountsResponse mirrors domain.ActivityCounts.
type CountsResponse struct {
	Addressed int `json:"addressed"`
	Closed    int `json:"closed"`
	Deleted   int `json:"deleted"`
}

// AggregateResponse is one identity's counts in one window.
type AggregateResponse struct {
	Window   string         `json:"window"`
	Identity string         `json:"identity"`
	Counts   CountsResponse `json:"counts"`
}

// ChannelResponse describes a registered ticket channel.
type ChannelResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GuildID string `json:"guild_id"`
}

// MessageResponse is one logged ticket message.
type MessageResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// ReportEntryResponse is one identity's line in a rendered report.
type ReportEntryResponse struct {
	Identity string         `json:"identity"`
	Name     string         `json:"name"`
	Counts   CountsResponse `json:"counts"`
}

// ReportResponse is an aggregated activity report for one window.
type ReportResponse struct {
	Window      string                `json:"window"`
	Title       string                `json:"title"`
	GeneratedAt time.Time             `json:"generated_at"`
	Entries     []ReportEntryResponse `json:"entries"`
}

// WipeRequestResponse acknowledges a wipe request with its confirmation token.
type WipeRequestResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
