package domain

import "time"

// InboundMessage is the normalized platform message consumed by the
// classifier. All delivery variants (ordinary message, interaction, DM)
// collapse into this one shape before reaching the tracking core.
type InboundMessage struct {
	AuthorID       int64
	AuthorName     string
	AuthorIsSource bool
	ChannelID      int64
	MentionedIDs   []int64
	Content        string
}

// TicketMessage is a logged moderator message inside a ticket channel,
// keyed by channel for later inspection.
type TicketMessage struct {
	UserID    int64
	Username  string
	Timestamp time.Time
	Content   string
}
