package events

import (
	"time"

	"github.com/spec-kit/ticket-activity/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventActivityRecorded EventType = "activity_recorded"
	EventMessageLogged    EventType = "message_logged"
	EventChannelTracked   EventType = "channel_tracked"
	EventChannelPruned    EventType = "channel_pruned"
	EventWindowReset      EventType = "window_reset"
	EventReportSent       EventType = "report_sent"
	EventDataWiped        EventType = "data_wiped"
)

// Event represents a domain event emitted by the tracker.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ActivityRecordedPayload payload.
type ActivityRecordedPayload struct {
	Identity  int64             `json:"identity"`
	ChannelID int64             `json:"channel_id"`
	Action    domain.ActionKind `json:"action"`
}

// MessageLoggedPayload payload.
type MessageLoggedPayload struct {
	Identity  int64  `json:"identity"`
	ChannelID int64  `json:"channel_id"`
	Preview   string `json:"preview"`
}

// ChannelTrackedPayload payload.
type ChannelTrackedPayload struct {
	ChannelID int64  `json:"channel_id"`
	Name      string `json:"name"`
	GuildID   int64  `json:"guild_id"`
	Automatic bool   `json:"automatic"`
}

// ChannelPrunedPayload payload.
type ChannelPrunedPayload struct {
	ChannelID int64 `json:"channel_id"`
}

// WindowResetPayload payload.
type WindowResetPayload struct {
	Window domain.Window `json:"window"`
	Forced bool          `json:"forced"`
}

// ReportSentPayload payload.
type ReportSentPayload struct {
	Window    domain.Window `json:"window"`
	ChannelID int64         `json:"channel_id"`
}
