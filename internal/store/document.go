package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spec-kit/ticket-activity/internal/domain"
)

// Document names shared by the file and postgres backends.
const (
	docActivity = "activity"
	docMessages = "messages"
	docConfig   = "config"
)

// ident is a numeric identifier that serializes as a string to avoid
// precision loss for snowflake-scale ids, while still accepting bare
// numbers written by older versions of the tracker.
type ident int64

func (v ident) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(v), 10))
}

func (v *ident) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	*v = ident(n)
	return nil
}

func parseIdent(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	return n, nil
}

func formatIdent(n int64) string {
	return strconv.FormatInt(n, 10)
}

// activityEnvelope holds channels as raw JSON because the legacy format
// stored a bare id array instead of the id -> [name, guild] map.
type activityEnvelope struct {
	TicketChannels json.RawMessage                          `json:"ticket_channels"`
	UserActivity   map[string]map[string]map[string][]ident `json:"user_activity"`
}

func encodeActivity(snap *ActivitySnapshot) ([]byte, error) {
	channels := make(map[string][]string, len(snap.Channels))
	for _, ch := range snap.Channels {
		channels[formatIdent(ch.ID)] = []string{ch.Name, formatIdent(ch.GuildID)}
	}

	activity := make(map[string]map[string]map[string][]ident, len(snap.Activity))
	for window, identities := range snap.Activity {
		perWindow := make(map[string]map[string][]ident, len(identities))
		for identity, actions := range identities {
			perIdentity := make(map[string][]ident, len(actions))
			for kind, channelIDs := range actions {
				ids := make([]ident, 0, len(channelIDs))
				for _, id := range channelIDs {
					ids = append(ids, ident(id))
				}
				sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
				perIdentity[string(kind)] = ids
			}
			perWindow[formatIdent(identity)] = perIdentity
		}
		activity[string(window)] = perWindow
	}

	rawChannels, err := json.Marshal(channels)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(activityEnvelope{
		TicketChannels: rawChannels,
		UserActivity:   activity,
	}, "", "    ")
}

func decodeActivity(data []byte, fallbackGuild int64) (*ActivitySnapshot, error) {
	snap := NewActivitySnapshot()
	if len(data) == 0 {
		return snap, nil
	}

	var env activityEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode activity document: %w", err)
	}

	channels, err := decodeChannels(env.TicketChannels, fallbackGuild)
	if err != nil {
		return nil, err
	}
	snap.Channels = channels

	for windowName, identities := range env.UserActivity {
		window, ok := domain.ParseWindow(windowName)
		if !ok {
			continue
		}
		for identityStr, actions := range identities {
			identity, err := parseIdent(identityStr)
			if err != nil {
				return nil, err
			}
			perIdentity := make(map[domain.ActionKind][]int64, len(actions))
			for kindName, channelIDs := range actions {
				ids := make([]int64, 0, len(channelIDs))
				for _, id := range channelIDs {
					ids = append(ids, int64(id))
				}
				perIdentity[domain.ActionKind(kindName)] = ids
			}
			snap.Activity[window][identity] = perIdentity
		}
	}
	return snap, nil
}

func decodeChannels(raw json.RawMessage, fallbackGuild int64) ([]domain.TicketChannel, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var asMap map[string][]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		channels := make([]domain.TicketChannel, 0, len(asMap))
		for idStr, info := range asMap {
			id, err := parseIdent(idStr)
			if err != nil {
				return nil, err
			}
			ch := domain.TicketChannel{ID: id, Name: "unknown", GuildID: fallbackGuild}
			if len(info) > 0 {
				ch.Name = info[0]
			}
			if len(info) > 1 {
				if guild, err := parseIdent(info[1]); err == nil {
					ch.GuildID = guild
				}
			}
			channels = append(channels, ch)
		}
		sortChannels(channels)
		return channels, nil
	}

	// Legacy format: a bare list of channel ids without names or guilds.
	var asList []ident
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, fmt.Errorf("decode ticket_channels: %w", err)
	}
	channels := make([]domain.TicketChannel, 0, len(asList))
	for _, id := range asList {
		channels = append(channels, domain.TicketChannel{
			ID:      int64(id),
			Name:    "unknown",
			GuildID: fallbackGuild,
		})
	}
	sortChannels(channels)
	return channels, nil
}

func sortChannels(channels []domain.TicketChannel) {
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
}

type messageRecord struct {
	UserID    ident     `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

func encodeMessages(log MessageLog) ([]byte, error) {
	doc := make(map[string][]messageRecord, len(log))
	for channelID, messages := range log {
		records := make([]messageRecord, 0, len(messages))
		for _, msg := range messages {
			records = append(records, messageRecord{
				UserID:    ident(msg.UserID),
				Username:  msg.Username,
				Timestamp: msg.Timestamp.UTC(),
				Content:   msg.Content,
			})
		}
		doc[formatIdent(channelID)] = records
	}
	return json.MarshalIndent(doc, "", "    ")
}

func decodeMessages(data []byte) (MessageLog, error) {
	log := make(MessageLog)
	if len(data) == 0 {
		return log, nil
	}
	var doc map[string][]messageRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode message log: %w", err)
	}
	for channelStr, records := range doc {
		channelID, err := parseIdent(channelStr)
		if err != nil {
			return nil, err
		}
		messages := make([]domain.TicketMessage, 0, len(records))
		for _, rec := range records {
			messages = append(messages, domain.TicketMessage{
				UserID:    int64(rec.UserID),
				Username:  rec.Username,
				Timestamp: rec.Timestamp,
				Content:   rec.Content,
			})
		}
		log[channelID] = messages
	}
	return log, nil
}

// configDocument includes the retired single-source-id field so documents
// written by the legacy tracker load cleanly; it is never written back.
type configDocument struct {
	TrackedUsers     []ident `json:"tracked_users"`
	SourceBotIDs     []ident `json:"source_bot_ids"`
	LegacySourceID   *ident  `json:"source_bot_id,omitempty"`
	GuildID          ident   `json:"guild_id"`
	ReportsChannelID ident   `json:"reports_channel_id"`
}

func encodeConfig(cfg *Config) ([]byte, error) {
	doc := configDocument{
		TrackedUsers:     make([]ident, 0, len(cfg.TrackedUsers)),
		SourceBotIDs:     make([]ident, 0, len(cfg.SourceBotIDs)),
		GuildID:          ident(cfg.GuildID),
		ReportsChannelID: ident(cfg.ReportsChannelID),
	}
	for _, id := range cfg.TrackedUsers {
		doc.TrackedUsers = append(doc.TrackedUsers, ident(id))
	}
	for _, id := range cfg.SourceBotIDs {
		doc.SourceBotIDs = append(doc.SourceBotIDs, ident(id))
	}
	return json.MarshalIndent(doc, "", "    ")
}

// decodeConfig applies the one-shot legacy upgrade: a single source_bot_id
// folds into the list form, and the known source ids are merged in so a
// drifted document heals on load.
func decodeConfig(data []byte) (*Config, error) {
	if len(data) == 0 {
		return DefaultConfig(), nil
	}
	var doc configDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode config document: %w", err)
	}

	cfg := &Config{
		GuildID:          int64(doc.GuildID),
		ReportsChannelID: int64(doc.ReportsChannelID),
	}
	for _, id := range doc.TrackedUsers {
		cfg.TrackedUsers = appendUnique(cfg.TrackedUsers, int64(id))
	}
	for _, id := range doc.SourceBotIDs {
		cfg.SourceBotIDs = appendUnique(cfg.SourceBotIDs, int64(id))
	}
	if doc.LegacySourceID != nil && *doc.LegacySourceID != 0 {
		cfg.SourceBotIDs = appendUnique(cfg.SourceBotIDs, int64(*doc.LegacySourceID))
	}
	for _, id := range domain.KnownSourceIDs {
		cfg.SourceBotIDs = appendUnique(cfg.SourceBotIDs, id)
	}
	return cfg, nil
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
