package service

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/domain"
	"github.com/spec-kit/ticket-activity/internal/events"
	"github.com/spec-kit/ticket-activity/internal/observability"
	"github.com/spec-kit/ticket-activity/internal/platform"
	"github.com/spec-kit/ticket-activity/internal/registry"
	"github.com/spec-kit/ticket-activity/internal/report"
	"github.com/spec-kit/ticket-activity/internal/scheduler"
	"github.com/spec-kit/ticket-activity/internal/tracker"
	"github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

// TrackerService coordinates the tracking workflows: inbound message
// processing, registry administration, reconciliation and reporting. It is
// the single handle handed to the HTTP layer and the scheduled tasks.
type TrackerService struct {
	identities *registry.Identities
	ledger     *tracker.Ledger
	classifier *tracker.Classifier
	platform   platform.Client
	names      *platform.NameResolver
	dispatcher events.Dispatcher
	clock      scheduler.Clock
	logger     *zap.Logger
	metrics    *observability.Metrics

	wipeMu       sync.Mutex
	wipeToken    string
	wipeDeadline time.Time
	wipeWindow   time.Duration
}

// Dependencies bundles collaborators for the tracker service.
type Dependencies struct {
	Identities *registry.Identities
	Ledger     *tracker.Ledger
	Classifier *tracker.Classifier
	Platform   platform.Client
	Names      *platform.NameResolver
	Dispatcher events.Dispatcher
	Clock      scheduler.Clock
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	WipeWindow time.Duration
}

// NewTrackerService constructs the service.
func NewTrackerService(deps Dependencies) *TrackerService {
	wipeWindow := deps.WipeWindow
	if wipeWindow <= 0 {
		wipeWindow = 30 * time.Second
	}
	return &TrackerService{
		identities: deps.Identities,
		ledger:     deps.Ledger,
		classifier: deps.Classifier,
		platform:   deps.Platform,
		names:      deps.Names,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		wipeWindow: wipeWindow,
	}
}

// RecordInboundMessage classifies a platform message and records the
// resulting activity, if any. Ordinary moderator activity in a ticket
// channel is additionally appended to the channel's message log.
func (s *TrackerService) RecordInboundMessage(ctx context.Context, msg domain.InboundMessage) error {
	// The source flag may be set by the platform adapter; the registry is
	// authoritative either way.
	msg.AuthorIsSource = msg.AuthorIsSource || s.identities.IsSource(msg.AuthorID)

	result := s.classifier.Classify(msg)
	if !result.Activity {
		s.metrics.RecordClassification("ignored")
		return nil
	}
	s.metrics.RecordClassification(string(result.Kind))

	now := s.clock.Now()
	if err := s.ledger.Record(ctx, result.Identity, result.ChannelID, result.Kind, now); err != nil {
		return err
	}

	if result.Kind == domain.ActionAddressed {
		if err := s.ledger.RecordMessage(ctx, msg.AuthorID, msg.AuthorName, msg.ChannelID, msg.Content, now); err != nil {
			return err
		}
		s.publish(ctx, events.EventMessageLogged, events.MessageLoggedPayload{
			Identity:  msg.AuthorID,
			ChannelID: msg.ChannelID,
			Preview:   preview(msg.Content),
		})
	}

	s.publish(ctx, events.EventActivityRecorded, events.ActivityRecordedPayload{
		Identity:  result.Identity,
		ChannelID: result.ChannelID,
		Action:    result.Kind,
	})
	return nil
}

// HandleChannelCreated registers ticket-shaped channels created by a
// registered source bot.
func (s *TrackerService) HandleChannelCreated(ctx context.Context, ev platform.ChannelCreatedEvent) error {
	if !s.identities.IsSource(ev.CreatorID) {
		return nil
	}
	if !domain.IsTicketShaped(ev.Name) {
		return nil
	}

	err := s.ledger.AddChannel(ctx, domain.TicketChannel{
		ID:      ev.ChannelID,
		Name:    ev.Name,
		GuildID: ev.GuildID,
	})
	if errorutil.IsCode(err, "ALREADY_TRACKED") {
		return nil
	}
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventChannelTracked, events.ChannelTrackedPayload{
		ChannelID: ev.ChannelID,
		Name:      ev.Name,
		GuildID:   ev.GuildID,
		Automatic: true,
	})
	return nil
}

// Aggregate returns the per-action counts for one identity in one window.
func (s *TrackerService) Aggregate(window domain.Window, identity int64) domain.ActivityCounts {
	return s.ledger.Aggregate(window, identity)
}

// Channels returns the tracked ticket channels.
func (s *TrackerService) Channels() []domain.TicketChannel {
	return s.ledger.Channels()
}

// ChannelMessages returns the logged moderator messages for a channel.
// Asking about an unregistered channel is an error, not an empty log.
func (s *TrackerService) ChannelMessages(channelID int64) ([]domain.TicketMessage, error) {
	if !s.ledger.HasChannel(channelID) {
		return nil, errorutil.NewNotTracked("channel", channelID)
	}
	return s.ledger.Messages(channelID), nil
}

// TrackedIDs returns the tracked identities.
func (s *TrackerService) TrackedIDs() []int64 {
	return s.identities.TrackedIDs()
}

// SourceIDs returns the registered source identities.
func (s *TrackerService) SourceIDs() []int64 {
	return s.identities.SourceIDs()
}

// AddTracked registers an identity for tracking.
func (s *TrackerService) AddTracked(ctx context.Context, id int64) (bool, error) {
	return s.identities.AddTracked(ctx, id)
}

// RemoveTracked removes an identity from tracking.
func (s *TrackerService) RemoveTracked(ctx context.Context, id int64) (bool, error) {
	return s.identities.RemoveTracked(ctx, id)
}

// AddSource registers a source-bot identity.
func (s *TrackerService) AddSource(ctx context.Context, id int64) (bool, error) {
	return s.identities.AddSource(ctx, id)
}

// RemoveSource removes a source-bot identity.
func (s *TrackerService) RemoveSource(ctx context.Context, id int64) (bool, error) {
	return s.identities.RemoveSource(ctx, id)
}

// AddChannel registers a ticket channel explicitly. An empty guild id
// defaults to the configured guild.
func (s *TrackerService) AddChannel(ctx context.Context, id int64, name string, guildID int64) error {
	if guildID == 0 {
		guildID = s.identities.GuildID()
	}
	if err := s.ledger.AddChannel(ctx, domain.TicketChannel{ID: id, Name: name, GuildID: guildID}); err != nil {
		return err
	}
	s.publish(ctx, events.EventChannelTracked, events.ChannelTrackedPayload{
		ChannelID: id,
		Name:      name,
		GuildID:   guildID,
	})
	return nil
}

// RemoveChannel prunes a channel and its cascading state. Removing an
// untracked channel is a no-op.
func (s *TrackerService) RemoveChannel(ctx context.Context, id int64) (bool, error) {
	removed, err := s.ledger.PruneChannel(ctx, id)
	if err != nil {
		return removed, err
	}
	if removed {
		s.publish(ctx, events.EventChannelPruned, events.ChannelPrunedPayload{ChannelID: id})
	}
	return removed, nil
}

// SetReportsChannel updates where automated reports are delivered.
func (s *TrackerService) SetReportsChannel(ctx context.Context, id int64) error {
	return s.identities.SetReportsChannel(ctx, id)
}

// ForceReconcile runs the liveness reconciliation immediately and returns
// the number of channels pruned.
func (s *TrackerService) ForceReconcile(ctx context.Context) (int, error) {
	return s.ledger.Reconcile(ctx, s.platform.IsChannelResolvable)
}

// ForceWindowReset resets one window outside its schedule.
func (s *TrackerService) ForceWindowReset(ctx context.Context, window domain.Window) error {
	if err := s.ledger.ResetWindow(ctx, window); err != nil {
		return err
	}
	s.publish(ctx, events.EventWindowReset, events.WindowResetPayload{Window: window, Forced: true})
	return nil
}

// UpdateStats reconciles dead channels and sweeps the guild's channel
// listing for ticket-shaped channels that slipped past the watcher.
// Returns (pruned, discovered).
func (s *TrackerService) UpdateStats(ctx context.Context) (int, int, error) {
	pruned, err := s.ForceReconcile(ctx)
	if err != nil {
		return pruned, 0, err
	}

	channels, err := s.platform.ListChannels(ctx, s.identities.GuildID())
	if err != nil {
		// Listing is best-effort; the reconcile already succeeded.
		s.logger.Warn("channel listing unavailable", zap.Error(err))
		return pruned, 0, nil
	}

	discovered := 0
	for _, info := range channels {
		if !domain.IsTicketShaped(info.Name) || s.ledger.HasChannel(info.ID) {
			continue
		}
		err := s.ledger.AddChannel(ctx, domain.TicketChannel{
			ID:      info.ID,
			Name:    info.Name,
			GuildID: s.identities.GuildID(),
		})
		if err != nil {
			return pruned, discovered, err
		}
		discovered++
	}
	return pruned, discovered, nil
}

// BuildReport assembles the activity report for one window, resolving
// display names through the cache before touching any ledger state.
func (s *TrackerService) BuildReport(ctx context.Context, window domain.Window) report.Report {
	aggregates := s.ledger.AggregateAll(window)
	names := make(map[int64]string, len(aggregates))
	for identity := range aggregates {
		names[identity] = s.names.Resolve(ctx, identity)
	}
	return report.Build(window, aggregates, names, s.clock.Now())
}

// BuildBiweeklyReport assembles the bi-weekly variant: the same
// weekly-window aggregates under the half-month heading.
func (s *TrackerService) BuildBiweeklyReport(ctx context.Context) report.Report {
	rep := s.BuildReport(ctx, domain.WindowWeekly)
	rep.Title = report.BiweeklyTitle(s.clock.Now())
	return rep
}

// SendWeeklyReport posts the weekly report to the configured reports
// channel. Without a configured channel it is a logged no-op.
func (s *TrackerService) SendWeeklyReport(ctx context.Context) error {
	channelID := s.identities.ReportsChannelID()
	if channelID == 0 {
		s.logger.Info("no reports channel configured; skipping automated report")
		return nil
	}

	rep := s.BuildReport(ctx, domain.WindowWeekly)
	content := "Automated Weekly Report\n" + report.Render(rep)
	if err := s.platform.SendMessage(ctx, channelID, content); err != nil {
		return err
	}

	s.publish(ctx, events.EventReportSent, events.ReportSentPayload{
		Window:    domain.WindowWeekly,
		ChannelID: channelID,
	})
	return nil
}

func (s *TrackerService) publish(ctx context.Context, eventType events.EventType, payload interface{}) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.clock.Now(),
		Payload:   payload,
	})
}

func preview(content string) string {
	const max = 80
	if len(content) <= max {
		return content
	}
	// Back up to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
