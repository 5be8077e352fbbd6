package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-activity/internal/api/dto"
	"github.com/spec-kit/ticket-activity/internal/domain"
	"github.com/spec-kit/ticket-activity/internal/platform"
	"github.com/spec-kit/ticket-activity/internal/report"
	"github.com/spec-kit/ticket-activity/internal/service"
	apperrors "github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

// ActivityHandler exposes event ingestion and read endpoints.
type ActivityHandler struct {
	service *service.TrackerService
}

// NewActivityHandler constructs handler.
func NewActivityHandler(trackerService *service.TrackerService) *ActivityHandler {
	return &ActivityHandler{service: trackerService}
}

// PostMessage POST /events/messages.
func (h *ActivityHandler) PostMessage(c *fiber.Ctx) error {
	var req dto.InboundMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	authorID, err := parseID(req.AuthorID)
	if err != nil {
		return apperrors.NewValidationError("author_id must be a decimal id", nil)
	}
	channelID, err := parseID(req.ChannelID)
	if err != nil {
		return apperrors.NewValidationError("channel_id must be a decimal id", nil)
	}
	mentions := make([]int64, 0, len(req.MentionedIDs))
	for _, raw := range req.MentionedIDs {
		id, err := parseID(raw)
		if err != nil {
			return apperrors.NewValidationError("mentioned_ids must be decimal ids", nil)
		}
		mentions = append(mentions, id)
	}

	msg := domain.InboundMessage{
		AuthorID:       authorID,
		AuthorName:     req.AuthorName,
		AuthorIsSource: req.AuthorIsSource,
		ChannelID:      channelID,
		MentionedIDs:   mentions,
		Content:        req.Content,
	}
	if err := h.service.RecordInboundMessage(c.UserContext(), msg); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// PostChannelCreated POST /events/channels.
func (h *ActivityHandler) PostChannelCreated(c *fiber.Ctx) error {
	var req dto.ChannelCreatedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	channelID, err := parseID(req.ChannelID)
	if err != nil {
		return apperrors.NewValidationError("channel_id must be a decimal id", nil)
	}
	guildID, err := parseID(req.GuildID)
	if err != nil {
		return apperrors.NewValidationError("guild_id must be a decimal id", nil)
	}
	creatorID, err := parseID(req.CreatorID)
	if err != nil {
		return apperrors.NewValidationError("creator_id must be a decimal id", nil)
	}

	ev := platform.ChannelCreatedEvent{
		ChannelID: channelID,
		Name:      req.Name,
		GuildID:   guildID,
		CreatorID: creatorID,
	}
	if err := h.service.HandleChannelCreated(c.UserContext(), ev); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// GetAggregate GET /activity/:window/:id.
func (h *ActivityHandler) GetAggregate(c *fiber.Ctx) error {
	window, err := parseWindow(c.Params("window"))
	if err != nil {
		return err
	}
	identity, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("id must be a decimal id", nil)
	}
	counts := h.service.Aggregate(window, identity)
	return c.JSON(fiber.Map{"data": dto.AggregateResponse{
		Window:   string(window),
		Identity: formatID(identity),
		Counts:   countsResponse(counts),
	}})
}

// GetReport GET /reports/:window.
func (h *ActivityHandler) GetReport(c *fiber.Ctx) error {
	window, err := parseWindow(c.Params("window"))
	if err != nil {
		return err
	}
	rep := h.service.BuildReport(c.UserContext(), window)
	return c.JSON(fiber.Map{"data": reportResponse(rep)})
}

// GetBiweeklyReport GET /reports/biweekly.
func (h *ActivityHandler) GetBiweeklyReport(c *fiber.Ctx) error {
	rep := h.service.BuildBiweeklyReport(c.UserContext())
	return c.JSON(fiber.Map{"data": reportResponse(rep)})
}

// ListChannels GET /channels.
func (h *ActivityHandler) ListChannels(c *fiber.Ctx) error {
	channels := h.service.Channels()
	items := make([]dto.ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		items = append(items, dto.ChannelResponse{
			ID:      formatID(ch.ID),
			Name:    ch.Name,
			GuildID: formatID(ch.GuildID),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetChannelMessages GET /channels/:id/messages.
func (h *ActivityHandler) GetChannelMessages(c *fiber.Ctx) error {
	channelID, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("id must be a decimal id", nil)
	}
	messages, err := h.service.ChannelMessages(channelID)
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		items = append(items, dto.MessageResponse{
			UserID:    formatID(msg.UserID),
			Username:  msg.Username,
			Timestamp: msg.Timestamp,
			Content:   msg.Content,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListTracked GET /users/tracked.
func (h *ActivityHandler) ListTracked(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": formatIDs(h.service.TrackedIDs())})
}

// ListSources GET /users/sources.
func (h *ActivityHandler) ListSources(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": formatIDs(h.service.SourceIDs())})
}

func parseWindow(val string) (domain.Window, error) {
	window, ok := domain.ParseWindow(strings.ToLower(val))
	if !ok {
		return "", apperrors.NewValidationError("window must be daily, weekly or monthly", nil)
	}
	return window, nil
}

func parseID(val string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatIDs(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, formatID(id))
	}
	return out
}

func countsResponse(counts domain.ActivityCounts) dto.CountsResponse {
	return dto.CountsResponse{
		Addressed: counts.Addressed,
		Closed:    counts.Closed,
		Deleted:   counts.Deleted,
	}
}

func reportResponse(rep report.Report) dto.ReportResponse {
	entries := make([]dto.ReportEntryResponse, 0, len(rep.Entries))
	for _, entry := range rep.Entries {
		entries = append(entries, dto.ReportEntryResponse{
			Identity: formatID(entry.Identity),
			Name:     entry.Name,
			Counts:   countsResponse(entry.Counts),
		})
	}
	return dto.ReportResponse{
		Window:      string(rep.Window),
		Title:       rep.Title,
		GeneratedAt: rep.GeneratedAt,
		Entries:     entries,
	}
}
