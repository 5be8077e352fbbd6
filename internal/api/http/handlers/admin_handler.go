package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/api/dto"
	"github.com/spec-kit/ticket-activity/internal/auth"
	"github.com/spec-kit/ticket-activity/internal/service"
	apperrors "github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

// AdminHandler manages operator overrides behind the auth middleware.
type AdminHandler struct {
	service *service.TrackerService
	logger  *zap.Logger
}

// NewAdminHandler constructs handler.
func NewAdminHandler(trackerService *service.TrackerService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{service: trackerService, logger: logger}
}

// audit records who triggered a destructive admin operation.
func (h *AdminHandler) audit(c *fiber.Ctx, action string) {
	operator, ok := auth.OperatorFromContext(c)
	if !ok {
		operator = "unknown"
	}
	h.logger.Info("admin operation", zap.String("action", action), zap.String("operator", operator))
}

// AddTracked POST /admin/users/tracked.
func (h *AdminHandler) AddTracked(c *fiber.Ctx) error {
	id, err := parseIdentityBody(c)
	if err != nil {
		return err
	}
	added, err := h.service.AddTracked(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": formatID(id), "added": added}})
}

// RemoveTracked DELETE /admin/users/tracked/:id.
func (h *AdminHandler) RemoveTracked(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("id must be a decimal id", nil)
	}
	removed, err := h.service.RemoveTracked(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": formatID(id), "removed": removed}})
}

// AddSource POST /admin/users/sources.
func (h *AdminHandler) AddSource(c *fiber.Ctx) error {
	id, err := parseIdentityBody(c)
	if err != nil {
		return err
	}
	added, err := h.service.AddSource(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": formatID(id), "added": added}})
}

// RemoveSource DELETE /admin/users/sources/:id.
func (h *AdminHandler) RemoveSource(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("id must be a decimal id", nil)
	}
	removed, err := h.service.RemoveSource(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": formatID(id), "removed": removed}})
}

// AddChannel POST /admin/channels.
func (h *AdminHandler) AddChannel(c *fiber.Ctx) error {
	var req dto.ChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	id, err := parseID(req.ID)
	if err != nil {
		return apperrors.NewValidationError("id must be a decimal id", nil)
	}
	if req.Name == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	var guildID int64
	if req.GuildID != "" {
		guildID, err = parseID(req.GuildID)
		if err != nil {
			return apperrors.NewValidationError("guild_id must be a decimal id", nil)
		}
	}
	if err := h.service.AddChannel(c.UserContext(), id, req.Name, guildID); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"id": formatID(id)}})
}

// RemoveChannel DELETE /admin/channels/:id.
func (h *AdminHandler) RemoveChannel(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return apperrors.NewValidationError("id must be a decimal id", nil)
	}
	removed, err := h.service.RemoveChannel(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": formatID(id), "removed": removed}})
}

// SetReportsChannel PUT /admin/reports-channel.
func (h *AdminHandler) SetReportsChannel(c *fiber.Ctx) error {
	var req dto.ReportsChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	id, err := parseID(req.ChannelID)
	if err != nil {
		return apperrors.NewValidationError("channel_id must be a decimal id", nil)
	}
	if err := h.service.SetReportsChannel(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"channel_id": formatID(id)}})
}

// ForceReconcile POST /admin/reconcile.
func (h *AdminHandler) ForceReconcile(c *fiber.Ctx) error {
	pruned, err := h.service.ForceReconcile(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"pruned": pruned}})
}

// ForceWindowReset POST /admin/reset/:window.
func (h *AdminHandler) ForceWindowReset(c *fiber.Ctx) error {
	window, err := parseWindow(c.Params("window"))
	if err != nil {
		return err
	}
	h.audit(c, "reset "+string(window))
	if err := h.service.ForceWindowReset(c.UserContext(), window); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"window": string(window), "reset": true}})
}

// UpdateStats POST /admin/update-stats.
func (h *AdminHandler) UpdateStats(c *fiber.Ctx) error {
	pruned, discovered, err := h.service.UpdateStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"pruned": pruned, "discovered": discovered}})
}

// SendReport POST /admin/reports/send.
func (h *AdminHandler) SendReport(c *fiber.Ctx) error {
	if err := h.service.SendWeeklyReport(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sent": true}})
}

// RequestWipe POST /admin/wipe.
func (h *AdminHandler) RequestWipe(c *fiber.Ctx) error {
	h.audit(c, "wipe requested")
	token, expiresAt := h.service.RequestWipe()
	return c.JSON(fiber.Map{"data": dto.WipeRequestResponse{Token: token, ExpiresAt: expiresAt}})
}

// ConfirmWipe POST /admin/wipe/confirm.
func (h *AdminHandler) ConfirmWipe(c *fiber.Ctx) error {
	var req dto.WipeConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}
	h.audit(c, "wipe confirmed")
	if err := h.service.ConfirmWipe(c.UserContext(), req.Token); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"wiped": true}})
}

func parseIdentityBody(c *fiber.Ctx) (int64, error) {
	var req dto.IdentityRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, apperrors.NewValidationError("invalid payload", nil)
	}
	id, err := parseID(req.ID)
	if err != nil {
		return 0, apperrors.NewValidationError("id must be a decimal id", nil)
	}
	return id, nil
}
