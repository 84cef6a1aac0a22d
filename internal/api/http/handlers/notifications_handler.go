package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-routing/internal/api/dto"
	"github.com/spec-kit/helpdesk-routing/internal/service"
	apperrors "github.com/spec-kit/helpdesk-routing/pkg/util"
)

// NotificationsHandler serves the agent notification feed.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// ListNotifications GET /notifications?agent_id=...
func (h *NotificationsHandler) ListNotifications(c *fiber.Ctx) error {
	agentID := c.Query("agent_id")
	if agentID == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}
	items, err := h.notifications.ListForAgent(c.UserContext(), agentID,
		parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		return err
	}
	result := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		result = append(result, dto.FromNotification(&items[i]))
	}
	return c.JSON(fiber.Map{"data": result})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.notifications.MarkRead(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"read": true}})
}
