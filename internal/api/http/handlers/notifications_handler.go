package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
)

// NotificationsHandler exposes the caller's inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List handles GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	items, err := h.notifications.ListForReceiver(c.UserContext(), caller)
	if err != nil {
		return err
	}
	out := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewNotificationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// SetRead handles PATCH /notifications/:id/read.
func (h *NotificationsHandler) SetRead(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.SetReadRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	n, err := h.notifications.SetRead(c.UserContext(), caller, c.Params("id"), *req.Read)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponse(n)})
}
