package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), caller, service.TicketCreateInput{
		Title:                   req.Title,
		Description:             req.Description,
		Priority:                req.Priority,
		CustomerUID:             req.CustomerUID,
		AssignedSupportEngineer: req.AssignedSupportEngineer,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.List(c.UserContext(), caller, pageFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// ListDeleted GET /tickets/deleted.
func (h *TicketsHandler) ListDeleted(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListDeleted(c.UserContext(), caller, pageFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// GetTicket GET /tickets/:tid.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	tid, err := parseTID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), caller, tid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:tid.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	tid, err := parseTID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	patch := service.TicketPatch{
		Priority:                req.Priority,
		AssignedSupportEngineer: req.AssignedSupportEngineer,
		Description:             req.Description,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		patch.Status = &status
	}
	ticket, err := h.service.UpdateFields(c.UserContext(), caller, tid, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:tid.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	tid, err := parseTID(c)
	if err != nil {
		return err
	}
	var req dto.DeleteTicketRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.SoftDelete(c.UserContext(), caller, tid, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"tid":       ticket.TID,
		"deleted":   true,
		"deletedBy": ticket.DeletedBy,
		"deletedAt": ticket.DeletedAt,
	}})
}

// AttachReview POST /tickets/:tid/review.
func (h *TicketsHandler) AttachReview(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	tid, err := parseTID(c)
	if err != nil {
		return err
	}
	var req dto.ReviewRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.AttachReview(c.UserContext(), caller, tid, req.Review, req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListReviews GET /reviews.
func (h *TicketsHandler) ListReviews(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListReviews(c.UserContext(), caller, pageFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// Counts GET /tickets/counts.
func (h *TicketsHandler) Counts(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	counts, err := h.service.CountByBucket(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}

// ListByBucket GET /tickets/buckets/:bucket.
func (h *TicketsHandler) ListByBucket(c *fiber.Ctx) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListByStatusBucket(c.UserContext(), caller, c.Params("bucket"), pageFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}
