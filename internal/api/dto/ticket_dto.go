package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload. Customers leave customerUid empty.
type CreateTicketRequest struct {
	Title                   string `json:"title" validate:"required,max=200"`
	Description             string `json:"description" validate:"required,max=5000"`
	Priority                int    `json:"priority" validate:"required"`
	CustomerUID             string `json:"customerUid,omitempty"`
	AssignedSupportEngineer string `json:"assignedSupportEngineer,omitempty"`
}

// UpdateTicketRequest payload. Omitted fields are left untouched.
type UpdateTicketRequest struct {
	Status                  *string `json:"status,omitempty"`
	Priority                *int    `json:"priority,omitempty"`
	AssignedSupportEngineer *string `json:"assignedSupportEngineer,omitempty"`
	Description             *string `json:"description,omitempty" validate:"omitempty,max=5000"`
}

// DeleteTicketRequest payload.
type DeleteTicketRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ReviewRequest payload. Range checks happen after the ticket state check.
type ReviewRequest struct {
	Review string `json:"review" validate:"max=2000"`
	Rating int    `json:"rating"`
}

// TicketResponse is the ticket representation.
type TicketResponse struct {
	TID                     int64               `json:"tid"`
	Title                   string              `json:"title"`
	Description             string              `json:"description"`
	Status                  domain.TicketStatus `json:"status"`
	Priority                int                 `json:"priority"`
	UID                     string              `json:"uid"`
	AssignedSupportEngineer string              `json:"assignedSupportEngineer"`
	Review                  *string             `json:"review,omitempty"`
	Rating                  *int                `json:"rating,omitempty"`
	Reviewed                bool                `json:"reviewed"`
	DeletedBy               *string             `json:"deletedBy,omitempty"`
	DeletedAt               *time.Time          `json:"deletedAt,omitempty"`
	DeleteReason            *string             `json:"reason,omitempty"`
	CreatedAt               time.Time           `json:"createdAt"`
	UpdatedAt               time.Time           `json:"updatedAt"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		TID:                     t.TID,
		Title:                   t.Title,
		Description:             t.Description,
		Status:                  t.Status,
		Priority:                t.Priority,
		UID:                     t.UID,
		AssignedSupportEngineer: t.AssignedSupportEngineer,
		Review:                  t.Review,
		Rating:                  t.Rating,
		Reviewed:                t.Reviewed,
		DeletedBy:               t.DeletedBy,
		DeletedAt:               t.DeletedAt,
		DeleteReason:            t.DeleteReason,
		CreatedAt:               t.CreatedAt,
		UpdatedAt:               t.UpdatedAt,
	}
}

// NewTicketResponses maps a ticket slice.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}
