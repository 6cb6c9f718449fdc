package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketDeleted      EventType = "ticket_deleted"
	EventCompanyDeactivated EventType = "company_deactivated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UID  string      `json:"uid"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketDeletedPayload carries the stakeholders of a soft-deleted ticket.
type TicketDeletedPayload struct {
	TID                     int64  `json:"tid"`
	Title                   string `json:"title"`
	OwnerUID                string `json:"owner_uid"`
	AssignedSupportEngineer string `json:"assigned_support_engineer"`
	Reason                  string `json:"reason"`
}

// CompanyDeactivatedPayload payload.
type CompanyDeactivatedPayload struct {
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}
