package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SetReadRequest payload.
type SetReadRequest struct {
	Read *bool `json:"read" validate:"required"`
}

// NotificationResponse representation.
type NotificationResponse struct {
	ID          string    `json:"id"`
	ReceiverUID string    `json:"receiverUid"`
	SenderUID   string    `json:"senderUid"`
	TicketID    *int64    `json:"ticketId,omitempty"`
	Message     string    `json:"message"`
	Reason      *string   `json:"reason,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewNotificationResponse maps a domain notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		ReceiverUID: n.ReceiverUID,
		SenderUID:   n.SenderUID,
		TicketID:    n.TicketID,
		Message:     n.Message,
		Reason:      n.Reason,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}
