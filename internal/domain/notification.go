package domain

import "time"

// Notification is an advisory message produced by a sensitive mutation.
type Notification struct {
	ID          string
	ReceiverUID string
	SenderUID   string
	TicketID    *int64
	Message     string
	Reason      *string
	Read        bool
	CreatedAt   time.Time
}
