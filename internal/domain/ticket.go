package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNotStarted TicketStatus = "not started"
	TicketStatusInProgress TicketStatus = "in progress"
	TicketStatusStuck      TicketStatus = "stuck"
	TicketStatusDone       TicketStatus = "done"
	TicketStatusDeleted    TicketStatus = "deleted"
)

// Unassigned is the engineer value of a ticket nobody is working on.
const Unassigned = "unassigned"

// Bounds shared by priority and rating.
const (
	MinScore = 1
	MaxScore = 5
)

// MaxDeleteReasonLength caps the reason recorded on soft delete.
const MaxDeleteReasonLength = 500

// Active reports whether s is one of the four values an update may set.
func (s TicketStatus) Active() bool {
	switch s {
	case TicketStatusNotStarted, TicketStatusInProgress, TicketStatusStuck, TicketStatusDone:
		return true
	}
	return false
}

// Open reports whether the owner may still edit the description.
func (s TicketStatus) Open() bool {
	return s == TicketStatusNotStarted || s == TicketStatusInProgress || s == TicketStatusStuck
}

// ValidScore reports whether v is a legal priority or rating.
func ValidScore(v int) bool {
	return v >= MinScore && v <= MaxScore
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	TID                     int64
	Title                   string
	Description             string
	Status                  TicketStatus
	Priority                int
	UID                     string
	AssignedSupportEngineer string
	Review                  *string
	Rating                  *int
	Reviewed                bool
	DeletedBy               *string
	DeletedAt               *time.Time
	DeleteReason            *string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsUnassigned reports whether no support engineer holds the ticket.
func (t *Ticket) IsUnassigned() bool {
	engineer := strings.TrimSpace(t.AssignedSupportEngineer)
	return engineer == "" || engineer == Unassigned
}

// IsDeleted reports whether the ticket was soft-deleted.
func (t *Ticket) IsDeleted() bool {
	return t.Status == TicketStatusDeleted
}

// HasReview reports whether both review text and rating are present.
func (t *Ticket) HasReview() bool {
	return t.Review != nil && t.Rating != nil
}

// TicketBucket names one of the dashboard groupings. Buckets overlap.
type TicketBucket string

const (
	BucketOpen       TicketBucket = "open"
	BucketPending    TicketBucket = "pending"
	BucketSolved     TicketBucket = "solved"
	BucketUnassigned TicketBucket = "unassigned"
)

// TicketBuckets lists every bucket in display order.
var TicketBuckets = []TicketBucket{BucketOpen, BucketPending, BucketSolved, BucketUnassigned}

// Matches evaluates the bucket predicate against a ticket. Deleted tickets
// belong to no bucket.
func (b TicketBucket) Matches(t *Ticket) bool {
	if t.IsDeleted() {
		return false
	}
	switch b {
	case BucketOpen:
		return t.Status == TicketStatusNotStarted
	case BucketPending:
		return t.Status == TicketStatusInProgress
	case BucketSolved:
		return t.Status == TicketStatusDone
	case BucketUnassigned:
		return t.IsUnassigned()
	}
	return false
}

// ParseTicketBucket validates a bucket name.
func ParseTicketBucket(raw string) (TicketBucket, bool) {
	b := TicketBucket(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range TicketBuckets {
		if b == known {
			return b, true
		}
	}
	return "", false
}

// BucketCounts holds one count per bucket.
type BucketCounts struct {
	Open       int `json:"open"`
	Pending    int `json:"pending"`
	Solved     int `json:"solved"`
	Unassigned int `json:"unassigned"`
}

// Add counts t into every bucket it matches.
func (c *BucketCounts) Add(t *Ticket) {
	if BucketOpen.Matches(t) {
		c.Open++
	}
	if BucketPending.Matches(t) {
		c.Pending++
	}
	if BucketSolved.Matches(t) {
		c.Solved++
	}
	if BucketUnassigned.Matches(t) {
		c.Unassigned++
	}
}
