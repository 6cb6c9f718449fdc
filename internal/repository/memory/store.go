// Package memory provides process-local implementations of the repository
// interfaces. It backs STORE_BACKEND=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Store holds every collection behind one lock.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	tickets       map[int64]domain.Ticket
	users         map[string]domain.User
	companies     map[string]domain.Company
	notifications map[string]domain.Notification
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		tickets:       make(map[int64]domain.Ticket),
		users:         make(map[string]domain.User),
		companies:     make(map[string]domain.Company),
		notifications: make(map[string]domain.Notification),
	}
}

// SetClock replaces the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Tickets exposes the ticket collection.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Users exposes the user collection.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Companies exposes the company collection.
func (s *Store) Companies() repository.CompanyRepository { return companyRepo{s} }

// Notifications exposes the notification collection.
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.tickets[ticket.TID]; exists {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	ticket.CreatedAt, ticket.UpdatedAt = now, now
	r.s.tickets[ticket.TID] = cloneTicket(*ticket)
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.tickets[ticket.TID]; !exists {
		return repository.ErrNotFound
	}
	ticket.UpdatedAt = r.s.now()
	r.s.tickets[ticket.TID] = cloneTicket(*ticket)
	return nil
}

func (r ticketRepo) GetByTID(_ context.Context, tid int64) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[tid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Ticket
	for _, ticket := range r.s.tickets {
		if matchTicket(&ticket, filter) {
			result = append(result, cloneTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].TID > result[j].TID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r ticketRepo) CountBuckets(_ context.Context, filter repository.TicketFilter) (domain.BucketCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	filter.ExcludeDeleted = true
	var counts domain.BucketCounts
	for _, ticket := range r.s.tickets {
		if matchTicket(&ticket, filter) {
			counts.Add(&ticket)
		}
	}
	return counts, nil
}

func matchTicket(t *domain.Ticket, f repository.TicketFilter) bool {
	if f.OwnerUID != nil && t.UID != *f.OwnerUID {
		return false
	}
	if f.EngineerUID != nil && t.AssignedSupportEngineer != *f.EngineerUID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, status := range f.Statuses {
			if t.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ExcludeDeleted && t.IsDeleted() {
		return false
	}
	if f.Unassigned && !t.IsUnassigned() {
		return false
	}
	if f.WithReview && !t.HasReview() {
		return false
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.Review = cloneString(t.Review)
	t.DeletedBy = cloneString(t.DeletedBy)
	t.DeleteReason = cloneString(t.DeleteReason)
	if t.Rating != nil {
		v := *t.Rating
		t.Rating = &v
	}
	if t.DeletedAt != nil {
		v := *t.DeletedAt
		t.DeletedAt = &v
	}
	return t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
