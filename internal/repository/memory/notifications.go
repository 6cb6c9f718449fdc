package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.notifications[n.ID]; exists {
		return repository.ErrDuplicate
	}
	n.CreatedAt = r.s.now()
	r.s.notifications[n.ID] = cloneNotification(*n)
	return nil
}

func (r notificationRepo) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneNotification(n)
	return &out, nil
}

func (r notificationRepo) ListByReceiver(_ context.Context, receiverUID string) ([]domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Notification
	for _, n := range r.s.notifications {
		if n.ReceiverUID == receiverUID {
			result = append(result, cloneNotification(n))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r notificationRepo) SetRead(_ context.Context, id string, read bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Read = read
	r.s.notifications[id] = n
	return nil
}

func cloneNotification(n domain.Notification) domain.Notification {
	n.Reason = cloneString(n.Reason)
	if n.TicketID != nil {
		v := *n.TicketID
		n.TicketID = &v
	}
	return n
}
