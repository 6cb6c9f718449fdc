package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.users[user.UID]; exists {
		return repository.ErrDuplicate
	}
	for _, existing := range r.s.users {
		if existing.Login == user.Login {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.UID] = cloneUser(*user)
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.users[user.UID]; !exists {
		return repository.ErrNotFound
	}
	for uid, existing := range r.s.users {
		if uid != user.UID && existing.Login == user.Login {
			return repository.ErrDuplicate
		}
	}
	user.UpdatedAt = r.s.now()
	r.s.users[user.UID] = cloneUser(*user)
	return nil
}

func (r userRepo) GetByUID(_ context.Context, uid string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneUser(user)
	return &out, nil
}

func (r userRepo) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.users {
		if user.Login == login {
			out := cloneUser(user)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.User
	for _, user := range r.s.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if len(filter.Roles) > 0 && !slices.Contains(filter.Roles, user.Role) {
			continue
		}
		if filter.CompanyID != nil && (user.CompanyID == nil || *user.CompanyID != *filter.CompanyID) {
			continue
		}
		result = append(result, cloneUser(user))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return paginate(result, filter.Limit, filter.Offset), nil
}

func cloneUser(u domain.User) domain.User {
	u.CompanyID = cloneString(u.CompanyID)
	return u
}
