package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type companyRepo struct{ s *Store }

func (r companyRepo) Create(_ context.Context, company *domain.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.companies[company.ID]; exists {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	company.CreatedAt, company.UpdatedAt = now, now
	r.s.companies[company.ID] = cloneCompany(*company)
	return nil
}

func (r companyRepo) Update(_ context.Context, company *domain.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.companies[company.ID]; !exists {
		return repository.ErrNotFound
	}
	company.UpdatedAt = r.s.now()
	r.s.companies[company.ID] = cloneCompany(*company)
	return nil
}

func (r companyRepo) GetByID(_ context.Context, id string) (*domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	company, ok := r.s.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneCompany(company)
	return &out, nil
}

func (r companyRepo) List(_ context.Context, activeOnly bool) ([]domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Company
	for _, company := range r.s.companies {
		if activeOnly && company.Status != domain.CompanyStatusActive {
			continue
		}
		result = append(result, cloneCompany(company))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func cloneCompany(c domain.Company) domain.Company {
	c.DeactivatedBy = cloneString(c.DeactivatedBy)
	c.DeactivationReason = cloneString(c.DeactivationReason)
	if c.DeactivatedAt != nil {
		v := *c.DeactivatedAt
		c.DeactivatedAt = &v
	}
	return c
}
