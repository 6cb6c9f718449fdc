package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// CompanyService manages customer organizations.
type CompanyService struct {
	companies  repository.CompanyRepository
	policy     *policy.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// CompanyInput describes a new company.
type CompanyInput struct {
	Name    string
	Address string
	Phone   string
}

// NewCompanyService constructs the service.
func NewCompanyService(companies repository.CompanyRepository, engine *policy.Engine, dispatcher events.Dispatcher, logger *zap.Logger) *CompanyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyService{
		companies:  companies,
		policy:     engine,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create adds an active company.
func (s *CompanyService) Create(ctx context.Context, caller domain.Identity, input CompanyInput) (*domain.Company, error) {
	if err := s.policy.Authorize(caller, policy.ResourceCompany, policy.ActionCreate); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("invalid company", map[string]any{"name": "required"})
	}
	company := &domain.Company{
		ID:      uuid.NewString(),
		Name:    name,
		Address: strings.TrimSpace(input.Address),
		Phone:   strings.TrimSpace(input.Phone),
		Status:  domain.CompanyStatusActive,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("company already exists", map[string]any{"name": name})
		}
		return nil, err
	}
	return company, nil
}

// ListAvailable returns the active companies offered at registration.
func (s *CompanyService) ListAvailable(ctx context.Context) ([]domain.Company, error) {
	return s.companies.List(ctx, true)
}

// List returns every company, inactive ones included.
func (s *CompanyService) List(ctx context.Context, caller domain.Identity) ([]domain.Company, error) {
	if err := s.policy.Authorize(caller, policy.ResourceCompany, policy.ActionList); err != nil {
		return nil, err
	}
	return s.companies.List(ctx, false)
}

// Deactivate soft-deletes a company with a mandatory reason.
func (s *CompanyService) Deactivate(ctx context.Context, caller domain.Identity, id, reason string) (*domain.Company, error) {
	if err := s.policy.Authorize(caller, policy.ResourceCompany, policy.ActionDeactivate); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	switch {
	case reason == "":
		return nil, apperrors.NewValidationError("deactivation reason required", map[string]any{"reason": "required"})
	case utf8.RuneCountInString(reason) > domain.MaxDeleteReasonLength:
		return nil, apperrors.NewValidationError("deactivation reason too long",
			map[string]any{"reason": "must be at most 500 characters"})
	}

	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("company", map[string]any{"id": id})
		}
		return nil, err
	}
	if company.Status == domain.CompanyStatusInactive {
		return nil, apperrors.NewConflict("company already inactive", map[string]any{"id": id})
	}

	now := s.now()
	actor := caller.UID
	company.Status = domain.CompanyStatusInactive
	company.DeactivatedBy = &actor
	company.DeactivatedAt = &now
	company.DeactivationReason = &reason
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, err
	}
	s.logger.Info("company deactivated", zap.String("company_id", id), zap.String("actor", caller.UID))

	publish(ctx, s.dispatcher, events.Event{
		Type:  events.EventCompanyDeactivated,
		Actor: actorOf(caller),
		Payload: events.CompanyDeactivatedPayload{
			CompanyID: company.ID,
			Name:      company.Name,
			Reason:    reason,
		},
	})
	return company, nil
}
