package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/idalloc"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const minPasswordLength = 8

// AccountInput describes a new account.
type AccountInput struct {
	Login     string
	Password  string
	Role      domain.Role
	Name      string
	Phone     string
	Location  string
	CompanyID *string
}

// accountFactory validates and persists new accounts for both
// self-registration and admin creation.
type accountFactory struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	ids        idalloc.Allocator
	bcryptCost int
}

func (f *accountFactory) create(ctx context.Context, input AccountInput) (*domain.User, error) {
	login := strings.TrimSpace(input.Login)
	details := map[string]any{}
	if login == "" {
		details["login"] = "required"
	}
	if msg := passwordProblem(input.Password); msg != "" {
		details["password"] = msg
	}
	if !input.Role.Valid() {
		details["role"] = "must be one of customer, admin, support_engineer"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid account", details)
	}

	if _, err := f.users.GetByLogin(ctx, login); err == nil {
		return nil, loginTaken(login)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	companyID, err := f.resolveCompany(ctx, input.CompanyID)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, f.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	n, err := f.ids.Next(ctx, domain.UserUIDCounter)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		UID:          domain.FormatUID(n),
		Login:        login,
		PasswordHash: hash,
		Role:         input.Role,
		Name:         strings.TrimSpace(input.Name),
		Phone:        strings.TrimSpace(input.Phone),
		Location:     strings.TrimSpace(input.Location),
		CompanyID:    companyID,
	}
	if err := f.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, loginTaken(login)
		}
		return nil, err
	}
	return user, nil
}

// resolveCompany accepts an empty reference or one naming an active company.
func (f *accountFactory) resolveCompany(ctx context.Context, companyID *string) (*string, error) {
	if companyID == nil || strings.TrimSpace(*companyID) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*companyID)
	company, err := f.companies.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewValidationError("unknown company", map[string]any{"companyId": "unknown company"})
	}
	if err != nil {
		return nil, err
	}
	if company.Status != domain.CompanyStatusActive {
		return nil, apperrors.NewValidationError("company is inactive", map[string]any{"companyId": "company is inactive"})
	}
	return &id, nil
}

func loginTaken(login string) error {
	return apperrors.NewConflict("login already registered", map[string]any{"login": login})
}

func passwordProblem(password string) string {
	switch {
	case utf8.RuneCountInString(password) < minPasswordLength:
		return "must be at least 8 characters"
	case len(password) > auth.MaxPasswordBytes:
		return "must be at most 72 bytes"
	}
	return ""
}
