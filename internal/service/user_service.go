package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/idalloc"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UserService manages profiles and admin account maintenance.
type UserService struct {
	accounts *accountFactory
	users    repository.UserRepository
	policy   *policy.Engine
	logger   *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo    repository.UserRepository
	CompanyRepo repository.CompanyRepository
	Allocator   idalloc.Allocator
	Policy      *policy.Engine
	Logger      *zap.Logger
}

// ProfilePatch holds the self-editable fields. Nil fields are untouched.
type ProfilePatch struct {
	Name      *string
	Phone     *string
	Location  *string
	CompanyID *string
}

// UserPatch is the admin edit of an account.
type UserPatch struct {
	ProfilePatch
	Login    *string
	Password *string
	Role     *domain.Role
}

// NewUserService constructs the service.
func NewUserService(cfg config.AuthConfig, deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		accounts: &accountFactory{
			users:      deps.UserRepo,
			companies:  deps.CompanyRepo,
			ids:        deps.Allocator,
			bcryptCost: cfg.BcryptCost,
		},
		users:  deps.UserRepo,
		policy: deps.Policy,
		logger: logger,
	}
}

// Create registers an account of any role on behalf of an admin.
func (s *UserService) Create(ctx context.Context, caller domain.Identity, input AccountInput) (*domain.User, error) {
	if err := s.policy.Authorize(caller, policy.ResourceUser, policy.ActionCreate); err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = domain.RoleCustomer
	}
	user, err := s.accounts.create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created",
		zap.String("uid", user.UID),
		zap.String("role", string(user.Role)),
		zap.String("actor", caller.UID))
	return user, nil
}

// GetProfile returns the caller's own account.
func (s *UserService) GetProfile(ctx context.Context, caller domain.Identity) (*domain.User, error) {
	if err := s.policy.Authorize(caller, policy.ResourceProfile, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.load(ctx, caller.UID)
}

// UpdateProfile edits the caller's own profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, caller domain.Identity, patch ProfilePatch) (*domain.User, error) {
	if err := s.policy.Authorize(caller, policy.ResourceProfile, policy.ActionUpdate); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, caller.UID)
	if err != nil {
		return nil, err
	}
	if err := s.applyProfile(ctx, user, patch); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update is the admin override of any account field, role included.
func (s *UserService) Update(ctx context.Context, caller domain.Identity, uid string, patch UserPatch) (*domain.User, error) {
	if err := s.policy.Authorize(caller, policy.ResourceUser, policy.ActionUpdate); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	details := map[string]any{}
	if patch.Role != nil && !patch.Role.Valid() {
		details["role"] = "must be one of customer, admin, support_engineer"
	}
	if patch.Login != nil && strings.TrimSpace(*patch.Login) == "" {
		details["login"] = "required"
	}
	if patch.Password != nil {
		if msg := passwordProblem(*patch.Password); msg != "" {
			details["password"] = msg
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid account update", details)
	}

	if patch.Login != nil {
		login := strings.TrimSpace(*patch.Login)
		if login != user.Login {
			if _, err := s.users.GetByLogin(ctx, login); err == nil {
				return nil, loginTaken(login)
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			user.Login = login
		}
	}
	if patch.Password != nil {
		hash, err := auth.HashPassword(*patch.Password, s.accounts.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}
	if patch.Role != nil && *patch.Role != user.Role {
		s.logger.Info("role override",
			zap.String("uid", user.UID),
			zap.String("from", string(user.Role)),
			zap.String("to", string(*patch.Role)),
			zap.String("actor", caller.UID))
		user.Role = *patch.Role
	}
	if err := s.applyProfile(ctx, user, patch.ProfilePatch); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, loginTaken(user.Login)
		}
		return nil, err
	}
	return user, nil
}

// List returns accounts, optionally narrowed to one role, for assignment pickers.
func (s *UserService) List(ctx context.Context, caller domain.Identity, role *domain.Role, page Page) ([]domain.User, error) {
	if err := s.policy.Authorize(caller, policy.ResourceUser, policy.ActionList); err != nil {
		return nil, err
	}
	if role != nil && !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(*role)})
	}
	roles, err := s.policy.ListableRoles(caller, role)
	if err != nil {
		return nil, err
	}
	return s.users.List(ctx, repository.UserFilter{Roles: roles, Limit: page.Limit, Offset: page.Offset})
}

func (s *UserService) applyProfile(ctx context.Context, user *domain.User, patch ProfilePatch) error {
	if patch.CompanyID != nil {
		companyID, err := s.accounts.resolveCompany(ctx, patch.CompanyID)
		if err != nil {
			return err
		}
		user.CompanyID = companyID
	}
	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Phone != nil {
		user.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Location != nil {
		user.Location = strings.TrimSpace(*patch.Location)
	}
	return nil
}

func (s *UserService) load(ctx context.Context, uid string) (*domain.User, error) {
	user, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"uid": uid})
		}
		return nil, err
	}
	return user, nil
}
