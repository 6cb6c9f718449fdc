package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/idalloc"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	accounts *accountFactory
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
	logger   *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	CompanyRepo repository.CompanyRepository
	Allocator   idalloc.Allocator
	Logger      *zap.Logger
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts: &accountFactory{
			users:      deps.UserRepo,
			companies:  deps.CompanyRepo,
			ids:        deps.Allocator,
			bcryptCost: cfg.BcryptCost,
		},
		users:    deps.UserRepo,
		tokenMgr: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		logger:   logger,
	}
}

// Register self-registers a customer account. Other roles are created by
// an admin through UserService.
func (s *AuthService) Register(ctx context.Context, input AccountInput) (*domain.User, error) {
	if input.Role != "" && input.Role != domain.RoleCustomer {
		return nil, apperrors.NewForbidden("self-registration is limited to customers")
	}
	input.Role = domain.RoleCustomer
	user, err := s.accounts.create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("uid", user.UID), zap.String("role", string(user.Role)))
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	user, err := s.users.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	token, expiresAt, err := s.tokenMgr.GenerateToken(user.UID, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// BootstrapAdmin creates the configured administrator unless the login is
// already taken.
func (s *AuthService) BootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	if !cfg.Enabled() {
		return nil
	}
	if _, err := s.users.GetByLogin(ctx, cfg.AdminLogin); err == nil {
		s.logger.Debug("bootstrap admin already present", zap.String("login", cfg.AdminLogin))
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	user, err := s.accounts.create(ctx, AccountInput{
		Login:    cfg.AdminLogin,
		Password: cfg.AdminPassword,
		Role:     domain.RoleAdmin,
		Name:     "Administrator",
	})
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("uid", user.UID))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
