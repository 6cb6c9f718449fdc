package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/idalloc"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var (
	admin     = domain.Identity{UID: "UID-100", Role: domain.RoleAdmin}
	engineer  = domain.Identity{UID: "UID-101", Role: domain.RoleSupportEngineer}
	engineer2 = domain.Identity{UID: "UID-102", Role: domain.RoleSupportEngineer}
	owner     = domain.Identity{UID: "UID-7", Role: domain.RoleCustomer}
	stranger  = domain.Identity{UID: "UID-9", Role: domain.RoleCustomer}
)

type fixture struct {
	store         *memory.Store
	tickets       *TicketService
	users         *UserService
	auth          *AuthService
	companies     *CompanyService
	notifications *NotificationService
	logs          *observer.ObservedLogs
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	allocator        idalloc.Allocator
	notificationRepo repository.NotificationRepository
}

func withAllocator(a idalloc.Allocator) fixtureOption {
	return func(d *fixtureDeps) { d.allocator = a }
}

func withNotificationRepo(r repository.NotificationRepository) fixtureOption {
	return func(d *fixtureDeps) { d.notificationRepo = r }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	deps := fixtureDeps{
		allocator:        idalloc.NewMemoryAllocator(),
		notificationRepo: store.Notifications(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	engine := policy.MustNewEngine()
	dispatcher := events.NewInMemoryDispatcher(logger)
	authCfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: bcrypt.MinCost}

	f := &fixture{
		store: store,
		logs:  logs,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo: store.Tickets(),
			UserRepo:   store.Users(),
			Allocator:  deps.allocator,
			Policy:     engine,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		users: NewUserService(authCfg, UserDependencies{
			UserRepo:    store.Users(),
			CompanyRepo: store.Companies(),
			Allocator:   deps.allocator,
			Policy:      engine,
			Logger:      logger,
		}),
		auth: NewAuthService(authCfg, AuthDependencies{
			UserRepo:    store.Users(),
			CompanyRepo: store.Companies(),
			Allocator:   deps.allocator,
			Logger:      logger,
		}),
		companies: NewCompanyService(store.Companies(), engine, dispatcher, logger),
		notifications: NewNotificationService(NotificationDependencies{
			NotificationRepo: deps.notificationRepo,
			UserRepo:         store.Users(),
			Policy:           engine,
			Dispatcher:       dispatcher,
			Logger:           logger,
		}),
	}
	f.notifications.RegisterHandlers()

	for _, id := range []domain.Identity{admin, engineer, engineer2, owner, stranger} {
		require.NoError(t, store.Users().Create(context.Background(), &domain.User{
			UID:   id.UID,
			Login: "login-" + id.UID,
			Role:  id.Role,
		}))
	}
	return f
}

func (f *fixture) createTicket(t *testing.T, caller domain.Identity, input TicketCreateInput) *domain.Ticket {
	t.Helper()
	if input.Title == "" {
		input.Title = "Printer jam"
	}
	if input.Description == "" {
		input.Description = "paper stuck in tray 2"
	}
	if input.Priority == 0 {
		input.Priority = 3
	}
	ticket, err := f.tickets.Create(context.Background(), caller, input)
	require.NoError(t, err)
	return ticket
}

func (f *fixture) setStatus(t *testing.T, tid int64, status domain.TicketStatus) {
	t.Helper()
	_, err := f.tickets.UpdateFields(context.Background(), admin, tid, TicketPatch{Status: &status})
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

type failingAllocator struct{}

func (failingAllocator) Next(_ context.Context, counter string) (int64, error) {
	return 0, apperrors.NewAllocationError(counter, errors.New("counter store unreachable"))
}

type failingNotifications struct {
	repository.NotificationRepository
}

func (failingNotifications) Create(context.Context, *domain.Notification) error {
	return errors.New("notifications table locked")
}

func ptr[T any](v T) *T { return &v }
