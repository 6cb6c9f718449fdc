// Package policy decides which tickets, users and companies a caller may see
// and which mutations they may perform. Role × resource × action grants live
// in a casbin policy; ownership and assignment scoping is applied on top.
// Anything the policy does not list is denied.
package policy

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

//go:embed rbac_model.conf
var modelText string

//go:embed policy.csv
var policyText string

// Resource names a protected object kind.
type Resource string

const (
	ResourceTicket       Resource = "ticket"
	ResourceReview       Resource = "review"
	ResourceUser         Resource = "user"
	ResourceProfile      Resource = "profile"
	ResourceCompany      Resource = "company"
	ResourceNotification Resource = "notification"
)

// Action names an operation on a resource.
type Action string

const (
	ActionCreate         Action = "create"
	ActionCreateForOther Action = "create_for_other"
	ActionAssignOnCreate Action = "assign_on_create"
	ActionReadAll        Action = "read:all"
	ActionReadAssigned   Action = "read:assigned"
	ActionReadOwn        Action = "read:own"
	ActionRead           Action = "read"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionReview         Action = "review"
	ActionCount          Action = "count"
	ActionList           Action = "list"
	ActionDeactivate     Action = "deactivate"
)

// TicketField is a ticket attribute an update may touch.
type TicketField string

const (
	FieldStatus      TicketField = "status"
	FieldPriority    TicketField = "priority"
	FieldAssignment  TicketField = "assignment"
	FieldDescription TicketField = "description"
)

// TicketFields lists every patchable field.
var TicketFields = []TicketField{FieldStatus, FieldPriority, FieldAssignment, FieldDescription}

func (f TicketField) action() Action {
	return Action("update:" + string(f))
}

// Engine evaluates the access policy.
type Engine struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

// NewEngine loads the embedded model and policy.
func NewEngine() (*Engine, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(policyText))
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}
	return &Engine{enforcer: enforcer}, nil
}

// MustNewEngine is NewEngine for wiring code and tests.
func MustNewEngine() *Engine {
	e, err := NewEngine()
	if err != nil {
		panic(err)
	}
	return e
}

// Allowed reports whether the role is granted action on resource.
func (e *Engine) Allowed(role domain.Role, resource Resource, action Action) bool {
	if !role.Valid() {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	ok, err := e.enforcer.Enforce(string(role), string(resource), string(action))
	return err == nil && ok
}

// Authorize returns an AuthorizationError unless the caller's role holds the grant.
func (e *Engine) Authorize(caller domain.Identity, resource Resource, action Action) error {
	if caller.UID == "" {
		return apperrors.NewUnauthorized("authenticated identity required")
	}
	if !e.Allowed(caller.Role, resource, action) {
		return apperrors.NewForbidden(fmt.Sprintf("%s may not %s %s", caller.Role, action, resource))
	}
	return nil
}
