package policy

import (
	"fmt"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// ListableRoles returns the account roles the caller may list. A requested
// role outside that set is an AuthorizationError; with no request every
// listable role is returned.
func (e *Engine) ListableRoles(caller domain.Identity, requested *domain.Role) ([]domain.Role, error) {
	if err := e.Authorize(caller, ResourceUser, ActionList); err != nil {
		return nil, err
	}
	if requested != nil {
		if !e.Allowed(caller.Role, ResourceUser, listAction(*requested)) {
			return nil, apperrors.NewForbidden(fmt.Sprintf("%s may not list %s accounts", caller.Role, *requested))
		}
		return []domain.Role{*requested}, nil
	}
	var roles []domain.Role
	for _, role := range domain.Roles {
		if e.Allowed(caller.Role, ResourceUser, listAction(role)) {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func listAction(role domain.Role) Action {
	return Action("list:" + string(role))
}
