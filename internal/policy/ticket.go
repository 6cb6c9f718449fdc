package policy

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketScope is the visibility filter of a caller. Exactly one of the
// fields is set.
type TicketScope struct {
	All         bool
	OwnerUID    string
	EngineerUID string
}

// Matches reports whether t falls inside the scope.
func (s TicketScope) Matches(t *domain.Ticket) bool {
	switch {
	case s.All:
		return true
	case s.OwnerUID != "":
		return t.UID == s.OwnerUID
	case s.EngineerUID != "":
		return t.AssignedSupportEngineer == s.EngineerUID
	}
	return false
}

// Decision is the outcome of a ticket patch check.
type Decision struct {
	Allowed   bool
	WriteMask map[TicketField]bool
}

// TicketScope resolves which tickets the caller may see.
func (e *Engine) TicketScope(caller domain.Identity) (TicketScope, error) {
	if caller.UID == "" {
		return TicketScope{}, apperrors.NewUnauthorized("authenticated identity required")
	}
	switch {
	case e.Allowed(caller.Role, ResourceTicket, ActionReadAll):
		return TicketScope{All: true}, nil
	case e.Allowed(caller.Role, ResourceTicket, ActionReadAssigned):
		return TicketScope{EngineerUID: caller.UID}, nil
	case e.Allowed(caller.Role, ResourceTicket, ActionReadOwn):
		return TicketScope{OwnerUID: caller.UID}, nil
	}
	return TicketScope{}, apperrors.NewForbidden(fmt.Sprintf("%s may not read tickets", caller.Role))
}

// CanSeeTicket reports whether t is visible to the caller.
func (e *Engine) CanSeeTicket(caller domain.Identity, t *domain.Ticket) bool {
	scope, err := e.TicketScope(caller)
	if err != nil {
		return false
	}
	return scope.Matches(t)
}

// WriteMask lists the ticket fields the caller's role may update.
func (e *Engine) WriteMask(role domain.Role) map[TicketField]bool {
	mask := make(map[TicketField]bool, len(TicketFields))
	for _, field := range TicketFields {
		if e.Allowed(role, ResourceTicket, field.action()) {
			mask[field] = true
		}
	}
	return mask
}

// AuthorizeTicketPatch checks every attempted field. A single field outside
// the caller's write mask rejects the whole patch.
func (e *Engine) AuthorizeTicketPatch(caller domain.Identity, t *domain.Ticket, fields []TicketField) (Decision, error) {
	mask := e.WriteMask(caller.Role)
	decision := Decision{WriteMask: mask}
	if !e.CanSeeTicket(caller, t) {
		return decision, apperrors.NewForbidden("ticket outside caller scope")
	}
	var denied []string
	for _, field := range fields {
		if !mask[field] {
			denied = append(denied, string(field))
		}
	}
	if len(denied) > 0 {
		sort.Strings(denied)
		return decision, apperrors.NewDomainError(apperrors.CodeForbidden,
			fmt.Sprintf("%s may not update %s", caller.Role, strings.Join(denied, ", ")),
			http.StatusForbidden, map[string]any{"fields": denied})
	}
	decision.Allowed = true
	return decision, nil
}

// AuthorizeTicketCreate checks a create on behalf of customerUID. Customers
// may only file for themselves; pre-assignment needs its own grant.
func (e *Engine) AuthorizeTicketCreate(caller domain.Identity, customerUID string, preassign bool) error {
	if err := e.Authorize(caller, ResourceTicket, ActionCreate); err != nil {
		return err
	}
	if customerUID != caller.UID && !e.Allowed(caller.Role, ResourceTicket, ActionCreateForOther) {
		return apperrors.NewForbidden(fmt.Sprintf("%s may only file own tickets", caller.Role))
	}
	if preassign {
		return e.Authorize(caller, ResourceTicket, ActionAssignOnCreate)
	}
	return nil
}

// AuthorizeTicketDelete allows admins on any ticket and owners on their own.
func (e *Engine) AuthorizeTicketDelete(caller domain.Identity, t *domain.Ticket) error {
	if err := e.Authorize(caller, ResourceTicket, ActionDelete); err != nil {
		return err
	}
	if !e.CanSeeTicket(caller, t) {
		return apperrors.NewForbidden("ticket outside caller scope")
	}
	return nil
}

// AuthorizeReview allows only the owning customer.
func (e *Engine) AuthorizeReview(caller domain.Identity, t *domain.Ticket) error {
	if err := e.Authorize(caller, ResourceTicket, ActionReview); err != nil {
		return err
	}
	if t.UID != caller.UID {
		return apperrors.NewForbidden("only the ticket owner may review it")
	}
	return nil
}
