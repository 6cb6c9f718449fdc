package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var (
	admin    = domain.Identity{UID: "UID-1", Role: domain.RoleAdmin}
	engineer = domain.Identity{UID: "UID-2", Role: domain.RoleSupportEngineer}
	owner    = domain.Identity{UID: "UID-7", Role: domain.RoleCustomer}
	stranger = domain.Identity{UID: "UID-9", Role: domain.RoleCustomer}
)

func sampleTicket() *domain.Ticket {
	return &domain.Ticket{
		TID:                     42,
		Status:                  domain.TicketStatusInProgress,
		Priority:                3,
		UID:                     owner.UID,
		AssignedSupportEngineer: engineer.UID,
	}
}

func TestTicketScope(t *testing.T) {
	e := MustNewEngine()
	ticket := sampleTicket()

	tests := []struct {
		name    string
		caller  domain.Identity
		want    TicketScope
		visible bool
	}{
		{"admin sees all", admin, TicketScope{All: true}, true},
		{"engineer sees assigned", engineer, TicketScope{EngineerUID: engineer.UID}, true},
		{"owner sees own", owner, TicketScope{OwnerUID: owner.UID}, true},
		{"other customer sees nothing", stranger, TicketScope{OwnerUID: stranger.UID}, false},
		{"other engineer sees nothing",
			domain.Identity{UID: "UID-3", Role: domain.RoleSupportEngineer},
			TicketScope{EngineerUID: "UID-3"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := e.TicketScope(tt.caller)
			require.NoError(t, err)
			assert.Equal(t, tt.want, scope)
			assert.Equal(t, tt.visible, e.CanSeeTicket(tt.caller, ticket))
		})
	}
}

func TestUnknownRoleIsDenied(t *testing.T) {
	e := MustNewEngine()
	ghost := domain.Identity{UID: "UID-5", Role: domain.Role("auditor")}

	_, err := e.TicketScope(ghost)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.False(t, e.CanSeeTicket(ghost, sampleTicket()))
	assert.True(t, apperrors.HasCode(e.Authorize(ghost, ResourceTicket, ActionCreate), apperrors.CodeForbidden))

	_, err = e.TicketScope(domain.Identity{Role: domain.RoleAdmin})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestWriteMask(t *testing.T) {
	e := MustNewEngine()

	assert.Equal(t, map[TicketField]bool{FieldStatus: true, FieldPriority: true, FieldAssignment: true}, e.WriteMask(domain.RoleAdmin))
	assert.Equal(t, map[TicketField]bool{FieldStatus: true, FieldDescription: true}, e.WriteMask(domain.RoleSupportEngineer))
	assert.Equal(t, map[TicketField]bool{FieldDescription: true}, e.WriteMask(domain.RoleCustomer))
}

func TestAuthorizeTicketPatch(t *testing.T) {
	e := MustNewEngine()
	ticket := sampleTicket()

	decision, err := e.AuthorizeTicketPatch(admin, ticket, []TicketField{FieldStatus, FieldAssignment})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	_, err = e.AuthorizeTicketPatch(engineer, ticket, []TicketField{FieldDescription, FieldStatus})
	require.NoError(t, err)

	decision, err = e.AuthorizeTicketPatch(engineer, ticket, []TicketField{FieldStatus, FieldPriority})
	require.Error(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, []string{"priority"}, apperrors.ToDomainError(err).Details["fields"])

	_, err = e.AuthorizeTicketPatch(owner, ticket, []TicketField{FieldStatus})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = e.AuthorizeTicketPatch(stranger, ticket, []TicketField{FieldDescription})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = e.AuthorizeTicketPatch(admin, ticket, []TicketField{FieldDescription})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestAuthorizeTicketCreate(t *testing.T) {
	e := MustNewEngine()

	assert.NoError(t, e.AuthorizeTicketCreate(owner, owner.UID, false))
	assert.Error(t, e.AuthorizeTicketCreate(owner, stranger.UID, false))
	assert.Error(t, e.AuthorizeTicketCreate(owner, owner.UID, true))
	assert.NoError(t, e.AuthorizeTicketCreate(admin, owner.UID, true))
	assert.NoError(t, e.AuthorizeTicketCreate(engineer, owner.UID, false))
	assert.True(t, apperrors.HasCode(e.AuthorizeTicketCreate(engineer, owner.UID, true), apperrors.CodeForbidden))
}

func TestAuthorizeTicketDelete(t *testing.T) {
	e := MustNewEngine()
	ticket := sampleTicket()

	assert.NoError(t, e.AuthorizeTicketDelete(admin, ticket))
	assert.NoError(t, e.AuthorizeTicketDelete(owner, ticket))
	assert.Error(t, e.AuthorizeTicketDelete(stranger, ticket))
	assert.Error(t, e.AuthorizeTicketDelete(engineer, ticket))
}

func TestAuthorizeReview(t *testing.T) {
	e := MustNewEngine()
	ticket := sampleTicket()

	assert.NoError(t, e.AuthorizeReview(owner, ticket))
	assert.True(t, apperrors.HasCode(e.AuthorizeReview(stranger, ticket), apperrors.CodeForbidden))
	assert.True(t, apperrors.HasCode(e.AuthorizeReview(admin, ticket), apperrors.CodeForbidden))
}

func TestUserAndCompanyGrants(t *testing.T) {
	e := MustNewEngine()

	assert.True(t, e.Allowed(domain.RoleAdmin, ResourceCompany, ActionDeactivate))
	assert.False(t, e.Allowed(domain.RoleSupportEngineer, ResourceCompany, ActionCreate))
	assert.True(t, e.Allowed(domain.RoleSupportEngineer, ResourceUser, ActionList))
	assert.False(t, e.Allowed(domain.RoleSupportEngineer, ResourceUser, ActionUpdate))
	assert.False(t, e.Allowed(domain.RoleCustomer, ResourceUser, ActionList))
	assert.True(t, e.Allowed(domain.RoleCustomer, ResourceProfile, ActionUpdate))
}

func TestListableRoles(t *testing.T) {
	e := MustNewEngine()
	adminRole := domain.RoleAdmin
	customerRole := domain.RoleCustomer

	roles, err := e.ListableRoles(admin, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, domain.Roles, roles)

	roles, err = e.ListableRoles(engineer, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Role{domain.RoleSupportEngineer, domain.RoleCustomer}, roles)

	roles, err = e.ListableRoles(engineer, &customerRole)
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleCustomer}, roles)

	_, err = e.ListableRoles(engineer, &adminRole)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = e.ListableRoles(owner, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}
