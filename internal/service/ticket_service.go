package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/idalloc"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService owns the ticket lifecycle: creation with allocated tids,
// policy-checked field updates, soft deletion, reviews and bucket queries.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	ids        idalloc.Allocator
	policy     *policy.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Allocator  idalloc.Allocator
	Policy     *policy.Engine
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload. An empty CustomerUID
// files the ticket for the caller.
type TicketCreateInput struct {
	Title                   string
	Description             string
	Priority                int
	CustomerUID             string
	AssignedSupportEngineer string
}

// TicketPatch carries the fields an update attempts. Nil fields are untouched.
type TicketPatch struct {
	Status                  *domain.TicketStatus
	Priority                *int
	AssignedSupportEngineer *string
	Description             *string
}

// Fields lists the policy fields the patch touches.
func (p TicketPatch) Fields() []policy.TicketField {
	var fields []policy.TicketField
	if p.Status != nil {
		fields = append(fields, policy.FieldStatus)
	}
	if p.Priority != nil {
		fields = append(fields, policy.FieldPriority)
	}
	if p.AssignedSupportEngineer != nil {
		fields = append(fields, policy.FieldAssignment)
	}
	if p.Description != nil {
		fields = append(fields, policy.FieldDescription)
	}
	return fields
}

// Page limits a listing.
type Page struct {
	Limit  int
	Offset int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		ids:        deps.Allocator,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the input, allocates a tid and persists the ticket as
// "not started". If persistence fails after allocation the tid is burned.
func (s *TicketService) Create(ctx context.Context, caller domain.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	customerUID := strings.TrimSpace(input.CustomerUID)
	if customerUID == "" {
		customerUID = caller.UID
	}
	engineer := strings.TrimSpace(input.AssignedSupportEngineer)
	if engineer == "" {
		engineer = domain.Unassigned
	}
	preassign := engineer != domain.Unassigned

	if err := s.policy.AuthorizeTicketCreate(caller, customerUID, preassign); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	details := map[string]any{}
	if title == "" {
		details["title"] = "required"
	}
	if description == "" {
		details["description"] = "required"
	}
	if !domain.ValidScore(input.Priority) {
		details["priority"] = "must be between 1 and 5"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	if customerUID != caller.UID {
		if err := s.requireRole(ctx, customerUID, domain.RoleCustomer, "customerUid"); err != nil {
			return nil, err
		}
	}
	if preassign {
		if err := s.requireRole(ctx, engineer, domain.RoleSupportEngineer, "assignedSupportEngineer"); err != nil {
			return nil, err
		}
	}

	tid, err := s.ids.Next(ctx, domain.TicketTIDCounter)
	if err != nil {
		s.logger.Error("ticket id allocation failed", zap.Error(err))
		return nil, err
	}

	ticket := &domain.Ticket{
		TID:                     tid,
		Title:                   title,
		Description:             description,
		Status:                  domain.TicketStatusNotStarted,
		Priority:                input.Priority,
		UID:                     customerUID,
		AssignedSupportEngineer: engineer,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.logger.Error("persist ticket failed", zap.Int64("tid", tid), zap.Error(err))
		return nil, err
	}
	s.logger.Info("ticket created",
		zap.Int64("tid", ticket.TID),
		zap.String("uid", ticket.UID),
		zap.String("actor", caller.UID))
	return ticket, nil
}

// Get returns a ticket visible to the caller. Tickets outside the caller's
// scope and deleted tickets are reported as not found.
func (s *TicketService) Get(ctx context.Context, caller domain.Identity, tid int64) (*domain.Ticket, error) {
	scope, err := s.policy.TicketScope(caller)
	if err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, tid)
	if err != nil {
		return nil, err
	}
	if ticket.IsDeleted() || !scope.Matches(ticket) {
		return nil, ticketNotFound(tid)
	}
	return ticket, nil
}

// List returns the caller's visible, non-deleted tickets, newest first.
func (s *TicketService) List(ctx context.Context, caller domain.Identity, page Page) ([]domain.Ticket, error) {
	filter, err := s.scopedFilter(caller, page)
	if err != nil {
		return nil, err
	}
	filter.ExcludeDeleted = true
	return s.tickets.List(ctx, filter)
}

// ListDeleted is the explicit deleted-items query under the same scope.
func (s *TicketService) ListDeleted(ctx context.Context, caller domain.Identity, page Page) ([]domain.Ticket, error) {
	filter, err := s.scopedFilter(caller, page)
	if err != nil {
		return nil, err
	}
	filter.Statuses = []domain.TicketStatus{domain.TicketStatusDeleted}
	return s.tickets.List(ctx, filter)
}

// UpdateFields applies a patch after the policy has cleared every field it
// touches. The patch is all-or-nothing.
func (s *TicketService) UpdateFields(ctx context.Context, caller domain.Identity, tid int64, patch TicketPatch) (*domain.Ticket, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, apperrors.NewValidationError("patch has no fields", nil)
	}
	ticket, err := s.load(ctx, tid)
	if err != nil {
		return nil, err
	}
	if _, err := s.policy.AuthorizeTicketPatch(caller, ticket, fields); err != nil {
		return nil, err
	}
	if ticket.IsDeleted() {
		return nil, apperrors.NewConflict("ticket is deleted", map[string]any{"tid": tid})
	}

	details := map[string]any{}
	if patch.Status != nil && !patch.Status.Active() {
		details["status"] = "must be one of not started, in progress, stuck, done"
	}
	if patch.Priority != nil && !domain.ValidScore(*patch.Priority) {
		details["priority"] = "must be between 1 and 5"
	}
	var description string
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
		if description == "" {
			details["description"] = "required"
		}
	}
	var engineer string
	if patch.AssignedSupportEngineer != nil {
		engineer = strings.TrimSpace(*patch.AssignedSupportEngineer)
		if engineer == "" {
			engineer = domain.Unassigned
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket update", details)
	}

	if patch.Description != nil && caller.Role == domain.RoleCustomer && !ticket.Status.Open() {
		return nil, apperrors.NewConflict("description can only change while the ticket is open",
			map[string]any{"tid": tid, "status": string(ticket.Status)})
	}
	if patch.AssignedSupportEngineer != nil && engineer != domain.Unassigned {
		if err := s.requireRole(ctx, engineer, domain.RoleSupportEngineer, "assignedSupportEngineer"); err != nil {
			return nil, err
		}
	}

	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	if patch.Description != nil {
		ticket.Description = description
	}
	if patch.AssignedSupportEngineer != nil {
		ticket.AssignedSupportEngineer = engineer
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.mapLookup(err, tid)
	}
	s.logger.Info("ticket updated",
		zap.Int64("tid", tid),
		zap.String("actor", caller.UID),
		zap.Strings("fields", fieldNames(fields)))
	return ticket, nil
}

// SoftDelete marks the ticket deleted with a mandatory reason and notifies
// the other stakeholders.
func (s *TicketService) SoftDelete(ctx context.Context, caller domain.Identity, tid int64, reason string) (*domain.Ticket, error) {
	reason = strings.TrimSpace(reason)
	switch {
	case reason == "":
		return nil, apperrors.NewValidationError("delete reason required", map[string]any{"reason": "required"})
	case utf8.RuneCountInString(reason) > domain.MaxDeleteReasonLength:
		return nil, apperrors.NewValidationError("delete reason too long",
			map[string]any{"reason": "must be at most 500 characters"})
	}

	ticket, err := s.load(ctx, tid)
	if err != nil {
		return nil, err
	}
	if err := s.policy.AuthorizeTicketDelete(caller, ticket); err != nil {
		return nil, err
	}
	if ticket.IsDeleted() {
		return nil, apperrors.NewConflict("ticket already deleted", map[string]any{"tid": tid})
	}

	now := s.now()
	deletedBy := caller.UID
	ticket.Status = domain.TicketStatusDeleted
	ticket.DeletedBy = &deletedBy
	ticket.DeletedAt = &now
	ticket.DeleteReason = &reason
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.mapLookup(err, tid)
	}
	s.logger.Info("ticket deleted", zap.Int64("tid", tid), zap.String("actor", caller.UID))

	s.publishEvent(ctx, events.Event{
		Type:  events.EventTicketDeleted,
		Actor: actorOf(caller),
		Payload: events.TicketDeletedPayload{
			TID:                     ticket.TID,
			Title:                   ticket.Title,
			OwnerUID:                ticket.UID,
			AssignedSupportEngineer: ticket.AssignedSupportEngineer,
			Reason:                  reason,
		},
	})
	return ticket, nil
}

// AttachReview records the owner's review and rating on a done ticket.
// Reviewing again overwrites the previous review.
func (s *TicketService) AttachReview(ctx context.Context, caller domain.Identity, tid int64, review string, rating int) (*domain.Ticket, error) {
	if caller.UID == "" {
		return nil, apperrors.NewUnauthorized("authenticated identity required")
	}
	ticket, err := s.load(ctx, tid)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusDone {
		return nil, apperrors.NewConflict("only done tickets can be reviewed",
			map[string]any{"tid": tid, "status": string(ticket.Status)})
	}
	if err := s.policy.AuthorizeReview(caller, ticket); err != nil {
		return nil, err
	}

	review = strings.TrimSpace(review)
	details := map[string]any{}
	if review == "" {
		details["review"] = "required"
	}
	if !domain.ValidScore(rating) {
		details["rating"] = "must be between 1 and 5"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid review", details)
	}

	ticket.Review = &review
	ticket.Rating = &rating
	ticket.Reviewed = true
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.mapLookup(err, tid)
	}
	return ticket, nil
}

// ListReviews returns the caller's visible tickets that carry a review and rating.
func (s *TicketService) ListReviews(ctx context.Context, caller domain.Identity, page Page) ([]domain.Ticket, error) {
	if err := s.policy.Authorize(caller, policy.ResourceReview, policy.ActionList); err != nil {
		return nil, err
	}
	filter, err := s.scopedFilter(caller, page)
	if err != nil {
		return nil, err
	}
	filter.ExcludeDeleted = true
	filter.WithReview = true
	return s.tickets.List(ctx, filter)
}

// CountByBucket counts the caller's visible tickets per bucket. A ticket
// contributes to every bucket it matches.
func (s *TicketService) CountByBucket(ctx context.Context, caller domain.Identity) (domain.BucketCounts, error) {
	if err := s.policy.Authorize(caller, policy.ResourceTicket, policy.ActionCount); err != nil {
		return domain.BucketCounts{}, err
	}
	filter, err := s.scopedFilter(caller, Page{})
	if err != nil {
		return domain.BucketCounts{}, err
	}
	filter.ExcludeDeleted = true
	return s.tickets.CountBuckets(ctx, filter)
}

// ListByStatusBucket lists the caller's visible tickets matching one bucket.
func (s *TicketService) ListByStatusBucket(ctx context.Context, caller domain.Identity, bucket string, page Page) ([]domain.Ticket, error) {
	b, ok := domain.ParseTicketBucket(bucket)
	if !ok {
		return nil, apperrors.NewValidationError("unknown bucket",
			map[string]any{"bucket": "must be one of open, pending, solved, unassigned"})
	}
	if err := s.policy.Authorize(caller, policy.ResourceTicket, policy.ActionCount); err != nil {
		return nil, err
	}
	filter, err := s.scopedFilter(caller, page)
	if err != nil {
		return nil, err
	}
	filter.ExcludeDeleted = true
	switch b {
	case domain.BucketOpen:
		filter.Statuses = []domain.TicketStatus{domain.TicketStatusNotStarted}
	case domain.BucketPending:
		filter.Statuses = []domain.TicketStatus{domain.TicketStatusInProgress}
	case domain.BucketSolved:
		filter.Statuses = []domain.TicketStatus{domain.TicketStatusDone}
	case domain.BucketUnassigned:
		filter.Unassigned = true
	}
	return s.tickets.List(ctx, filter)
}

func (s *TicketService) scopedFilter(caller domain.Identity, page Page) (repository.TicketFilter, error) {
	scope, err := s.policy.TicketScope(caller)
	if err != nil {
		return repository.TicketFilter{}, err
	}
	filter := repository.TicketFilter{Limit: page.Limit, Offset: page.Offset}
	switch {
	case scope.OwnerUID != "":
		owner := scope.OwnerUID
		filter.OwnerUID = &owner
	case scope.EngineerUID != "":
		engineer := scope.EngineerUID
		filter.EngineerUID = &engineer
	}
	return filter, nil
}

func (s *TicketService) load(ctx context.Context, tid int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByTID(ctx, tid)
	if err != nil {
		return nil, s.mapLookup(err, tid)
	}
	return ticket, nil
}

func (s *TicketService) mapLookup(err error, tid int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ticketNotFound(tid)
	}
	return err
}

// requireRole checks that uid names an existing account holding role.
func (s *TicketService) requireRole(ctx context.Context, uid string, role domain.Role, field string) error {
	user, err := s.users.GetByUID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewValidationError("unknown user", map[string]any{field: "unknown user " + uid})
	}
	if err != nil {
		return err
	}
	if user.Role != role {
		return apperrors.NewValidationError("user has wrong role", map[string]any{field: "must be a " + string(role)})
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, event)
}

func ticketNotFound(tid int64) error {
	return apperrors.NewNotFound("ticket", map[string]any{"tid": tid})
}

func fieldNames(fields []policy.TicketField) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}
