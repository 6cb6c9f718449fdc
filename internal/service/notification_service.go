package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// NotificationService appends notifications for sensitive mutations and
// serves them back to their receivers.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	policy        *policy.Engine
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	UserRepo         repository.UserRepository
	Policy           *policy.Engine
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		users:         deps.UserRepo,
		policy:        deps.Policy,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
	n.dispatcher.Subscribe(events.EventCompanyDeactivated, n.handleCompanyDeactivated)
}

// Emit appends a notification. Failures are logged and never returned so
// the triggering mutation is not affected.
func (n *NotificationService) Emit(ctx context.Context, notification domain.Notification) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if err := n.notifications.Create(ctx, &notification); err != nil {
		n.logger.Warn("emit notification failed",
			zap.String("receiver", notification.ReceiverUID),
			zap.String("sender", notification.SenderUID),
			zap.Error(err))
	}
}

// ListForReceiver returns the caller's notifications, newest first.
func (n *NotificationService) ListForReceiver(ctx context.Context, caller domain.Identity) ([]domain.Notification, error) {
	if err := n.policy.Authorize(caller, policy.ResourceNotification, policy.ActionRead); err != nil {
		return nil, err
	}
	return n.notifications.ListByReceiver(ctx, caller.UID)
}

// SetRead toggles the read flag. Only the receiver may do so.
func (n *NotificationService) SetRead(ctx context.Context, caller domain.Identity, id string, read bool) (*domain.Notification, error) {
	if err := n.policy.Authorize(caller, policy.ResourceNotification, policy.ActionRead); err != nil {
		return nil, err
	}
	notification, err := n.notifications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return nil, err
	}
	if notification.ReceiverUID != caller.UID {
		return nil, apperrors.NewForbidden("only the receiver may update a notification")
	}
	if err := n.notifications.SetRead(ctx, id, read); err != nil {
		return nil, err
	}
	notification.Read = read
	return notification, nil
}

func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketDeletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	receivers := []string{payload.OwnerUID}
	if payload.AssignedSupportEngineer != "" && payload.AssignedSupportEngineer != domain.Unassigned {
		receivers = append(receivers, payload.AssignedSupportEngineer)
	}
	tid := payload.TID
	reason := payload.Reason
	message := fmt.Sprintf("Ticket #%d %q was deleted", payload.TID, payload.Title)
	for _, receiver := range stakeholders(receivers, event.Actor.UID) {
		n.Emit(ctx, domain.Notification{
			ReceiverUID: receiver,
			SenderUID:   event.Actor.UID,
			TicketID:    &tid,
			Message:     message,
			Reason:      &reason,
		})
	}
	return nil
}

func (n *NotificationService) handleCompanyDeactivated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CompanyDeactivatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	companyID := payload.CompanyID
	members, err := n.users.List(ctx, repository.UserFilter{CompanyID: &companyID})
	if err != nil {
		return fmt.Errorf("list company members: %w", err)
	}
	receivers := make([]string, 0, len(members))
	for _, member := range members {
		receivers = append(receivers, member.UID)
	}
	reason := payload.Reason
	message := fmt.Sprintf("Company %q was deactivated", payload.Name)
	for _, receiver := range stakeholders(receivers, event.Actor.UID) {
		n.Emit(ctx, domain.Notification{
			ReceiverUID: receiver,
			SenderUID:   event.Actor.UID,
			Message:     message,
			Reason:      &reason,
		})
	}
	return nil
}

// stakeholders deduplicates uids and drops the actor and blanks.
func stakeholders(uids []string, actor string) []string {
	seen := make(map[string]struct{}, len(uids))
	out := make([]string, 0, len(uids))
	for _, uid := range uids {
		if uid == "" || uid == actor {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		out = append(out, uid)
	}
	return out
}
