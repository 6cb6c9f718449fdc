package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
)

func TestStartNotificationWorker_RoutesTicketDeletions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: store.Notifications(),
		UserRepo:         store.Users(),
		Policy:           policy.MustNewEngine(),
		Dispatcher:       dispatcher,
		Logger:           logger,
	})

	StartNotificationWorker(notifications, logger)
	assert.Equal(t, 1, logs.FilterMessage("notification handlers registered").Len())

	dispatcher.Publish(context.Background(), events.Event{
		Type:  events.EventTicketDeleted,
		Actor: events.Actor{UID: "UID-1", Role: domain.RoleAdmin},
		Payload: events.TicketDeletedPayload{
			TID:                     4,
			Title:                   "printer",
			OwnerUID:                "UID-2",
			AssignedSupportEngineer: "UID-3",
			Reason:                  "duplicate",
		},
	})

	for _, receiver := range []string{"UID-2", "UID-3"} {
		inbox, err := notifications.ListForReceiver(context.Background(), domain.Identity{UID: receiver, Role: domain.RoleCustomer})
		require.NoError(t, err)
		require.Len(t, inbox, 1, receiver)
		require.NotNil(t, inbox[0].TicketID)
		assert.EqualValues(t, 4, *inbox[0].TicketID)
		assert.Equal(t, "UID-1", inbox[0].SenderUID)
	}
}

func TestStartNotificationWorker_NilService(t *testing.T) {
	assert.NotPanics(t, func() { StartNotificationWorker(nil, zap.NewNop()) })
}
