package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/service"
)

// StartNotificationWorker subscribes the notification emitter to domain
// events published on the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification handlers registered",
		zap.Strings("events", []string{
			string(events.EventTicketDeleted),
			string(events.EventCompanyDeactivated),
		}),
	)
}
