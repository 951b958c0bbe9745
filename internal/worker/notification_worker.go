package worker

import (
	"go.uber.org/zap"

	"github.com/itops/helpdesk-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// ticket event stream. Dispatch is synchronous and in-process; this is the
// single seam where a queue-backed consumer would plug in instead.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		logger.Warn("notification service not configured; ticket events will not notify")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification handlers subscribed to ticket events")
}
