package worker

import (
	"context"

	"github.com/spec-kit/grievance-service/internal/service"
)

// RunNotificationWorker registers notification handlers and delivers queued
// notifications until ctx is done.
func RunNotificationWorker(ctx context.Context, notificationService *service.NotificationService) error {
	if notificationService == nil {
		return nil
	}
	notificationService.RegisterHandlers()
	return notificationService.Run(ctx)
}
