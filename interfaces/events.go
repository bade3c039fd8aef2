package interfaces

import (
	"context"

	"github.com/kotsworld/mailsync/dto"
)

type NotificationPublisher interface {
	PublishNotification(ctx context.Context, bookingID string, event dto.NotificationEvent) error
	Close() error
}

// Notifier hands notifications to a background publisher. Submit never blocks.
type Notifier interface {
	Submit(ctx context.Context, event dto.NotificationEvent)
}
