package port

import (
	"context"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification domain.Notification) error

	// ListNotifications returns the recipient's notifications, newest first
	ListNotifications(ctx context.Context, recipientID string) ([]domain.Notification, error)

	// MarkNotificationRead returns domain.ErrNotFound when the id is unknown
	MarkNotificationRead(ctx context.Context, notificationID string) error
}
