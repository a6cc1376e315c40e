package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/book-exchange/internal/core/domain"
	"github.com/rl1809/book-exchange/internal/port"
)

// NotificationService is the read side of the notification inbox.
type NotificationService struct {
	notifications port.NotificationRepository
	timeout       time.Duration
}

func NewNotificationService(notifications port.NotificationRepository, timeout time.Duration) *NotificationService {
	return &NotificationService{notifications: notifications, timeout: timeout}
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	var notifications []domain.Notification
	err := callWithTimeout(ctx, s.timeout, "list notifications", func(ctx context.Context) error {
		var err error
		notifications, err = s.notifications.ListNotifications(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) MarkNotificationRead(ctx context.Context, notificationID string) error {
	if strings.TrimSpace(notificationID) == "" {
		return fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}

	return callWithTimeout(ctx, s.timeout, "mark notification read", func(ctx context.Context) error {
		return s.notifications.MarkNotificationRead(ctx, notificationID)
	})
}
