package storage

import (
	"context"
	"fmt"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

func (m *SQLAdapter) CreateNotification(ctx context.Context, n domain.Notification) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, type, message, link, related_item_id, created_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, string(n.Type), n.Message, n.Link, n.RelatedItemID, n.CreatedAt, n.IsRead,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (m *SQLAdapter) ListNotifications(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, recipient_id, type, message, link, related_item_id, created_at, is_read
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id DESC`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

func (m *SQLAdapter) MarkNotificationRead(ctx context.Context, notificationID string) error {
	// MySQL reports zero affected rows when is_read is already true, so
	// existence is checked instead of RowsAffected.
	found, err := m.exists(ctx, `SELECT COUNT(*) FROM notifications WHERE id = ?`, notificationID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: notification %s", domain.ErrNotFound, notificationID)
	}

	if _, err := m.db.ExecContext(ctx, `UPDATE notifications SET is_read = ? WHERE id = ?`, true, notificationID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func scanNotification(row rowScanner) (domain.Notification, error) {
	var (
		n   domain.Notification
		typ string
	)
	err := row.Scan(&n.ID, &n.RecipientID, &typ, &n.Message, &n.Link, &n.RelatedItemID, &n.CreatedAt, &n.IsRead)
	if err != nil {
		return domain.Notification{}, err
	}
	n.Type = domain.NotificationType(typ)
	return n, nil
}
