package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/book-exchange/internal/core/domain"
	"github.com/rl1809/book-exchange/internal/port"
)

const ownedBooksLink = "/owned-books"

// EventPublisher receives exchange events after the step that produced them
// has been committed. Implementations must not report failures back.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ExchangeEvent)
}

type NotificationDispatcher struct {
	notifications port.NotificationRepository
	books         port.BookLookup
	users         port.UserLookup
	timeout       time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func NewNotificationDispatcher(
	notifications port.NotificationRepository,
	books port.BookLookup,
	users port.UserLookup,
	timeout time.Duration,
	logger *slog.Logger,
) *NotificationDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationDispatcher{
		notifications: notifications,
		books:         books,
		users:         users,
		timeout:       timeout,
		logger:        logger,
		now:           time.Now,
	}
}

// Notify persists one notification. Failures are logged and returned wrapped
// in domain.ErrNotificationDispatch for the caller to ignore or report.
func (d *NotificationDispatcher) Notify(ctx context.Context, recipientID string, typ domain.NotificationType, message, link, relatedItemID string) (string, error) {
	n := domain.Notification{
		ID:            uuid.NewString(),
		RecipientID:   recipientID,
		Type:          typ,
		Message:       message,
		Link:          link,
		RelatedItemID: relatedItemID,
		CreatedAt:     d.now().Unix(),
	}

	err := callWithTimeout(ctx, d.timeout, "create notification", func(ctx context.Context) error {
		return d.notifications.CreateNotification(ctx, n)
	})
	if err != nil {
		d.logger.Error("notification dispatch failed",
			"recipient_id", recipientID, "type", typ, "related_item_id", relatedItemID, "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrNotificationDispatch, err)
	}

	d.logger.Info("notification created", "notification_id", n.ID, "recipient_id", recipientID, "type", typ)
	return n.ID, nil
}

// Publish dispatches inline. Used when no queue is configured.
func (d *NotificationDispatcher) Publish(ctx context.Context, event domain.ExchangeEvent) {
	d.Dispatch(ctx, event)
}

type draft struct {
	recipientID string
	typ         domain.NotificationType
	link        string
	message     func(r *detailResolver) (string, bool)
}

// Dispatch turns an exchange event into notifications and returns how many
// were stored. A notification whose titles or emails cannot be resolved is
// skipped with a warning.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, event domain.ExchangeEvent) int {
	e := event.Exchange
	exchangeLink := "/exchange/" + e.ID

	var drafts []draft
	switch event.Kind {
	case domain.ExchangeRequested:
		drafts = []draft{{
			recipientID: e.OwnerID,
			typ:         domain.NotificationExchangeRequested,
			link:        exchangeLink,
			message: func(r *detailResolver) (string, bool) {
				requester, ok := r.email(e.RequesterID)
				offered, requested, ok2 := r.titles(e)
				if !ok || !ok2 {
					return "", false
				}
				return fmt.Sprintf("User %s wants to exchange their book '%s' for your book '%s'.",
					requester, offered, requested), true
			},
		}}
	case domain.ExchangeRejected:
		drafts = []draft{{
			recipientID: e.RequesterID,
			typ:         domain.NotificationExchangeRejected,
			link:        exchangeLink,
			message: func(r *detailResolver) (string, bool) {
				owner, ok := r.email(e.OwnerID)
				offered, requested, ok2 := r.titles(e)
				if !ok || !ok2 {
					return "", false
				}
				return fmt.Sprintf("%s declined your offer of '%s' for '%s'.", owner, offered, requested), true
			},
		}}
	case domain.ExchangeAccepted:
		drafts = []draft{{
			recipientID: e.RequesterID,
			typ:         domain.NotificationExchangeAccepted,
			link:        exchangeLink,
			message: func(r *detailResolver) (string, bool) {
				owner, ok := r.email(e.OwnerID)
				offered, requested, ok2 := r.titles(e)
				if !ok || !ok2 {
					return "", false
				}
				return fmt.Sprintf("%s accepted your offer of '%s' for '%s'. The ownership transfer is pending reconciliation.",
					owner, offered, requested), true
			},
		}}
	case domain.ExchangeCompleted:
		drafts = []draft{
			{
				recipientID: e.RequesterID,
				typ:         domain.NotificationExchangeCompleted,
				link:        ownedBooksLink,
				message: func(r *detailResolver) (string, bool) {
					owner, ok := r.email(e.OwnerID)
					offered, requested, ok2 := r.titles(e)
					if !ok || !ok2 {
						return "", false
					}
					return fmt.Sprintf("Your exchange for '%s' (your '%s') with %s is complete!",
						requested, offered, owner), true
				},
			},
			{
				recipientID: e.OwnerID,
				typ:         domain.NotificationExchangeCompleted,
				link:        ownedBooksLink,
				message: func(r *detailResolver) (string, bool) {
					requester, ok := r.email(e.RequesterID)
					offered, requested, ok2 := r.titles(e)
					if !ok || !ok2 {
						return "", false
					}
					return fmt.Sprintf("Your exchange of '%s' for '%s' (from %s) is complete!",
						requested, offered, requester), true
				},
			},
		}
	default:
		d.logger.Warn("unknown exchange event", "kind", event.Kind, "exchange_id", e.ID)
		return 0
	}

	r := &detailResolver{ctx: ctx, d: d, titleCache: map[string]string{}, emailCache: map[string]string{}}
	created := 0
	for _, df := range drafts {
		message, ok := df.message(r)
		if !ok {
			d.logger.Warn("skipping notification, exchange details unavailable",
				"exchange_id", e.ID, "recipient_id", df.recipientID, "type", df.typ)
			continue
		}
		if _, err := d.Notify(ctx, df.recipientID, df.typ, message, df.link, e.ID); err != nil {
			continue
		}
		created++
	}
	return created
}

// detailResolver resolves titles and emails once per event.
type detailResolver struct {
	ctx        context.Context
	d          *NotificationDispatcher
	titleCache map[string]string
	emailCache map[string]string
}

func (r *detailResolver) titles(e domain.Exchange) (offered, requested string, ok bool) {
	offered, ok = r.title(e.OfferedItemID)
	if !ok {
		return "", "", false
	}
	requested, ok = r.title(e.RequestedItemID)
	return offered, requested, ok
}

func (r *detailResolver) title(itemID string) (string, bool) {
	return r.lookup(r.titleCache, "book title", itemID, r.d.books.GetTitle)
}

func (r *detailResolver) email(userID string) (string, bool) {
	return r.lookup(r.emailCache, "user email", userID, r.d.users.GetEmail)
}

func (r *detailResolver) lookup(seen map[string]string, what, id string, get func(context.Context, string) (string, error)) (string, bool) {
	if v, ok := seen[id]; ok {
		return v, v != ""
	}

	var value string
	err := callWithTimeout(r.ctx, r.d.timeout, "lookup "+what, func(ctx context.Context) error {
		var err error
		value, err = get(ctx, id)
		return err
	})
	if err != nil {
		r.d.logger.Warn("lookup failed", "what", what, "id", id, "error", err)
		value = ""
	}
	seen[id] = value
	return value, value != ""
}
