package domain

type NotificationType string

const (
	NotificationExchangeRequested NotificationType = "exchange_requested"
	NotificationExchangeAccepted  NotificationType = "exchange_accepted"
	NotificationExchangeRejected  NotificationType = "exchange_rejected"
	NotificationExchangeCompleted NotificationType = "exchange_completed"
)

type Notification struct {
	ID            string
	RecipientID   string
	Type          NotificationType
	Message       string
	Link          string
	RelatedItemID string
	CreatedAt     int64 // epoch seconds
	IsRead        bool
}

type ExchangeEventKind string

const (
	ExchangeRequested ExchangeEventKind = "requested"
	ExchangeAccepted  ExchangeEventKind = "accepted"
	ExchangeRejected  ExchangeEventKind = "rejected"
	ExchangeCompleted ExchangeEventKind = "completed"
)

// ExchangeEvent is published after a workflow step has been committed.
type ExchangeEvent struct {
	Kind     ExchangeEventKind
	Exchange Exchange
}
