package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

// NotificationQueue hands exchange events to a pool of workers so that the
// request that committed an exchange never waits on notification writes.
type NotificationQueue struct {
	dispatcher *NotificationDispatcher
	events     chan domain.ExchangeEvent
	deadline   time.Duration
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewNotificationQueue starts workerCount workers. Each event gets its own
// deadline, detached from the publishing request.
func NewNotificationQueue(dispatcher *NotificationDispatcher, queueSize, workerCount int, deadline time.Duration, logger *slog.Logger) *NotificationQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if workerCount < 1 {
		workerCount = 1
	}
	if deadline <= 0 {
		deadline = 2 * defaultStoreTimeout
	}

	q := &NotificationQueue{
		dispatcher: dispatcher,
		events:     make(chan domain.ExchangeEvent, queueSize),
		deadline:   deadline,
		logger:     logger,
	}
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.workerLoop(id)
		}(i)
	}
	return q
}

// Publish never blocks. Events arriving while the queue is full or closed
// are dropped with a warning.
func (q *NotificationQueue) Publish(_ context.Context, event domain.ExchangeEvent) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("notification queue closed, dropping event",
			"kind", event.Kind, "exchange_id", event.Exchange.ID)
		return
	}

	select {
	case q.events <- event:
	default:
		q.logger.Warn("notification queue full, dropping event",
			"kind", event.Kind, "exchange_id", event.Exchange.ID)
	}
}

// Close stops accepting events and waits for queued ones to be dispatched.
func (q *NotificationQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *NotificationQueue) workerLoop(id int) {
	for event := range q.events {
		ctx, cancel := context.WithTimeout(context.Background(), q.deadline)

		created := q.dispatcher.Dispatch(ctx, event)
		q.logger.Debug("dispatched exchange event",
			"worker", id, "kind", event.Kind, "exchange_id", event.Exchange.ID, "notifications", created)

		cancel()
	}
}
