package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

var errStoreDown = errors.New("store unavailable")

// mockStore is an in-memory stand-in for the SQL adapter. Every method takes
// the same mutex, which gives SwapOwnership its all-or-nothing behaviour.
type mockStore struct {
	mu            sync.Mutex
	exchanges     map[string]domain.Exchange
	owners        map[string]string
	notifications []domain.Notification
	titles        map[string]string
	emails        map[string]string

	failCreateExchange     bool
	failCreateNotification bool
	swapDelay              time.Duration
	swapCalls              int
}

func newMockStore() *mockStore {
	return &mockStore{
		exchanges: make(map[string]domain.Exchange),
		owners:    make(map[string]string),
		titles:    make(map[string]string),
		emails:    make(map[string]string),
	}
}

func (m *mockStore) CreateExchange(ctx context.Context, e domain.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateExchange {
		return errStoreDown
	}
	m.exchanges[e.ID] = e
	return nil
}

func (m *mockStore) GetExchange(ctx context.Context, id string) (domain.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exchanges[id]
	if !ok {
		return domain.Exchange{}, fmt.Errorf("%w: exchange %s", domain.ErrNotFound, id)
	}
	return e, nil
}

func (m *mockStore) UpdateExchangeStatus(ctx context.Context, id string, from, to domain.ExchangeStatus, respondedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exchanges[id]
	if !ok {
		return fmt.Errorf("%w: exchange %s", domain.ErrNotFound, id)
	}
	if e.Status != from {
		return fmt.Errorf("%w: exchange %s is %s", domain.ErrInvalidState, id, e.Status)
	}
	e.Status = to
	if respondedAt != nil {
		e.RespondedAt = respondedAt
	}
	m.exchanges[id] = e
	return nil
}

func (m *mockStore) ListExchangesByUser(ctx context.Context, userID string) ([]domain.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Exchange
	for _, e := range m.exchanges {
		if e.RequesterID == userID || e.OwnerID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) GetOwner(ctx context.Context, itemID string) (domain.Ownership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[itemID]
	if !ok {
		return domain.Ownership{}, fmt.Errorf("%w: ownership of %s", domain.ErrNotFound, itemID)
	}
	return domain.Ownership{ItemID: itemID, OwnerID: owner}, nil
}

func (m *mockStore) AssignOwner(ctx context.Context, itemID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[itemID] = ownerID
	return nil
}

func (m *mockStore) SwapOwnership(ctx context.Context, swap domain.OwnershipSwap) error {
	m.mu.Lock()
	m.swapCalls++
	delay := m.swapDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[swap.OfferedItemID] != swap.RequesterID || m.owners[swap.RequestedItemID] != swap.OwnerID {
		return domain.ErrOwnershipMismatch
	}
	e, ok := m.exchanges[swap.ExchangeID]
	if !ok || e.Status != domain.ExchangeStatusAccepted {
		return domain.ErrInvalidState
	}
	m.owners[swap.OfferedItemID] = swap.OwnerID
	m.owners[swap.RequestedItemID] = swap.RequesterID
	e.Status = domain.ExchangeStatusCompleted
	m.exchanges[swap.ExchangeID] = e
	return nil
}

func (m *mockStore) CreateNotification(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateNotification {
		return errStoreDown
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockStore) ListNotifications(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		if m.notifications[i].RecipientID == recipientID {
			out = append(out, m.notifications[i])
		}
	}
	return out, nil
}

func (m *mockStore) MarkNotificationRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
}

func (m *mockStore) GetTitle(ctx context.Context, itemID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.titles[itemID]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: book %s", domain.ErrNotFound, itemID)
}

func (m *mockStore) GetEmail(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.emails[userID]; ok {
		return e, nil
	}
	return "", fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
}

func (m *mockStore) GetIDByEmail(ctx context.Context, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.emails {
		if e == email {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: user with email %s", domain.ErrNotFound, email)
}

func (m *mockStore) owner(itemID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[itemID]
}

func (m *mockStore) status(id string) domain.ExchangeStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchanges[id].Status
}

func (m *mockStore) sentNotifications() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.notifications...)
}

// mockCacheRepo mirrors the Redis request guard.
type mockCacheRepo struct {
	mu             sync.Mutex
	idempotencySet map[string]bool
	released       []string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{idempotencySet: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	m.released = append(m.released, key)
	return nil
}
