package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/book-exchange/internal/core/domain"
	"github.com/rl1809/book-exchange/internal/port"
)

type ExchangeService struct {
	exchanges port.ExchangeRepository
	transfer  *OwnershipTransfer
	users     port.UserLookup
	events    EventPublisher
	guard     port.CacheRepository
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*ExchangeService)

// WithRequestGuard rejects a repeated request for the same pair of items by
// the same requester while the guard key is alive.
func WithRequestGuard(guard port.CacheRepository) Option {
	return func(s *ExchangeService) { s.guard = guard }
}

func WithStoreTimeout(timeout time.Duration) Option {
	return func(s *ExchangeService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *ExchangeService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *ExchangeService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *ExchangeService) { s.newID = newID }
}

func NewExchangeService(
	exchanges port.ExchangeRepository,
	transfer *OwnershipTransfer,
	users port.UserLookup,
	events EventPublisher,
	opts ...Option,
) *ExchangeService {
	s := &ExchangeService{
		exchanges: exchanges,
		transfer:  transfer,
		users:     users,
		events:    events,
		timeout:   defaultStoreTimeout,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExchangeService) RequestExchange(ctx context.Context, offeredItemID, requestedItemID, requesterID, ownerID string) (string, error) {
	exchange, err := domain.NewExchange(s.newID(), offeredItemID, requestedItemID, requesterID, ownerID, s.now())
	if err != nil {
		return "", err
	}

	guardKey := fmt.Sprintf("exchange:request:%s:%s:%s", requesterID, offeredItemID, requestedItemID)
	if s.guard != nil {
		var ok bool
		err := callWithTimeout(ctx, s.timeout, "idempotency check", func(ctx context.Context) error {
			var err error
			ok, err = s.guard.SetIdempotency(ctx, guardKey)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return "", domain.ErrDuplicateRequest
		}
	}

	err = callWithTimeout(ctx, s.timeout, "create exchange", func(ctx context.Context) error {
		return s.exchanges.CreateExchange(ctx, exchange)
	})
	if err != nil {
		s.releaseGuard(guardKey)
		return "", fmt.Errorf("create exchange: %w", err)
	}

	s.logger.Info("exchange requested",
		"exchange_id", exchange.ID, "requester_id", requesterID, "owner_id", ownerID,
		"offered_item_id", offeredItemID, "requested_item_id", requestedItemID)

	s.events.Publish(ctx, domain.ExchangeEvent{Kind: domain.ExchangeRequested, Exchange: exchange})
	return exchange.ID, nil
}

// RespondToExchange records the owner's decision. An accepted exchange is
// completed by swapping ownership; if the swap fails the exchange stays
// accepted and false is returned with the cause, for an operator to
// reconcile. The accepted status is not reverted.
func (s *ExchangeService) RespondToExchange(ctx context.Context, exchangeID, action, responderID string) (bool, error) {
	if strings.TrimSpace(exchangeID) == "" || strings.TrimSpace(responderID) == "" {
		return false, fmt.Errorf("%w: exchange id and responder id are required", domain.ErrValidation)
	}
	decision, err := domain.ParseAction(action)
	if err != nil {
		return false, err
	}

	exchange, err := s.GetExchange(ctx, exchangeID)
	if err != nil {
		return false, err
	}

	responded, err := exchange.Respond(decision, responderID, s.now())
	if err != nil {
		s.logger.Warn("exchange response refused",
			"exchange_id", exchangeID, "responder_id", responderID, "action", decision, "error", err)
		return false, err
	}

	err = callWithTimeout(ctx, s.timeout, "update exchange status", func(ctx context.Context) error {
		return s.exchanges.UpdateExchangeStatus(ctx, exchangeID, exchange.Status, responded.Status, responded.RespondedAt)
	})
	if err != nil {
		s.logger.Warn("exchange status update failed", "exchange_id", exchangeID, "action", decision, "error", err)
		return false, err
	}

	s.logger.Info("exchange responded", "exchange_id", exchangeID, "responder_id", responderID, "status", responded.Status)

	if decision == domain.ExchangeStatusRejected {
		s.events.Publish(ctx, domain.ExchangeEvent{Kind: domain.ExchangeRejected, Exchange: responded})
		return true, nil
	}

	completed, err := s.transfer.Transfer(ctx, responded)
	if err != nil {
		s.logger.Error("exchange accepted but not completed, needs reconciliation",
			"exchange_id", exchangeID, "error", err)
		s.events.Publish(ctx, domain.ExchangeEvent{Kind: domain.ExchangeAccepted, Exchange: responded})
		return false, err
	}

	s.events.Publish(ctx, domain.ExchangeEvent{Kind: domain.ExchangeCompleted, Exchange: completed})
	return true, nil
}

func (s *ExchangeService) GetExchange(ctx context.Context, exchangeID string) (domain.Exchange, error) {
	if strings.TrimSpace(exchangeID) == "" {
		return domain.Exchange{}, fmt.Errorf("%w: exchange id is required", domain.ErrValidation)
	}

	var exchange domain.Exchange
	err := callWithTimeout(ctx, s.timeout, "get exchange", func(ctx context.Context) error {
		var err error
		exchange, err = s.exchanges.GetExchange(ctx, exchangeID)
		return err
	})
	if err != nil {
		return domain.Exchange{}, err
	}
	return exchange, nil
}

func (s *ExchangeService) GetExchangesForUser(ctx context.Context, userID string) ([]domain.Exchange, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	var found []domain.Exchange
	err := callWithTimeout(ctx, s.timeout, "list exchanges", func(ctx context.Context) error {
		var err error
		found, err = s.exchanges.ListExchangesByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}

	seen := make(map[string]bool, len(found))
	exchanges := make([]domain.Exchange, 0, len(found))
	for _, e := range found {
		if seen[e.ID] || !e.Involves(userID) {
			continue
		}
		seen[e.ID] = true
		exchanges = append(exchanges, e)
	}
	return exchanges, nil
}

// ResolveUserID maps an account email to its user id.
func (s *ExchangeService) ResolveUserID(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	var userID string
	err := callWithTimeout(ctx, s.timeout, "resolve user", func(ctx context.Context) error {
		var err error
		userID, err = s.users.GetIDByEmail(ctx, email)
		return err
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *ExchangeService) releaseGuard(key string) {
	if s.guard == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.guard.ReleaseIdempotency(ctx, key); err != nil {
		s.logger.Warn("failed to release request guard", "key", key, "error", err)
	}
}
