package port

import (
	"context"
	"time"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

type ExchangeRepository interface {
	// CreateExchange persists a new exchange
	CreateExchange(ctx context.Context, exchange domain.Exchange) error

	// GetExchange returns domain.ErrNotFound when the id is unknown
	GetExchange(ctx context.Context, exchangeID string) (domain.Exchange, error)

	// UpdateExchangeStatus moves the exchange from one status to another only if the
	// stored status still equals from; otherwise it returns domain.ErrInvalidState
	UpdateExchangeStatus(ctx context.Context, exchangeID string, from, to domain.ExchangeStatus, respondedAt *time.Time) error

	// ListExchangesByUser returns exchanges where the user is requester or owner
	ListExchangesByUser(ctx context.Context, userID string) ([]domain.Exchange, error)
}
