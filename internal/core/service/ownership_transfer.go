package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rl1809/book-exchange/internal/core/domain"
	"github.com/rl1809/book-exchange/internal/port"
)

// OwnershipTransfer completes an accepted exchange by swapping the owners of
// its two items. The swap and the completed status are one commit in the
// store; this type only guards the precondition and the deadline.
type OwnershipTransfer struct {
	ownership port.OwnershipRepository
	timeout   time.Duration
	logger    *slog.Logger
}

func NewOwnershipTransfer(ownership port.OwnershipRepository, timeout time.Duration, logger *slog.Logger) *OwnershipTransfer {
	if logger == nil {
		logger = slog.Default()
	}
	return &OwnershipTransfer{ownership: ownership, timeout: timeout, logger: logger}
}

func (t *OwnershipTransfer) Transfer(ctx context.Context, exchange domain.Exchange) (domain.Exchange, error) {
	completed, err := exchange.Complete()
	if err != nil {
		return domain.Exchange{}, err
	}

	swap := domain.SwapFor(exchange)
	err = callWithTimeout(ctx, t.timeout, "swap ownership", func(ctx context.Context) error {
		return t.ownership.SwapOwnership(ctx, swap)
	})
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("transfer exchange %s: %w", exchange.ID, err)
	}

	t.logger.Info("ownership transferred",
		"exchange_id", exchange.ID,
		"offered_item_id", swap.OfferedItemID, "new_offered_owner", swap.OwnerID,
		"requested_item_id", swap.RequestedItemID, "new_requested_owner", swap.RequesterID,
	)
	return completed, nil
}
