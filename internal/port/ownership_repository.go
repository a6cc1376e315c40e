package port

import (
	"context"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

type OwnershipRepository interface {
	// GetOwner returns domain.ErrNotFound when the item has no ownership record
	GetOwner(ctx context.Context, itemID string) (domain.Ownership, error)

	// AssignOwner creates or replaces the ownership record of one item
	AssignOwner(ctx context.Context, itemID, ownerID string) error

	// SwapOwnership reassigns both items and marks the exchange completed in a single
	// atomic commit. Returns domain.ErrOwnershipMismatch without writing anything when
	// either item is not held by the expected party.
	SwapOwnership(ctx context.Context, swap domain.OwnershipSwap) error
}
