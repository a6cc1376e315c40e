package domain

import "time"

type Ownership struct {
	ItemID    string
	OwnerID   string
	UpdatedAt time.Time
}

// OwnershipSwap describes the two-item reassignment that completes an
// accepted exchange.
type OwnershipSwap struct {
	ExchangeID      string
	OfferedItemID   string
	RequestedItemID string
	RequesterID     string
	OwnerID         string
}

func SwapFor(e Exchange) OwnershipSwap {
	return OwnershipSwap{
		ExchangeID:      e.ID,
		OfferedItemID:   e.OfferedItemID,
		RequestedItemID: e.RequestedItemID,
		RequesterID:     e.RequesterID,
		OwnerID:         e.OwnerID,
	}
}
