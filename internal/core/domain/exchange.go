package domain

import (
	"fmt"
	"strings"
	"time"
)

type ExchangeStatus string

const (
	ExchangeStatusPending   ExchangeStatus = "pending"
	ExchangeStatusAccepted  ExchangeStatus = "accepted"
	ExchangeStatusRejected  ExchangeStatus = "rejected"
	ExchangeStatusCompleted ExchangeStatus = "completed"
	ExchangeStatusCancelled ExchangeStatus = "cancelled"
)

// transitions lists every allowed status move. Anything absent is rejected.
var transitions = map[ExchangeStatus][]ExchangeStatus{
	ExchangeStatusPending:  {ExchangeStatusAccepted, ExchangeStatusRejected},
	ExchangeStatusAccepted: {ExchangeStatusCompleted},
}

func (s ExchangeStatus) Valid() bool {
	switch s {
	case ExchangeStatusPending, ExchangeStatusAccepted, ExchangeStatusRejected,
		ExchangeStatusCompleted, ExchangeStatusCancelled:
		return true
	}
	return false
}

func (s ExchangeStatus) Terminal() bool {
	return s == ExchangeStatusRejected || s == ExchangeStatusCompleted || s == ExchangeStatusCancelled
}

func CanTransition(from, to ExchangeStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseAction accepts the two responses an owner may give to a pending exchange.
func ParseAction(action string) (ExchangeStatus, error) {
	switch ExchangeStatus(strings.ToLower(strings.TrimSpace(action))) {
	case ExchangeStatusAccepted:
		return ExchangeStatusAccepted, nil
	case ExchangeStatusRejected:
		return ExchangeStatusRejected, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrValidation, action)
}

type Exchange struct {
	ID              string
	OfferedItemID   string
	RequestedItemID string
	RequesterID     string
	OwnerID         string
	Status          ExchangeStatus
	RequestedAt     time.Time
	RespondedAt     *time.Time
}

func NewExchange(id, offeredItemID, requestedItemID, requesterID, ownerID string, now time.Time) (Exchange, error) {
	fields := []struct{ name, value string }{
		{"exchange id", id},
		{"offered item id", offeredItemID},
		{"requested item id", requestedItemID},
		{"requester id", requesterID},
		{"owner id", ownerID},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return Exchange{}, fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	if requesterID == ownerID {
		return Exchange{}, fmt.Errorf("%w: requester and owner must differ", ErrValidation)
	}
	if offeredItemID == requestedItemID {
		return Exchange{}, fmt.Errorf("%w: offered and requested items must differ", ErrValidation)
	}

	return Exchange{
		ID:              id,
		OfferedItemID:   offeredItemID,
		RequestedItemID: requestedItemID,
		RequesterID:     requesterID,
		OwnerID:         ownerID,
		Status:          ExchangeStatusPending,
		RequestedAt:     now,
	}, nil
}

// Respond applies the owner's decision and returns the updated copy.
// The receiver is left untouched so callers can still use its current
// status as the precondition of a conditional write.
func (e Exchange) Respond(action ExchangeStatus, responderID string, now time.Time) (Exchange, error) {
	if e.Status != ExchangeStatusPending {
		return Exchange{}, fmt.Errorf("%w: exchange %s is %s", ErrInvalidState, e.ID, e.Status)
	}
	if responderID != e.OwnerID {
		return Exchange{}, fmt.Errorf("%w: %s does not own exchange %s", ErrUnauthorized, responderID, e.ID)
	}
	if !CanTransition(e.Status, action) {
		return Exchange{}, fmt.Errorf("%w: cannot move from %s to %s", ErrValidation, e.Status, action)
	}

	responded := now
	e.Status = action
	e.RespondedAt = &responded
	return e, nil
}

func (e Exchange) Complete() (Exchange, error) {
	if !CanTransition(e.Status, ExchangeStatusCompleted) {
		return Exchange{}, fmt.Errorf("%w: exchange %s is %s, not accepted", ErrInvalidState, e.ID, e.Status)
	}
	e.Status = ExchangeStatusCompleted
	return e, nil
}

func (e Exchange) Involves(userID string) bool {
	return e.RequesterID == userID || e.OwnerID == userID
}
