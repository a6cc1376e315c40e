package domain

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidState         = errors.New("invalid exchange state")
	ErrOwnershipMismatch    = errors.New("ownership mismatch")
	ErrTimeout              = errors.New("operation timed out")
	ErrNotificationDispatch = errors.New("notification dispatch failed")
	ErrDuplicateRequest     = errors.New("duplicate request")
)
