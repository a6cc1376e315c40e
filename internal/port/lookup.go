package port

import "context"

// BookLookup and UserLookup return domain.ErrNotFound for unknown ids.

type BookLookup interface {
	GetTitle(ctx context.Context, itemID string) (string, error)
}

type UserLookup interface {
	GetEmail(ctx context.Context, userID string) (string, error)
	GetIDByEmail(ctx context.Context, email string) (string, error)
}
