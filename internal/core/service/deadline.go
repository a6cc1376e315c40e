package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

const defaultStoreTimeout = 5 * time.Second

// callWithTimeout bounds one store or sink call. A blown deadline surfaces as
// domain.ErrTimeout. Calls are not retried.
func callWithTimeout(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrTimeout, op, err)
	}
	return err
}
