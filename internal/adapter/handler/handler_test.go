package handler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/book-exchange/internal/adapter/storage"
	"github.com/rl1809/book-exchange/internal/core/service"
)

type testStack struct {
	store         *storage.SQLAdapter
	exchanges     *service.ExchangeService
	notifications *service.NotificationService
	logger        *slog.Logger
}

// newTestStack wires the services over an in-memory SQLite store seeded
// with alice owning Dune (book-a) and bob owning Emma (book-b).
func newTestStack(t *testing.T) *testStack {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.PutUser(ctx, "alice", "alice@example.com"))
	require.NoError(t, store.PutUser(ctx, "bob", "bob@example.com"))
	require.NoError(t, store.PutBook(ctx, "book-a", "Dune"))
	require.NoError(t, store.PutBook(ctx, "book-b", "Emma"))
	require.NoError(t, store.AssignOwner(ctx, "book-a", "alice"))
	require.NoError(t, store.AssignOwner(ctx, "book-b", "bob"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := service.NewNotificationDispatcher(store, store, store, time.Second, logger)
	transfer := service.NewOwnershipTransfer(store, time.Second, logger)

	exchanges := service.NewExchangeService(store, transfer, store, dispatcher,
		service.WithLogger(logger), service.WithStoreTimeout(time.Second))

	return &testStack{
		store:         store,
		exchanges:     exchanges,
		notifications: service.NewNotificationService(store, time.Second),
		logger:        logger,
	}
}

func (s *testStack) owner(t *testing.T, itemID string) string {
	t.Helper()
	o, err := s.store.GetOwner(context.Background(), itemID)
	require.NoError(t, err)
	return o.OwnerID
}
