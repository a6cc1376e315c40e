package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

type countingLookup struct {
	mu     sync.Mutex
	calls  map[string]int
	values map[string]string
}

func newCountingLookup(values map[string]string) *countingLookup {
	return &countingLookup{calls: make(map[string]int), values: values}
}

func (l *countingLookup) get(key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[key]++
	v, ok := l.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return v, nil
}

func (l *countingLookup) GetTitle(ctx context.Context, itemID string) (string, error) {
	return l.get("book:" + itemID)
}

func (l *countingLookup) GetEmail(ctx context.Context, userID string) (string, error) {
	return l.get("user:" + userID)
}

func (l *countingLookup) GetIDByEmail(ctx context.Context, email string) (string, error) {
	return l.get("email:" + email)
}

func TestLookupCache_HitsSkipBackend(t *testing.T) {
	backend := newCountingLookup(map[string]string{
		"book:bookA":              "Dune",
		"user:alice":              "alice@example.com",
		"email:alice@example.com": "alice",
	})
	c := NewLookupCache(backend, backend, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		title, err := c.GetTitle(ctx, "bookA")
		require.NoError(t, err)
		assert.Equal(t, "Dune", title)

		email, err := c.GetEmail(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", email)

		id, err := c.GetIDByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice", id)
	}

	assert.Equal(t, 1, backend.calls["book:bookA"])
	assert.Equal(t, 1, backend.calls["user:alice"])
	assert.Equal(t, 1, backend.calls["email:alice@example.com"])
}

func TestLookupCache_MissesAreNotCached(t *testing.T) {
	backend := newCountingLookup(map[string]string{})
	c := NewLookupCache(backend, backend, time.Minute)
	ctx := context.Background()

	_, err := c.GetTitle(ctx, "bookZ")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	backend.mu.Lock()
	backend.values["book:bookZ"] = "Late Arrival"
	backend.mu.Unlock()

	title, err := c.GetTitle(ctx, "bookZ")
	require.NoError(t, err)
	assert.Equal(t, "Late Arrival", title)
	assert.Equal(t, 2, backend.calls["book:bookZ"])
}
