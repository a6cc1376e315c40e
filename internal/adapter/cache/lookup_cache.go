package cache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rl1809/book-exchange/internal/port"
)

// LookupCache memoizes book titles and user emails. Misses and errors are
// not cached so a book or user created later is picked up on the next call.
// Ownership must never go through here.
type LookupCache struct {
	books port.BookLookup
	users port.UserLookup
	cache *cache.Cache
}

func NewLookupCache(books port.BookLookup, users port.UserLookup, ttl time.Duration) *LookupCache {
	return &LookupCache{
		books: books,
		users: users,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *LookupCache) GetTitle(ctx context.Context, itemID string) (string, error) {
	return c.cached("title:"+itemID, func() (string, error) {
		return c.books.GetTitle(ctx, itemID)
	})
}

func (c *LookupCache) GetEmail(ctx context.Context, userID string) (string, error) {
	return c.cached("email:"+userID, func() (string, error) {
		return c.users.GetEmail(ctx, userID)
	})
}

func (c *LookupCache) GetIDByEmail(ctx context.Context, email string) (string, error) {
	return c.cached("user-by-email:"+email, func() (string, error) {
		return c.users.GetIDByEmail(ctx, email)
	})
}

func (c *LookupCache) cached(key string, load func() (string, error)) (string, error) {
	if v, found := c.cache.Get(key); found {
		return v.(string), nil
	}

	v, err := load()
	if err != nil {
		return "", err
	}
	c.cache.Set(key, v, cache.DefaultExpiration)
	return v, nil
}
