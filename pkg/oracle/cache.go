package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Cache wraps a PriceSource and serves the last fetched price for up to ttl.
// It is injected into callers explicitly so tests can control staleness.
type Cache struct {
	source PriceSource
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	value     decimal.Decimal
	fetchedAt time.Time
}

// NewCache creates a price cache with the given TTL.
func NewCache(source PriceSource, ttl time.Duration) *Cache {
	return &Cache{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// NativePrice returns the cached price when fresh, otherwise refetches.
// A failed refetch never serves a stale value; the error propagates.
func (c *Cache) NativePrice(ctx context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.value, nil
	}

	price, err := c.source.NativePrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	c.value = price
	c.fetchedAt = c.now()
	return price, nil
}
