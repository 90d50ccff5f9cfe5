// Package cache memoizes per-source scrape results for a bounded time.
package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pricehawk/pricehawk/internal/search"
	"github.com/pricehawk/pricehawk/internal/telemetry"
)

// ResultCache is a TTL-bounded, size-bounded cache of successful scrape
// results. Entries are read-only after creation; expired entries read as
// misses and are reaped by the LRU's background sweep.
type ResultCache struct {
	lru *expirable.LRU[string, []search.Product]
	ttl time.Duration
}

// New creates a ResultCache holding at most maxEntries entries for ttl each.
func New(maxEntries int, ttl time.Duration) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, []search.Product](maxEntries, nil, ttl),
		ttl: ttl,
	}
}

// Key builds the composite cache key. Requests differing only in term case
// or surrounding whitespace map to the same entry.
func Key(source search.Source, req search.Request) string {
	ceiling := "-"
	if req.HasCeiling {
		ceiling = fmt.Sprintf("%.2f", req.PriceCeiling)
	}
	term := strings.ToLower(strings.TrimSpace(req.Term))
	category := strings.ToLower(strings.TrimSpace(req.Category))
	return fmt.Sprintf("%s|%s|%s|%s", source, term, ceiling, category)
}

// Get returns the cached products for key, or ok=false on a miss or an
// expired entry.
func (c *ResultCache) Get(key string) ([]search.Product, bool) {
	products, ok := c.lru.Get(key)
	telemetry.ObserveCacheLookup(ok)
	if !ok {
		return nil, false
	}
	return products, true
}

// Set stores a successful result. Empty results are never cached: an empty
// page may reflect a transient rendering failure rather than true absence
// of products, and must not poison future lookups.
func (c *ResultCache) Set(key string, products []search.Product) {
	if len(products) == 0 {
		return
	}
	c.lru.Add(key, products)
}

// Len reports the number of live entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}
