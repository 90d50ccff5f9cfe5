// Package store holds the curated catalog: locally managed product entries
// served alongside live storefront results.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/pricehawk/pricehawk/internal/search"
)

// ErrNotFound is returned when no entry matches the requested ID.
var ErrNotFound = errors.New("catalog entry not found")

// ErrExists is returned when creating an entry whose ID is already taken.
var ErrExists = errors.New("catalog entry already exists")

// Entry is one curated catalog product.
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	ListPrice float64   `json:"list_price"`
	Category  string    `json:"category"`
	ImageURL  string    `json:"image_url"`
	DeepLink  string    `json:"link"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Catalog is an in-memory entry store safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
	clock   search.Clock
}

// NewCatalog constructs an empty Catalog.
func NewCatalog(clock search.Clock) *Catalog {
	return &Catalog{
		entries: make(map[string]Entry),
		clock:   clock,
	}
}

// Create stores a new entry. The caller assigns the ID.
func (c *Catalog) Create(_ context.Context, entry Entry) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[entry.ID]; exists {
		return Entry{}, ErrExists
	}
	now := c.clock.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	c.entries[entry.ID] = entry
	return entry, nil
}

// Get fetches an entry by ID.
func (c *Catalog) Get(_ context.Context, id string) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// List returns all entries ordered by creation time, newest first.
func (c *Catalog) List(_ context.Context) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Update replaces the mutable fields of an existing entry.
func (c *Catalog) Update(_ context.Context, entry Entry) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.entries[entry.ID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	current.Title = entry.Title
	current.Price = entry.Price
	current.ListPrice = entry.ListPrice
	current.Category = entry.Category
	current.ImageURL = entry.ImageURL
	current.DeepLink = entry.DeepLink
	current.UpdatedAt = c.clock.Now().UTC()
	c.entries[entry.ID] = current
	return current, nil
}

// Delete removes an entry by ID.
func (c *Catalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		return ErrNotFound
	}
	delete(c.entries, id)
	return nil
}
