// Package history records aggregation outcomes for later analysis. Recording
// is strictly best-effort and never affects the request path.
package history

import (
	"context"
	"time"

	"github.com/pricehawk/pricehawk/internal/search"
)

// Entry is one aggregation outcome.
type Entry struct {
	RequestID    string
	Term         string
	Category     string
	PriceCeiling float64
	Sources      map[search.Source]bool
	ProductCount int
	Duration     time.Duration
	At           time.Time
}

// Recorder persists entries somewhere durable.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Close()
}

// NoopRecorder discards entries; used when no history DSN is configured.
type NoopRecorder struct{}

// Record discards the entry.
func (NoopRecorder) Record(context.Context, Entry) error { return nil }

// Close is a no-op.
func (NoopRecorder) Close() {}
