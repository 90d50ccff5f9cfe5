// Package search defines the core types shared across the aggregation subsystems.
package search

import (
	"context"
	"time"
)

// Source identifies one of the storefronts the service scrapes.
type Source string

// Known storefronts. Order here is the fan-out order of the orchestrator.
const (
	SourceAmazon Source = "amazon"
	SourceMyntra Source = "myntra"
)

// Sources lists every storefront the orchestrator queries.
func Sources() []Source {
	return []Source{SourceAmazon, SourceMyntra}
}

// Sentinel values used when a field could not be extracted.
const (
	NoRating         = "No rating"
	PlaceholderImage = "https://via.placeholder.com/150"
	MissingLink      = "#"
)

// Request is a validated, normalized search submitted by a client.
// Construct it with Validate; a zero Request is not meaningful.
type Request struct {
	Term         string
	PriceCeiling float64
	HasCeiling   bool
	Category     string
}

// Product is the canonical record every extractor normalizes into.
// Invariants: Title is non-empty and Price is a positive finite number;
// candidates that cannot satisfy both are discarded before construction.
type Product struct {
	Title          string  `json:"title"`
	Price          float64 `json:"price"`
	ListPrice      float64 `json:"list_price"`
	Rating         string  `json:"rating"`
	ImageURL       string  `json:"image_url"`
	DeepLink       string  `json:"deep_link"`
	Source         Source  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
}

// OutcomeStatus is the terminal state of one source's extraction.
type OutcomeStatus string

// Outcome states recorded per source per request.
const (
	OutcomeFulfilled OutcomeStatus = "fulfilled"
	OutcomeFailed    OutcomeStatus = "failed"
)

// SourceOutcome is produced exactly once per source per request and never
// mutated afterward.
type SourceOutcome struct {
	Source   Source
	Status   OutcomeStatus
	Products []Product
	Err      error
	Duration time.Duration
}

// Result is the merged response for one aggregation.
type Result struct {
	Products       []Product       `json:"products"`
	Total          int             `json:"total"`
	Sources        map[Source]bool `json:"sources"`
	ResponseTimeMs int64           `json:"response_time_ms"`
}

// Page is an exclusively owned browser tab lent out by a PagePool. The
// context it exposes is the chromedp target context actions run against;
// it is canceled when the page is released.
type Page interface {
	Context() context.Context
}

// PagePool hands out Pages backed by a shared browser process. Release is
// best-effort cleanup and must be called on every exit path.
type PagePool interface {
	Acquire(ctx context.Context) (Page, error)
	Release(page Page)
}

// Extractor turns one storefront's rendered search page into canonical records.
type Extractor interface {
	Source() Source
	Extract(ctx context.Context, page Page, req Request) ([]Product, error)
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces request-scoped identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
