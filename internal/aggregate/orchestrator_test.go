package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pricehawk/pricehawk/internal/cache"
	"github.com/pricehawk/pricehawk/internal/policy/admission"
	"github.com/pricehawk/pricehawk/internal/scrape"
	"github.com/pricehawk/pricehawk/internal/search"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fakeExtractor struct {
	source search.Source
}

func (e fakeExtractor) Source() search.Source { return e.source }

func (e fakeExtractor) Extract(context.Context, search.Page, search.Request) ([]search.Product, error) {
	return nil, nil
}

// fakeRunner returns canned outcomes per source without touching a browser.
type fakeRunner struct {
	mu       sync.Mutex
	products map[search.Source][]search.Product
	errs     map[search.Source]error
	delays   map[search.Source]time.Duration
	calls    map[search.Source]int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		products: make(map[search.Source][]search.Product),
		errs:     make(map[search.Source]error),
		delays:   make(map[search.Source]time.Duration),
		calls:    make(map[search.Source]int),
	}
}

func (r *fakeRunner) Run(ctx context.Context, source search.Source, _ scrape.Operation) ([]search.Product, error) {
	r.mu.Lock()
	r.calls[source]++
	delay := r.delays[source]
	products, err := r.products[source], r.errs[source]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return products, err
}

func (r *fakeRunner) callCount(source search.Source) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[source]
}

func newTestOrchestrator(runner Runner, cfg Config) *Orchestrator {
	extractors := []search.Extractor{
		fakeExtractor{source: search.SourceAmazon},
		fakeExtractor{source: search.SourceMyntra},
	}
	return New(
		extractors,
		runner,
		cache.New(32, time.Minute),
		admission.New(3),
		nil,
		&fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		cfg,
		zap.NewNop(),
	)
}

func TestSearchMergesAllSources(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.products[search.SourceAmazon] = []search.Product{
		{Title: "Wireless Mouse Pro", Price: 1299, RelevanceScore: 30, Source: search.SourceAmazon},
	}
	runner.products[search.SourceMyntra] = []search.Product{
		{Title: "Wireless Mouse", Price: 999, RelevanceScore: 30, Source: search.SourceMyntra},
		{Title: "Mouse Pad", Price: 199, RelevanceScore: 10, Source: search.SourceMyntra},
	}

	o := newTestOrchestrator(runner, Config{})
	result, err := o.Search(context.Background(), "req-1", search.Request{Term: "wireless mouse"})
	require.NoError(t, err)

	require.Equal(t, 3, result.Total)
	require.True(t, result.Sources[search.SourceAmazon])
	require.True(t, result.Sources[search.SourceMyntra])

	// Equal relevance orders by ascending price; the weakest match sinks last.
	require.Equal(t, "Wireless Mouse", result.Products[0].Title)
	require.Equal(t, "Wireless Mouse Pro", result.Products[1].Title)
	require.Equal(t, "Mouse Pad", result.Products[2].Title)
	require.Positive(t, result.ResponseTimeMs)
}

func TestSearchSucceedsWhenAllSourcesEmpty(t *testing.T) {
	t.Parallel()

	// Both storefronts render but hold zero products; that is a valid empty
	// result, not a failure.
	runner := newFakeRunner()

	o := newTestOrchestrator(runner, Config{})
	result, err := o.Search(context.Background(), "req-empty", search.Request{Term: "wireless mouse"})
	require.NoError(t, err)

	require.Empty(t, result.Products)
	require.Zero(t, result.Total)
	require.True(t, result.Sources[search.SourceAmazon])
	require.True(t, result.Sources[search.SourceMyntra])
}

func TestSearchIsolatesSourceFailures(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.errs[search.SourceAmazon] = &search.SourceScrapeError{
		Source:   search.SourceAmazon,
		Attempts: 2,
		Err:      errors.New("navigation stalled"),
	}
	runner.products[search.SourceMyntra] = []search.Product{
		{Title: "Running Shoes", Price: 2499, RelevanceScore: 20, Source: search.SourceMyntra},
	}

	o := newTestOrchestrator(runner, Config{})
	result, err := o.Search(context.Background(), "req-2", search.Request{Term: "running shoes"})
	require.NoError(t, err)

	require.False(t, result.Sources[search.SourceAmazon])
	require.True(t, result.Sources[search.SourceMyntra])
	require.Equal(t, 1, result.Total)
	require.Equal(t, search.SourceMyntra, result.Products[0].Source)
}

func TestSearchTruncatesToMaxResults(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.products[search.SourceAmazon] = []search.Product{
		{Title: "A", Price: 100, RelevanceScore: 50, Source: search.SourceAmazon},
		{Title: "B", Price: 200, RelevanceScore: 40, Source: search.SourceAmazon},
	}
	runner.products[search.SourceMyntra] = []search.Product{
		{Title: "C", Price: 300, RelevanceScore: 45, Source: search.SourceMyntra},
		{Title: "D", Price: 400, RelevanceScore: 5, Source: search.SourceMyntra},
	}

	o := newTestOrchestrator(runner, Config{MaxResults: 3})
	result, err := o.Search(context.Background(), "req-3", search.Request{Term: "x"})
	require.NoError(t, err)

	require.Equal(t, 3, result.Total)
	require.Len(t, result.Products, 3)
	require.Equal(t, "A", result.Products[0].Title)
	require.Equal(t, "C", result.Products[1].Title)
	require.Equal(t, "B", result.Products[2].Title)
}

func TestSearchTimesOutWithNothingSettled(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.delays[search.SourceAmazon] = time.Second
	runner.delays[search.SourceMyntra] = time.Second

	o := newTestOrchestrator(runner, Config{OverallTimeout: 50 * time.Millisecond})
	_, err := o.Search(context.Background(), "req-4", search.Request{Term: "slow"})
	require.ErrorIs(t, err, search.ErrAggregateTimeout)
}

func TestSearchReturnsPartialOnTimeout(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.products[search.SourceAmazon] = []search.Product{
		{Title: "Fast Result", Price: 500, RelevanceScore: 10, Source: search.SourceAmazon},
	}
	runner.delays[search.SourceMyntra] = time.Second

	o := newTestOrchestrator(runner, Config{OverallTimeout: 200 * time.Millisecond})
	result, err := o.Search(context.Background(), "req-5", search.Request{Term: "fast"})
	require.NoError(t, err)

	require.True(t, result.Sources[search.SourceAmazon])
	require.False(t, result.Sources[search.SourceMyntra])
	require.Equal(t, 1, result.Total)
}

func TestSearchServesSecondRequestFromCache(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.products[search.SourceAmazon] = []search.Product{
		{Title: "Cached Mouse", Price: 899, RelevanceScore: 30, Source: search.SourceAmazon},
	}
	runner.products[search.SourceMyntra] = []search.Product{
		{Title: "Cached Shirt", Price: 599, RelevanceScore: 30, Source: search.SourceMyntra},
	}

	o := newTestOrchestrator(runner, Config{})
	req := search.Request{Term: "cached"}

	first, err := o.Search(context.Background(), "req-6", req)
	require.NoError(t, err)
	second, err := o.Search(context.Background(), "req-7", req)
	require.NoError(t, err)

	require.Equal(t, first.Products, second.Products)
	require.Equal(t, 1, runner.callCount(search.SourceAmazon))
	require.Equal(t, 1, runner.callCount(search.SourceMyntra))
}

func TestSearchHonorsCallerCancellation(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.delays[search.SourceAmazon] = time.Second
	runner.delays[search.SourceMyntra] = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(runner, Config{})
	_, err := o.Search(ctx, "req-8", search.Request{Term: "canceled"})
	require.ErrorIs(t, err, context.Canceled)
}
