// Package scrape executes storefront extractions against pooled browser
// pages with bounded retries.
package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pricehawk/pricehawk/internal/policy/ratelimit"
	"github.com/pricehawk/pricehawk/internal/search"
	"github.com/pricehawk/pricehawk/internal/telemetry"
)

// Operation is one source-scrape run against an exclusively owned page.
type Operation func(ctx context.Context, page search.Page) ([]search.Product, error)

// Executor wraps an Operation with bounded retries, backoff, and guaranteed
// page release. It treats all operation failures uniformly; distinguishing
// retryable navigation errors from benign empty pages is the extractor's job.
type Executor struct {
	pool        search.PagePool
	rates       *ratelimit.Limiter
	backoff     Backoff
	maxAttempts int
	logger      *zap.Logger
}

// NewExecutor constructs an Executor. maxAttempts is the total attempt
// budget per source, including the first try.
func NewExecutor(
	pool search.PagePool,
	rates *ratelimit.Limiter,
	backoff Backoff,
	maxAttempts int,
	logger *zap.Logger,
) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Executor{
		pool:        pool,
		rates:       rates,
		backoff:     backoff,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run executes op, acquiring a fresh page per attempt and releasing it on
// every exit path. After exhausting the attempt budget it fails with a
// SourceScrapeError carrying the attempt count and last error.
func (e *Executor) Run(ctx context.Context, source search.Source, op Operation) ([]search.Product, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := e.backoff.Delay(attempt - 1)
			e.logger.Debug("backing off before retry",
				zap.String("source", string(source)),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			telemetry.ObserveRetry(string(source))
			if err := sleepCtx(ctx, delay); err != nil {
				break
			}
		}
		if e.rates != nil {
			if err := e.rates.Wait(ctx, source); err != nil {
				lastErr = err
				break
			}
		}

		attempts++
		products, err := e.attempt(ctx, source, op)
		if err == nil {
			telemetry.ObserveScrape(string(source), "ok")
			return products, nil
		}
		lastErr = err
		telemetry.ObserveScrape(string(source), "error")
		e.logger.Warn("scrape attempt failed",
			zap.String("source", string(source)),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, &search.SourceScrapeError{Source: source, Attempts: attempts, Err: lastErr}
}

// attempt acquires exactly one page and releases it regardless of which exit
// path fires.
func (e *Executor) attempt(ctx context.Context, source search.Source, op Operation) ([]search.Product, error) {
	page, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer e.pool.Release(page)

	telemetry.IncActivePages()
	defer telemetry.DecActivePages()

	return op(ctx, page)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
