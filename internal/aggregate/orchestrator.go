// Package aggregate fans a search out to every storefront and merges the
// settled outcomes into one ranked response.
package aggregate

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pricehawk/pricehawk/internal/cache"
	"github.com/pricehawk/pricehawk/internal/history"
	"github.com/pricehawk/pricehawk/internal/policy/admission"
	"github.com/pricehawk/pricehawk/internal/scrape"
	"github.com/pricehawk/pricehawk/internal/search"
	"github.com/pricehawk/pricehawk/internal/telemetry"
)

// Runner executes one source scrape with retries; *scrape.Executor in
// production, a fake in tests.
type Runner interface {
	Run(ctx context.Context, source search.Source, op scrape.Operation) ([]search.Product, error)
}

// Config bounds the orchestrator's output and patience.
type Config struct {
	MaxResults     int
	OverallTimeout time.Duration
}

// Orchestrator owns the request-scoped fan-out: limiter-gated, cache-checked,
// executor-wrapped extraction per source, settle-all collection, then
// merge, sort, truncate.
type Orchestrator struct {
	extractors []search.Extractor
	runner     Runner
	cache      *cache.ResultCache
	limiter    *admission.Limiter
	recorder   history.Recorder
	clock      search.Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs an Orchestrator.
func New(
	extractors []search.Extractor,
	runner Runner,
	resultCache *cache.ResultCache,
	limiter *admission.Limiter,
	recorder history.Recorder,
	clock search.Clock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 40
	}
	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = 45 * time.Second
	}
	if recorder == nil {
		recorder = history.NoopRecorder{}
	}
	return &Orchestrator{
		extractors: extractors,
		runner:     runner,
		cache:      resultCache,
		limiter:    limiter,
		recorder:   recorder,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Search fans out to all sources and waits for every one to settle, bounded
// by the overall deadline. A source failure never fails the aggregate; the
// only hard failures are a canceled caller and a deadline that elapses with
// zero settled sources.
func (o *Orchestrator) Search(ctx context.Context, requestID string, req search.Request) (search.Result, error) {
	start := o.clock.Now()

	// Abandoned operations keep their own timeouts; the deadline below stops
	// the wait, not the work, so late completions are discarded rather than
	// force-killed mid-navigation.
	runCtx := context.WithoutCancel(ctx)

	outcomes := make(chan search.SourceOutcome, len(o.extractors))
	for _, ext := range o.extractors {
		go func(ext search.Extractor) {
			outcomes <- o.runSource(runCtx, ext, req)
		}(ext)
	}

	timer := time.NewTimer(o.cfg.OverallTimeout)
	defer timer.Stop()

	settled := make(map[search.Source]search.SourceOutcome, len(o.extractors))
	timedOut := false

collect:
	for range o.extractors {
		select {
		case outcome := <-outcomes:
			settled[outcome.Source] = outcome
		case <-timer.C:
			timedOut = true
			break collect
		case <-ctx.Done():
			if len(settled) == 0 {
				return search.Result{}, ctx.Err()
			}
			timedOut = true
			break collect
		}
	}

	if timedOut && len(settled) == 0 {
		return search.Result{}, search.ErrAggregateTimeout
	}

	result := o.merge(settled)
	result.ResponseTimeMs = o.clock.Now().Sub(start).Milliseconds()
	telemetry.ObserveAggregation(time.Duration(result.ResponseTimeMs) * time.Millisecond)

	o.record(runCtx, requestID, req, result)
	return result, nil
}

func (o *Orchestrator) runSource(ctx context.Context, ext search.Extractor, req search.Request) search.SourceOutcome {
	source := ext.Source()
	start := o.clock.Now()

	if err := o.limiter.Acquire(ctx); err != nil {
		return search.SourceOutcome{Source: source, Status: search.OutcomeFailed, Err: err}
	}
	defer o.limiter.Release()

	key := cache.Key(source, req)
	if products, ok := o.cache.Get(key); ok {
		return search.SourceOutcome{
			Source:   source,
			Status:   search.OutcomeFulfilled,
			Products: products,
			Duration: o.clock.Now().Sub(start),
		}
	}

	products, err := o.runner.Run(ctx, source, func(ctx context.Context, page search.Page) ([]search.Product, error) {
		return ext.Extract(ctx, page, req)
	})
	if err != nil {
		o.logger.Warn("source failed",
			zap.String("source", string(source)),
			zap.Error(err),
		)
		return search.SourceOutcome{
			Source:   source,
			Status:   search.OutcomeFailed,
			Err:      err,
			Duration: o.clock.Now().Sub(start),
		}
	}

	o.cache.Set(key, products)
	return search.SourceOutcome{
		Source:   source,
		Status:   search.OutcomeFulfilled,
		Products: products,
		Duration: o.clock.Now().Sub(start),
	}
}

// merge imposes a deterministic total order on the combined products
// regardless of source completion order: relevance descending, then price
// ascending, truncated to the configured maximum.
func (o *Orchestrator) merge(settled map[search.Source]search.SourceOutcome) search.Result {
	result := search.Result{
		Products: []search.Product{},
		Sources:  make(map[search.Source]bool, len(o.extractors)),
	}

	for _, ext := range o.extractors {
		source := ext.Source()
		outcome, ok := settled[source]
		fulfilled := ok && outcome.Status == search.OutcomeFulfilled
		result.Sources[source] = fulfilled
		if fulfilled {
			result.Products = append(result.Products, outcome.Products...)
		}
	}

	sort.SliceStable(result.Products, func(i, j int) bool {
		a, b := result.Products[i], result.Products[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		return a.Price < b.Price
	})

	if len(result.Products) > o.cfg.MaxResults {
		result.Products = result.Products[:o.cfg.MaxResults]
	}
	result.Total = len(result.Products)
	return result
}

// record persists the outcome without blocking the caller; recording
// failures are logged and dropped.
func (o *Orchestrator) record(ctx context.Context, requestID string, req search.Request, result search.Result) {
	entry := history.Entry{
		RequestID:    requestID,
		Term:         req.Term,
		Category:     req.Category,
		PriceCeiling: req.PriceCeiling,
		Sources:      result.Sources,
		ProductCount: result.Total,
		Duration:     time.Duration(result.ResponseTimeMs) * time.Millisecond,
		At:           o.clock.Now(),
	}
	go func() {
		recordCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := o.recorder.Record(recordCtx, entry); err != nil {
			o.logger.Warn("history record failed", zap.Error(err))
		}
	}()
}
