package scrape

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/pricehawk/pricehawk/internal/search"
)

// SourceExtractor drives one storefront's search page on a pooled browser
// tab and extracts canonical records from the rendered markup.
type SourceExtractor struct {
	rules       Rules
	navTimeout  time.Duration
	waitTimeout time.Duration
	logger      *zap.Logger
}

// ExtractorConfig bounds navigation and content-ready waits.
type ExtractorConfig struct {
	NavTimeout  time.Duration
	WaitTimeout time.Duration
}

// NewSourceExtractor builds an extractor from storefront rules.
func NewSourceExtractor(rules Rules, cfg ExtractorConfig, logger *zap.Logger) *SourceExtractor {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 8 * time.Second
	}
	return &SourceExtractor{
		rules:       rules,
		navTimeout:  cfg.NavTimeout,
		waitTimeout: cfg.WaitTimeout,
		logger:      logger.Named(string(rules.Source)),
	}
}

// Source reports which storefront this extractor scrapes.
func (e *SourceExtractor) Source() search.Source {
	return e.rules.Source
}

// Extract navigates to the search URL, waits for the result container, and
// parses the rendered DOM. A navigation or network failure is retryable; a
// wait condition that never resolves degrades to whatever the page holds,
// which may legitimately be zero products.
func (e *SourceExtractor) Extract(ctx context.Context, page search.Page, req search.Request) ([]search.Product, error) {
	url := e.rules.SearchURL(req)

	navCtx, cancelNav := context.WithTimeout(page.Context(), e.navTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return nil, &search.NavigationError{URL: url, Err: err}
	}

	waitCtx, cancelWait := context.WithTimeout(page.Context(), e.waitTimeout)
	defer cancelWait()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(e.rules.WaitSelector, chromedp.ByQuery)); err != nil {
		// A slow or empty result page is not a scrape failure; proceed with
		// whatever has rendered.
		e.logger.Debug("wait condition did not resolve", zap.String("url", url), zap.Error(err))
	}

	var html string
	htmlCtx, cancelHTML := context.WithTimeout(page.Context(), e.navTimeout)
	defer cancelHTML()
	if err := chromedp.Run(htmlCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, &search.NavigationError{URL: url, Err: err}
	}

	products, err := e.rules.Parse(html, req, e.logger)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("extraction complete", zap.String("url", url), zap.Int("products", len(products)))
	return products, nil
}
