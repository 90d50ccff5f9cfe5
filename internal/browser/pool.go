// Package browser owns the shared headless Chrome process and lends out
// per-operation page handles backed by it.
package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/pricehawk/pricehawk/internal/search"
)

// Resource types aborted on every page. Dropping heavy assets is a load-time
// optimization only; extraction never depends on them.
var blockedResourceTypes = map[network.ResourceType]bool{
	network.ResourceTypeImage:      true,
	network.ResourceTypeStylesheet: true,
	network.ResourceTypeFont:       true,
	network.ResourceTypeMedia:      true,
}

// Config controls the shared browser process and its pages.
type Config struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

// Page is a browser tab exclusively owned by one in-flight scrape operation
// from acquisition to release.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns the chromedp target context actions run against.
func (p *Page) Context() context.Context {
	return p.ctx
}

// Pool implements search.PagePool on top of a lazily launched, process-wide
// headless Chrome instance. The browser survives across requests and is torn
// down once via Shutdown; pages are the unit of isolation.
type Pool struct {
	cfg    Config
	logger *zap.Logger

	mu            sync.Mutex
	started       bool
	closed        bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	shutdownOnce sync.Once
}

// NewPool creates a Pool. The browser process is not launched until the
// first Acquire.
func NewPool(cfg Config, logger *zap.Logger) *Pool {
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1366
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 768
	}
	return &Pool{cfg: cfg, logger: logger}
}

// Acquire returns a configured Page bound to the shared browser, launching
// the browser on first use. Launch failure is fatal to the calling attempt
// and surfaces as a BrowserLaunchError.
func (p *Pool) Acquire(ctx context.Context) (search.Page, error) {
	browserCtx, err := p.ensureBrowser()
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	interceptRequests(tabCtx)

	setup := []chromedp.Action{
		network.Enable(),
		fetch.Enable(),
		emulation.SetDeviceMetricsOverride(
			int64(p.cfg.ViewportWidth), int64(p.cfg.ViewportHeight), 1, false),
	}
	if p.cfg.UserAgent != "" {
		setup = append(setup, emulation.SetUserAgentOverride(p.cfg.UserAgent))
	}

	setupCtx, cancel := context.WithTimeout(tabCtx, 15*time.Second)
	defer cancel()
	if err := chromedp.Run(setupCtx, setup...); err != nil {
		tabCancel()
		return nil, &search.BrowserLaunchError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		p.closeTab(&Page{ctx: tabCtx, cancel: tabCancel})
		return nil, err
	}
	return &Page{ctx: tabCtx, cancel: tabCancel}, nil
}

// Release closes the page. Cleanup is best-effort: failures are logged and
// swallowed so they never mask the operation's own outcome.
func (p *Pool) Release(page search.Page) {
	handle, ok := page.(*Page)
	if !ok || handle == nil {
		return
	}
	p.closeTab(handle)
}

func (p *Pool) closeTab(handle *Page) {
	if err := chromedp.Cancel(handle.ctx); err != nil {
		p.logger.Warn("page close failed", zap.Error(err))
	}
	handle.cancel()
}

// Shutdown tears down the shared browser process. It is idempotent and safe
// to call before the browser was ever launched.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		started := p.started
		browserCtx := p.browserCtx
		browserCancel := p.browserCancel
		allocCancel := p.allocCancel
		p.mu.Unlock()

		if !started {
			return
		}
		if err := chromedp.Cancel(browserCtx); err != nil {
			p.logger.Warn("browser close failed", zap.Error(err))
		}
		browserCancel()
		allocCancel()
		p.logger.Info("browser shut down")
	})
}

// Status reports the browser lifecycle state for readiness checks.
func (p *Pool) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		return "closed"
	case p.started:
		return "running"
	default:
		return "idle"
	}
}

func (p *Pool) ensureBrowser() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New("browser pool is shut down")
	}
	if p.started {
		return p.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run a no-op action so the process actually starts now; a dead browser
	// must fail this attempt, not a later navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, &search.BrowserLaunchError{Err: err}
	}

	p.allocCancel = allocCancel
	p.browserCtx = browserCtx
	p.browserCancel = browserCancel
	p.started = true
	p.logger.Info("browser launched")
	return browserCtx, nil
}

// interceptRequests aborts requests for blocked resource types and lets
// everything else continue.
func interceptRequests(tabCtx context.Context) {
	chromedp.ListenTarget(tabCtx, func(ev any) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(tabCtx)
			if c == nil || c.Target == nil {
				return
			}
			ectx := cdp.WithExecutor(tabCtx, c.Target)
			if blockedResourceTypes[paused.ResourceType] {
				_ = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(ectx)
				return
			}
			_ = fetch.ContinueRequest(paused.RequestID).Do(ectx)
		}()
	})
}
