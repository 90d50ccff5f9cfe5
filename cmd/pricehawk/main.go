// Package main wires together the product search aggregation service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pricehawk/pricehawk/internal/aggregate"
	"github.com/pricehawk/pricehawk/internal/api"
	"github.com/pricehawk/pricehawk/internal/browser"
	"github.com/pricehawk/pricehawk/internal/cache"
	"github.com/pricehawk/pricehawk/internal/clock/system"
	"github.com/pricehawk/pricehawk/internal/config"
	"github.com/pricehawk/pricehawk/internal/history"
	"github.com/pricehawk/pricehawk/internal/id/uuid"
	"github.com/pricehawk/pricehawk/internal/logging"
	"github.com/pricehawk/pricehawk/internal/policy/admission"
	"github.com/pricehawk/pricehawk/internal/policy/ratelimit"
	"github.com/pricehawk/pricehawk/internal/scrape"
	"github.com/pricehawk/pricehawk/internal/search"
	"github.com/pricehawk/pricehawk/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()

	pool := browser.NewPool(browser.Config{
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	}, logger.Named("browser"))
	defer pool.Shutdown()

	rates := ratelimit.New(ratelimit.Config{DefaultRPS: cfg.Search.SourceRPS})
	backoffInitial, backoffMax := cfg.Backoff()
	executor := scrape.NewExecutor(
		pool,
		rates,
		scrape.Backoff{Initial: backoffInitial, Max: backoffMax},
		cfg.Search.MaxAttempts,
		logger.Named("executor"),
	)

	extractorCfg := scrape.ExtractorConfig{
		NavTimeout:  time.Duration(cfg.Browser.NavTimeoutSec) * time.Second,
		WaitTimeout: time.Duration(cfg.Browser.WaitTimeoutSec) * time.Second,
	}
	extractors := []search.Extractor{
		scrape.NewSourceExtractor(scrape.AmazonRules(), extractorCfg, logger.Named("extractor")),
		scrape.NewSourceExtractor(scrape.MyntraRules(), extractorCfg, logger.Named("extractor")),
	}

	var recorder history.Recorder = history.NoopRecorder{}
	if cfg.History.DSN != "" {
		pgRecorder, err := history.NewPostgresRecorder(ctx, cfg.History.DSN)
		if err != nil {
			logger.Warn("history recorder init failed, continuing without", zap.Error(err))
		} else {
			recorder = pgRecorder
		}
	}
	defer recorder.Close()

	orchestrator := aggregate.New(
		extractors,
		executor,
		cache.New(cfg.Cache.MaxEntries, cfg.CacheTTL()),
		admission.New(cfg.Search.MaxConcurrent),
		recorder,
		clock,
		aggregate.Config{
			MaxResults:     cfg.Search.MaxResults,
			OverallTimeout: cfg.OverallTimeout(),
		},
		logger.Named("aggregate"),
	)

	catalog := store.NewCatalog(clock)
	apiServer := api.NewServer(
		orchestrator,
		catalog,
		pool,
		idGen,
		api.Config{RequestTimeout: cfg.OverallTimeout() + 15*time.Second},
		logger.Named("api"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
