package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/skyblock-data/internal/aggregate"
	"github.com/rickgao/skyblock-data/internal/api"
	"github.com/rickgao/skyblock-data/internal/cache"
	"github.com/rickgao/skyblock-data/internal/config"
	"github.com/rickgao/skyblock-data/internal/database"
	"github.com/rickgao/skyblock-data/internal/logging"
	"github.com/rickgao/skyblock-data/internal/metrics"
	"github.com/rickgao/skyblock-data/internal/poller"
	"github.com/rickgao/skyblock-data/internal/ratelimit"
	"github.com/rickgao/skyblock-data/internal/router"
	"github.com/rickgao/skyblock-data/internal/stream"
	"github.com/rickgao/skyblock-data/internal/version"
	"github.com/rickgao/skyblock-data/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/gatherer.local.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("gatherer failed", "error", err)
		var ce *config.ConfigError
		if errors.As(err, &ce) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return err
	}

	// Set up structured logging
	logger, logCloser, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting gatherer",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.BaseURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	m := metrics.New()

	// Create API client
	clientOpts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		api.WithUserAgent(version.UserAgent()),
	}
	if cfg.API.APIKey != "" {
		keyClient := api.NewClient(cfg.API.BaseURL, cfg.API.APIKey, clientOpts...)
		budget, err := keyClient.CheckKey(ctx, cfg.API.KeyLimitMargin)
		if err != nil {
			return err
		}
		limiter, err := ratelimit.New(budget)
		if err != nil {
			return err
		}
		clientOpts = append(clientOpts, api.WithLimiter(limiter))
	}
	apiClient := api.NewClient(cfg.API.BaseURL, cfg.API.APIKey, clientOpts...)
	profiles := api.NewProfileClient(cfg.API.ProfileURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithUserAgent(version.UserAgent()),
	)

	// Connect to storage
	gw, ping, closeStore, err := openGateway(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	guard := writer.NewGuard(gw, cfg.Storage.DryRun, logger)
	if cfg.Storage.DryRun {
		logger.Warn("dry run: history writes are disabled")
	}

	writerCfg := writer.DefaultWriterConfig()
	writerCfg.QueueSize = cfg.Storage.QueueSize
	queue := writer.NewQueueWriter(writerCfg, guard, m, logger)

	// Aggregation buffers
	bus := aggregate.NewBus()
	lowest, err := aggregate.NewLowestBIN(cfg.Aggregation.LowestBINThreshold, cfg.Aggregation.MinListed, bus)
	if err != nil {
		return &config.ConfigError{Field: "aggregation.lowest_bin_threshold", Err: err}
	}
	sales, err := aggregate.NewSales(cfg.Aggregation.SaleThreshold, bus)
	if err != nil {
		return &config.ConfigError{Field: "aggregation.sale_threshold", Err: err}
	}

	hub := stream.NewHub(m, logger)

	var rc *cache.RedisCache
	if cfg.Redis.Enabled {
		rc, err = cache.NewRedisCache(ctx, cfg.Redis, m, logger)
		if err != nil {
			return err
		}
	}

	for _, kind := range aggregate.EventKinds() {
		subs := []aggregate.Subscriber{queue.HandleFlush, hub.HandleFlush}
		if rc != nil {
			subs = append(subs, rc.HandleFlush)
		}
		for _, fn := range subs {
			if err := bus.Subscribe(kind, fn); err != nil {
				return err
			}
		}
	}

	// Router
	routerOpts := []router.Option{router.WithItemSink(queue), router.WithMetrics(m)}
	if cfg.Acquisition.BazaarEnabled {
		routerOpts = append(routerOpts, router.WithBazaarSink(queue))
	}
	rt := router.New(router.RouterConfig{
		BatchSize: cfg.Processing.BatchSize,
		Workers:   cfg.Processing.Workers,
	}, lowest, sales, logger, routerOpts...)

	// Poller
	handlers := poller.Handlers{
		Active: poller.ActiveHandlerFunc(rt.HandleActive),
		Ended:  poller.EndedHandlerFunc(rt.HandleEnded),
	}
	if cfg.Acquisition.BazaarEnabled {
		handlers.Bazaar = poller.BazaarHandlerFunc(rt.HandleBazaar)
	}
	p := poller.New(pollerConfig(cfg.Acquisition), apiClient, handlers, logger, poller.WithMetrics(m))

	// Start health server early so startup can be monitored
	srv := &server{
		router:   rt,
		gateway:  guard,
		cache:    rc,
		hub:      hub,
		metrics:  m,
		writer:   queue,
		names:    profiles,
		pingDB:   ping,
		maxStale: 5 * cfg.Acquisition.UpdateCycle,
		logger:   logger,
	}
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
		Handler:           srv.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	go hub.Run(ctx)
	if err := queue.Start(ctx); err != nil {
		return err
	}
	if rc != nil {
		if err := rc.Start(ctx); err != nil {
			return err
		}
	}
	if err := p.Start(ctx); err != nil {
		return err
	}

	logger.Info("gatherer running",
		"instance_id", cfg.Instance.ID,
		"storage", cfg.Storage.Driver,
		"redis", cfg.Redis.Enabled,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop producers before sinks so queued writes drain.
	if err := p.Stop(shutdownCtx); err != nil {
		logger.Warn("poller stop", "error", err)
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		logger.Warn("writer stop", "error", err, "pending", queue.Pending())
	}
	if rc != nil {
		if err := rc.Stop(shutdownCtx); err != nil {
			logger.Warn("cache stop", "error", err)
		}
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("gatherer stopped", "stats", rt.Stats())
	return nil
}

func pollerConfig(a config.AcquisitionConfig) poller.Config {
	return poller.Config{
		Acquire: poller.AcquireConfig{
			MinDelay:        a.MinDelay,
			MaxDelay:        a.MaxDelay,
			UpdateCycle:     a.UpdateCycle,
			RetryBackoff:    a.RetryBackoff,
			PageConcurrency: a.PageConcurrency,
		},
		ActiveCooldown: a.ActiveCooldown,
		EndedCooldown:  a.EndedCooldown,
		BazaarCooldown: a.BazaarCooldown,
	}
}

// openGateway connects the configured storage driver. It returns the
// gateway, a health probe, and a close function.
func openGateway(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (writer.Gateway, func(context.Context) error, func(), error) {
	switch cfg.Driver {
	case "postgres":
		logger.Info("connecting to database",
			"host", cfg.Postgres.Host,
			"port", cfg.Postgres.Port,
			"database", cfg.Postgres.Name,
		)
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		gw := writer.NewPostgresGateway(pool, logger)
		if err := gw.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		logger.Info("database connected")
		return gw, pool.Ping, pool.Close, nil

	default:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		gw, err := writer.NewSQLiteGateway(db, logger)
		if err != nil {
			database.CloseSQLite(db)
			return nil, nil, nil, err
		}
		ping := func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		return gw, ping, func() { database.CloseSQLite(db) }, nil
	}
}
