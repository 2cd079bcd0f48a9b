// feedtest acquires one auction snapshot and prints decoded listings to the
// console, or decodes a single item_bytes value.
//
// Usage:
//
//	go run ./cmd/feedtest --config configs/gatherer.local.yaml --item HYPERION
//	go run ./cmd/feedtest --item-bytes H4sIAAAAAAAA...
//	go run ./cmd/feedtest --watch ws://localhost:8080/ws --item HYPERION
//
// The API key is optional; set it in the config (or via ${HYPIXEL_API_KEY})
// to validate it and enable the rate limiter.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/skyblock-data/internal/api"
	"github.com/rickgao/skyblock-data/internal/config"
	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/nbt"
	"github.com/rickgao/skyblock-data/internal/poller"
	"github.com/rickgao/skyblock-data/internal/ratelimit"
	"github.com/rickgao/skyblock-data/internal/router"
	"github.com/rickgao/skyblock-data/internal/stream"
	"github.com/rickgao/skyblock-data/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults when empty)")
	itemID := flag.String("item", "", "print the cheapest BIN and ending-soon listings of this item")
	itemBytes := flag.String("item-bytes", "", "decode one item_bytes value and exit")
	watch := flag.String("watch", "", "print flushes from a running gatherer's websocket feed")
	limit := flag.Int("n", 5, "listings to print")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *itemBytes != "" {
		if err := dumpItem(*itemBytes); err != nil {
			logger.Error("failed to decode item", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadWithDefaults(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if *watch != "" {
		var items []string
		if *itemID != "" {
			items = strings.Split(*itemID, ",")
		}
		if err := watchFeed(ctx, *watch, items, logger); err != nil {
			logger.Error("watch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, *itemID, *limit, logger); err != nil {
		logger.Error("feedtest failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.GathererConfig, itemID string, n int, logger *slog.Logger) error {
	opts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		api.WithUserAgent(version.UserAgent()),
	}
	client := api.NewClient(cfg.API.BaseURL, cfg.API.APIKey, opts...)
	if client.Authenticated() {
		budget, err := client.CheckKey(ctx, cfg.API.KeyLimitMargin)
		if err != nil {
			return err
		}
		limiter, err := ratelimit.New(budget)
		if err != nil {
			return err
		}
		client = api.NewClient(cfg.API.BaseURL, cfg.API.APIKey, append(opts, api.WithLimiter(limiter))...)
	}

	acqCfg := poller.DefaultAcquireConfig()
	acqCfg.PageConcurrency = cfg.Acquisition.PageConcurrency
	acquirer := poller.NewAcquirer(acqCfg, client, logger)

	logger.Info("acquiring snapshot", "base_url", cfg.API.BaseURL)
	start := time.Now()
	snap, err := acquirer.Acquire(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	logger.Info("snapshot acquired",
		"last_updated", snap.LastUpdated,
		"pages", snap.TotalPages,
		"auctions", len(snap.Auctions),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	rt := router.New(router.RouterConfig{
		BatchSize: cfg.Processing.BatchSize,
		Workers:   cfg.Processing.Workers,
	}, nil, nil, logger)
	if err := rt.HandleActive(ctx, snap); err != nil {
		return err
	}
	stats := rt.Stats()
	fmt.Printf("decoded=%d malformed=%d filtered=%d\n", stats.Decoded, stats.Malformed, stats.Filtered)

	if itemID == "" {
		return nil
	}

	cheapest, err := rt.CheapestBIN(itemID, n)
	if err != nil {
		return err
	}
	fmt.Printf("\n[LBIN] %s\n", itemID)
	for _, l := range cheapest {
		fmt.Printf("  %12.0f  %-10s %s\n", l.Price, l.Item.Rarity, l.Item.DisplayName)
	}

	ending, err := rt.EndingSoon(itemID, n)
	if err != nil {
		return err
	}
	fmt.Printf("\n[ENDING SOON] %s\n", itemID)
	for _, l := range ending {
		fmt.Printf("  %12.0f  %-10s ends in %s\n", l.Price, l.Item.Rarity, time.Until(l.End).Round(time.Second))
	}
	return nil
}

func dumpItem(b64 string) error {
	root, err := nbt.DecodeItemBytes(b64)
	if err != nil {
		return err
	}
	out := struct {
		Item item.Item `json:"item"`
		Tag  any       `json:"tag"`
	}{
		Item: item.Extract(root),
		Tag:  nbt.ToValue(root),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func watchFeed(ctx context.Context, url string, items []string, logger *slog.Logger) error {
	w := stream.NewWatcher(url, items, logger)
	if err := w.Connect(ctx); err != nil {
		return err
	}
	defer w.Close()
	logger.Info("watching", "url", url, "items", items)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			return err
		case msg, ok := <-w.Messages():
			if !ok {
				return nil
			}
			if msg.Type != stream.TypeFlush {
				fmt.Printf("[%s]\n", strings.ToUpper(msg.Type))
				continue
			}
			fmt.Printf("[%s] %s snapshots=%d items=%d\n", strings.ToUpper(msg.Series), msg.At.Format(time.RFC3339), msg.Snapshots, len(msg.Items))
			for _, it := range msg.Items {
				fmt.Printf("  %-32s %-10s %12.0f  n=%d\n", it.ItemID, it.Rarity, it.Mean, it.Count)
			}
		}
	}
}
