package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/skyblock-data/internal/aggregate"
	"github.com/rickgao/skyblock-data/internal/config"
	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/metrics"
	"github.com/rickgao/skyblock-data/internal/model"
)

// store is the subset of *redis.Client the cache uses.
type store interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

// Entry is the cached summary of one key.
type Entry struct {
	ItemID      string    `json:"item_id"`
	Rarity      string    `json:"rarity"`
	Mean        float64   `json:"mean"`
	Count       int       `json:"count"`
	Occurrences int       `json:"occurrences,omitempty"`
	At          time.Time `json:"at"`
}

// Key returns the cache key of an item key in series kind.
func Key(kind model.SummaryKind, key model.ItemKey) string {
	return fmt.Sprintf("%s:%s:%s", kind, key.ItemID, key.Rarity)
}

// RedisCache stores flush results in Redis. Flushes are handed to a
// background goroutine so bus publishers never wait on the network.
type RedisCache struct {
	client  store
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	events chan aggregate.FlushEvent
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisCache connects to Redis and verifies the connection. m may be nil.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, m *metrics.Metrics, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return newRedisCache(client, cfg.TTL, m, logger), nil
}

func newRedisCache(client store, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client:  client,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
		events:  make(chan aggregate.FlushEvent, 8),
	}
}

// Start begins applying queued flushes.
func (c *RedisCache) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run()
	c.logger.Info("redis cache started", "ttl", c.ttl)
	return nil
}

// Stop waits for queued flushes to be written and closes the client.
func (c *RedisCache) Stop(ctx context.Context) error {
	close(c.events)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("redis cache stop timed out")
		err = ctx.Err()
	}
	if c.cancel != nil {
		c.cancel()
	}
	if cerr := c.client.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// HandleFlush queues ev for caching. It is an aggregate.Subscriber and
// drops the event when the queue is full.
func (c *RedisCache) HandleFlush(ev aggregate.FlushEvent) {
	select {
	case c.events <- ev:
	default:
		c.recordFailure()
		c.logger.Warn("cache queue full, dropping flush", "kind", ev.Kind)
	}
}

func (c *RedisCache) run() {
	defer c.wg.Done()
	for ev := range c.events {
		ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
		if err := c.Write(ctx, ev); err != nil {
			c.logger.Error("cache write failed", "kind", ev.Kind, "err", err)
		}
		cancel()
	}
}

// Write stores every summary of ev, continuing past individual failures.
// It returns the first error.
func (c *RedisCache) Write(ctx context.Context, ev aggregate.FlushEvent) error {
	kind := ev.Kind.Summary()
	var first error
	for key, s := range ev.Summaries {
		entry := Entry{
			ItemID:      key.ItemID,
			Rarity:      key.Rarity.String(),
			Mean:        s.Mean,
			Count:       s.Count,
			Occurrences: ev.Occurrences[key],
			At:          ev.At.UTC(),
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		if err := c.client.Set(ctx, Key(kind, key), data, c.ttl).Err(); err != nil {
			c.recordFailure()
			if first == nil {
				first = fmt.Errorf("set %s: %w", Key(kind, key), err)
			}
		}
	}
	return first
}

// Latest returns the cached entry of key, or nil when absent.
func (c *RedisCache) Latest(ctx context.Context, kind model.SummaryKind, itemID string, rarity item.Rarity) (*Entry, error) {
	key := Key(kind, model.ItemKey{ItemID: itemID, Rarity: rarity})
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return &entry, nil
}

func (c *RedisCache) recordFailure() {
	if c.metrics != nil {
		c.metrics.RecordCacheFailure()
	}
}
