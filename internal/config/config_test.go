package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-gatherer
api:
  base_url: https://feed.example.com
  api_key: abc
acquisition:
  min_delay: 20s
  max_delay: 40s
storage:
  driver: postgres
  postgres:
    host: localhost
    port: 5433
    name: auctions
    user: gatherer
    password: pw
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-gatherer" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-gatherer")
	}
	if cfg.API.BaseURL != "https://feed.example.com" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Acquisition.MinDelay != 20*time.Second || cfg.Acquisition.MaxDelay != 40*time.Second {
		t.Errorf("delays = %v/%v, want 20s/40s", cfg.Acquisition.MinDelay, cfg.Acquisition.MaxDelay)
	}
	if cfg.Storage.Postgres.Port != 5433 {
		t.Errorf("Storage.Postgres.Port = %d, want 5433", cfg.Storage.Postgres.Port)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FEED_KEY", "secret123")

	path := writeTempFile(t, `
instance:
  id: test-gatherer
api:
  api_key: ${TEST_FEED_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.APIKey != "secret123" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "secret123")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeTempFile(t, `
instance:
  id: x
acquisition:
  min_dely: 10s
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "instance:\n  id: test-gatherer\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.API.KeyLimitMargin != DefaultKeyLimitMargin {
		t.Errorf("API.KeyLimitMargin = %d, want %d", cfg.API.KeyLimitMargin, DefaultKeyLimitMargin)
	}
	if cfg.Acquisition.RetryBackoff != 30*time.Second {
		t.Errorf("Acquisition.RetryBackoff = %v, want 30s", cfg.Acquisition.RetryBackoff)
	}
	if cfg.Acquisition.UpdateCycle != time.Minute {
		t.Errorf("Acquisition.UpdateCycle = %v, want 1m", cfg.Acquisition.UpdateCycle)
	}
	if cfg.Aggregation.MinListed != time.Minute {
		t.Errorf("Aggregation.MinListed = %v, want 1m", cfg.Aggregation.MinListed)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.Postgres.Port != DefaultDBPort {
		t.Errorf("Storage.Postgres.Port = %d, want %d", cfg.Storage.Postgres.Port, DefaultDBPort)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want %d", cfg.Health.Port, DefaultHealthPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*GathererConfig)
		field  string
	}{
		{"missing instance id", func(c *GathererConfig) { c.Instance.ID = "" }, "instance.id"},
		{"inverted delay window", func(c *GathererConfig) { c.Acquisition.MaxDelay = c.Acquisition.MinDelay }, "acquisition.max_delay"},
		{"window past cycle", func(c *GathererConfig) { c.Acquisition.MaxDelay = 2 * time.Minute }, "acquisition.max_delay"},
		{"zero page concurrency", func(c *GathererConfig) { c.Acquisition.PageConcurrency = 0 }, "acquisition.page_concurrency"},
		{"zero batch size", func(c *GathererConfig) { c.Processing.BatchSize = 0 }, "processing.batch_size"},
		{"zero workers", func(c *GathererConfig) { c.Processing.Workers = -1 }, "processing.workers"},
		{"zero lbin threshold", func(c *GathererConfig) { c.Aggregation.LowestBINThreshold = 0 }, "aggregation.lowest_bin_threshold"},
		{"zero sale threshold", func(c *GathererConfig) { c.Aggregation.SaleThreshold = 0 }, "aggregation.sale_threshold"},
		{"unknown driver", func(c *GathererConfig) { c.Storage.Driver = "mongo" }, "storage.driver"},
		{"postgres without host", func(c *GathererConfig) { c.Storage.Driver = "postgres" }, "storage.postgres.host"},
		{"redis without addr", func(c *GathererConfig) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"bad log format", func(c *GathererConfig) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad health port", func(c *GathererConfig) { c.Health.Port = 70000 }, "health.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}

	t.Run("valid postgres", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Driver = "postgres"
		cfg.Storage.Postgres.Host = "db"
		cfg.Storage.Postgres.Name = "auctions"
		cfg.Storage.Postgres.User = "gatherer"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "instance:\n  id: \"\"\n")
	_, err := LoadAndValidate(path)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("LoadAndValidate() error = %v, want *ConfigError", err)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
