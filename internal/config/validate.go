package config

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid or unusable setting. It is never retried.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Validate checks that all required fields are set and values are valid.
func (c *GathererConfig) Validate() error {
	if c.Instance.ID == "" {
		return &ConfigError{Field: "instance.id", Err: errors.New("is required")}
	}

	if c.API.BaseURL == "" {
		return &ConfigError{Field: "api.base_url", Err: errors.New("is required")}
	}
	if c.API.MaxRetries < 0 {
		return invalid("api.max_retries", "must be >= 0, got %d", c.API.MaxRetries)
	}
	if c.API.KeyLimitMargin < 0 {
		return invalid("api.key_limit_margin", "must be >= 0, got %d", c.API.KeyLimitMargin)
	}

	a := c.Acquisition
	if a.MinDelay < 0 || a.MaxDelay <= a.MinDelay {
		return invalid("acquisition.max_delay", "must exceed min_delay (%v), got %v", a.MinDelay, a.MaxDelay)
	}
	if a.MaxDelay >= a.UpdateCycle {
		return invalid("acquisition.max_delay", "must be shorter than update_cycle (%v), got %v", a.UpdateCycle, a.MaxDelay)
	}
	if a.PageConcurrency < 1 {
		return invalid("acquisition.page_concurrency", "must be >= 1, got %d", a.PageConcurrency)
	}

	if c.Processing.BatchSize < 1 {
		return invalid("processing.batch_size", "must be >= 1, got %d", c.Processing.BatchSize)
	}
	if c.Processing.Workers < 1 {
		return invalid("processing.workers", "must be >= 1, got %d", c.Processing.Workers)
	}

	if c.Aggregation.LowestBINThreshold < 1 {
		return invalid("aggregation.lowest_bin_threshold", "must be >= 1, got %d", c.Aggregation.LowestBINThreshold)
	}
	if c.Aggregation.SaleThreshold < 1 {
		return invalid("aggregation.sale_threshold", "must be >= 1, got %d", c.Aggregation.SaleThreshold)
	}

	switch c.Storage.Driver {
	case "postgres":
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return &ConfigError{Field: "storage.sqlite_path", Err: errors.New("is required")}
		}
	default:
		return invalid("storage.driver", "must be postgres or sqlite, got %q", c.Storage.Driver)
	}
	if c.Storage.QueueSize < 1 {
		return invalid("storage.queue_size", "must be >= 1, got %d", c.Storage.QueueSize)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return &ConfigError{Field: "redis.addr", Err: errors.New("is required when redis is enabled")}
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return invalid("logging.format", "must be text or json, got %q", c.Logging.Format)
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return invalid("health.port", "must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return &ConfigError{Field: prefix + ".host", Err: errors.New("is required")}
	}
	if db.Name == "" {
		return &ConfigError{Field: prefix + ".name", Err: errors.New("is required")}
	}
	if db.User == "" {
		return &ConfigError{Field: prefix + ".user", Err: errors.New("is required")}
	}
	if db.MaxConns < 1 {
		return invalid(prefix+".max_conns", "must be >= 1, got %d", db.MaxConns)
	}
	if db.MinConns < 0 {
		return invalid(prefix+".min_conns", "must be >= 0, got %d", db.MinConns)
	}
	if db.MinConns > db.MaxConns {
		return invalid(prefix+".min_conns", "(%d) cannot exceed max_conns (%d)", db.MinConns, db.MaxConns)
	}
	return nil
}
