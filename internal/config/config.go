package config

import "time"

// GathererConfig is the root configuration for a gatherer instance.
type GathererConfig struct {
	Instance    InstanceConfig    `yaml:"instance"`
	API         APIConfig         `yaml:"api"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Processing  ProcessingConfig  `yaml:"processing"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Storage     StorageConfig     `yaml:"storage"`
	Redis       RedisConfig       `yaml:"redis"`
	Logging     LoggingConfig     `yaml:"logging"`
	Health      HealthConfig      `yaml:"health"`
}

// InstanceConfig identifies this gatherer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds feed API settings.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`          // Optional; enables the rate limiter
	KeyLimitMargin int           `yaml:"key_limit_margin"` // Calls per minute held back from the key quota
	ProfileURL     string        `yaml:"profile_url"`      // Player name lookups
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
}

// AcquisitionConfig controls snapshot timing.
type AcquisitionConfig struct {
	MinDelay        time.Duration `yaml:"min_delay"`    // Earliest fetch after a feed update
	MaxDelay        time.Duration `yaml:"max_delay"`    // Latest fetch after a feed update
	UpdateCycle     time.Duration `yaml:"update_cycle"` // Feed regeneration period
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	PageConcurrency int           `yaml:"page_concurrency"`
	ActiveCooldown  time.Duration `yaml:"active_cooldown"`
	EndedCooldown   time.Duration `yaml:"ended_cooldown"`
	BazaarEnabled   bool          `yaml:"bazaar_enabled"`
	BazaarCooldown  time.Duration `yaml:"bazaar_cooldown"`
}

// ProcessingConfig controls listing decode batching.
type ProcessingConfig struct {
	BatchSize int `yaml:"batch_size"`
	Workers   int `yaml:"workers"`
}

// AggregationConfig controls buffer flush cadence.
type AggregationConfig struct {
	LowestBINThreshold int           `yaml:"lowest_bin_threshold"` // Snapshots per lowest-BIN flush
	SaleThreshold      int           `yaml:"sale_threshold"`       // Ended reads per sale flush
	MinListed          time.Duration `yaml:"min_listed"`           // Minimum listing age for lowest-BIN
}

// StorageConfig selects and configures the persistence gateway.
type StorageConfig struct {
	Driver     string   `yaml:"driver"`  // "postgres" or "sqlite"
	DryRun     bool     `yaml:"dry_run"` // Reads still hit the database, writes are dropped
	Postgres   DBConfig `yaml:"postgres"`
	SQLitePath string   `yaml:"sqlite_path"`
	QueueSize  int      `yaml:"queue_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the latest-summary cache settings.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // Optional rotated log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// HealthConfig holds the health and debug server settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
