package config

import "time"

// Default values for configuration.
const (
	DefaultBaseURL        = "https://api.hypixel.net"
	DefaultProfileURL     = "https://sessionserver.mojang.com/session/minecraft/profile"
	DefaultAPITimeout     = 30 * time.Second
	DefaultAPIMaxRetries  = 2
	DefaultAPIBackoff     = time.Second
	DefaultKeyLimitMargin = 20

	DefaultMinDelay        = 30 * time.Second
	DefaultMaxDelay        = 50 * time.Second
	DefaultUpdateCycle     = 60 * time.Second
	DefaultRetryBackoff    = 30 * time.Second
	DefaultPageConcurrency = 16
	DefaultActiveCooldown  = 10 * time.Second
	DefaultEndedCooldown   = 30 * time.Second
	DefaultBazaarCooldown  = 60 * time.Second

	DefaultBatchSize = 500
	DefaultWorkers   = 4

	DefaultLowestBINThreshold = 60
	DefaultSaleThreshold      = 60
	DefaultMinListed          = time.Minute

	DefaultStorageDriver = "sqlite"
	DefaultSQLitePath    = "auctions.db"
	DefaultQueueSize     = 64

	DefaultDBPort     = 5432
	DefaultDBSSLMode  = "prefer"
	DefaultDBMaxConns = 10
	DefaultDBMinConns = 2

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisTTL  = 2 * time.Hour

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28

	DefaultHealthPort = 8080
)

// applyDefaults fills in zero values with defaults.
func (c *GathererConfig) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.ProfileURL == "" {
		c.API.ProfileURL = DefaultProfileURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultAPIMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultAPIBackoff
	}
	if c.API.KeyLimitMargin == 0 {
		c.API.KeyLimitMargin = DefaultKeyLimitMargin
	}

	// Acquisition defaults
	if c.Acquisition.MinDelay == 0 {
		c.Acquisition.MinDelay = DefaultMinDelay
	}
	if c.Acquisition.MaxDelay == 0 {
		c.Acquisition.MaxDelay = DefaultMaxDelay
	}
	if c.Acquisition.UpdateCycle == 0 {
		c.Acquisition.UpdateCycle = DefaultUpdateCycle
	}
	if c.Acquisition.RetryBackoff == 0 {
		c.Acquisition.RetryBackoff = DefaultRetryBackoff
	}
	if c.Acquisition.PageConcurrency == 0 {
		c.Acquisition.PageConcurrency = DefaultPageConcurrency
	}
	if c.Acquisition.ActiveCooldown == 0 {
		c.Acquisition.ActiveCooldown = DefaultActiveCooldown
	}
	if c.Acquisition.EndedCooldown == 0 {
		c.Acquisition.EndedCooldown = DefaultEndedCooldown
	}
	if c.Acquisition.BazaarCooldown == 0 {
		c.Acquisition.BazaarCooldown = DefaultBazaarCooldown
	}

	// Processing defaults
	if c.Processing.BatchSize == 0 {
		c.Processing.BatchSize = DefaultBatchSize
	}
	if c.Processing.Workers == 0 {
		c.Processing.Workers = DefaultWorkers
	}

	// Aggregation defaults
	if c.Aggregation.LowestBINThreshold == 0 {
		c.Aggregation.LowestBINThreshold = DefaultLowestBINThreshold
	}
	if c.Aggregation.SaleThreshold == 0 {
		c.Aggregation.SaleThreshold = DefaultSaleThreshold
	}
	if c.Aggregation.MinListed == 0 {
		c.Aggregation.MinListed = DefaultMinListed
	}

	// Storage defaults
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = DefaultSQLitePath
	}
	if c.Storage.QueueSize == 0 {
		c.Storage.QueueSize = DefaultQueueSize
	}
	c.Storage.Postgres.applyDefaults()

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultRedisTTL
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}

func (db *DBConfig) applyDefaults() {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultDBMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultDBMinConns
	}
}
