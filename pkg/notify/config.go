package notify

import (
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the engine's tunables. All fields have working defaults; use
// LoadConfig to populate from environment variables.
type Config struct {
	MaxRetries         int           `env:"NOTIFY_MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay     time.Duration `env:"NOTIFY_RETRY_BASE_DELAY" envDefault:"30s"`
	AdapterTimeout     time.Duration `env:"NOTIFY_ADAPTER_TIMEOUT" envDefault:"10s"`
	BulkBatchSize      int           `env:"NOTIFY_BULK_BATCH_SIZE" envDefault:"100"`
	BulkBatchPause     time.Duration `env:"NOTIFY_BULK_BATCH_PAUSE" envDefault:"100ms"`
	RetentionWindow    time.Duration `env:"NOTIFY_RETENTION_WINDOW" envDefault:"720h"`
	RetentionInterval  time.Duration `env:"NOTIFY_RETENTION_INTERVAL" envDefault:"1h"`
	RetrySweepInterval time.Duration `env:"NOTIFY_RETRY_SWEEP_INTERVAL" envDefault:"5m"`
}

// DefaultConfig returns the built-in defaults without touching the environment.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 30 * time.Second
	}
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = 10 * time.Second
	}
	if c.BulkBatchSize <= 0 {
		c.BulkBatchSize = 100
	}
	if c.BulkBatchPause < 0 {
		c.BulkBatchPause = 100 * time.Millisecond
	}
	if c.RetentionWindow <= 0 {
		c.RetentionWindow = 30 * 24 * time.Hour
	}
	if c.RetentionInterval <= 0 {
		c.RetentionInterval = time.Hour
	}
	if c.RetrySweepInterval <= 0 {
		c.RetrySweepInterval = 5 * time.Minute
	}
	return c
}

var loadEnvOnce sync.Once

// LoadConfig parses the engine configuration from environment variables,
// loading a .env file first if one exists.
func LoadConfig() (Config, error) {
	loadEnvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}
