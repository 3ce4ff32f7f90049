package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces every environment variable the tracker reads
const envPrefix = "timeglass"

// Config holds the runtime settings of the tracker and its HTTP API.
// Every field can be overridden through a TIMEGLASS_* environment
// variable.
type Config struct {
	// Environment selects the database profile (production, development, test)
	Environment string `envconfig:"ENVIRONMENT" default:"production"`

	// SampleInterval is how often the foreground state is polled
	SampleInterval time.Duration `envconfig:"SAMPLE_INTERVAL" default:"5s"`

	// IdleThreshold is how long without input counts as idle
	IdleThreshold time.Duration `envconfig:"IDLE_THRESHOLD" default:"5m"`

	// MaxGap is the largest sampling gap an event may span
	MaxGap time.Duration `envconfig:"MAX_GAP" default:"2m"`

	// MaxEventDuration caps the length of a single event
	MaxEventDuration time.Duration `envconfig:"MAX_EVENT_DURATION" default:"4h"`

	// ListenAddr is the HTTP API bind address
	ListenAddr string `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8909"`

	// DBPath overrides the per-OS default database location when set
	DBPath string `envconfig:"DB_PATH"`
}

// Load reads the configuration from the environment, applying defaults
// for everything unset
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings for values the tracker cannot run with
func (c *Config) Validate() error {
	if c.SampleInterval <= 0 {
		return fmt.Errorf("sample interval must be positive, got %v", c.SampleInterval)
	}
	if c.IdleThreshold <= 0 {
		return fmt.Errorf("idle threshold must be positive, got %v", c.IdleThreshold)
	}
	if c.MaxGap < c.SampleInterval {
		return fmt.Errorf("max gap %v must be at least the sample interval %v", c.MaxGap, c.SampleInterval)
	}
	if c.MaxEventDuration <= c.SampleInterval {
		return fmt.Errorf("max event duration %v must exceed the sample interval %v", c.MaxEventDuration, c.SampleInterval)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	return nil
}
