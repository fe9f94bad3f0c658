// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
//
// Process configuration is distinct from the persisted user settings: these
// values tune the daemon itself, not the rating behavior.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite snapshot database.
	DBPath string `koanf:"db_path"`

	// RetryAttempts bounds event persistence retries before an event id is
	// parked in the failed-writes set.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryDelayMS is the fixed delay between persistence retries.
	RetryDelayMS int `koanf:"retry_delay_ms"`

	// CleanupIntervalHours sets how often the maintenance sweep is due.
	CleanupIntervalHours int `koanf:"cleanup_interval_hours"`

	// DisabledRetentionDays sets how long disabled events are kept before
	// the sweep purges them.
	DisabledRetentionDays int `koanf:"disabled_retention_days"`

	// MaxRankLimit caps GET /rankings?limit.
	MaxRankLimit int `koanf:"max_rank_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9380",
		DBPath:                "ncompare.db",
		RetryAttempts:         5,
		RetryDelayMS:          500,
		CleanupIntervalHours:  24,
		DisabledRetentionDays: 30,
		MaxRankLimit:          100,
	}
}
