package domain

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds the complete Tally configuration.
type Config struct {
	// Server settings
	Server ServerConfig

	// Component configurations
	Repository RepositoryConfig
	Cache      CacheConfig
	EventBus   EventBusConfig

	// Observability
	Logging LoggingConfig
	Tracing TracingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `env:"TALLY_HOST"`
	Port         int    `env:"TALLY_PORT"`
	ReadTimeout  int    `env:"TALLY_READ_TIMEOUT"`  // seconds
	WriteTimeout int    `env:"TALLY_WRITE_TIMEOUT"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"TALLY_LOG_LEVEL"`  // debug, info, warn, error
	Format string `env:"TALLY_LOG_FORMAT"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `env:"TALLY_TRACING_ENABLED"`
	ServiceName string `env:"TALLY_TRACING_SERVICE"`
}

// DefaultConfig returns the single-node default configuration:
// SQLite store, in-memory cache, channel event bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:          "sqlite",
			SQLitePath:      "./tally.db",
			PostgresHost:    "localhost",
			PostgresPort:    5432,
			PostgresUser:    "tally",
			PostgresDB:      "tally",
			PostgresSSLMode: "disable",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "tally",
		},
	}
}

// Load returns the default configuration overlaid with TALLY_* environment
// variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
