package domain

import (
	"context"
	"time"
)

// TemplateStore persists pricing templates and their rules.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, tpl *PricingTemplate) error
	GetTemplate(ctx context.Context, id string) (*PricingTemplate, error)
	ListTemplates(ctx context.Context) ([]*PricingTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// ClientConfigStore persists per-client configuration layers.
type ClientConfigStore interface {
	SaveClientConfig(ctx context.Context, cfg *ClientConfiguration) error
	GetClientConfig(ctx context.Context, id string) (*ClientConfiguration, error)
	ListClientConfigs(ctx context.Context) ([]*ClientConfiguration, error)
}

// HistoryStore persists immutable calculation audit records.
type HistoryStore interface {
	SaveHistory(ctx context.Context, rec *CalculationHistory) error
	GetHistory(ctx context.Context, id string) (*CalculationHistory, error)
	ListHistory(ctx context.Context, templateID string, limit int) ([]*CalculationHistory, error)
}

// Repository is the full persistence surface.
type Repository interface {
	TemplateStore
	ClientConfigStore
	HistoryStore

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `env:"TALLY_DB_DRIVER"`

	// SQLite specific
	SQLitePath string `env:"TALLY_SQLITE_PATH"`

	// PostgreSQL specific
	PostgresHost     string `env:"TALLY_PG_HOST"`
	PostgresPort     int    `env:"TALLY_PG_PORT"`
	PostgresUser     string `env:"TALLY_PG_USER"`
	PostgresPassword string `env:"TALLY_PG_PASSWORD"`
	PostgresDB       string `env:"TALLY_PG_DB"`
	PostgresSSLMode  string `env:"TALLY_PG_SSLMODE"`

	// Connection pool settings
	MaxOpenConns    int           `env:"TALLY_DB_MAX_OPEN"`
	MaxIdleConns    int           `env:"TALLY_DB_MAX_IDLE"`
	ConnMaxLifetime time.Duration `env:"TALLY_DB_CONN_LIFETIME"`
}
