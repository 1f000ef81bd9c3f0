package repository

import (
	"database/sql"
	"fmt"

	"github.com/caterdispatch/tally/internal/domain"
	_ "github.com/lib/pq"
)

// openPostgres opens a PostgreSQL connection. Connection defaults live in
// domain.DefaultConfig; anything still missing here is a configuration error,
// not something to paper over.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	switch {
	case cfg.PostgresHost == "":
		return nil, fmt.Errorf("%w: postgres host is not configured", ErrInvalidInput)
	case cfg.PostgresDB == "":
		return nil, fmt.Errorf("%w: postgres database name is not configured", ErrInvalidInput)
	case cfg.PostgresSSLMode == "":
		return nil, fmt.Errorf("%w: postgres sslmode is not configured", ErrInvalidInput)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		cfg.PostgresSSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}
