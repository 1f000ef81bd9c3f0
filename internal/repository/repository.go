// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caterdispatch/tally/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTemplate upserts a pricing template with its rules and tier table.
// Configuration defects (duplicate rule names per side) are rejected here so
// a bad template never reaches the calculation path.
func (r *SQLRepository) SaveTemplate(ctx context.Context, tpl *domain.PricingTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}

	rules, err := json.Marshal(tpl.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode template rules: %w", err)
	}
	tiers, err := json.Marshal(tpl.Tiers)
	if err != nil {
		return fmt.Errorf("failed to encode template tiers: %w", err)
	}

	active := 0
	if tpl.Active {
		active = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO pricing_templates (
			id, name, description, version, active, rules, tiers, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			version = excluded.version,
			active = excluded.active,
			rules = excluded.rules,
			tiers = excluded.tiers,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		tpl.ID, tpl.Name, tpl.Description, tpl.Version, active,
		string(rules), string(tiers), now, now,
	)
	return err
}

// GetTemplate retrieves a pricing template by ID.
func (r *SQLRepository) GetTemplate(ctx context.Context, id string) (*domain.PricingTemplate, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: template id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, name, description, version, active, rules, tiers, created_at, updated_at
		FROM pricing_templates
		WHERE id = ?
	`

	var tpl domain.PricingTemplate
	var rules, tiers string
	var active int

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&tpl.ID, &tpl.Name, &tpl.Description, &tpl.Version, &active,
		&rules, &tiers, &tpl.CreatedAt, &tpl.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}

	tpl.Active = active == 1
	if err := json.Unmarshal([]byte(rules), &tpl.Rules); err != nil {
		return nil, fmt.Errorf("failed to parse template rules: %w", err)
	}
	if err := json.Unmarshal([]byte(tiers), &tpl.Tiers); err != nil {
		return nil, fmt.Errorf("failed to parse template tiers: %w", err)
	}

	return &tpl, nil
}

// ListTemplates retrieves all pricing templates, active or not.
func (r *SQLRepository) ListTemplates(ctx context.Context) ([]*domain.PricingTemplate, error) {
	query := `
		SELECT id, name, description, version, active, rules, tiers, created_at, updated_at
		FROM pricing_templates
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*domain.PricingTemplate
	for rows.Next() {
		var tpl domain.PricingTemplate
		var rules, tiers string
		var active int

		if err := rows.Scan(
			&tpl.ID, &tpl.Name, &tpl.Description, &tpl.Version, &active,
			&rules, &tiers, &tpl.CreatedAt, &tpl.UpdatedAt,
		); err != nil {
			return nil, err
		}

		tpl.Active = active == 1
		if err := json.Unmarshal([]byte(rules), &tpl.Rules); err != nil {
			return nil, fmt.Errorf("failed to parse rules for template %s: %w", tpl.ID, err)
		}
		if err := json.Unmarshal([]byte(tiers), &tpl.Tiers); err != nil {
			return nil, fmt.Errorf("failed to parse tiers for template %s: %w", tpl.ID, err)
		}
		templates = append(templates, &tpl)
	}

	return templates, rows.Err()
}

// DeleteTemplate soft-deletes a template by setting active = 0.
func (r *SQLRepository) DeleteTemplate(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: template id is required", ErrInvalidInput)
	}

	query := `
		UPDATE pricing_templates
		SET active = 0, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTemplateNotFound
	}

	return nil
}

// SaveClientConfig upserts a client configuration.
func (r *SQLRepository) SaveClientConfig(ctx context.Context, cfg *domain.ClientConfiguration) error {
	if cfg.ID == "" || cfg.TemplateID == "" {
		return fmt.Errorf("%w: client config id and template id are required", ErrInvalidInput)
	}

	overrides, err := json.Marshal(cfg.RuleOverrides)
	if err != nil {
		return fmt.Errorf("failed to encode rule overrides: %w", err)
	}
	areas, err := json.Marshal(cfg.AreaRules)
	if err != nil {
		return fmt.Errorf("failed to encode area rules: %w", err)
	}

	active := 0
	if cfg.Active {
		active = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO client_configs (
			id, template_id, name, active, rule_overrides, area_rules, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			template_id = excluded.template_id,
			name = excluded.name,
			active = excluded.active,
			rule_overrides = excluded.rule_overrides,
			area_rules = excluded.area_rules,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		cfg.ID, cfg.TemplateID, cfg.Name, active,
		string(overrides), string(areas), now, now,
	)
	return err
}

// GetClientConfig retrieves a client configuration by ID.
func (r *SQLRepository) GetClientConfig(ctx context.Context, id string) (*domain.ClientConfiguration, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: client config id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, template_id, name, active, rule_overrides, area_rules, created_at, updated_at
		FROM client_configs
		WHERE id = ?
	`

	var cfg domain.ClientConfiguration
	var overrides, areas string
	var active int

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&cfg.ID, &cfg.TemplateID, &cfg.Name, &active,
		&overrides, &areas, &cfg.CreatedAt, &cfg.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrClientConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Active = active == 1
	if err := json.Unmarshal([]byte(overrides), &cfg.RuleOverrides); err != nil {
		return nil, fmt.Errorf("failed to parse rule overrides: %w", err)
	}
	if err := json.Unmarshal([]byte(areas), &cfg.AreaRules); err != nil {
		return nil, fmt.Errorf("failed to parse area rules: %w", err)
	}

	return &cfg, nil
}

// ListClientConfigs retrieves all client configurations.
func (r *SQLRepository) ListClientConfigs(ctx context.Context) ([]*domain.ClientConfiguration, error) {
	query := `
		SELECT id, template_id, name, active, rule_overrides, area_rules, created_at, updated_at
		FROM client_configs
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.ClientConfiguration
	for rows.Next() {
		var cfg domain.ClientConfiguration
		var overrides, areas string
		var active int

		if err := rows.Scan(
			&cfg.ID, &cfg.TemplateID, &cfg.Name, &active,
			&overrides, &areas, &cfg.CreatedAt, &cfg.UpdatedAt,
		); err != nil {
			return nil, err
		}

		cfg.Active = active == 1
		if err := json.Unmarshal([]byte(overrides), &cfg.RuleOverrides); err != nil {
			return nil, fmt.Errorf("failed to parse overrides for config %s: %w", cfg.ID, err)
		}
		if err := json.Unmarshal([]byte(areas), &cfg.AreaRules); err != nil {
			return nil, fmt.Errorf("failed to parse area rules for config %s: %w", cfg.ID, err)
		}
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// SaveHistory stores a calculation audit record. Records are insert-only.
func (r *SQLRepository) SaveHistory(ctx context.Context, rec *domain.CalculationHistory) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: history id is required", ErrInvalidInput)
	}

	input, err := json.Marshal(rec.Input)
	if err != nil {
		return fmt.Errorf("failed to encode history input: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to encode history result: %w", err)
	}

	query := `
		INSERT INTO calculation_history (
			id, template_id, client_config_id, input, result, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.TemplateID, rec.ClientConfigID,
		string(input), string(result), rec.CreatedAt,
	)
	return err
}

// GetHistory retrieves a calculation audit record by ID.
func (r *SQLRepository) GetHistory(ctx context.Context, id string) (*domain.CalculationHistory, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: history id is required", ErrInvalidInput)
	}

	query := `
		SELECT id, template_id, client_config_id, input, result, created_at
		FROM calculation_history
		WHERE id = ?
	`

	var rec domain.CalculationHistory
	var input, result string

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&rec.ID, &rec.TemplateID, &rec.ClientConfigID,
		&input, &result, &rec.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(input), &rec.Input); err != nil {
		return nil, fmt.Errorf("failed to parse history input: %w", err)
	}
	if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to parse history result: %w", err)
	}

	return &rec, nil
}

// ListHistory retrieves the most recent audit records, optionally filtered
// by template. An empty templateID lists across all templates.
func (r *SQLRepository) ListHistory(ctx context.Context, templateID string, limit int) ([]*domain.CalculationHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, template_id, client_config_id, input, result, created_at
		FROM calculation_history
		ORDER BY created_at DESC
		LIMIT ?
	`
	args := []any{limit}
	if templateID != "" {
		query = `
			SELECT id, template_id, client_config_id, input, result, created_at
			FROM calculation_history
			WHERE template_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		`
		args = []any{templateID, limit}
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.CalculationHistory
	for rows.Next() {
		var rec domain.CalculationHistory
		var input, result string

		if err := rows.Scan(
			&rec.ID, &rec.TemplateID, &rec.ClientConfigID,
			&input, &result, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(input), &rec.Input); err != nil {
			return nil, fmt.Errorf("failed to parse input for record %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
			return nil, fmt.Errorf("failed to parse result for record %s: %w", rec.ID, err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
