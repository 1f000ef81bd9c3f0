package repository

// Schema definitions for the Tally database.
// Compatible with both SQLite and PostgreSQL.

const schemaTemplates = `
CREATE TABLE IF NOT EXISTS pricing_templates (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    rules TEXT NOT NULL,
    tiers TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_templates_active ON pricing_templates(active);
CREATE INDEX IF NOT EXISTS idx_templates_name ON pricing_templates(name);
`

const schemaClientConfigs = `
CREATE TABLE IF NOT EXISTS client_configs (
    id TEXT PRIMARY KEY,
    template_id TEXT NOT NULL,
    name TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    rule_overrides TEXT NOT NULL,
    area_rules TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_client_configs_template ON client_configs(template_id);
CREATE INDEX IF NOT EXISTS idx_client_configs_active ON client_configs(active);
`

const schemaHistory = `
CREATE TABLE IF NOT EXISTS calculation_history (
    id TEXT PRIMARY KEY,
    template_id TEXT NOT NULL,
    client_config_id TEXT,
    input TEXT NOT NULL,
    result TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_template ON calculation_history(template_id);
CREATE INDEX IF NOT EXISTS idx_history_created ON calculation_history(created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTemplates,
		schemaClientConfigs,
		schemaHistory,
	}
}
