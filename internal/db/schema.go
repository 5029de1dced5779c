package db

import (
	"context"
	"fmt"
)

// schemaStatements creates the estimator tables when missing. estimate_data is TEXT so the
// payload is kept byte-for-byte as submitted.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS product_estimates (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL DEFAULT '',
		phone_number  TEXT NOT NULL DEFAULT '',
		postcode      TEXT NOT NULL DEFAULT '',
		total_min     NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_max     NUMERIC(12,2) NOT NULL DEFAULT 0,
		markup        NUMERIC(8,2) NOT NULL DEFAULT 0,
		status        TEXT NOT NULL DEFAULT 'saved',
		notes         TEXT NOT NULL DEFAULT '',
		estimate_data TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS product_estimates_name_email_idx
		ON product_estimates (name, email, created_at DESC)`,
}

// EnsureSchema applies the estimator DDL. Catalog tables are owned by the catalog service.
func (db *Database) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
