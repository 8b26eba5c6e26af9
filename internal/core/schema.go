package core

import (
	"context"
	"fmt"
)

// schemaStatements create the permanent tables. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS load (
		id        BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
		filename  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS point_of_sale (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS product (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS stock (
		point_of_sale_id BIGINT NOT NULL REFERENCES point_of_sale(id),
		product_id       BIGINT NOT NULL REFERENCES product(id),
		date             DATE NOT NULL,
		stock            BIGINT NOT NULL CHECK (stock >= 0),
		load_id          BIGINT NOT NULL REFERENCES load(id),
		CONSTRAINT stock_natural_key UNIQUE (point_of_sale_id, product_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS stock_load_id_idx ON stock (load_id)`,
}

// stagingDDL creates a session's staging table. It has no constraints.
const stagingDDL = `CREATE TEMP TABLE %s (
	date               DATE,
	stock              BIGINT,
	product_name       TEXT,
	point_of_sale_name TEXT
)`

// stagingColumns lists the staging columns in COPY order.
var stagingColumns = []string{"date", "stock", "product_name", "point_of_sale_name"}

// EnsureSchema creates the load, dimension and stock tables if missing.
func EnsureSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
