package core

import (
	"context"
	"fmt"
)

// Dimension inserts for names present in staging but missing from the
// permanent table. ON CONFLICT keeps concurrent sessions from colliding on
// the unique name.
const (
	reconcilePointsOfSaleSQL = `
		INSERT INTO point_of_sale (name)
		SELECT DISTINCT st.point_of_sale_name
		FROM %[1]s st
		LEFT JOIN point_of_sale pos ON pos.name = st.point_of_sale_name
		WHERE pos.id IS NULL
		ON CONFLICT (name) DO NOTHING`

	reconcileProductsSQL = `
		INSERT INTO product (name)
		SELECT DISTINCT st.product_name
		FROM %[1]s st
		LEFT JOIN product p ON p.name = st.product_name
		WHERE p.id IS NULL
		ON CONFLICT (name) DO NOTHING`

	unresolvedCountSQL = `
		SELECT COUNT(*)
		FROM %[1]s st
		LEFT JOIN point_of_sale pos ON pos.name = st.point_of_sale_name
		LEFT JOIN product p ON p.name = st.product_name
		WHERE pos.id IS NULL OR p.id IS NULL`
)

// ReconcileDimensions inserts every staged point-of-sale and product name that
// has no row in its dimension table yet. Running it again inserts nothing.
//
// db must be the session's connection or a transaction begun on it.
func (s *Session) ReconcileDimensions(ctx context.Context, db DBTX) (ReconcileResult, error) {
	var result ReconcileResult

	tag, err := db.Exec(ctx, s.sql(reconcilePointsOfSaleSQL))
	if err != nil {
		return result, fmt.Errorf("reconcile points of sale: %w", err)
	}
	result.PointsOfSale = tag.RowsAffected()

	tag, err = db.Exec(ctx, s.sql(reconcileProductsSQL))
	if err != nil {
		return result, fmt.Errorf("reconcile products: %w", err)
	}
	result.Products = tag.RowsAffected()

	s.logger.Debug("dimensions reconciled",
		"new_points_of_sale", result.PointsOfSale,
		"new_products", result.Products,
	)

	return result, nil
}

// UnresolvedRows counts staged rows whose product or point of sale has no
// dimension row. It is zero after ReconcileDimensions.
func (s *Session) UnresolvedRows(ctx context.Context, db DBTX) (int64, error) {
	var n int64
	if err := db.QueryRow(ctx, s.sql(unresolvedCountSQL)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unresolved rows: %w", err)
	}
	return n, nil
}

// sql substitutes the staging table name into a statement template.
func (s *Session) sql(template string) string {
	return fmt.Sprintf(template, s.table.Sanitize())
}
