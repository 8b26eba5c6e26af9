package core

import (
	"context"
	"fmt"
)

// MaxReportedDuplicates caps how many in-batch duplicate keys are reported.
var MaxReportedDuplicates = 50

const (
	// conflictsSQL returns one row per committed load owning a fact whose
	// natural key matches a staged row.
	conflictsSQL = `
		WITH staged AS (
			SELECT pos.id AS point_of_sale_id, p.id AS product_id, st.date
			FROM %[1]s st
			JOIN point_of_sale pos ON pos.name = st.point_of_sale_name
			JOIN product p ON p.name = st.product_name
		)
		SELECT l.id, l.filename, l.timestamp, COUNT(*)
		FROM stock s
		JOIN staged ON staged.point_of_sale_id = s.point_of_sale_id
			AND staged.product_id = s.product_id
			AND staged.date = s.date
		JOIN load l ON l.id = s.load_id
		GROUP BY l.id, l.filename, l.timestamp
		ORDER BY l.id`

	duplicateKeysSQL = `
		SELECT st.point_of_sale_name, st.product_name, st.date, COUNT(*)
		FROM %[1]s st
		GROUP BY st.point_of_sale_name, st.product_name, st.date
		HAVING COUNT(*) > 1
		ORDER BY st.point_of_sale_name, st.product_name, st.date
		LIMIT $1`
)

// DetectConflicts finds committed facts sharing (point of sale, product, date)
// with a staged row and returns the loads that produced them, one entry per
// load. An empty result means the batch can be promoted.
//
// Dimensions must be reconciled first; staged rows whose names do not resolve
// cannot match anything.
func (s *Session) DetectConflicts(ctx context.Context, db DBTX) ([]Conflict, error) {
	rows, err := db.Query(ctx, s.sql(conflictsSQL))
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []Conflict
	for rows.Next() {
		var c Conflict
		if err := rows.Scan(&c.LoadID, &c.SourceName, &c.Timestamp, &c.Rows); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conflict rows: %w", err)
	}

	return conflicts, nil
}

// DuplicateKeys finds natural keys repeated within the staged batch. Such a
// batch would violate the stock uniqueness rule on its own.
func (s *Session) DuplicateKeys(ctx context.Context, db DBTX) ([]DuplicateKey, error) {
	rows, err := db.Query(ctx, s.sql(duplicateKeysSQL), MaxReportedDuplicates)
	if err != nil {
		return nil, fmt.Errorf("query batch duplicates: %w", err)
	}
	defer rows.Close()

	var dups []DuplicateKey
	for rows.Next() {
		var d DuplicateKey
		if err := rows.Scan(&d.PointOfSaleName, &d.ProductName, &d.Date, &d.Count); err != nil {
			return nil, fmt.Errorf("scan batch duplicate: %w", err)
		}
		dups = append(dups, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batch duplicate rows: %w", err)
	}

	return dups, nil
}
