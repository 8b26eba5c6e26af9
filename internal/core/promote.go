package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnresolvedRows is returned when staged rows cannot be matched to a
// product or point of sale at promotion time. Promotion is abandoned rather
// than dropping those rows.
var ErrUnresolvedRows = errors.New("unresolved dimension names in staged rows")

const promoteSQL = `
	INSERT INTO stock (point_of_sale_id, product_id, date, stock, load_id)
	SELECT pos.id, p.id, st.date, st.stock, $1
	FROM %[1]s st
	JOIN point_of_sale pos ON pos.name = st.point_of_sale_name
	JOIN product p ON p.name = st.product_name`

// Promote copies every staged row into stock under the session's load id and
// empties the staging table. It returns the number of facts written.
//
// db must be a transaction begun on the session's connection; the caller
// commits. If any staged row fails to resolve, ErrUnresolvedRows is returned
// and the caller must roll back.
func (s *Session) Promote(ctx context.Context, db DBTX) (int64, error) {
	tag, err := db.Exec(ctx, s.sql(promoteSQL), s.load.ID)
	if err != nil {
		return 0, fmt.Errorf("promote staged rows: %w", err)
	}

	promoted := tag.RowsAffected()
	if promoted != s.staged {
		return 0, fmt.Errorf("%w: staged %d, resolved %d", ErrUnresolvedRows, s.staged, promoted)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE "+s.table.Sanitize()); err != nil {
		return 0, fmt.Errorf("clear staging: %w", err)
	}

	return promoted, nil
}
