package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/stockload/internal/logging"
	"github.com/jackc/pgx/v5"
)

// Registry errors.
var (
	ErrLoadNotFound    = errors.New("load not found")
	ErrNothingToRevert = errors.New("load has no stock facts to revert")
)

const (
	listLoadsSQL = `
		SELECT l.id, l.filename, l.timestamp, MAX(s.date), COUNT(*)
		FROM load l
		JOIN stock s ON s.load_id = l.id
		GROUP BY l.id, l.filename, l.timestamp
		ORDER BY l.id DESC`

	getLoadSQL = `
		SELECT l.id, l.timestamp, l.filename,
			(SELECT COUNT(*) FROM stock s WHERE s.load_id = l.id)
		FROM load l
		WHERE l.id = $1`
)

// ListLoads returns every load that still owns at least one stock fact,
// newest first. Loads that were conflicted, failed or reverted are omitted.
func (s *Service) ListLoads(ctx context.Context) ([]LoadSummary, error) {
	rows, err := s.pool.Query(ctx, listLoadsSQL)
	if err != nil {
		return nil, fmt.Errorf("query loads: %w", err)
	}
	defer rows.Close()

	loads := make([]LoadSummary, 0)
	for rows.Next() {
		var l LoadSummary
		if err := rows.Scan(&l.LoadID, &l.SourceName, &l.Timestamp, &l.LatestDate, &l.FactCount); err != nil {
			return nil, fmt.Errorf("scan load: %w", err)
		}
		loads = append(loads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}

	return loads, nil
}

// GetLoad returns a load record with its current fact count.
func (s *Service) GetLoad(ctx context.Context, loadID int64) (*Load, error) {
	return getLoad(ctx, s.pool, loadID)
}

func getLoad(ctx context.Context, db DBTX, loadID int64) (*Load, error) {
	var l Load
	err := db.QueryRow(ctx, getLoadSQL, loadID).Scan(&l.ID, &l.Timestamp, &l.SourceName, &l.FactCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrLoadNotFound, loadID)
	}
	if err != nil {
		return nil, fmt.Errorf("get load %d: %w", loadID, err)
	}
	return &l, nil
}

// Revert deletes every stock fact tagged with loadID and commits. The load
// record and all dimension rows are kept.
func (s *Service) Revert(ctx context.Context, loadID int64) (RevertResult, error) {
	result := RevertResult{LoadID: loadID}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op once committed

	load, err := getLoad(ctx, tx, loadID)
	if err != nil {
		return result, err
	}
	result.SourceName = load.SourceName

	tag, err := tx.Exec(ctx, `DELETE FROM stock WHERE load_id = $1`, loadID)
	if err != nil {
		return result, fmt.Errorf("delete facts of load %d: %w", loadID, err)
	}
	if tag.RowsAffected() == 0 {
		return result, fmt.Errorf("%w: load %d", ErrNothingToRevert, loadID)
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit: %w", err)
	}
	result.RowsDeleted = tag.RowsAffected()

	logging.WithFields(ctx, "load_id", loadID, "source", load.SourceName).
		Info("load reverted", "rows_deleted", result.RowsDeleted)

	return result, nil
}
