package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/stockload/internal/logging"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CloseTimeout bounds how long Close waits to drop the staging table.
var CloseTimeout = 5 * time.Second

// ErrSessionState is returned when an operation is not allowed in the
// session's current state.
var ErrSessionState = errors.New("invalid session state")

// Session is one load attempt. It owns a pooled connection and a TEMP
// staging table on that connection for its whole lifetime.
type Session struct {
	ID   string
	load Load

	conn    *pgxpool.Conn
	table   pgx.Identifier
	release func()
	logger  *slog.Logger

	state   SessionState
	chunks  int
	staged  int64
	started time.Time
	err     error
}

// BeginSession records a new load for sourceName and prepares an empty
// staging table for it. The caller must Close the session.
func (s *Service) BeginSession(ctx context.Context, sourceName string) (*Session, error) {
	if strings.TrimSpace(sourceName) == "" {
		return nil, errors.New("source name is required")
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	sess, err := s.openSession(ctx, sourceName)
	if err != nil {
		s.limiter.Release()
		return nil, err
	}
	sess.release = s.limiter.Release

	return sess, nil
}

func (s *Service) openSession(ctx context.Context, sourceName string) (*Session, error) {
	var load Load
	err := s.pool.QueryRow(ctx,
		`INSERT INTO load (timestamp, filename) VALUES ($1, $2) RETURNING id, timestamp, filename`,
		s.now(), sourceName,
	).Scan(&load.ID, &load.Timestamp, &load.SourceName)
	if err != nil {
		return nil, fmt.Errorf("create load record: %w", err)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire staging connection: %w", err)
	}

	id := uuid.New()
	table := pgx.Identifier{"stock_staging_" + strings.ReplaceAll(id.String(), "-", "")}

	if _, err := conn.Exec(ctx, fmt.Sprintf(stagingDDL, table.Sanitize())); err != nil {
		conn.Release()
		return nil, fmt.Errorf("create staging table: %w", err)
	}

	sess := &Session{
		ID:      id.String(),
		load:    load,
		conn:    conn,
		table:   table,
		state:   StateStarted,
		started: time.Now(),
		logger: logging.WithFields(ctx,
			"load_id", load.ID,
			"session_id", id.String(),
			"source", sourceName,
		),
	}
	sess.logger.Info("load session started")

	return sess, nil
}

// Load returns the registry record created for this session.
func (s *Session) Load() Load {
	return s.load
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return s.state
}

// Staged returns the number of rows written to the staging table.
func (s *Session) Staged() int64 {
	return s.staged
}

// DB returns the session's connection. The staging table is only visible
// through it (or a transaction begun on it).
func (s *Session) DB() Copier {
	return s.conn
}

// StageChunk validates every row of the chunk, then writes the whole chunk to
// the staging table in a single COPY. A malformed row fails the session and
// nothing from the chunk is written.
func (s *Session) StageChunk(ctx context.Context, chunk Chunk) error {
	if s.state != StateStarted && s.state != StateStaging {
		return fmt.Errorf("%w: cannot stage while %s", ErrSessionState, s.state)
	}

	number := s.chunks + 1
	rows := make([]StagedRow, len(chunk.Rows))
	for i, raw := range chunk.Rows {
		row, err := ParseRow(raw)
		if err != nil {
			return s.fail(&MalformedRowError{
				Chunk:    number,
				Position: i,
				Line:     chunk.LineOf(i),
				Fields:   raw,
				Err:      err,
			})
		}
		rows[i] = row
	}

	s.state = StateStaging
	if len(rows) == 0 {
		return nil
	}

	n, err := s.conn.CopyFrom(ctx, s.table, stagingColumns, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{pgtype.Date{Time: r.Date, Valid: true}, r.Stock, r.ProductName, r.PointOfSaleName}, nil
	}))
	if err != nil {
		return s.fail(fmt.Errorf("stage chunk %d: %w", number, err))
	}

	s.chunks = number
	s.staged += n
	s.logger.Debug("chunk staged", "chunk", number, "rows", n, "staged_total", s.staged)

	return nil
}

// Finish reconciles dimensions, checks for conflicts and promotes the staged
// rows, all in one transaction. A conflicted result is not an error: the
// transaction is rolled back and the returned result lists the conflicts.
func (s *Session) Finish(ctx context.Context) (*LoadResult, error) {
	if s.state != StateStarted && s.state != StateStaging {
		return s.Result(), fmt.Errorf("%w: cannot finish while %s", ErrSessionState, s.state)
	}
	s.state = StateReconciling

	result, err := s.finish(ctx)
	if err != nil {
		return s.Result(), s.fail(err)
	}
	return result, nil
}

func (s *Session) finish(ctx context.Context) (*LoadResult, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op once committed

	reconciled, err := s.ReconcileDimensions(ctx, tx)
	if err != nil {
		return nil, err
	}

	duplicates, err := s.DuplicateKeys(ctx, tx)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.DetectConflicts(ctx, tx)
	if err != nil {
		return nil, err
	}

	if len(conflicts) > 0 || len(duplicates) > 0 {
		s.state = StateConflicted
		result := s.Result()
		result.Conflicts = conflicts
		result.BatchDuplicates = duplicates
		s.logger.Warn("load conflicted, nothing promoted",
			"conflicting_loads", len(conflicts),
			"batch_duplicates", len(duplicates),
		)
		return result, nil
	}

	promoted, err := s.Promote(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.state = StatePromoted
	result := s.Result()
	result.RowsPromoted = promoted
	result.NewDimensions = reconciled

	s.logger.Info("load promoted",
		"rows", promoted,
		"new_points_of_sale", reconciled.PointsOfSale,
		"new_products", reconciled.Products,
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// Result returns a snapshot of the session as a LoadResult.
func (s *Session) Result() *LoadResult {
	result := &LoadResult{
		LoadID:     s.load.ID,
		SessionID:  s.ID,
		SourceName: s.load.SourceName,
		State:      s.state,
		Chunks:     s.chunks,
		RowsStaged: s.staged,
		Duration:   time.Since(s.started),
	}
	if s.err != nil {
		result.Error = s.err.Error()
	}
	return result
}

// Close drops the staging table and releases the connection and the session
// slot. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	if s.conn == nil {
		return
	}

	dropCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CloseTimeout)
	defer cancel()

	if _, err := s.conn.Exec(dropCtx, "DROP TABLE IF EXISTS "+s.table.Sanitize()); err != nil {
		// The TEMP table dies with the connection, so close it rather than
		// returning it to the pool with the table still attached.
		s.logger.Warn("drop staging table failed, discarding connection", "error", err)
		_ = s.conn.Conn().Close(dropCtx)
	}

	s.conn.Release()
	s.conn = nil

	if s.release != nil {
		s.release()
		s.release = nil
	}

	s.logger.Debug("load session closed", "state", s.state)
}

// fail moves the session to the failed state and returns err.
func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.err = err
	s.logger.Error("load session failed", "error", err)
	return err
}
