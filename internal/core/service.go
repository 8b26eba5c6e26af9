package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/stockload/internal/config"
	"github.com/JonMunkholm/stockload/internal/logging"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultLoadTimeout is the maximum duration of a load when none is configured.
const DefaultLoadTimeout = 30 * time.Minute

// Service provides the core business logic for stock loads.
type Service struct {
	pool    *pgxpool.Pool
	limiter *SessionLimiter

	chunkSize   int
	delimiter   rune
	loadTimeout time.Duration

	now func() time.Time
}

// NewService creates a new Service instance.
func NewService(pool *pgxpool.Pool, cfg *config.Config) (*Service, error) {
	if pool == nil {
		return nil, errors.New("nil connection pool")
	}

	s := &Service{
		pool:        pool,
		limiter:     NewSessionLimiter(DefaultMaxConcurrentSessions, DefaultMaxWaitTime),
		chunkSize:   DefaultChunkSize,
		delimiter:   DefaultDelimiter,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
	}

	if cfg != nil {
		s.limiter = NewSessionLimiter(cfg.Load.MaxConcurrent, cfg.Load.MaxWaitTime)
		if cfg.Load.ChunkSize > 0 {
			s.chunkSize = cfg.Load.ChunkSize
		}
		if d := cfg.Load.DelimiterRune(); d != 0 {
			s.delimiter = d
		}
		if cfg.Load.Timeout > 0 {
			s.loadTimeout = cfg.Load.Timeout
		}
	}

	return s, nil
}

// ChunkSize returns the number of records staged per bulk statement.
func (s *Service) ChunkSize() int {
	return s.chunkSize
}

// Limiter exposes the session limiter for status reporting and shutdown.
func (s *Service) Limiter() *SessionLimiter {
	return s.limiter
}

// WaitForLoads blocks until every active session has closed or ctx ends.
func (s *Service) WaitForLoads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// LoadPath loads the file at path. The path, as given, is recorded as the
// load's source name.
func (s *Service) LoadPath(ctx context.Context, path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	return s.LoadFile(ctx, path, f)
}

// LoadFile runs the whole pipeline for one source: the records are read in
// chunks, each chunk is validated and staged, and the batch is finally
// reconciled, checked and promoted.
//
// A conflicted load returns a result with State StateConflicted and a nil
// error. Malformed rows and store failures return the partial result together
// with the error.
func (s *Service) LoadFile(ctx context.Context, sourceName string, r io.Reader) (*LoadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	reader, err := NewChunkReader(r, s.delimiter, s.chunkSize)
	if err != nil {
		return nil, err
	}

	sess, err := s.BeginSession(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	defer sess.Close(ctx)

	for {
		chunk, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sess.Result(), sess.fail(err)
		}

		if err := sess.StageChunk(ctx, chunk); err != nil {
			return sess.Result(), err
		}
		logging.FromContext(ctx).Debug("chunk read",
			"load_id", sess.Load().ID,
			"chunk", chunk.Number,
			"rows", len(chunk.Rows),
			"bytes_read", reader.BytesRead(),
		)
	}

	if sess.Staged() == 0 {
		logging.FromContext(ctx).Warn("no data rows after header", "source", sourceName)
	}

	return sess.Finish(ctx)
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
