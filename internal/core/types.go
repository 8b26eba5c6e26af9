// Package core provides the staging and reconciliation engine for stock loads.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Copier is a DBTX that also supports the COPY protocol.
// Satisfied by *pgxpool.Conn and pgx.Tx.
type Copier interface {
	DBTX
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Field positions of a raw input record.
const (
	FieldPointOfSale = iota
	FieldProduct
	FieldDate
	FieldStock

	// RecordWidth is the exact number of fields a record must have.
	RecordWidth
)

// RawRow is one tokenized input record, before validation.
type RawRow []string

// StagedRow is a validated record as it sits in the staging table.
type StagedRow struct {
	Date            time.Time
	Stock           int64
	ProductName     string
	PointOfSaleName string
}

// Load is one ingestion attempt from a single source file.
type Load struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	SourceName string    `json:"sourceName"`
	FactCount  int64     `json:"factCount"`
}

// LoadSummary is one entry of the load registry listing.
type LoadSummary struct {
	LoadID     int64     `json:"loadId"`
	SourceName string    `json:"sourceName"`
	Timestamp  time.Time `json:"timestamp"`
	// LatestDate is the most recent fact date in the load.
	LatestDate time.Time `json:"latestDate"`
	FactCount  int64     `json:"factCount"`
}

// Conflict identifies a previously committed load whose facts collide with
// the staged batch on (point of sale, product, date).
type Conflict struct {
	LoadID     int64     `json:"loadId"`
	SourceName string    `json:"sourceName"`
	Timestamp  time.Time `json:"timestamp"`
	Rows       int64     `json:"rows"`
}

// DuplicateKey is a (point of sale, product, date) key that appears more than
// once within the staged batch itself.
type DuplicateKey struct {
	PointOfSaleName string    `json:"pointOfSale"`
	ProductName     string    `json:"product"`
	Date            time.Time `json:"date"`
	Count           int64     `json:"count"`
}

// ReconcileResult reports how many dimension rows a reconciliation inserted.
type ReconcileResult struct {
	PointsOfSale int64 `json:"pointsOfSale"`
	Products     int64 `json:"products"`
}

// Total returns the number of dimension rows inserted.
func (r ReconcileResult) Total() int64 {
	return r.PointsOfSale + r.Products
}

// SessionState indicates the current stage of a load session.
type SessionState string

const (
	StateStarted     SessionState = "started"
	StateStaging     SessionState = "staging"
	StateReconciling SessionState = "reconciling"
	StateConflicted  SessionState = "conflicted"
	StatePromoted    SessionState = "promoted"
	StateFailed      SessionState = "failed"
)

// Terminal reports whether no further transitions are possible in a session.
func (s SessionState) Terminal() bool {
	switch s {
	case StateConflicted, StatePromoted, StateFailed:
		return true
	}
	return false
}

// LoadResult contains the final result of a load session.
type LoadResult struct {
	LoadID          int64           `json:"loadId"`
	SessionID       string          `json:"sessionId"`
	SourceName      string          `json:"sourceName"`
	State           SessionState    `json:"state"`
	Chunks          int             `json:"chunks"`
	RowsStaged      int64           `json:"rowsStaged"`
	RowsPromoted    int64           `json:"rowsPromoted"`
	NewDimensions   ReconcileResult `json:"newDimensions"`
	Conflicts       []Conflict      `json:"conflicts,omitempty"`
	BatchDuplicates []DuplicateKey  `json:"batchDuplicates,omitempty"`
	Duration        time.Duration   `json:"duration"`
	Error           string          `json:"error,omitempty"` // Non-empty if State is StateFailed
}

// Conflicted reports whether the load was abandoned because of duplicate keys.
func (r *LoadResult) Conflicted() bool {
	return r.State == StateConflicted
}

// RevertResult contains the result of a revert operation.
type RevertResult struct {
	LoadID      int64  `json:"loadId"`
	SourceName  string `json:"sourceName"`
	RowsDeleted int64  `json:"rowsDeleted"`
}
