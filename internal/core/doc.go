// Package core provides the staging and reconciliation engine for stock
// snapshot loads.
//
// This package contains all domain logic independent of any UI or transport
// layer. It is used by the CLI, the web handlers and the integration tests
// without modification.
//
// # Load Pipeline
//
// A load moves a delimited file into the permanent stock table in five steps:
//
//  1. [Service.BeginSession] records the load and creates a staging table
//     private to the session
//  2. [Session.StageChunk] validates each chunk and bulk copies it into staging
//  3. [Session.ReconcileDimensions] inserts unseen products and points of sale
//  4. [Session.DetectConflicts] finds staged keys that already exist in stock
//  5. [Session.Promote] moves the staged rows into stock under the load id
//
// Steps 3 through 5 run inside one transaction via [Session.Finish]. When
// conflicts are found the transaction is rolled back and nothing but the load
// record remains.
//
// # Staging
//
// Each session acquires its own pooled connection and creates a TEMP table
// named after a fresh UUID. The table is only visible to that connection, so
// concurrent sessions cannot see each other's rows. [Session.Close] drops the
// table and releases the connection; callers should always defer it.
//
// # Load Registry
//
// [Service.ListLoads] returns every load that still owns facts and
// [Service.Revert] deletes all facts of a load. Load records and dimension
// rows are never deleted.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - ROW001-ROW003: Malformed input rows
//   - LOAD001-LOAD005: Load lifecycle errors (conflicts, revert, unresolved rows)
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - FILE001-FILE005: File errors (size, encoding, format)
//   - UPL001-UPL005: Session errors (busy, cancelled, timeout)
package core
