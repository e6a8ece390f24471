// Package api implements the HTTP REST API for the Diematic daemon.
//
// This package provides:
//   - REST endpoints for reading and writing boiler parameters
//   - Parameter history queries backed by the SQLite store
//   - On-demand poll cycle triggering
//   - Middleware stack (request ID, logging, recovery, body limit)
//
// # Architecture
//
// The API server fronts the in-memory parameter store. Reads never touch
// the serial bus; they return whatever the last poll cycle decoded. Writes
// queue a pending value on the store and wake the write pipeline, which
// owns all bus access. A write POST therefore returns before the value
// reaches the boiler; clients poll the parameter record to track the
// write's progress through writepending, checking and read.
//
// # Graceful Degradation
//
// History endpoints return 503 when the SQLite store is disabled; every
// other endpoint works without it.
package api
