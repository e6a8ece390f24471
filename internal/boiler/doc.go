// Package boiler holds the in-memory parameter state shared by the poll
// cycle, the write pipeline and the external surfaces (HTTP, MQTT,
// InfluxDB, history).
//
// The store keeps one record per parameter name. Records are immutable
// snapshots: every mutation swaps in a fresh copy under the concurrent
// map's per-key atomicity, so readers never observe a half-updated
// record. The whole namespace can be rebuilt from a new register index
// on configuration reload without invalidating the *Store handle held
// by the rest of the daemon.
package boiler
