// Package session drives the bus-facing side of the daemon: the poll
// cycle that refreshes the parameter store from the boiler's holding
// registers, and the write pipeline that applies queued parameter
// writes with read-back verification.
//
// Both sides take the transport gate around every bus transaction, so
// a poll never interleaves with a write and external bus users stay
// safe. Scheduling (the poll ticker, retry delays) belongs to the
// caller; this package only knows how to run one cycle or one write.
package session
