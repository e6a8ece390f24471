// Package transport owns the serial side of the daemon: the Modbus RTU
// client used to read and write holding registers, and the exclusion
// gate that keeps this process (and cooperating processes on the same
// host) from driving the bus concurrently.
//
// The boiler's RS-485 line tolerates exactly one master at a time, so
// every poll cycle and every write attempt takes the gate first.
package transport
