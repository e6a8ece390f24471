package boiler

import "errors"

var (
	// ErrUnknownParameter is returned when an operation names a parameter
	// absent from the current register index.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrUnknownRegister is returned when a raw word arrives for an
	// address the current index does not describe.
	ErrUnknownRegister = errors.New("unknown register address")

	// ErrWriteInFlight is returned when a write request targets a
	// parameter whose previous write is already on the bus.
	ErrWriteInFlight = errors.New("write already in flight")
)
