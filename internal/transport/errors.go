package transport

import "errors"

var (
	// ErrGateBusy is returned when the bus gate could not be acquired
	// before the caller's context expired.
	ErrGateBusy = errors.New("bus gate busy")

	// ErrShortResponse is returned when a register read yields fewer
	// words than requested.
	ErrShortResponse = errors.New("short modbus response")
)
