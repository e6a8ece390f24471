package boiler

import (
	"time"

	"github.com/nerrad567/diematic-core/internal/register"
)

// Status is the life-cycle state of a parameter record.
type Status string

// Parameter life-cycle states. A parameter starts at init, moves to read
// on its first decoded value, and cycles writepending -> checking ->
// read (or error) while a write is being applied and verified.
const (
	StatusInit         Status = "init"
	StatusRead         Status = "read"
	StatusWritePending Status = "writepending"
	StatusChecking     Status = "checking"
	StatusError        Status = "error"
)

// Record is one parameter's state snapshot. Records are values; the
// store never hands out a pointer into its own state.
type Record struct {
	Name   string         `json:"name"`
	Status Status         `json:"status"`
	Value  register.Value `json:"value"`

	// PendingValue is the queued write target while Status is
	// writepending or checking. A failed write keeps it for inspection
	// until the error is cleared.
	PendingValue register.Value `json:"newvalue,omitempty"`

	// LastRead is when the current Value was decoded from the bus.
	LastRead time.Time `json:"read,omitzero"`

	// LastError describes the most recent write failure.
	LastError string `json:"error,omitempty"`

	// Address is the holding register the parameter lives in.
	Address uint16 `json:"id"`

	// Visible reports whether the parameter appears in external
	// snapshots (InfluxDB, history). Individual bits of a flag register
	// are always suppressed there.
	Visible bool `json:"influx"`
}

// Writable reports whether a new write request may be queued against the
// record in its current state.
func (r Record) Writable() bool {
	return r.Status != StatusChecking
}
