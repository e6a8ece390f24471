package boiler

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/nerrad567/diematic-core/internal/register"
)

// Store is the shared parameter state. One instance is created at
// startup and survives configuration reloads; Rebuild swaps the entire
// namespace underneath it.
type Store struct {
	ns atomic.Pointer[namespace]
}

// namespace binds a register index to its record set. It is replaced
// wholesale on reload so lookups, records and iteration order always
// agree with each other.
type namespace struct {
	index   *register.Index
	records *xsync.MapOf[string, Record]
	order   []string
}

// WriteJob is a claimed pending write handed to the write pipeline.
type WriteJob struct {
	Name       string
	Value      register.Value
	Descriptor *register.Descriptor
}

// NewStore builds a store over the given register index with every
// parameter at its initial state.
func NewStore(idx *register.Index) *Store {
	s := &Store{}
	s.Rebuild(idx)
	return s
}

// Rebuild replaces the namespace with fresh init-state records built
// from a new index. Pending writes and error states from the previous
// namespace are discarded.
func (s *Store) Rebuild(idx *register.Index) {
	ns := &namespace{
		index:   idx,
		records: xsync.NewMapOf[string, Record](),
		order:   idx.ParameterNames(),
	}
	for _, name := range ns.order {
		d, _ := idx.ByName(name)
		ns.records.Store(name, Record{
			Name:    name,
			Status:  StatusInit,
			Address: d.Address,
			Visible: d.ExternallyVisible(),
		})
	}
	s.ns.Store(ns)
}

// Index returns the register index the current namespace was built from.
func (s *Store) Index() *register.Index {
	return s.ns.Load().index
}

// Get returns a snapshot of the named parameter's record.
func (s *Store) Get(name string) (Record, bool) {
	return s.ns.Load().records.Load(name)
}

// Records returns snapshots of every parameter in namespace order.
func (s *Store) Records() []Record {
	ns := s.ns.Load()
	out := make([]Record, 0, len(ns.order))
	for _, name := range ns.order {
		if rec, ok := ns.records.Load(name); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Snapshot returns the externally visible parameters that currently hold
// a decoded value, in namespace order. This is the record set shipped to
// InfluxDB and the history store.
func (s *Store) Snapshot() []Record {
	all := s.Records()
	out := make([]Record, 0, len(all))
	for _, rec := range all {
		if rec.Visible && rec.Value != nil {
			out = append(out, rec)
		}
	}
	return out
}

// ApplyRaw decodes a raw word read from the bus into the record(s) of
// the register at addr.
//
// Records mid-write (writepending or checking) are left untouched so a
// concurrent poll cannot clobber the value being verified. Records in
// error keep their status and message but still receive the fresh value.
func (s *Store) ApplyRaw(addr uint16, raw uint16, at time.Time) error {
	ns := s.ns.Load()
	d, ok := ns.index.ByAddress(addr)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRegister, addr)
	}

	if d.Kind == register.KindBits {
		for i, bit := range d.Bits {
			if bit == register.UnusedBit {
				continue
			}
			ns.applyDecoded(bit, register.DecodeBit(raw, i), at)
		}
		return nil
	}

	value, err := register.Decode(d.Kind, raw)
	if err != nil {
		return err
	}
	ns.applyDecoded(d.Name, value, at)
	return nil
}

// applyDecoded merges one decoded value into a record.
func (ns *namespace) applyDecoded(name string, value register.Value, at time.Time) {
	ns.records.Compute(name, func(rec Record, loaded bool) (Record, bool) {
		if !loaded {
			return rec, true
		}
		switch rec.Status {
		case StatusWritePending, StatusChecking:
			return rec, false
		case StatusInit:
			rec.Status = StatusRead
		}
		rec.Value = value
		rec.LastRead = at
		return rec, false
	})
}

// RequestWrite validates a new value and queues it for the write
// pipeline.
//
// Validation runs the codec dry: a value the register kind cannot
// represent is rejected before it is ever queued. A parameter whose
// previous write is already on the bus (checking) rejects the request
// with ErrWriteInFlight; a parameter still at writepending simply takes
// the newer value. Queueing a write on a parameter in error clears the
// error.
func (s *Store) RequestWrite(name string, value register.Value) error {
	ns := s.ns.Load()
	d, ok := ns.index.ByName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	if d.ReadOnly() {
		return fmt.Errorf("parameter %q: %w", name, register.ErrReadOnly)
	}
	if err := validateWrite(d, value); err != nil {
		return fmt.Errorf("parameter %q: %w", name, err)
	}

	var inFlight bool
	ns.records.Compute(name, func(rec Record, loaded bool) (Record, bool) {
		if !loaded {
			return rec, true
		}
		if rec.Status == StatusChecking {
			inFlight = true
			return rec, false
		}
		rec.PendingValue = value
		rec.Status = StatusWritePending
		rec.LastError = ""
		return rec, false
	})
	if inFlight {
		return fmt.Errorf("%w: %q", ErrWriteInFlight, name)
	}
	return nil
}

// validateWrite checks that value is representable by the register kind
// and inside the descriptor's configured min/max bounds.
func validateWrite(d *register.Descriptor, value register.Value) error {
	if d.Kind == register.KindBits {
		f, ok := numericValue(value)
		if !ok || (f != 0 && f != 1) {
			return fmt.Errorf("%w: bit wants 0 or 1, got %v", register.ErrInvalidValue, value)
		}
		return nil
	}
	if _, err := register.Encode(d.Kind, value); err != nil {
		return err
	}
	if f, ok := numericValue(value); ok {
		if d.Min != nil && f < *d.Min {
			return fmt.Errorf("%w: %v below minimum %v", register.ErrInvalidValue, f, *d.Min)
		}
		if d.Max != nil && f > *d.Max {
			return fmt.Errorf("%w: %v above maximum %v", register.ErrInvalidValue, f, *d.Max)
		}
	}
	return nil
}

// numericValue coerces the numeric types a decoded or requested value
// can arrive as.
func numericValue(v register.Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ClaimNext claims the first pending write in namespace order, moving
// its record to checking. It returns false when nothing is pending.
func (s *Store) ClaimNext() (WriteJob, bool) {
	ns := s.ns.Load()
	for _, name := range ns.order {
		var job WriteJob
		claimed := false
		ns.records.Compute(name, func(rec Record, loaded bool) (Record, bool) {
			if !loaded || rec.Status != StatusWritePending {
				return rec, !loaded
			}
			rec.Status = StatusChecking
			d, _ := ns.index.ByName(name)
			job = WriteJob{Name: name, Value: rec.PendingValue, Descriptor: d}
			claimed = true
			return rec, false
		})
		if claimed {
			return job, true
		}
	}
	return WriteJob{}, false
}

// CompleteWrite records a verified write: the pending value becomes the
// current value and the record returns to read. Only a record still at
// checking is touched; anything else means the claim was superseded.
func (s *Store) CompleteWrite(name string, at time.Time) {
	s.ns.Load().records.Compute(name, func(rec Record, loaded bool) (Record, bool) {
		if !loaded || rec.Status != StatusChecking {
			return rec, !loaded
		}
		rec.Value = rec.PendingValue
		rec.PendingValue = nil
		rec.LastError = ""
		rec.LastRead = at
		rec.Status = StatusRead
		return rec, false
	})
}

// FailWrite moves a record to error after a write could not be applied
// or verified. The pending value is kept for inspection until the error
// is cleared.
func (s *Store) FailWrite(name string, err error) {
	s.ns.Load().records.Compute(name, func(rec Record, loaded bool) (Record, bool) {
		if !loaded {
			return rec, true
		}
		rec.Status = StatusError
		rec.LastError = err.Error()
		return rec, false
	})
}

// ClearError acknowledges a write failure: the error message and pending
// value are dropped and the record returns to read, making the
// parameter writable again. Records in any other status are left alone,
// so clearing cannot cancel a claimed write mid-verification; the call
// still succeeds as a no-op.
func (s *Store) ClearError(name string) error {
	ns := s.ns.Load()
	if _, ok := ns.index.ByName(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	ns.records.Compute(name, func(rec Record, loaded bool) (Record, bool) {
		if !loaded || rec.Status != StatusError {
			return rec, !loaded
		}
		rec.LastError = ""
		rec.PendingValue = nil
		rec.Status = StatusRead
		return rec, false
	})
	return nil
}
