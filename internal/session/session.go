package session

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/diematic-core/internal/boiler"
	"github.com/nerrad567/diematic-core/internal/infrastructure/logging"
	"github.com/nerrad567/diematic-core/internal/transport"
)

// Range is one contiguous block of holding registers read in a single
// bus transaction.
type Range struct {
	First uint16 `yaml:"first"`
	Last  uint16 `yaml:"last"`
}

// Quantity returns the number of registers in the range.
func (r Range) Quantity() uint16 {
	return r.Last - r.First + 1
}

// Validate checks the range is well formed and small enough for one
// Modbus read (125 registers, per the protocol limit on function 3).
func (r Range) Validate() error {
	if r.Last < r.First {
		return fmt.Errorf("register range [%d, %d]: last before first", r.First, r.Last)
	}
	if r.Quantity() > 125 {
		return fmt.Errorf("register range [%d, %d]: %d registers exceeds one read", r.First, r.Last, r.Quantity())
	}
	return nil
}

// Session reads the configured register ranges and decodes them into
// the parameter store.
type Session struct {
	bus    transport.Transport
	gate   transport.Gate
	store  *boiler.Store
	ranges []Range
	logger *logging.Logger
}

// NewSession builds a poll session. The ranges must already be
// validated; a configuration reload builds a fresh session.
func NewSession(bus transport.Transport, gate transport.Gate, store *boiler.Store, ranges []Range, logger *logging.Logger) *Session {
	return &Session{
		bus:    bus,
		gate:   gate,
		store:  store,
		ranges: ranges,
		logger: logger.With("component", "session"),
	}
}

// RunPollCycle performs one full read of every configured range and
// commits the decoded values to the store.
//
// The cycle is all-or-nothing: the gate is held across every range read
// and any bus failure aborts before a single word is decoded, so the
// store never reflects a torn cycle.
func (s *Session) RunPollCycle(ctx context.Context) error {
	start := time.Now()

	// Another daemon holding the port lock must not stall the poll loop;
	// give up after the same bound the write pipeline uses and poll again
	// next tick.
	gateCtx, cancel := context.WithTimeout(ctx, defaultGateTimeout)
	release, err := s.gate.Acquire(gateCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("poll cycle: %w", err)
	}

	words := make(map[uint16]uint16)
	for _, r := range s.ranges {
		values, err := s.bus.ReadRegisters(ctx, r.First, r.Quantity())
		if err != nil {
			release()
			return fmt.Errorf("poll cycle range [%d, %d]: %w", r.First, r.Last, err)
		}
		for i, word := range values {
			words[r.First+uint16(i)] = word
		}
	}
	release()

	now := time.Now()
	decoded := 0
	for _, d := range s.store.Index().Descriptors() {
		word, ok := words[d.Address]
		if !ok {
			continue
		}
		if err := s.store.ApplyRaw(d.Address, word, now); err != nil {
			return fmt.Errorf("poll cycle decode register %d: %w", d.Address, err)
		}
		decoded++
	}

	s.logger.Debug("poll cycle complete",
		"ranges", len(s.ranges),
		"registers", len(words),
		"decoded", decoded,
		"duration", time.Since(start))
	return nil
}
