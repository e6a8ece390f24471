package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/diematic-core/internal/boiler"
	"github.com/nerrad567/diematic-core/internal/infrastructure/logging"
	"github.com/nerrad567/diematic-core/internal/register"
	"github.com/nerrad567/diematic-core/internal/transport"
)

// Write pipeline defaults, tuned to the boiler's slow bus interface.
const (
	defaultWriteAttempts = 6
	defaultWriteBackoff  = time.Second
	defaultGateTimeout   = 5 * time.Second
)

// errVerifyMismatch marks a read-back that did not return the written
// word. It is terminal: retrying a write the device actively rejects
// only hammers the bus.
var errVerifyMismatch = errors.New("read value differs from written value")

// WriterConfig tunes the write pipeline. Zero values take the defaults.
type WriterConfig struct {
	// Attempts is the per-job cap on bus attempts.
	Attempts int

	// Backoff is the pause between retryable attempts.
	Backoff time.Duration

	// GateTimeout bounds how long one attempt waits for the bus gate.
	GateTimeout time.Duration
}

// Writer is the single-consumer write pipeline. All queued parameter
// writes funnel through one goroutine, so at most one write transaction
// is on the bus at a time and claims never race.
type Writer struct {
	bus    transport.Transport
	gate   transport.Gate
	store  *boiler.Store
	cfg    WriterConfig
	kick   chan struct{}
	logger *logging.Logger
}

// NewWriter builds the write pipeline. Run must be started for queued
// writes to drain.
func NewWriter(bus transport.Transport, gate transport.Gate, store *boiler.Store, cfg WriterConfig, logger *logging.Logger) *Writer {
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultWriteAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultWriteBackoff
	}
	if cfg.GateTimeout <= 0 {
		cfg.GateTimeout = defaultGateTimeout
	}
	return &Writer{
		bus:    bus,
		gate:   gate,
		store:  store,
		cfg:    cfg,
		kick:   make(chan struct{}, 1),
		logger: logger.With("component", "writer"),
	}
}

// Kick wakes the pipeline after new writes were queued. It never
// blocks; a wake-up already pending covers any number of kicks.
func (w *Writer) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run drains queued writes until ctx is cancelled. A job claimed before
// cancellation still runs to completion so no record is left stuck at
// checking.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
		}
		w.drain(ctx)
	}
}

// drain processes every pending write currently in the store.
func (w *Writer) drain(ctx context.Context) {
	for {
		job, ok := w.store.ClaimNext()
		if !ok {
			return
		}
		w.process(ctx, job)
	}
}

// process applies one claimed write and records the outcome.
func (w *Writer) process(ctx context.Context, job boiler.WriteJob) {
	word, err := w.encodeJob(job)
	if err != nil {
		w.logger.Warn("write rejected at encode", "parameter", job.Name, "error", err)
		w.store.FailWrite(job.Name, err)
		return
	}

	addr := job.Descriptor.Address
	for attempt := 1; attempt <= w.cfg.Attempts; attempt++ {
		err = w.attempt(ctx, addr, word)
		if err == nil {
			w.store.CompleteWrite(job.Name, time.Now())
			w.logger.Info("write verified",
				"parameter", job.Name,
				"register", addr,
				"attempts", attempt)
			return
		}
		if errors.Is(err, errVerifyMismatch) {
			break
		}
		w.logger.Warn("write attempt failed",
			"parameter", job.Name,
			"register", addr,
			"attempt", attempt,
			"error", err)
		if attempt < w.cfg.Attempts {
			select {
			case <-time.After(w.cfg.Backoff):
			case <-ctx.Done():
			}
		}
	}

	if !errors.Is(err, errVerifyMismatch) {
		err = fmt.Errorf("too many attempts: %w", err)
	}
	w.logger.Error("write failed", "parameter", job.Name, "register", addr, "error", err)
	w.store.FailWrite(job.Name, err)
}

// attempt performs one gated write-then-verify transaction.
func (w *Writer) attempt(ctx context.Context, addr, word uint16) error {
	gateCtx, cancel := context.WithTimeout(ctx, w.cfg.GateTimeout)
	defer cancel()

	release, err := w.gate.Acquire(gateCtx)
	if err != nil {
		return err
	}
	defer release()

	if err := w.bus.WriteRegister(ctx, addr, word); err != nil {
		return err
	}

	readBack, err := w.bus.ReadRegisters(ctx, addr, 1)
	if err != nil {
		return fmt.Errorf("verify read: %w", err)
	}
	if readBack[0] != word {
		return fmt.Errorf("%w: register %d read 0x%04X, wrote 0x%04X", errVerifyMismatch, addr, readBack[0], word)
	}
	return nil
}

// encodeJob turns a claimed write into the raw word to put on the bus.
// A write to one bit of a flag register merges the current values of
// its sibling bits; a sibling with no decoded value yet contributes 0.
func (w *Writer) encodeJob(job boiler.WriteJob) (uint16, error) {
	d := job.Descriptor
	if d.Kind != register.KindBits {
		return register.Encode(d.Kind, job.Value)
	}

	pos, ok := d.BitPosition(job.Name)
	if !ok {
		return 0, fmt.Errorf("parameter %q is not a bit of register %d", job.Name, d.Address)
	}

	var word uint16
	for i, bit := range d.Bits {
		if bit == register.UnusedBit {
			continue
		}
		if i == pos {
			if bitSet(job.Value) {
				word |= 1 << i
			}
			continue
		}
		if rec, ok := w.store.Get(bit); ok && bitSet(rec.Value) {
			word |= 1 << i
		}
	}
	return word, nil
}

// bitSet interprets a stored bit value.
func bitSet(v register.Value) bool {
	switch b := v.(type) {
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}
