package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Gate serializes access to the bus. Acquire blocks until the gate is
// held or ctx expires; the returned release function must be called
// exactly once.
type Gate interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// gateRetryDelay is how often a blocked acquirer retries the lock.
const gateRetryDelay = 100 * time.Millisecond

// FileGate is a Gate backed by an advisory file lock, so external
// tools (diagnostics, firmware scripts) sharing the lock file stay off
// the bus while the daemon is mid-transaction, and vice versa.
type FileGate struct {
	lock *flock.Flock
}

// NewFileGate creates the gate's lock file under dir, named after the
// serial device it guards.
func NewFileGate(dir, device string) (*FileGate, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(device)+".lock")
	return &FileGate{lock: flock.New(path)}, nil
}

// Acquire takes the file lock, polling until it is free or ctx expires.
func (g *FileGate) Acquire(ctx context.Context) (func(), error) {
	ok, err := g.lock.TryLockContext(ctx, gateRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateBusy, err)
	}
	if !ok {
		return nil, ErrGateBusy
	}
	return func() { _ = g.lock.Unlock() }, nil
}

// Path returns the lock file location, for logging.
func (g *FileGate) Path() string {
	return g.lock.Path()
}

// MutexGate is an in-process Gate for setups with no external bus
// users, and for tests.
type MutexGate struct {
	sem chan struct{}
}

// NewMutexGate creates an unheld in-process gate.
func NewMutexGate() *MutexGate {
	return &MutexGate{sem: make(chan struct{}, 1)}
}

// Acquire takes the gate or fails with ErrGateBusy when ctx expires
// first.
func (g *MutexGate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.sem <- struct{}{}:
		return func() { <-g.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrGateBusy, ctx.Err())
	}
}
