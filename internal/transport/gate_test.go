package transport

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestMutexGate(t *testing.T) {
	g := NewMutexGate()
	ctx := context.Background()

	release, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// A second acquirer times out while the gate is held.
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(short); !errors.Is(err, ErrGateBusy) {
		t.Errorf("Acquire() while held = %v, want ErrGateBusy", err)
	}

	release()

	release2, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	release2()
}

func TestMutexGateHandoff(t *testing.T) {
	g := NewMutexGate()
	ctx := context.Background()

	release, err := g.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := g.Acquire(ctx)
		if err != nil {
			t.Errorf("blocked Acquire() error = %v", err)
			close(acquired)
			return
		}
		r()
		close(acquired)
	}()

	// The waiter must not get through until the holder releases.
	select {
	case <-acquired:
		t.Fatal("waiter acquired while gate was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired after release")
	}
}

func TestFileGate(t *testing.T) {
	dir := t.TempDir()
	g, err := NewFileGate(dir, "/dev/ttyUSB0")
	if err != nil {
		t.Fatalf("NewFileGate() error = %v", err)
	}
	if want := filepath.Join(dir, "ttyUSB0.lock"); g.Path() != want {
		t.Errorf("Path() = %q, want %q", g.Path(), want)
	}

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	release()

	// Reacquire after release works.
	release, err = g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	release()
}

func TestFileGateCreatesLockDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "locks")
	if _, err := NewFileGate(dir, "/dev/ttyUSB0"); err != nil {
		t.Fatalf("NewFileGate() error = %v", err)
	}
}
