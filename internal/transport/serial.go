package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Transport is the register-level bus access the poll cycle and write
// pipeline work against.
type Transport interface {
	// ReadRegisters reads qty consecutive holding registers starting at
	// addr and returns them in address order.
	ReadRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error)

	// WriteRegister writes a single holding register.
	WriteRegister(ctx context.Context, addr, value uint16) error

	// Close releases the underlying port.
	Close() error
}

// SerialConfig describes the RTU line.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
	UnitID   byte
	Timeout  time.Duration
}

// Serial is a Modbus RTU transport over a serial port. The port is
// opened lazily on first use and reopened after any bus error, so a
// transiently unplugged adapter recovers without restarting the daemon.
type Serial struct {
	cfg SerialConfig

	mu      sync.Mutex
	handler *modbus.RTUClientHandler
	client  modbus.Client
}

// NewSerial builds an RTU transport. The port itself is not touched
// until the first operation.
func NewSerial(cfg SerialConfig) *Serial {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	if cfg.DataBits == 0 {
		cfg.DataBits = 8
	}
	if cfg.Parity == "" {
		cfg.Parity = "N"
	}
	if cfg.StopBits == 0 {
		cfg.StopBits = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Serial{cfg: cfg}
}

// connect opens the port if it is not already open. Callers hold s.mu.
func (s *Serial) connect() error {
	if s.client != nil {
		return nil
	}

	h := modbus.NewRTUClientHandler(s.cfg.Device)
	h.BaudRate = s.cfg.BaudRate
	h.DataBits = s.cfg.DataBits
	h.Parity = s.cfg.Parity
	h.StopBits = s.cfg.StopBits
	h.SlaveId = s.cfg.UnitID
	h.Timeout = s.cfg.Timeout

	if err := h.Connect(); err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Device, err)
	}
	s.handler = h
	s.client = modbus.NewClient(h)
	return nil
}

// drop closes the port so the next operation reconnects. Callers hold s.mu.
func (s *Serial) drop() {
	if s.handler != nil {
		s.handler.Close()
	}
	s.handler = nil
	s.client = nil
}

// ReadRegisters reads qty holding registers starting at addr.
func (s *Serial) ReadRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connect(); err != nil {
		return nil, err
	}

	raw, err := s.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		s.drop()
		return nil, fmt.Errorf("read registers %d+%d: %w", addr, qty, err)
	}
	if len(raw) < int(qty)*2 {
		s.drop()
		return nil, fmt.Errorf("%w: %d bytes for %d registers", ErrShortResponse, len(raw), qty)
	}

	words := make([]uint16, qty)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(raw[2*i:])
	}
	return words, nil
}

// WriteRegister writes one holding register using function 16, which is
// the only write function the boiler's bus interface accepts.
func (s *Serial) WriteRegister(ctx context.Context, addr, value uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connect(); err != nil {
		return err
	}

	payload := []byte{byte(value >> 8), byte(value)}
	if _, err := s.client.WriteMultipleRegisters(addr, 1, payload); err != nil {
		s.drop()
		return fmt.Errorf("write register %d: %w", addr, err)
	}
	return nil
}

// Close releases the serial port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.handler != nil {
		err = s.handler.Close()
	}
	s.handler = nil
	s.client = nil
	return err
}
