// internal/link/client.go
package link

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/modbus-rtubench/internal/config"
)

// holdingReader is the slice of modbus.Client the benchmark needs.
type holdingReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// Client is one Modbus RTU master on one serial port.
// It serializes requests because it mutates SlaveId per device.
type Client struct {
	mu     sync.Mutex
	api    holdingReader
	unit   func(id uint8)
	closer io.Closer
	closed bool
}

// Open connects the serial port once. Failure is a *ConnectionError.
func Open(cfg config.SerialConfig) (*Client, error) {
	if cfg.Port == "" {
		return nil, &ConnectionError{Err: errors.New("port required")}
	}

	h := modbus.NewRTUClientHandler(cfg.Port)
	h.BaudRate = cfg.BaudRate
	h.DataBits = cfg.DataBits
	h.Parity = cfg.Parity
	h.StopBits = cfg.StopBits
	h.Timeout = cfg.Timeout
	// the session owns the port until Close; no idle reconnects mid-run
	h.IdleTimeout = 0

	if err := h.Connect(); err != nil {
		return nil, &ConnectionError{Port: cfg.Port, Err: err}
	}

	slog.Debug("serial port open",
		"port", cfg.Port,
		"baud_rate", cfg.BaudRate,
		"bytesize", cfg.DataBits,
		"parity", cfg.Parity,
		"stop_bits", cfg.StopBits,
		"timeout", cfg.Timeout,
	)

	return newClient(
		modbus.NewClient(h),
		func(id uint8) { h.SlaveId = id },
		h,
	), nil
}

func newClient(api holdingReader, unit func(uint8), closer io.Closer) *Client {
	return &Client{api: api, unit: unit, closer: closer}
}

// ReadHoldingRegister reads one holding register (FC 3, quantity 1).
// Failure is a *CommunicationError.
func (c *Client) ReadHoldingRegister(device uint8, register uint16) (uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, &CommunicationError{Device: device, Register: register, Err: errors.New("link closed")}
	}

	c.unit(device)

	raw, err := c.api.ReadHoldingRegisters(register, 1)
	if err != nil {
		return 0, &CommunicationError{Device: device, Register: register, Err: err}
	}
	if len(raw) != 2 {
		return 0, &CommunicationError{
			Device:   device,
			Register: register,
			Err:      fmt.Errorf("modbus: read-registers payload length %d, want 2", len(raw)),
		}
	}

	return uint16(raw[0])<<8 | uint16(raw[1]), nil
}

// Close closes the serial port. Only the first call reaches the port.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.closer.Close()
}
