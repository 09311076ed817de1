// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Modbus serial line slave addresses. 0 is broadcast and never answers.
const (
	MinDeviceAddress = 1
	MaxDeviceAddress = 247
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// A config that fails here never reaches the serial port.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// SERIAL LINE
	// ------------------------------------------------------------

	s := cfg.Serial

	if strings.TrimSpace(s.Port) == "" {
		return errors.New("serial.port: required")
	}
	if s.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate: must be > 0, got %d", s.BaudRate)
	}
	if s.DataBits < 5 || s.DataBits > 8 {
		return fmt.Errorf("serial.bytesize: must be 5..8, got %d", s.DataBits)
	}
	switch strings.ToUpper(s.Parity) {
	case "N", "E", "O", "M", "S":
	default:
		return fmt.Errorf("serial.parity: must be one of N, E, O, M, S, got %q", s.Parity)
	}
	if s.StopBits != 1 && s.StopBits != 2 {
		return fmt.Errorf("serial.stop_bits: must be 1 or 2, got %d", s.StopBits)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("serial.timeout: must be >= 0, got %s", s.Timeout)
	}

	// ------------------------------------------------------------
	// POLLING GEOMETRY
	// ------------------------------------------------------------

	if len(cfg.Devices) == 0 {
		return errors.New("devices: at least one device address required")
	}
	for _, d := range cfg.Devices {
		if d < MinDeviceAddress || d > MaxDeviceAddress {
			return fmt.Errorf(
				"devices: address %d out of range %d..%d",
				d,
				MinDeviceAddress,
				MaxDeviceAddress,
			)
		}
	}

	if len(cfg.Registers) == 0 {
		return errors.New("registers: at least one register required")
	}

	if cfg.Cycles < 1 {
		return fmt.Errorf("cycles: must be >= 1, got %d", cfg.Cycles)
	}

	if cfg.Bucket < 0 {
		return fmt.Errorf("bucket: must be >= 0, got %s", cfg.Bucket)
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}

	return nil
}
