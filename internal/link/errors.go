// internal/link/errors.go
package link

import (
	"errors"
	"fmt"

	"github.com/goburrow/modbus"
)

// ConnectionError means the serial port could not be opened.
// Fatal: no session starts.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("link: open %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommunicationError is one failed register read.
// Timeouts, CRC errors, malformed frames and Modbus exceptions all end up here.
type CommunicationError struct {
	Device   uint8
	Register uint16
	Err      error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("link: device %d register %d: %v", e.Device, e.Register, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// Code returns the Modbus exception code carried by the failure,
// or 0 when the device never answered with an exception.
func (e *CommunicationError) Code() uint16 {
	var mbErr *modbus.ModbusError
	if errors.As(e.Err, &mbErr) {
		return uint16(mbErr.ExceptionCode)
	}
	return 0
}
