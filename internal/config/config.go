// internal/config/config.go
package config

import "time"

// Config is one benchmark session.
// Built once at startup and never mutated after Normalize.
type Config struct {
	Serial    SerialConfig
	Devices   []uint8
	Registers []uint16
	Cycles    int
	Bucket    time.Duration
	Verbose   bool
	Log       LogConfig
}

// ---- SERIAL ----

type SerialConfig struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
	Timeout  time.Duration
}

// ---- LOG ----

type LogConfig struct {
	Level string
	File  string
}

// ---- DEFAULTS ----

const (
	DefaultPort     = "/dev/ttyS1"
	DefaultBaudRate = 115200
	DefaultDataBits = 8
	DefaultParity   = "E"
	DefaultStopBits = 1
	DefaultTimeout  = time.Second
	DefaultCycles   = 300
	DefaultBucket   = time.Second
)

// DefaultDevices and DefaultRegisters are the list flags' defaults.
var (
	DefaultDevices   = []string{"1"}
	DefaultRegisters = []string{"1"}
)
