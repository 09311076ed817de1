// internal/config/load.go
package config

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/viper"
)

// Keys used in the viper instance, config files and RTUBENCH_* environment variables.
const (
	KeyPort      = "serial.port"
	KeyBaudRate  = "serial.baud_rate"
	KeyDataBits  = "serial.bytesize"
	KeyParity    = "serial.parity"
	KeyStopBits  = "serial.stop_bits"
	KeyTimeout   = "serial.timeout"
	KeyDevices   = "devices"
	KeyRegisters = "registers"
	KeyCycles    = "cycles"
	KeyBucket    = "bucket"
	KeyVerbose   = "verbose"
	KeyLogLevel  = "log.level"
	KeyLogFile   = "log.file"
)

// EnvPrefix is the environment variable prefix, e.g. RTUBENCH_SERIAL_PORT.
const EnvPrefix = "RTUBENCH"

// NewViper returns a viper instance with defaults and environment lookup set up.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyBaudRate, DefaultBaudRate)
	v.SetDefault(KeyDataBits, DefaultDataBits)
	v.SetDefault(KeyParity, DefaultParity)
	v.SetDefault(KeyStopBits, DefaultStopBits)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyDevices, DefaultDevices)
	v.SetDefault(KeyRegisters, DefaultRegisters)
	v.SetDefault(KeyCycles, DefaultCycles)
	v.SetDefault(KeyBucket, DefaultBucket)
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads an optional config file into v and builds a Config from it.
// Flags must already be bound to v.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	devices, err := ParseDevices(v.GetStringSlice(KeyDevices))
	if err != nil {
		return nil, err
	}
	registers, err := ParseRegisters(v.GetStringSlice(KeyRegisters))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Serial: SerialConfig{
			Port:     v.GetString(KeyPort),
			BaudRate: v.GetInt(KeyBaudRate),
			DataBits: v.GetInt(KeyDataBits),
			Parity:   v.GetString(KeyParity),
			StopBits: v.GetInt(KeyStopBits),
			Timeout:  v.GetDuration(KeyTimeout),
		},
		Devices:   devices,
		Registers: registers,
		Cycles:    v.GetInt(KeyCycles),
		Bucket:    v.GetDuration(KeyBucket),
		Verbose:   v.GetBool(KeyVerbose),
		Log: LogConfig{
			Level: v.GetString(KeyLogLevel),
			File:  v.GetString(KeyLogFile),
		},
	}

	return cfg, nil
}

// ---- list parsing ----

// ParseList splits every token on commas and whitespace.
// "1,2 3" and ["1", "2,3"] both yield [1 2 3].
func ParseList(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		out = append(out, strings.FieldsFunc(tok, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})...)
	}
	return out
}

// ParseDevices parses device (slave) addresses.
func ParseDevices(tokens []string) ([]uint8, error) {
	var out []uint8
	for _, s := range ParseList(tokens) {
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("device address %q: %w", s, err)
		}
		out = append(out, uint8(n))
	}
	return out, nil
}

// ParseRegisters parses holding register indices.
func ParseRegisters(tokens []string) ([]uint16, error) {
	var out []uint16
	for _, s := range ParseList(tokens) {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("register %q: %w", s, err)
		}
		out = append(out, uint16(n))
	}
	return out, nil
}
