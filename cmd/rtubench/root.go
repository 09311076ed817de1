// cmd/rtubench/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tamzrod/modbus-rtubench/internal/bench"
	"github.com/tamzrod/modbus-rtubench/internal/config"
	"github.com/tamzrod/modbus-rtubench/internal/report"
)

// Process exit codes.
const (
	exitOK           = 0
	exitConnection   = 1
	exitConfig       = 2
	exitInsufficient = 3
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps a command error to a process exit code.
// Anything cobra rejects before run (bad flags) is a config error.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitConfig
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var configFile string

	cmd := &cobra.Command{
		Use:   "rtubench",
		Short: "Measure Modbus RTU holding register read speed",
		Long: `Measure round-trip latency of holding register reads against one or more
Modbus RTU devices on one serial line.

Every cycle reads all registers from every device in order. After the last
cycle the first and last (partial) one-second buckets are dropped and the rest
give the average request, register and full-poll times.

Lists accept commas or spaces: -a 1,2,3 or -a "1 2 3".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, configFile, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML config file (flags override it)")
	f.StringP("port", "D", config.DefaultPort, "Serial port name")
	f.IntP("baud_rate", "b", config.DefaultBaudRate, "Baud rate")
	f.IntP("bytesize", "d", config.DefaultDataBits, "Data bits per byte")
	f.StringP("parity", "p", config.DefaultParity, "Parity: N, E, O, M or S")
	f.IntP("stop_bits", "s", config.DefaultStopBits, "Stop bits")
	f.DurationP("timeout", "t", config.DefaultTimeout, "Per-read response timeout")
	f.IntP("circles", "c", config.DefaultCycles, "Number of full polling cycles")
	f.StringSliceP("device_addresses", "a", config.DefaultDevices, "Device addresses to read (comma or space separated)")
	f.StringSliceP("registers", "r", config.DefaultRegisters, "Holding registers to read (comma or space separated)")
	f.BoolP("verbose", "v", false, "Print every request and cycle")
	f.Duration("bucket", config.DefaultBucket, "Throughput bucket width")
	f.String("log_level", "info", "Log level: debug, info, warn, error")
	f.String("log_file", "", "Log file (default stderr)")

	bindFlags(v, f)

	return cmd
}

// bindFlags maps flag names onto config keys.
func bindFlags(v *viper.Viper, f *pflag.FlagSet) {
	keys := map[string]string{
		config.KeyPort:      "port",
		config.KeyBaudRate:  "baud_rate",
		config.KeyDataBits:  "bytesize",
		config.KeyParity:    "parity",
		config.KeyStopBits:  "stop_bits",
		config.KeyTimeout:   "timeout",
		config.KeyCycles:    "circles",
		config.KeyDevices:   "device_addresses",
		config.KeyRegisters: "registers",
		config.KeyVerbose:   "verbose",
		config.KeyBucket:    "bucket",
		config.KeyLogLevel:  "log_level",
		config.KeyLogFile:   "log_file",
	}
	for key, name := range keys {
		// only fails on a nil flag, which is a programming error
		if err := v.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func run(ctx context.Context, v *viper.Viper, configFile string, out io.Writer) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(v, configFile)
	if err != nil {
		return withCode(exitConfig, fmt.Errorf("config load failed: %w", err))
	}

	if err := config.Validate(cfg); err != nil {
		return withCode(exitConfig, fmt.Errorf("config validation failed: %w", err))
	}
	config.Normalize(cfg)

	closeLog := setupLogger(cfg.Log)
	defer closeLog()

	printer := report.NewPrinter(out, cfg.Verbose)
	if err := printer.Banner(cfg); err != nil {
		slog.Warn("banner failed", "err", err)
	}

	// --------------------
	// Open the serial link (fail fast)
	// --------------------

	sampler, err := bench.Build(cfg, bench.WithObserver(printer))
	printer.PortCheck(cfg.Serial.Port, err)
	if err != nil {
		return withCode(exitConnection, err)
	}

	// --------------------
	// Poll
	// --------------------

	printer.Polling()
	slog.Info("session start",
		"devices", len(cfg.Devices),
		"registers", len(cfg.Registers),
		"cycles", cfg.Cycles,
	)

	res := sampler.Run(ctx)

	slog.Info("session done",
		"cycles_run", res.CyclesRun,
		"errors", res.Errors,
		"buckets", len(res.Buckets),
	)

	// --------------------
	// Reduce + report
	// --------------------

	rep, err := bench.Reduce(bench.NewReduceInput(res, len(cfg.Registers), cfg.Bucket))
	if errors.Is(err, bench.ErrInsufficientData) {
		printer.InsufficientData(err)
		return withCode(exitInsufficient, err)
	}
	if err != nil {
		return withCode(exitInsufficient, err)
	}

	printer.Summary(rep)
	return nil
}
