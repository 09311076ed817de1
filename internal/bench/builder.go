// internal/bench/builder.go
package bench

import (
	cfg "github.com/tamzrod/modbus-rtubench/internal/config"
	"github.com/tamzrod/modbus-rtubench/internal/link"
)

// Build opens the serial link and constructs a Sampler that owns it.
// Open failure comes back as *link.ConnectionError and nothing is left open.
// No retries: one attempt at startup.
func Build(c *cfg.Config, opts ...Option) (*Sampler, error) {
	l, err := link.Open(c.Serial)
	if err != nil {
		return nil, err
	}

	s, err := New(
		Config{
			Devices:   c.Devices,
			Registers: c.Registers,
			Cycles:    c.Cycles,
			Bucket:    c.Bucket,
		},
		l,
		opts...,
	)
	if err != nil {
		_ = l.Close()
		return nil, err
	}

	return s, nil
}
