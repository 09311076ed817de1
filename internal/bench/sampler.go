// internal/bench/sampler.go
package bench

import (
	"errors"
	"log/slog"
	"time"
)

// Link abstracts the Modbus RTU operations the sampler needs.
// Any read error is a communication failure; the sampler does not tell them apart.
type Link interface {
	ReadHoldingRegister(device uint8, register uint16) (uint16, error) // FC 3, qty 1
	Close() error
}

// Config is the minimal runtime config the sampler needs.
type Config struct {
	Devices   []uint8
	Registers []uint16
	Cycles    int
	Bucket    time.Duration
}

// Option tweaks a Sampler.
type Option func(*Sampler)

// WithObserver routes progress events to o.
func WithObserver(o Observer) Option {
	return func(s *Sampler) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock replaces time.Now. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		if now != nil {
			s.now = now
		}
	}
}

// Sampler polls every device once per cycle, strictly in configured order.
// It owns the link for the whole session.
type Sampler struct {
	cfg      Config
	link     Link
	agg      *Aggregator
	observer Observer
	now      func() time.Time
}

// New creates a sampler with immutable config.
func New(cfg Config, link Link, opts ...Option) (*Sampler, error) {
	if link == nil {
		return nil, errors.New("bench: link required")
	}
	if len(cfg.Devices) == 0 {
		return nil, errors.New("bench: at least one device required")
	}
	if len(cfg.Registers) == 0 {
		return nil, errors.New("bench: at least one register required")
	}
	if cfg.Cycles < 1 {
		return nil, errors.New("bench: cycles must be >= 1")
	}

	s := &Sampler{
		cfg:      cfg,
		link:     link,
		agg:      NewAggregator(cfg.Bucket),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PollDevice performs one device-cycle.
// All-or-nothing: the first failed read abandons the remaining registers.
func (s *Sampler) PollDevice(device uint8) DeviceResult {
	res := DeviceResult{Device: device}

	values := make([]uint16, 0, len(s.cfg.Registers))

	start := s.now()
	for _, reg := range s.cfg.Registers {
		v, err := s.link.ReadHoldingRegister(device, reg)
		if err != nil {
			res.Register = reg
			res.Err = err
			return res
		}
		values = append(values, v)
	}
	done := s.now()

	// Commit only if all reads succeeded
	res.Values = values
	res.Latency = done.Sub(start)
	res.LatencyMs = res.Latency.Milliseconds()
	res.Bucket, res.BucketCount = s.agg.Record(done)

	return res
}

// PollCycle performs one pass over all devices.
// A failed device never stops the cycle.
func (s *Sampler) PollCycle(index int) (CycleResult, []DeviceResult) {
	cr := CycleResult{Index: index, Total: s.cfg.Cycles}
	results := make([]DeviceResult, 0, len(s.cfg.Devices))

	var sum int64
	for _, d := range s.cfg.Devices {
		res := s.PollDevice(d)
		res.Cycle = index

		if res.Err != nil {
			cr.Errors++
			slog.Debug("device-cycle failed",
				"cycle", index,
				"device", d,
				"register", res.Register,
				"err", res.Err,
			)
		} else {
			sum += res.LatencyMs
		}

		s.observer.DevicePolled(res)
		results = append(results, res)
	}

	cr.AvgSpeedMs = float64(sum) / float64(len(s.cfg.Devices))
	return cr, results
}

// Aggregator exposes the bucket counts collected so far.
func (s *Sampler) Aggregator() *Aggregator {
	return s.agg
}
