// internal/bench/sampler_test.go
package bench

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

// ---- fakes ----

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type read struct {
	device   uint8
	register uint16
}

// fakeLink answers every read after perRead of fake time.
type fakeLink struct {
	clock   *fakeClock
	perRead time.Duration
	fail    func(call int, device uint8, register uint16) bool

	reads  []read
	closes int
}

func (f *fakeLink) ReadHoldingRegister(device uint8, register uint16) (uint16, error) {
	call := len(f.reads)
	f.reads = append(f.reads, read{device, register})
	f.clock.Advance(f.perRead)

	if f.fail != nil && f.fail(call, device, register) {
		return 0, errors.New("fail read")
	}
	return uint16(device)<<8 | register, nil
}

func (f *fakeLink) Close() error {
	f.closes++
	return nil
}

type recorder struct {
	devices []DeviceResult
	cycles  []CycleResult
	onCycle func(CycleResult)
}

func (r *recorder) DevicePolled(d DeviceResult) { r.devices = append(r.devices, d) }
func (r *recorder) CycleDone(c CycleResult) {
	r.cycles = append(r.cycles, c)
	if r.onCycle != nil {
		r.onCycle(c)
	}
}

func newSampler(t *testing.T, cfg Config, l *fakeLink, obs Observer) *Sampler {
	t.Helper()
	s, err := New(cfg, l, WithClock(l.clock.Now), WithObserver(obs))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return s
}

// ---- tests ----

func TestNew_Rejects(t *testing.T) {
	l := &fakeLink{clock: newFakeClock()}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"no devices", Config{Registers: []uint16{1}, Cycles: 1}},
		{"no registers", Config{Devices: []uint8{1}, Cycles: 1}},
		{"zero cycles", Config{Devices: []uint8{1}, Registers: []uint16{1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg, l); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}

	if _, err := New(Config{Devices: []uint8{1}, Registers: []uint16{1}, Cycles: 1}, nil); err == nil {
		t.Fatalf("expected error for nil link, got nil")
	}
}

func TestPollDevice_Success(t *testing.T) {
	l := &fakeLink{clock: newFakeClock(), perRead: 5 * time.Millisecond}
	s := newSampler(t, Config{Devices: []uint8{1}, Registers: []uint16{10, 11}, Cycles: 1}, l, nil)

	res := s.PollDevice(1)
	if res.Err != nil {
		t.Fatalf("PollDevice err=%v", res.Err)
	}
	if res.LatencyMs != 10 {
		t.Fatalf("latency: got=%dms want=10ms", res.LatencyMs)
	}
	if len(res.Values) != 2 || res.Values[1] != 1<<8|11 {
		t.Fatalf("unexpected values: %v", res.Values)
	}
	if res.Bucket != 0 || res.BucketCount != 1 {
		t.Fatalf("first completion must open bucket 0: got key=%d count=%d", res.Bucket, res.BucketCount)
	}
}

func TestPollDevice_LatencyTruncatedToWholeMs(t *testing.T) {
	l := &fakeLink{clock: newFakeClock(), perRead: 1900 * time.Microsecond}
	s := newSampler(t, Config{Devices: []uint8{1}, Registers: []uint16{1}, Cycles: 1}, l, nil)

	if res := s.PollDevice(1); res.LatencyMs != 1 {
		t.Fatalf("latency: got=%dms want=1ms", res.LatencyMs)
	}
}

func TestPollDevice_FailureAbandonsRemainingRegisters(t *testing.T) {
	l := &fakeLink{
		clock:   newFakeClock(),
		perRead: time.Millisecond,
		fail:    func(_ int, _ uint8, reg uint16) bool { return reg == 2 },
	}
	s := newSampler(t, Config{Devices: []uint8{1}, Registers: []uint16{1, 2, 3}, Cycles: 1}, l, nil)

	res := s.PollDevice(1)
	if res.Err == nil {
		t.Fatalf("expected error, got nil")
	}
	if res.Register != 2 {
		t.Fatalf("failed register: got=%d want=2", res.Register)
	}
	if res.Values != nil || res.LatencyMs != 0 {
		t.Fatalf("failed device-cycle must not carry values or latency: %+v", res)
	}
	if len(l.reads) != 2 {
		t.Fatalf("expected 2 reads before abandoning, got %d", len(l.reads))
	}
	if s.Aggregator().Len() != 0 {
		t.Fatalf("failed device-cycle must not touch buckets")
	}
}

func TestRun_ThreeDevicesTwoRegistersAllSucceed(t *testing.T) {
	l := &fakeLink{clock: newFakeClock(), perRead: 5 * time.Millisecond}
	cfg := Config{
		Devices:   []uint8{1, 2, 3},
		Registers: []uint16{1, 2},
		Cycles:    300,
		Bucket:    time.Second,
	}
	s := newSampler(t, cfg, l, nil)

	res := s.Run(context.Background())

	if res.CyclesRun != 300 {
		t.Fatalf("cycles run: got=%d want=300", res.CyclesRun)
	}
	if res.Errors != 0 {
		t.Fatalf("errors: got=%d want=0", res.Errors)
	}
	if len(res.Buckets) < MinBuckets {
		t.Fatalf("expected >= %d buckets, got %d", MinBuckets, len(res.Buckets))
	}
	if len(l.reads) != 300*3*2 {
		t.Fatalf("reads: got=%d want=%d", len(l.reads), 300*3*2)
	}

	rep, err := Reduce(NewReduceInput(res, len(cfg.Registers), cfg.Bucket))
	if err != nil {
		t.Fatalf("Reduce err=%v", err)
	}
	if rep.TotalErrors != 0 {
		t.Fatalf("total errors: got=%d", rep.TotalErrors)
	}
	// every device-cycle takes exactly 10ms: 100 per full second
	if rep.AvgRequestMs != 10 || rep.AvgRegisterMs != 5 {
		t.Fatalf("unexpected rates: request=%v register=%v", rep.AvgRequestMs, rep.AvgRegisterMs)
	}
	if rep.AvgCycleMs != 10 {
		t.Fatalf("avg cycle: got=%v want=10", rep.AvgCycleMs)
	}
	if rep.Latency == nil || rep.Latency.Samples != 900 || rep.Latency.Max != 10 {
		t.Fatalf("unexpected distribution: %+v", rep.Latency)
	}
}

func TestRun_FailureMidDeviceCycle(t *testing.T) {
	// cycle 0: device 2 fails on its second register (read #3)
	l := &fakeLink{
		clock:   newFakeClock(),
		perRead: 5 * time.Millisecond,
		fail:    func(call int, _ uint8, _ uint16) bool { return call == 3 },
	}
	rec := &recorder{}
	s := newSampler(t, Config{Devices: []uint8{1, 2, 3}, Registers: []uint16{1, 2}, Cycles: 2}, l, rec)

	res := s.Run(context.Background())

	if res.Errors != 1 {
		t.Fatalf("errors: got=%d want=1", res.Errors)
	}

	// device 3 is still polled in cycle 0
	if len(rec.devices) != 6 || rec.devices[2].Device != 3 || rec.devices[2].Err != nil {
		t.Fatalf("device 3 must be polled after device 2 failed: %+v", rec.devices)
	}
	if rec.devices[1].Err == nil || rec.devices[1].Cycle != 0 {
		t.Fatalf("device 2 in cycle 0 must fail: %+v", rec.devices[1])
	}

	if rec.cycles[0].Errors != 1 {
		t.Fatalf("cycle 0 errors: got=%d want=1", rec.cycles[0].Errors)
	}
	if want := 20.0 / 3.0; rec.cycles[0].AvgSpeedMs != want {
		t.Fatalf("cycle 0 avg speed: got=%v want=%v", rec.cycles[0].AvgSpeedMs, want)
	}
	if rec.cycles[1].AvgSpeedMs != 10 {
		t.Fatalf("cycle 1 avg speed: got=%v want=10", rec.cycles[1].AvgSpeedMs)
	}
	if math.Abs(res.CycleSpeedSum-(20.0/3.0+10)) > 1e-9 {
		t.Fatalf("cycle speed sum: got=%v", res.CycleSpeedSum)
	}
}

func TestRun_ErrorCounterCountsDeviceCyclesNotReads(t *testing.T) {
	// every read of device 2 fails; only the first register is ever tried
	l := &fakeLink{
		clock:   newFakeClock(),
		perRead: time.Millisecond,
		fail:    func(_ int, dev uint8, _ uint16) bool { return dev == 2 },
	}
	s := newSampler(t, Config{Devices: []uint8{1, 2}, Registers: []uint16{1, 2, 3}, Cycles: 25}, l, nil)

	res := s.Run(context.Background())

	if res.Errors != 25 {
		t.Fatalf("errors: got=%d want=25", res.Errors)
	}
	if bound := 25 * 2 * 3; res.Errors > bound {
		t.Fatalf("errors %d above bound %d", res.Errors, bound)
	}
	if len(res.LatenciesMs) != 25 {
		t.Fatalf("latency samples: got=%d want=25", len(res.LatenciesMs))
	}
}

func TestRun_ClosesLinkOnceEvenWhenEverythingFails(t *testing.T) {
	l := &fakeLink{
		clock: newFakeClock(),
		fail:  func(int, uint8, uint16) bool { return true },
	}
	s := newSampler(t, Config{Devices: []uint8{1}, Registers: []uint16{1}, Cycles: 10}, l, nil)

	res := s.Run(context.Background())

	if l.closes != 1 {
		t.Fatalf("expected 1 close, got %d", l.closes)
	}
	if res.Errors != 10 || len(res.Buckets) != 0 {
		t.Fatalf("unexpected result: errors=%d buckets=%d", res.Errors, len(res.Buckets))
	}
	if res.CycleSpeedSum != 0 {
		t.Fatalf("all-failure cycles must contribute 0, got %v", res.CycleSpeedSum)
	}
}

func TestRun_CancelStopsBetweenCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := &fakeLink{clock: newFakeClock(), perRead: time.Millisecond}
	rec := &recorder{onCycle: func(c CycleResult) {
		if c.Index == 4 {
			cancel()
		}
	}}
	s := newSampler(t, Config{Devices: []uint8{1, 2}, Registers: []uint16{1}, Cycles: 100}, l, rec)

	res := s.Run(ctx)

	if res.CyclesRun != 5 {
		t.Fatalf("cycles run: got=%d want=5", res.CyclesRun)
	}
	if len(l.reads) != 10 {
		t.Fatalf("cycle must finish before stopping: reads=%d want=10", len(l.reads))
	}
	if l.closes != 1 {
		t.Fatalf("expected 1 close, got %d", l.closes)
	}
}
