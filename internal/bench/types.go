// internal/bench/types.go
package bench

import "time"

// DeviceResult is the outcome of one device-cycle:
// every configured register read once from one device, in order.
type DeviceResult struct {
	Cycle  int
	Device uint8

	// Values holds one value per register; nil on failure.
	Values []uint16

	// Latency spans the first request to the last response.
	// Zero on failure.
	Latency   time.Duration
	LatencyMs int64

	// Bucket is the time bucket the completion landed in and its count after it.
	Bucket      int64
	BucketCount int

	// Register is the register whose read failed.
	Register uint16
	Err      error // non-nil means the device-cycle was abandoned
}

// CycleResult summarizes one pass over all devices.
type CycleResult struct {
	Index  int
	Total  int
	Errors int

	// AvgSpeedMs is the mean device-cycle latency over all devices;
	// failed device-cycles count as 0.
	AvgSpeedMs float64
}

// SessionResult is everything Run collected, ready for Reduce.
type SessionResult struct {
	CyclesRun     int
	Errors        int
	CycleSpeedSum float64

	Buckets []Bucket

	// LatenciesMs holds every successful device-cycle latency.
	LatenciesMs []float64
}

// Bucket is one time slot and the number of device-cycles completed in it.
type Bucket struct {
	Key   int64
	Count int
}

// Observer receives progress events. Calls happen on the sampling goroutine.
type Observer interface {
	DevicePolled(DeviceResult)
	CycleDone(CycleResult)
}

type nopObserver struct{}

func (nopObserver) DevicePolled(DeviceResult) {}
func (nopObserver) CycleDone(CycleResult)     {}
