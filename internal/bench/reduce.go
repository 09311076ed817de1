// internal/bench/reduce.go
package bench

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// MinBuckets is the fewest distinct buckets that leave a steady-state sample
// once the two partial edge buckets are trimmed.
const MinBuckets = 3

// ErrInsufficientData means the session produced too few time buckets to
// compute a rate. Terminal: raise the cycle count and run again.
var ErrInsufficientData = errors.New("bench: insufficient data to compute rates")

// ReduceInput is what Reduce consumes.
type ReduceInput struct {
	// Buckets in first-seen order.
	Buckets       []Bucket
	BucketWidth   time.Duration
	Errors        int
	Cycles        int
	Registers     int
	CycleSpeedSum float64
	LatenciesMs   []float64
}

// Report is the final benchmark summary.
type Report struct {
	// Steady holds the buckets left after trimming.
	Steady []Bucket

	// AvgRequestMs is the time per completed device-cycle derived from throughput.
	AvgRequestMs float64
	// AvgRegisterMs is AvgRequestMs spread over the registers of one device-cycle.
	AvgRegisterMs float64
	// AvgCycleMs is the straight mean of per-cycle average speeds.
	AvgCycleMs float64

	TotalErrors int

	// Latency is nil when no device-cycle succeeded.
	Latency *Distribution
}

// Distribution describes successful device-cycle latencies in milliseconds.
type Distribution struct {
	Samples int
	Min     float64
	Median  float64
	P95     float64
	Max     float64
}

// NewReduceInput bundles a session result with the geometry it ran under.
func NewReduceInput(res SessionResult, registers int, width time.Duration) ReduceInput {
	return ReduceInput{
		Buckets:       res.Buckets,
		BucketWidth:   width,
		Errors:        res.Errors,
		Cycles:        res.CyclesRun,
		Registers:     registers,
		CycleSpeedSum: res.CycleSpeedSum,
		LatenciesMs:   res.LatenciesMs,
	}
}

// Reduce trims the first and last bucket and derives the summary figures.
// It returns ErrInsufficientData when fewer than MinBuckets buckets exist.
// Reduce is pure: the same input always yields the same Report.
func Reduce(in ReduceInput) (Report, error) {
	if len(in.Buckets) < MinBuckets || in.Cycles < 1 {
		return Report{}, fmt.Errorf("%w: %d buckets over %d cycles", ErrInsufficientData, len(in.Buckets), in.Cycles)
	}
	if in.Registers < 1 {
		return Report{}, errors.New("bench: register count must be >= 1")
	}

	width := in.BucketWidth
	if width <= 0 {
		width = time.Second
	}

	// ---- trim partial edges ----

	steady := make([]Bucket, len(in.Buckets)-2)
	copy(steady, in.Buckets[1:len(in.Buckets)-1])

	counts := make(stats.Float64Data, 0, len(steady))
	for _, b := range steady {
		counts = append(counts, float64(b.Count))
	}

	mean, err := counts.Mean()
	if err != nil || mean <= 0 {
		return Report{}, fmt.Errorf("%w: empty steady state", ErrInsufficientData)
	}

	// ---- derived figures ----

	perSecond := mean / width.Seconds()
	avgRequest := round2(1000 / perSecond)

	rep := Report{
		Steady:        steady,
		AvgRequestMs:  avgRequest,
		AvgRegisterMs: round2(avgRequest / float64(in.Registers)),
		AvgCycleMs:    round2(in.CycleSpeedSum / float64(in.Cycles)),
		TotalErrors:   in.Errors,
		Latency:       distribution(in.LatenciesMs),
	}

	return rep, nil
}

func distribution(samples []float64) *Distribution {
	if len(samples) == 0 {
		return nil
	}

	data := stats.Float64Data(samples)

	// errors only occur on empty input, ruled out above
	minV, _ := data.Min()
	maxV, _ := data.Max()
	median, _ := data.Median()
	p95, _ := data.Percentile(95)

	return &Distribution{
		Samples: len(samples),
		Min:     minV,
		Median:  median,
		P95:     p95,
		Max:     maxV,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
