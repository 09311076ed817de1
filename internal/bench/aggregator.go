// internal/bench/aggregator.go
package bench

import (
	"sync"
	"time"
)

// Aggregator counts completed device-cycles per time bucket.
//
// The first recorded instant is the origin; every later instant lands in
// bucket floor((at - origin) / width). Keys are kept in first-seen order,
// which is what trimming relies on. Only touched buckets exist.
type Aggregator struct {
	mu     sync.Mutex
	width  time.Duration
	origin time.Time
	seeded bool
	counts map[int64]int
	order  []int64
}

// NewAggregator returns an empty aggregator. width <= 0 means one second.
func NewAggregator(width time.Duration) *Aggregator {
	if width <= 0 {
		width = time.Second
	}
	return &Aggregator{
		width:  width,
		counts: make(map[int64]int),
	}
}

// Record counts one completion at instant at and returns its bucket and new count.
// Instants should carry a monotonic reading (time.Now does).
func (a *Aggregator) Record(at time.Time) (int64, int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.seeded {
		a.origin = at
		a.seeded = true
	}

	key := floorDiv(at.Sub(a.origin), a.width)

	n, seen := a.counts[key]
	if !seen {
		a.order = append(a.order, key)
	}
	n++
	a.counts[key] = n

	return key, n
}

// Buckets returns a copy of all buckets in first-seen order.
func (a *Aggregator) Buckets() []Bucket {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Bucket, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, Bucket{Key: k, Count: a.counts[k]})
	}
	return out
}

// Len is the number of distinct buckets touched so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

// Width is the bucket width.
func (a *Aggregator) Width() time.Duration {
	return a.width
}

func floorDiv(d, width time.Duration) int64 {
	q := d / width
	if d < 0 && d%width != 0 {
		q--
	}
	return int64(q)
}
