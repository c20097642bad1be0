package utils

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LatencyTracker keeps the most recent samples in a ring and reports quantiles over them.
type LatencyTracker struct {
	mu    sync.Mutex
	ring  []float64
	next  int
	total int
}

// LatencySummary is a point-in-time view of a tracker.
type LatencySummary struct {
	Samples int
	P50     time.Duration
	P95     time.Duration
	Max     time.Duration
}

// NewLatencyTracker creates a tracker holding up to size samples (512 when size <= 0).
func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 512
	}
	return &LatencyTracker{ring: make([]float64, 0, size)}
}

// Observe records d, overwriting the oldest sample once the ring is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	if len(l.ring) < cap(l.ring) {
		l.ring = append(l.ring, float64(d))
		return
	}
	l.ring[l.next] = float64(d)
	l.next = (l.next + 1) % len(l.ring)
}

// Percentile returns the empirical p-th percentile (0-100), or zero without samples.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	sorted := l.sorted()
	if len(sorted) == 0 {
		return 0
	}
	return quantile(sorted, p)
}

// Count returns the number of samples currently held.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ring)
}

// Total returns the number of samples observed since creation.
func (l *LatencyTracker) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Summary reports p50, p95 and max over the held samples.
func (l *LatencyTracker) Summary() LatencySummary {
	sorted := l.sorted()
	if len(sorted) == 0 {
		return LatencySummary{}
	}
	return LatencySummary{
		Samples: len(sorted),
		P50:     quantile(sorted, 50),
		P95:     quantile(sorted, 95),
		Max:     duration(sorted[len(sorted)-1]),
	}
}

func (l *LatencyTracker) sorted() []float64 {
	l.mu.Lock()
	out := append([]float64(nil), l.ring...)
	l.mu.Unlock()
	sort.Float64s(out)
	return out
}

func quantile(sorted []float64, p float64) time.Duration {
	switch {
	case p <= 0:
		return duration(sorted[0])
	case p >= 100:
		return duration(sorted[len(sorted)-1])
	}
	return duration(stat.Quantile(p/100, stat.Empirical, sorted, nil))
}

func duration(v float64) time.Duration {
	return time.Duration(v)
}
