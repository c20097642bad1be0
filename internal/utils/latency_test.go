package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	for i := 1; i <= 5; i++ {
		tracker.Observe(time.Duration(i*10) * time.Millisecond)
	}

	if tracker.Count() != 5 {
		t.Fatalf("expected 5 samples, got %d", tracker.Count())
	}
	if p95 := tracker.Percentile(95); p95 < 40*time.Millisecond {
		t.Fatalf("expected p95 >= 40ms, got %v", p95)
	}
	if p0 := tracker.Percentile(0); p0 != 10*time.Millisecond {
		t.Fatalf("expected p0 = 10ms, got %v", p0)
	}
}

func TestLatencyTrackerRingOverwritesOldest(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 || tracker.Total() != 10 {
		t.Fatalf("expected 3 held of 10 observed, got %d of %d", tracker.Count(), tracker.Total())
	}
	// only 7, 8 and 9 remain
	if min := tracker.Percentile(0); min != 7*time.Millisecond {
		t.Fatalf("expected oldest samples evicted, min %v", min)
	}
}

func TestLatencySummary(t *testing.T) {
	if s := NewLatencyTracker(4).Summary(); s.Samples != 0 || s.Max != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
	tracker := NewLatencyTracker(4)
	tracker.Observe(time.Millisecond)
	tracker.Observe(3 * time.Millisecond)
	s := tracker.Summary()
	if s.Samples != 2 || s.Max != 3*time.Millisecond || s.P50 != time.Millisecond {
		t.Fatalf("unexpected summary %+v", s)
	}
}
