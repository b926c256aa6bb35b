package ratelimiter

import (
	"testing"
	"time"
)

func TestAcquireAdvancesByInterval(t *testing.T) {
	l := newWithStart(1000, 0) // 1000 msg/s -> 1ms interval
	first := l.Acquire()
	second := l.Acquire()
	if first != 0 {
		t.Fatalf("first Acquire() = %d, want 0", first)
	}
	if second != int64(time.Millisecond) {
		t.Fatalf("second Acquire() = %d, want %d", second, int64(time.Millisecond))
	}
}

func TestRateClampedToFloor(t *testing.T) {
	l := New(0.5)
	if got := l.Rate(); got != minRate {
		t.Fatalf("Rate() = %v, want %v", got, minRate)
	}
}

func TestAcquireIsMonotonicUnderConcurrency(t *testing.T) {
	l := newWithStart(100000, 0)
	const n = 1000
	results := make(chan int64, n)
	for i := 0; i < n; i++ {
		go func() { results <- l.Acquire() }()
	}
	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		v := <-results
		if seen[v] {
			t.Fatalf("duplicate intended timestamp %d: acquire is not exclusive", v)
		}
		seen[v] = true
	}
}

func TestSleepUntilWaitsForTarget(t *testing.T) {
	l := newWithStart(1000, nowMonotonicNanos())
	target := l.Acquire()
	start := time.Now()
	SleepUntil(target, nil)
	if time.Now().Before(start) {
		t.Fatalf("SleepUntil returned before waiting")
	}
	if nowMonotonicNanos() < target {
		t.Fatalf("SleepUntil returned before reaching target")
	}
}

func TestSleepUntilHonorsCancellation(t *testing.T) {
	target := nowMonotonicNanos() + int64(time.Hour)
	cancelled := false
	done := make(chan struct{})
	go func() {
		SleepUntil(target, func() bool { return cancelled })
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancelled = true
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SleepUntil did not observe cancellation within a bounded window")
	}
}
