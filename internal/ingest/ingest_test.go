package ingest

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/etalazz/benchworker/internal/metricsink"
	"github.com/etalazz/benchworker/pkg/counters"
	"github.com/etalazz/benchworker/pkg/latency"
)

func newPath() *Path {
	return &Path{
		Counters:  counters.New(),
		Recorders: latency.New(),
		Metrics:   metricsink.NoOp,
		Paused:    &atomic.Bool{},
	}
}

func TestOnMessageCountsAndRecordsLatency(t *testing.T) {
	p := newPath()
	publishMs := time.Now().Add(-5 * time.Millisecond).UnixNano() / 1_000_000

	p.OnMessage([]byte("hello"), publishMs)

	snap := p.Counters.ResetSession()
	if snap.MessagesReceived != 1 {
		t.Fatalf("MessagesReceived = %d, want 1", snap.MessagesReceived)
	}
	if snap.BytesReceived != 5 {
		t.Fatalf("BytesReceived = %d, want 5", snap.BytesReceived)
	}

	cum := p.Recorders.EndToEnd.SnapshotCumulative()
	if cum.TotalCount() != 1 {
		t.Fatalf("EndToEnd cumulative count = %d, want 1", cum.TotalCount())
	}
}

func TestOnMessageDropsNegativeLatencySilently(t *testing.T) {
	p := newPath()
	futureMs := time.Now().Add(time.Hour).UnixNano() / 1_000_000

	p.OnMessage([]byte("x"), futureMs)

	snap := p.Counters.ResetSession()
	if snap.MessagesReceived != 1 {
		t.Fatalf("message should still be counted, got %d", snap.MessagesReceived)
	}
	if snap.PollErrors != 0 {
		t.Fatalf("forms 1/2 must not record a poll error, got %d", snap.PollErrors)
	}
	if p.Recorders.EndToEnd.Cumulative.Snapshot().TotalCount() != 0 {
		t.Fatalf("a negative-latency sample must not be recorded")
	}
}

func TestOnMessageViewDelegatesToOnMessage(t *testing.T) {
	p := newPath()
	publishMs := time.Now().Add(-1 * time.Millisecond).UnixNano() / 1_000_000

	p.OnMessageView([]byte("view"), publishMs)

	snap := p.Counters.ResetSession()
	if snap.MessagesReceived != 1 {
		t.Fatalf("MessagesReceived = %d, want 1", snap.MessagesReceived)
	}
}

func TestOnMessagePrecomputedRecordsPositiveLatency(t *testing.T) {
	p := newPath()

	p.OnMessagePrecomputed(128, 2_000_000) // 2ms in nanoseconds

	snap := p.Counters.ResetSession()
	if snap.MessagesReceived != 1 || snap.BytesReceived != 128 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.PollErrors != 0 {
		t.Fatalf("PollErrors = %d, want 0", snap.PollErrors)
	}
}

func TestOnMessagePrecomputedNonPositiveIsPollError(t *testing.T) {
	p := newPath()

	p.OnMessagePrecomputed(64, 0)
	p.OnMessagePrecomputed(64, -10)

	snap := p.Counters.ResetSession()
	if snap.MessagesReceived != 2 {
		t.Fatalf("messages should still be counted, got %d", snap.MessagesReceived)
	}
	if snap.PollErrors != 2 {
		t.Fatalf("form 3 must record a poll error on non-positive latency, got %d", snap.PollErrors)
	}
}

func TestOnErrorRecordsPollError(t *testing.T) {
	p := newPath()
	p.OnError()
	if got := p.Counters.ResetSession().PollErrors; got != 1 {
		t.Fatalf("PollErrors = %d, want 1", got)
	}
}

func TestWaitWhilePausedReturnsImmediatelyWhenUnpaused(t *testing.T) {
	p := newPath()
	done := make(chan struct{})
	go func() {
		p.waitWhilePaused()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitWhilePaused blocked despite Paused=false")
	}
}

func TestWaitWhilePausedBlocksUntilResume(t *testing.T) {
	p := newPath()
	p.Paused.Store(true)
	done := make(chan struct{})
	go func() {
		p.waitWhilePaused()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("waitWhilePaused returned while still paused")
	case <-time.After(50 * time.Millisecond):
	}

	p.Paused.Store(false)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waitWhilePaused did not unblock after resume")
	}
}
