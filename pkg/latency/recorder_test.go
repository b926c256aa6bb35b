package latency

import "testing"

func TestRecordAndSnapshotInterval(t *testing.T) {
	r := NewRecorder(sixtySecondsMicros, sigFigs)
	r.Record(100)
	r.Record(200)

	snap := r.SnapshotInterval()
	if snap.TotalCount() != 2 {
		t.Fatalf("TotalCount() = %d, want 2", snap.TotalCount())
	}

	// Interval recorder is cleared after the snapshot.
	empty := r.SnapshotInterval()
	if empty.TotalCount() != 0 {
		t.Fatalf("expected cleared recorder, got TotalCount=%d", empty.TotalCount())
	}
}

func TestSnapshotDoesNotClear(t *testing.T) {
	r := NewRecorder(sixtySecondsMicros, sigFigs)
	r.Record(500)

	first := r.Snapshot()
	second := r.Snapshot()
	if first.TotalCount() != 1 || second.TotalCount() != 1 {
		t.Fatalf("cumulative Snapshot should not clear: got %d then %d", first.TotalCount(), second.TotalCount())
	}
}

func TestRecordClampsAboveCeiling(t *testing.T) {
	r := NewRecorder(1000, sigFigs)
	r.Record(10_000_000)
	snap := r.SnapshotInterval()
	if snap.Max() > 1000 {
		t.Fatalf("Max() = %d, want clamped to <= 1000", snap.Max())
	}
}

func TestPairRecordsBothInIntervalAndCumulative(t *testing.T) {
	p := newPair(sixtySecondsMicros)
	p.Record(42)

	interval := p.SnapshotInterval()
	if interval.TotalCount() != 1 {
		t.Fatalf("interval TotalCount() = %d, want 1", interval.TotalCount())
	}

	cumulative := p.SnapshotCumulative()
	if cumulative.TotalCount() != 1 {
		t.Fatalf("cumulative TotalCount() = %d, want 1", cumulative.TotalCount())
	}

	// Interval was cleared by the snapshot above; cumulative was not.
	intervalAgain := p.SnapshotInterval()
	if intervalAgain.TotalCount() != 0 {
		t.Fatalf("expected interval cleared, got %d", intervalAgain.TotalCount())
	}
	cumulativeAgain := p.SnapshotCumulative()
	if cumulativeAgain.TotalCount() != 1 {
		t.Fatalf("expected cumulative retained, got %d", cumulativeAgain.TotalCount())
	}
}

func TestRecordersSnapshotsTileTimeline(t *testing.T) {
	r := New()
	r.Publish.Record(10)
	r.Publish.Record(20)

	first := r.SnapshotInterval()
	if first.Publish.TotalCount() != 2 {
		t.Fatalf("first interval snapshot count = %d, want 2", first.Publish.TotalCount())
	}

	r.Publish.Record(30)
	second := r.SnapshotInterval()
	if second.Publish.TotalCount() != 1 {
		t.Fatalf("second interval snapshot count = %d, want 1", second.Publish.TotalCount())
	}

	cumulative := r.SnapshotCumulative()
	if cumulative.Publish.TotalCount() != 3 {
		t.Fatalf("cumulative count = %d, want 3 (tiling all interval snapshots)", cumulative.Publish.TotalCount())
	}
}

func TestResetClearsEverything(t *testing.T) {
	r := New()
	r.Delay.Record(5)
	r.Reset()

	if got := r.SnapshotCumulative().Delay.TotalCount(); got != 0 {
		t.Fatalf("Reset should clear cumulative too, got count=%d", got)
	}
}
