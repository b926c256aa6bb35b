package counters

import "testing"

func TestRecordSendUpdatesSessionAndTotal(t *testing.T) {
	s := New()
	s.RecordSend(64)
	s.RecordSend(64)

	snap := s.ResetSession()
	if snap.MessagesSent != 2 || snap.BytesSent != 128 {
		t.Fatalf("unexpected session snapshot: %+v", snap)
	}

	totals := s.Totals()
	if totals.TotalMessagesSent != 2 {
		t.Fatalf("totals.TotalMessagesSent = %d, want 2", totals.TotalMessagesSent)
	}

	// Session counters reset, totals don't.
	snap2 := s.ResetSession()
	if snap2.MessagesSent != 0 {
		t.Fatalf("expected session reset, got %+v", snap2)
	}
	if totals2 := s.Totals(); totals2.TotalMessagesSent != 2 {
		t.Fatalf("totals must survive session reset, got %+v", totals2)
	}
}

func TestResetAllClearsTotals(t *testing.T) {
	s := New()
	s.RecordSend(1)
	s.RecordError()
	s.RecordReceive(1)

	s.ResetAll()

	totals := s.Totals()
	if totals != (TotalsSnapshot{}) {
		t.Fatalf("ResetAll must clear totals, got %+v", totals)
	}
}

func TestErrorsAndPollErrorsIndependent(t *testing.T) {
	s := New()
	s.RecordError()
	s.RecordPollError()
	s.RecordPollError()

	snap := s.ResetSession()
	if snap.Errors != 1 || snap.PollErrors != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
