package loadengine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etalazz/benchworker/internal/driver"
	"github.com/etalazz/benchworker/pkg/counters"
	"github.com/etalazz/benchworker/pkg/keydist"
	"github.com/etalazz/benchworker/pkg/latency"
)

type recordingProducer struct {
	topic string
	mu    sync.Mutex
	keys  []string
	n     atomic.Int64
	fail  func(n int64) bool
}

func (p *recordingProducer) SendAsync(_ context.Context, key *string, _ []byte, onComplete func(error)) {
	n := p.n.Add(1)
	k := ""
	if key != nil {
		k = *key
	}
	p.mu.Lock()
	p.keys = append(p.keys, k)
	p.mu.Unlock()
	go func() {
		if p.fail != nil && p.fail(n) {
			onComplete(fmt.Errorf("synthetic failure"))
			return
		}
		onComplete(nil)
	}()
}

func (p *recordingProducer) Close() error { return nil }

var _ driver.Producer = (*recordingProducer)(nil)

func newEngine(t *testing.T) (*Engine, *counters.Set, *latency.Recorders, *atomic.Bool) {
	t.Helper()
	c := counters.New()
	r := latency.New()
	testCompleted := &atomic.Bool{}
	logger := log.New(log.Writer(), "", 0)
	e := New(logger, c, r, testCompleted)
	return e, c, r, testCompleted
}

func TestEngineDrivesAllProducersAndRecordsSends(t *testing.T) {
	e, c, r, testCompleted := newEngine(t)

	producers := []Producer{
		{Topic: "a", P: &recordingProducer{topic: "a"}},
		{Topic: "b", P: &recordingProducer{topic: "b"}},
	}

	e.Start(context.Background(), producers, Assignment{
		PublishRate:     2000,
		KeyDistribution: keydist.NoKey,
		PayloadData:     [][]byte{[]byte("0123456789abcdef")},
	})

	time.Sleep(150 * time.Millisecond)
	testCompleted.Store(true)
	e.Wait()

	sent := c.ResetSession()
	if sent.MessagesSent == 0 {
		t.Fatal("expected at least one message_sent recorded")
	}
	if r.Publish.Cumulative.Snapshot().TotalCount() == 0 {
		t.Fatal("expected publish latency samples")
	}
	if r.Schedule.Cumulative.Snapshot().TotalCount() == 0 {
		t.Fatal("expected schedule latency samples")
	}
}

func TestEngineRecordsErrorsOnFailedSend(t *testing.T) {
	e, c, _, testCompleted := newEngine(t)

	fp := &recordingProducer{topic: "a", fail: func(n int64) bool { return true }}
	producers := []Producer{{Topic: "a", P: fp}}

	e.Start(context.Background(), producers, Assignment{
		PublishRate:     1000,
		KeyDistribution: keydist.NoKey,
		PayloadData:     [][]byte{[]byte("x")},
	})

	time.Sleep(80 * time.Millisecond)
	testCompleted.Store(true)
	e.Wait()

	snap := c.ResetSession()
	if snap.Errors == 0 {
		t.Fatal("expected recorded send errors")
	}
	if snap.MessagesSent != 0 {
		t.Fatalf("MessagesSent = %d, want 0 (every send fails)", snap.MessagesSent)
	}
}

func TestEngineHonorsKeyDistribution(t *testing.T) {
	e, _, _, testCompleted := newEngine(t)

	fp := &recordingProducer{topic: "a"}
	producers := []Producer{{Topic: "a", P: fp}}

	e.Start(context.Background(), producers, Assignment{
		PublishRate:     1000,
		KeyDistribution: keydist.KeyRoundRobin,
		PayloadData:     [][]byte{[]byte("x")},
	})

	time.Sleep(80 * time.Millisecond)
	testCompleted.Store(true)
	e.Wait()

	fp.mu.Lock()
	defer fp.mu.Unlock()
	if len(fp.keys) == 0 {
		t.Fatal("expected at least one send")
	}
	if fp.keys[0] != "0" {
		t.Fatalf("first round-robin key = %q, want \"0\"", fp.keys[0])
	}
}

func TestNumGroupsBoundedByProducerCount(t *testing.T) {
	if got := numGroups(1); got != 1 {
		t.Fatalf("numGroups(1) = %d, want 1", got)
	}
	if got := numGroups(0); got != 1 {
		t.Fatalf("numGroups(0) = %d, want 1", got)
	}
}

func TestPartitionDistributesRoundRobinAndDropsEmptyGroups(t *testing.T) {
	producers := []Producer{{Topic: "a"}, {Topic: "b"}, {Topic: "c"}}
	groups := partition(producers, 5)
	if len(groups) != 3 {
		t.Fatalf("got %d non-empty groups, want 3 (one producer each)", len(groups))
	}
	for _, g := range groups {
		if len(g) != 1 {
			t.Fatalf("group size = %d, want 1", len(g))
		}
	}
}
