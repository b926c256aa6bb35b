package noop

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etalazz/benchworker/internal/driver"
)

type countingCallback struct {
	mu       sync.Mutex
	received int
}

func (c *countingCallback) OnMessage(_ []byte, _ int64) {
	c.mu.Lock()
	c.received++
	c.mu.Unlock()
}
func (c *countingCallback) OnMessageView(p []byte, ts int64)          { c.OnMessage(p, ts) }
func (c *countingCallback) OnMessagePrecomputed(_ int, _ int64) {}
func (c *countingCallback) OnError()                            {}

func TestBuildRegistersUnderDriverClass(t *testing.T) {
	d, err := driver.Build(driver.Config{DriverClass: DriverClass})
	if err != nil {
		t.Fatal(err)
	}
	if d.TopicNamePrefix() != "noop-topic" {
		t.Fatalf("default prefix = %q", d.TopicNamePrefix())
	}
}

func TestCreateTopicThenValidate(t *testing.T) {
	d := &Driver{prefix: "x"}
	ctx := context.Background()
	if err := d.CreateTopic(ctx, "t1", 3); err != nil {
		t.Fatal(err)
	}
	ok, err := d.ValidateTopicExists(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("expected t1 to validate, ok=%v err=%v", ok, err)
	}
	ok, err = d.ValidateTopicExists(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("expected missing topic to fail validation, ok=%v err=%v", ok, err)
	}
}

func TestSendAsyncCompletesImmediately(t *testing.T) {
	d := &Driver{prefix: "x"}
	p, err := d.CreateProducer(context.Background(), "t")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	p.SendAsync(context.Background(), nil, []byte("hi"), func(err error) { done <- err })
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("SendAsync never completed")
	}
}

func TestFailEveryNthInjectsErrors(t *testing.T) {
	d := &Driver{prefix: "x", failEveryNth: 3}
	p, err := d.CreateProducer(context.Background(), "t")
	if err != nil {
		t.Fatal(err)
	}
	var failures atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 9; i++ {
		wg.Add(1)
		p.SendAsync(context.Background(), nil, []byte("x"), func(err error) {
			defer wg.Done()
			if err != nil {
				failures.Add(1)
			}
		})
	}
	wg.Wait()
	if failures.Load() != 3 {
		t.Fatalf("failures = %d, want 3 (every 3rd of 9 sends)", failures.Load())
	}
}

func TestLoopbackDeliversToConsumer(t *testing.T) {
	d := &Driver{prefix: "x", loopback: true}
	cb := &countingCallback{}
	if _, err := d.CreateConsumer(context.Background(), "t", "sub", cb); err != nil {
		t.Fatal(err)
	}
	p, err := d.CreateProducer(context.Background(), "t")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	p.SendAsync(context.Background(), nil, []byte("x"), func(error) { close(done) })
	<-done

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		cb.mu.Lock()
		n := cb.received
		cb.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("loopback delivery did not reach consumer callback")
}
