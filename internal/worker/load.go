// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/etalazz/benchworker/internal/loadengine"
)

// probePayloadSize and probeKey are probe_producers' fixed parameters: a
// 24-byte payload with key "key".
const probePayloadSize = 24

var probeKey = "key"

// StartLoad configures the rate limiter and key distributor from
// assignment and launches the producer load engine, transitioning
// LOADED -> RUNNING. An empty payload set is rejected up front rather than
// dereferencing payloads[0] later on an empty slice.
func (w *Worker) StartLoad(ctx context.Context, assignment loadengine.Assignment) error {
	if len(assignment.PayloadData) == 0 {
		return fmt.Errorf("worker: start_load: payload_data must be non-empty")
	}

	w.mu.Lock()
	if w.state != Loaded {
		w.mu.Unlock()
		return fmt.Errorf("worker: start_load: invalid state %s", w.state)
	}
	producers := w.producers
	testCompleted := &atomic.Bool{}
	w.testCompleted = testCompleted
	runCtx, cancel := context.WithCancel(ctx)
	w.runCtx = runCtx
	w.runCancel = cancel
	engine := loadengine.New(w.log, w.counters, w.recorders, testCompleted)
	w.engine = engine
	w.state = Running
	w.mu.Unlock()

	engine.Start(runCtx, producers, assignment)
	w.log.Printf("load started: rate=%.2f producers=%d key_distribution=%s", assignment.PublishRate, len(producers), assignment.KeyDistribution)
	return nil
}

// AdjustPublishRate atomically replaces the rate limiter reference;
// in-flight acquire() results from the prior limiter are honored.
func (w *Worker) AdjustPublishRate(rate float64) error {
	w.mu.Lock()
	engine := w.engine
	state := w.state
	w.mu.Unlock()

	if state != Running || engine == nil {
		return fmt.Errorf("worker: adjust_publish_rate: invalid state %s", state)
	}
	engine.AdjustRate(rate)
	w.log.Printf("publish rate adjusted to %.2f", rate)
	return nil
}

// PauseConsumers sets the pause gate the consumer ingest path blocks on.
func (w *Worker) PauseConsumers() {
	w.mu.Lock()
	paused := w.paused
	w.mu.Unlock()
	if paused != nil {
		paused.Store(true)
	}
}

// ResumeConsumers clears the pause gate.
func (w *Worker) ResumeConsumers() {
	w.mu.Lock()
	paused := w.paused
	w.mu.Unlock()
	if paused != nil {
		paused.Store(false)
	}
}

// ProbeProducers sends one fixed 24-byte payload with key "key" through
// every producer to warm up and verify reachability; only
// total_messages_sent is incremented on success.
func (w *Worker) ProbeProducers(ctx context.Context) error {
	w.mu.Lock()
	producers := w.producers
	w.mu.Unlock()

	if len(producers) == 0 {
		return fmt.Errorf("worker: probe_producers: no producers created")
	}

	payload := make([]byte, probePayloadSize)

	var wg sync.WaitGroup
	errs := make([]error, len(producers))
	wg.Add(len(producers))
	for i, p := range producers {
		i, p := i, p
		done := make(chan struct{})
		p.P.SendAsync(ctx, &probeKey, payload, func(err error) {
			errs[i] = err
			close(done)
		})
		go func() {
			defer wg.Done()
			<-done
			if errs[i] == nil {
				w.counters.TotalMessagesSent.Inc()
			} else {
				w.log.Printf("probe failed for topic %s: %v", p.Topic, errs[i])
			}
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("worker: probe_producers: topic %q: %w", producers[i].Topic, err)
		}
	}
	return nil
}
