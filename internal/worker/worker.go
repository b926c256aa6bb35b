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

// Package worker implements the benchmark worker's lifecycle state machine
// and the operations a coordinator drives it through: init the driver,
// create topics/producers/consumers, run and steer a load, and tear
// everything down on stop_all. One struct owns the shared mutable state
// and the goroutines driving it, guarded by a single mutex.
package worker

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/etalazz/benchworker/internal/driver"
	"github.com/etalazz/benchworker/internal/ingest"
	"github.com/etalazz/benchworker/internal/loadengine"
	"github.com/etalazz/benchworker/internal/metricsink"
	"github.com/etalazz/benchworker/pkg/counters"
	"github.com/etalazz/benchworker/pkg/latency"
)

// State is a position in the worker's lifecycle.
type State int

const (
	Uninitialized State = iota
	Ready
	Loaded
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Ready:
		return "READY"
	case Loaded:
		return "LOADED"
	case Running:
		return "RUNNING"
	case Stopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// shutdownDrain is how long stop_all waits for in-flight sends to drain
// before closing producers/consumers/driver.
const shutdownDrain = 100 * time.Millisecond

// TopicsInfo selects between reusing existing topics and creating fresh
// ones.
type TopicsInfo struct {
	ExistingTopics     []string
	NumberOfTopics     int
	PartitionsPerTopic int
}

// ConsumerSpec is one (topic, subscription) pair from a ConsumerAssignment.
type ConsumerSpec struct {
	Topic        string
	Subscription string
}

// Worker is the singleton coordinating driver, producers, consumers, the
// rate limiter, counters, and recorders.
type Worker struct {
	log       *log.Logger
	metrics   metricsink.Sink
	counters  *counters.Set
	recorders *latency.Recorders

	mu    sync.Mutex
	state State

	drv       driver.Driver
	producers []loadengine.Producer
	consumers []driver.Consumer

	engine        *loadengine.Engine
	testCompleted *atomic.Bool
	paused        *atomic.Bool

	runCtx    context.Context
	runCancel context.CancelFunc
}

// New constructs an UNINITIALIZED Worker. A nil logger defaults to the
// standard library's package logger with a "[benchworker] " prefix.
func New(logger *log.Logger, metrics metricsink.Sink) *Worker {
	if logger == nil {
		logger = log.New(log.Writer(), "[benchworker] ", log.LstdFlags)
	}
	if metrics == nil {
		metrics = metricsink.NoOp
	}
	return &Worker{
		log:       logger,
		metrics:   metrics,
		counters:  counters.New(),
		recorders: latency.New(),
		state:     Uninitialized,
	}
}

// State reports the worker's current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// InitializeDriver builds the driver named by cfg.DriverClass via the
// driver registry and transitions UNINITIALIZED -> READY. Rejected if a
// driver is already initialized — at most one active driver per worker.
func (w *Worker) InitializeDriver(cfg driver.Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Uninitialized {
		return fmt.Errorf("worker: initialize_driver: already initialized (state=%s)", w.state)
	}

	d, err := driver.Build(cfg)
	if err != nil {
		return fmt.Errorf("worker: initialize_driver: %w", err)
	}

	w.drv = d
	w.state = Ready
	w.log.Printf("driver initialized: class=%s prefix=%s", cfg.DriverClass, d.TopicNamePrefix())
	return nil
}

// CreateOrValidateTopics validates each name in info.ExistingTopics if
// given, otherwise creates
// info.NumberOfTopics fresh topics named
// "{prefix}-{random8}-{index:04}" with info.PartitionsPerTopic partitions.
func (w *Worker) CreateOrValidateTopics(ctx context.Context, info TopicsInfo) ([]string, error) {
	w.mu.Lock()
	d := w.drv
	state := w.state
	w.mu.Unlock()

	if state != Ready && state != Loaded {
		return nil, fmt.Errorf("worker: create_or_validate_topics: invalid state %s", state)
	}
	if d == nil {
		return nil, fmt.Errorf("worker: create_or_validate_topics: no driver initialized")
	}

	if len(info.ExistingTopics) > 0 {
		for _, name := range info.ExistingTopics {
			ok, err := d.ValidateTopicExists(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("worker: validate topic %q: %w", name, err)
			}
			if !ok {
				return nil, fmt.Errorf("worker: create_or_validate_topics: topic %q does not exist", name)
			}
		}
		return info.ExistingTopics, nil
	}

	prefix := d.TopicNamePrefix()
	names := make([]string, 0, info.NumberOfTopics)
	for i := 0; i < info.NumberOfTopics; i++ {
		name := fmt.Sprintf("%s-%s-%04d", prefix, randomAlnum8(), i)
		if err := d.CreateTopic(ctx, name, info.PartitionsPerTopic); err != nil {
			return nil, fmt.Errorf("worker: create topic %q: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// CreateProducers builds one producer per topic, in order, and transitions
// toward LOADED once at least one producer or consumer is present.
func (w *Worker) CreateProducers(ctx context.Context, topics []string) error {
	w.mu.Lock()
	d := w.drv
	w.mu.Unlock()

	if d == nil {
		return fmt.Errorf("worker: create_producers: no driver initialized")
	}

	producers := make([]loadengine.Producer, 0, len(topics))
	for _, topic := range topics {
		p, err := d.CreateProducer(ctx, topic)
		if err != nil {
			return fmt.Errorf("worker: create producer for topic %q: %w", topic, err)
		}
		producers = append(producers, loadengine.Producer{Topic: topic, P: p})
	}

	w.mu.Lock()
	w.producers = producers
	w.advanceToLoadedLocked()
	w.mu.Unlock()
	return nil
}

// CreateConsumers builds one consumer per (topic, subscription) pair,
// wiring each to an ingest.Path sharing this worker's counters/recorders.
func (w *Worker) CreateConsumers(ctx context.Context, assignment []ConsumerSpec) error {
	w.mu.Lock()
	d := w.drv
	paused := w.paused
	w.mu.Unlock()

	if d == nil {
		return fmt.Errorf("worker: create_consumers: no driver initialized")
	}
	if paused == nil {
		paused = &atomic.Bool{}
	}

	path := &ingest.Path{
		Counters:  w.counters,
		Recorders: w.recorders,
		Metrics:   w.metrics,
		Paused:    paused,
	}

	consumers := make([]driver.Consumer, 0, len(assignment))
	for _, spec := range assignment {
		c, err := d.CreateConsumer(ctx, spec.Topic, spec.Subscription, path)
		if err != nil {
			return fmt.Errorf("worker: create consumer for topic %q subscription %q: %w", spec.Topic, spec.Subscription, err)
		}
		consumers = append(consumers, c)
	}

	w.mu.Lock()
	w.consumers = consumers
	w.paused = paused
	w.advanceToLoadedLocked()
	w.mu.Unlock()
	return nil
}

// advanceToLoadedLocked moves READY -> LOADED once at least one producer
// or consumer has been created; must be called with w.mu held.
func (w *Worker) advanceToLoadedLocked() {
	if w.state == Ready && (len(w.producers) > 0 || len(w.consumers) > 0) {
		w.state = Loaded
	}
}

func randomAlnum8() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, 8)
	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		// crypto/rand.Read on the standard reader does not fail in
		// practice on supported platforms; fall back to a fixed
		// pattern rather than propagate an error from a naming helper.
		for i := range raw {
			raw[i] = byte(i)
		}
	}
	for i, b := range raw {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}
