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

// Package loadengine implements the worker's producer load engine: a
// fan-out of producer-driving goroutines across CPU cores, each running
// the coordinated-omission-resistant hot send loop. The goroutine fan-out
// sized off runtime.GOMAXPROCS mirrors a worker-pool launch loop; the
// send-completion closure capturing sendTime/intendedSendTime mirrors a
// produceInner/handler shape from a Kafka verifier tool.
package loadengine

import (
	"context"
	"log"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/etalazz/benchworker/internal/driver"
	"github.com/etalazz/benchworker/pkg/counters"
	"github.com/etalazz/benchworker/pkg/keydist"
	"github.com/etalazz/benchworker/pkg/latency"
	"github.com/etalazz/benchworker/pkg/ratelimiter"
)

// maxInFlightPerGroup bounds outstanding async sends per task group so a
// stalled broker grows memory, not without limit — the rate limiter keeps
// advancing through a stall, and a bound here keeps that tolerated
// pathology from becoming an OOM.
const maxInFlightPerGroup = 4096

// Assignment describes one start_load call's producer work.
type Assignment struct {
	PublishRate      float64
	KeyDistribution  keydist.Type
	PayloadData      [][]byte
	MaxInFlightGroup int64 // 0 uses maxInFlightPerGroup
}

// Producer pairs a driver.Producer with the topic it was created for,
// purely for diagnostics/logging.
type Producer struct {
	Topic string
	P     driver.Producer
}

// Engine drives a fixed set of producers at a configurable, atomically
// adjustable rate, recording into the shared counters and recorders.
type Engine struct {
	log       *log.Logger
	counters  *counters.Set
	recorders *latency.Recorders

	limiter atomic.Pointer[ratelimiter.Limiter]
	keydist atomic.Pointer[keydist.Distributor]

	payloads    [][]byte
	maxInFlight int64

	testCompleted *atomic.Bool

	wg sync.WaitGroup
}

// New builds an Engine. testCompleted is shared with the owning Worker so
// stop_all's cooperative-cancellation flag is visible to every task
// goroutine within one loop iteration.
func New(log *log.Logger, c *counters.Set, r *latency.Recorders, testCompleted *atomic.Bool) *Engine {
	return &Engine{log: log, counters: c, recorders: r, testCompleted: testCompleted}
}

// Start partitions producers round-robin into min(GOMAXPROCS, len(producers))
// groups and launches one goroutine per group. payloads must be non-empty;
// callers (Worker.StartLoad) are responsible for rejecting an empty
// payload set, rather than this engine dereferencing payloads[0] on an
// empty slice.
func (e *Engine) Start(ctx context.Context, producers []Producer, a Assignment) {
	e.payloads = a.PayloadData
	e.maxInFlight = a.MaxInFlightGroup
	if e.maxInFlight <= 0 {
		e.maxInFlight = maxInFlightPerGroup
	}
	e.limiter.Store(ratelimiter.New(a.PublishRate))
	d := keydist.New(a.KeyDistribution)
	e.keydist.Store(&d)

	groups := partition(producers, numGroups(len(producers)))
	e.wg.Add(len(groups))
	for _, g := range groups {
		g := g
		go func() {
			defer e.wg.Done()
			e.runGroup(ctx, g)
		}()
	}
}

// AdjustRate atomically swaps the limiter reference; in-flight Acquire
// results from the old limiter are honored.
func (e *Engine) AdjustRate(rate float64) {
	e.limiter.Store(ratelimiter.New(rate))
}

// Wait blocks until every task goroutine has observed test completion and
// exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func numGroups(producerCount int) int {
	n := runtime.GOMAXPROCS(0)
	if producerCount < n {
		n = producerCount
	}
	if n < 1 {
		n = 1
	}
	return n
}

// partition assigns producers round-robin across numGroups groups.
func partition(producers []Producer, numGroups int) [][]Producer {
	groups := make([][]Producer, numGroups)
	for i, p := range producers {
		g := i % numGroups
		groups[g] = append(groups[g], p)
	}
	nonEmpty := groups[:0]
	for _, g := range groups {
		if len(g) > 0 {
			nonEmpty = append(nonEmpty, g)
		}
	}
	return nonEmpty
}

// runGroup is one task's hot loop: sequential traversal within the group
// so one slow producer only throttles its own task's pacing, never
// another task's.
func (e *Engine) runGroup(ctx context.Context, group []Producer) {
	sem := semaphore.NewWeighted(e.maxInFlight)
	for !e.testCompleted.Load() {
		for _, p := range group {
			if e.testCompleted.Load() {
				return
			}
			e.sendOne(ctx, sem, p)
		}
	}
}

func (e *Engine) sendOne(ctx context.Context, sem *semaphore.Weighted, p Producer) {
	payload := e.choosePayload()

	limiter := e.limiter.Load()
	intendedNanos := limiter.Acquire()
	ratelimiter.SleepUntil(intendedNanos, e.testCompleted.Load)
	if e.testCompleted.Load() {
		return
	}

	sendNanos := ratelimiter.NowNanos()
	var key *string
	if d := e.keydist.Load(); d != nil {
		if k, ok := (*d).Next(); ok {
			key = &k
		}
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return
	}

	payloadLen := int64(len(payload))
	p.P.SendAsync(ctx, key, payload, func(err error) {
		defer sem.Release(1)
		if err != nil {
			e.counters.RecordError()
			e.log.Printf("send error on topic %s: %v", p.Topic, err)
			return
		}
		now := ratelimiter.NowNanos()
		e.counters.RecordSend(payloadLen)
		e.recorders.Publish.Record((now - sendNanos) / 1000)
		e.recorders.Delay.Record((sendNanos - intendedNanos) / 1000)
	})

	scheduleLatencyMicros := (ratelimiter.NowNanos() - sendNanos) / 1000
	e.recorders.Schedule.Record(scheduleLatencyMicros)
}

func (e *Engine) choosePayload() []byte {
	if len(e.payloads) == 0 {
		return nil
	}
	if len(e.payloads) == 1 {
		return e.payloads[0]
	}
	return e.payloads[rand.IntN(len(e.payloads))]
}
