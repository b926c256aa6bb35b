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

// Package ingest implements the worker's consumer ingest path: the
// per-message callback that records size, end-to-end latency, and honors
// the pause gate. The pause-gate's coarse tick loop mirrors a
// ticker-and-select shape, generalized from "tick until stop" to "tick
// until unpaused".
package ingest

import (
	"sync/atomic"
	"time"

	"github.com/etalazz/benchworker/internal/driver"
	"github.com/etalazz/benchworker/internal/metricsink"
	"github.com/etalazz/benchworker/pkg/counters"
	"github.com/etalazz/benchworker/pkg/latency"
)

// pauseTick is how often the callback rechecks the pause flag while
// blocked.
const pauseTick = time.Second

// Path implements driver.Callback, wiring deliveries into the shared
// counters and end-to-end recorders.
type Path struct {
	Counters  *counters.Set
	Recorders *latency.Recorders
	Metrics   metricsink.Sink
	Paused    *atomic.Bool
}

var _ driver.Callback = (*Path)(nil)

// waitWhilePaused blocks in pauseTick-sized ticks while Paused is true,
// intentionally applying back-pressure to the driver's delivery pipeline.
func (p *Path) waitWhilePaused() {
	if p.Paused == nil {
		return
	}
	for p.Paused.Load() {
		time.Sleep(pauseTick)
	}
}

// OnMessage handles the owned-buffer delivery shape (form 1): the driver
// only knows the publish timestamp in milliseconds, so end-to-end latency
// is derived from wall-clock subtraction. A negative latency (clock skew,
// or a publish timestamp in the future) is dropped silently but the
// message is still counted — the documented forms-1/2 policy, kept
// deliberately asymmetric with form 3 below.
func (p *Path) OnMessage(payload []byte, publishTimestampMs int64) {
	p.waitWhilePaused()
	p.countReceive(len(payload))
	e2eLatencyUs := (time.Now().UnixNano() - publishTimestampMs*1_000_000) / 1000
	if e2eLatencyUs <= 0 {
		return
	}
	p.recordEndToEnd(e2eLatencyUs)
}

// OnMessageView is the zero-copy delivery shape (form 2). Behavior is
// identical to OnMessage; the distinction exists so a driver that can hand
// over a view into its own buffer (instead of an owned copy) has a method
// name that documents that contract at the call site.
func (p *Path) OnMessageView(payload []byte, publishTimestampMs int64) {
	p.OnMessage(payload, publishTimestampMs)
}

// OnMessagePrecomputed is the driver-computed-latency shape (form 3). Here
// a non-positive latency is a poll error, not a silent drop: form 3
// signals a real measurement failure on the driver's part (it already did
// the subtraction), while forms 1/2 only reflect this process's clock skew
// against the publisher's.
func (p *Path) OnMessagePrecomputed(payloadSize int, e2eLatencyNanos int64) {
	p.waitWhilePaused()
	p.countReceive(payloadSize)
	if e2eLatencyNanos <= 0 {
		p.Counters.RecordPollError()
		return
	}
	p.recordEndToEnd(e2eLatencyNanos / 1000)
}

// OnError reports a delivery/poll failure with no associated message.
func (p *Path) OnError() {
	p.Counters.RecordPollError()
}

func (p *Path) countReceive(size int) {
	p.Counters.RecordReceive(int64(size))
	p.Metrics.Counter("messages_received").Inc()
	p.Metrics.Counter("bytes_received").Add(float64(size))
}

func (p *Path) recordEndToEnd(latencyUs int64) {
	p.Recorders.EndToEnd.Record(latencyUs)
	p.Metrics.OpStats("end_to_end_latency").RegisterSuccessfulEvent(float64(latencyUs), "us")
}
