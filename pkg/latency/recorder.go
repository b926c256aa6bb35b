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

// Package latency implements the worker's four latency recorder pairs:
// publish, schedule, publish-delay, and end-to-end, each an
// interval/cumulative pair of HDR histograms. Values above the configured
// ceiling are clamped into the top bucket instead of failing the record
// call.
package latency

import (
	"encoding/json"
	"sync"

	"github.com/codahale/hdrhistogram"
)

// Snapshot is an immutable view of one histogram, decoupled from the live
// recorder it was taken from.
type Snapshot struct {
	hist *hdrhistogram.Histogram
}

// ValueAtQuantile returns the value at the given percentile (0-100).
func (s Snapshot) ValueAtQuantile(q float64) int64 {
	if s.hist == nil {
		return 0
	}
	return s.hist.ValueAtQuantile(q)
}

// TotalCount returns the number of samples the snapshot holds.
func (s Snapshot) TotalCount() int64 {
	if s.hist == nil {
		return 0
	}
	return s.hist.TotalCount()
}

// Max returns the largest recorded value in the snapshot.
func (s Snapshot) Max() int64 {
	if s.hist == nil {
		return 0
	}
	return s.hist.Max()
}

// Mean returns the arithmetic mean of the snapshot's recorded values.
func (s Snapshot) Mean() float64 {
	if s.hist == nil {
		return 0
	}
	return s.hist.Mean()
}

// MarshalJSON renders a snapshot as the handful of percentiles a
// coordinator actually consumes, rather than the full histogram bucket
// layout.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int64   `json:"count"`
		Mean  float64 `json:"mean"`
		P50   int64   `json:"p50"`
		P95   int64   `json:"p95"`
		P99   int64   `json:"p99"`
		Max   int64   `json:"max"`
	}{
		Count: s.TotalCount(),
		Mean:  s.Mean(),
		P50:   s.ValueAtQuantile(50),
		P95:   s.ValueAtQuantile(95),
		P99:   s.ValueAtQuantile(99),
		Max:   s.Max(),
	})
}

// Recorder is a single concurrent-safe HDR histogram with interval
// snapshot semantics: SnapshotInterval atomically swaps the live
// histogram for an empty one and returns the previous contents, while
// Snapshot takes an immutable copy without clearing anything.
type Recorder struct {
	mu       sync.Mutex
	live     *hdrhistogram.Histogram
	minValue int64
	maxValue int64
	sigFigs  int
}

// NewRecorder constructs a Recorder tracking values in [1, maxValue] at
// the given number of significant decimal digits.
func NewRecorder(maxValue int64, sigFigs int) *Recorder {
	return &Recorder{
		live:     hdrhistogram.New(1, maxValue, sigFigs),
		minValue: 1,
		maxValue: maxValue,
		sigFigs:  sigFigs,
	}
}

// Record adds a single value, clamping it into [minValue, maxValue] rather
// than rejecting it on overflow. The histogram's own floor of 1 means
// non-positive values, which should never be recorded in practice, are
// clamped up rather than silently dropped by the underlying library.
func (r *Recorder) Record(value int64) {
	if value < r.minValue {
		value = r.minValue
	}
	if value > r.maxValue {
		value = r.maxValue
	}
	r.mu.Lock()
	r.live.RecordValue(value)
	r.mu.Unlock()
}

// SnapshotInterval atomically swaps out the live histogram for an empty
// one and returns an immutable snapshot of everything recorded since the
// previous SnapshotInterval call.
func (r *Recorder) SnapshotInterval() Snapshot {
	fresh := hdrhistogram.New(r.minValue, r.maxValue, r.sigFigs)
	r.mu.Lock()
	prev := r.live
	r.live = fresh
	r.mu.Unlock()
	return Snapshot{hist: prev}
}

// Snapshot takes an immutable copy of the live histogram without clearing
// it, used for the cumulative recorder in each pair.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	cp := hdrhistogram.Import(r.live.Export())
	r.mu.Unlock()
	return Snapshot{hist: cp}
}

// Reset clears the live histogram in place, used by reset_stats/stop_all.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.live = hdrhistogram.New(r.minValue, r.maxValue, r.sigFigs)
	r.mu.Unlock()
}
