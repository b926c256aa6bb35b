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

package latency

import "time"

// Ceilings: 60s in microseconds for publish/schedule/delay, 12h in
// microseconds for end-to-end, all at 5 significant digits.
const (
	sixtySecondsMicros = int64(60 * time.Second / time.Microsecond)
	twelveHoursMicros  = int64(12 * time.Hour / time.Microsecond)
	sigFigs            = 5
)

// Pair bundles an interval recorder (cleared on every period_stats call)
// with a cumulative recorder (snapshotted without clearing, reset only by
// reset_stats/stop_all).
type Pair struct {
	Interval   *Recorder
	Cumulative *Recorder
}

func newPair(maxValue int64) Pair {
	return Pair{
		Interval:   NewRecorder(maxValue, sigFigs),
		Cumulative: NewRecorder(maxValue, sigFigs),
	}
}

// Record adds value (in microseconds) to both recorders in the pair.
func (p Pair) Record(value int64) {
	p.Interval.Record(value)
	p.Cumulative.Record(value)
}

// SnapshotInterval snapshots and clears the interval recorder.
func (p Pair) SnapshotInterval() Snapshot { return p.Interval.SnapshotInterval() }

// SnapshotCumulative snapshots the cumulative recorder without clearing it.
func (p Pair) SnapshotCumulative() Snapshot { return p.Cumulative.Snapshot() }

// Reset clears both recorders in the pair.
func (p Pair) Reset() {
	p.Interval.Reset()
	p.Cumulative.Reset()
}

// Recorders holds the worker's four latency metric pairs.
type Recorders struct {
	Publish  Pair // recorded in send-completion: now - sendTime
	Schedule Pair // recorded immediately after send_async returns: now - sendTime
	Delay    Pair // recorded in send-completion: sendTime - intendedSendTime
	EndToEnd Pair // recorded in consumer callback: now - publishTimestamp
}

// New constructs a fresh Recorders with the default ceilings.
func New() *Recorders {
	return &Recorders{
		Publish:  newPair(sixtySecondsMicros),
		Schedule: newPair(sixtySecondsMicros),
		Delay:    newPair(sixtySecondsMicros),
		EndToEnd: newPair(twelveHoursMicros),
	}
}

// PeriodSnapshot is the four interval snapshots returned by
// get_period_stats.
type PeriodSnapshot struct {
	Publish  Snapshot
	Schedule Snapshot
	Delay    Snapshot
	EndToEnd Snapshot
}

// SnapshotInterval snapshots and clears all four interval recorders.
func (r *Recorders) SnapshotInterval() PeriodSnapshot {
	return PeriodSnapshot{
		Publish:  r.Publish.SnapshotInterval(),
		Schedule: r.Schedule.SnapshotInterval(),
		Delay:    r.Delay.SnapshotInterval(),
		EndToEnd: r.EndToEnd.SnapshotInterval(),
	}
}

// CumulativeSnapshot is the four cumulative snapshots returned by
// get_cumulative_latencies.
type CumulativeSnapshot struct {
	Publish  Snapshot
	Schedule Snapshot
	Delay    Snapshot
	EndToEnd Snapshot
}

// SnapshotCumulative snapshots all four cumulative recorders without
// clearing them.
func (r *Recorders) SnapshotCumulative() CumulativeSnapshot {
	return CumulativeSnapshot{
		Publish:  r.Publish.SnapshotCumulative(),
		Schedule: r.Schedule.SnapshotCumulative(),
		Delay:    r.Delay.SnapshotCumulative(),
		EndToEnd: r.EndToEnd.SnapshotCumulative(),
	}
}

// Reset clears all eight underlying histograms (interval and cumulative
// for all four metrics). Used by reset_stats and stop_all.
func (r *Recorders) Reset() {
	r.Publish.Reset()
	r.Schedule.Reset()
	r.Delay.Reset()
	r.EndToEnd.Reset()
}
