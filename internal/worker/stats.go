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
	"github.com/etalazz/benchworker/pkg/counters"
	"github.com/etalazz/benchworker/pkg/latency"
)

// PeriodStats is the snapshot returned by get_period_stats.
type PeriodStats struct {
	Session  counters.SessionSnapshot
	Totals   counters.TotalsSnapshot
	Interval latency.PeriodSnapshot
}

// GetPeriodStats reads-and-resets the six session counters, reads (without
// resetting) the three totals, and snapshots-and-clears the four interval
// recorders, in that order: counter resets precede recorder snapshots, so a
// record arriving between the two may land in this interval's histogram
// but be counted in the next snapshot's counters.
func (w *Worker) GetPeriodStats() PeriodStats {
	session := w.counters.ResetSession()
	totals := w.counters.Totals()
	interval := w.recorders.SnapshotInterval()
	return PeriodStats{Session: session, Totals: totals, Interval: interval}
}

// GetCumulativeLatencies snapshots the four cumulative recorders without
// clearing them.
func (w *Worker) GetCumulativeLatencies() latency.CumulativeSnapshot {
	return w.recorders.SnapshotCumulative()
}

// CountersStats is the totals-only view get_counters_stats returns.
type CountersStats struct {
	MessagesSent     int64
	MessagesReceived int64
}

// GetCountersStats reads totals only.
func (w *Worker) GetCountersStats() CountersStats {
	totals := w.counters.Totals()
	return CountersStats{
		MessagesSent:     totals.TotalMessagesSent,
		MessagesReceived: totals.TotalMessagesReceived,
	}
}

// ResetStats clears the six session counters and every recorder.
// Total counters are deliberately left untouched here — only stop_all
// resets totals.
func (w *Worker) ResetStats() {
	w.counters.ResetSession()
	w.recorders.Reset()
}
