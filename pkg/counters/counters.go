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

// Package counters implements the worker's counter set: six session
// counters that reset every period_stats call and three session totals
// that only reset on a full worker reset or stop. Every counter is a
// stripedcounter.Counter so increments stay lock-free under contention.
package counters

import "github.com/etalazz/benchworker/pkg/stripedcounter"

// Set holds all nine counters a worker tracks.
type Set struct {
	MessagesSent     *stripedcounter.Counter
	BytesSent        *stripedcounter.Counter
	Errors           *stripedcounter.Counter
	PollErrors       *stripedcounter.Counter
	MessagesReceived *stripedcounter.Counter
	BytesReceived    *stripedcounter.Counter

	TotalMessagesSent     *stripedcounter.Counter
	TotalErrors           *stripedcounter.Counter
	TotalMessagesReceived *stripedcounter.Counter
}

// New constructs a fresh, zeroed counter set.
func New() *Set {
	return &Set{
		MessagesSent:     stripedcounter.New(),
		BytesSent:        stripedcounter.New(),
		Errors:           stripedcounter.New(),
		PollErrors:       stripedcounter.New(),
		MessagesReceived: stripedcounter.New(),
		BytesReceived:    stripedcounter.New(),

		TotalMessagesSent:     stripedcounter.New(),
		TotalErrors:           stripedcounter.New(),
		TotalMessagesReceived: stripedcounter.New(),
	}
}

// RecordSend registers a single successful send of n bytes, bumping both
// the session and the never-reset total.
func (s *Set) RecordSend(n int64) {
	s.MessagesSent.Inc()
	s.BytesSent.Add(n)
	s.TotalMessagesSent.Inc()
}

// RecordError registers a failed send.
func (s *Set) RecordError() {
	s.Errors.Inc()
	s.TotalErrors.Inc()
}

// RecordPollError registers a delivery/poll error (e.g. a dropped
// negative-latency sample on the consumer side).
func (s *Set) RecordPollError() {
	s.PollErrors.Inc()
}

// RecordReceive registers a single received message of n bytes.
func (s *Set) RecordReceive(n int64) {
	s.MessagesReceived.Inc()
	s.BytesReceived.Add(n)
	s.TotalMessagesReceived.Inc()
}

// SessionSnapshot is the reset-on-read view over the six session counters:
// messages_sent, bytes_sent, errors, poll_errors, messages_received,
// bytes_received.
type SessionSnapshot struct {
	MessagesSent     int64
	BytesSent        int64
	Errors           int64
	PollErrors       int64
	MessagesReceived int64
	BytesReceived    int64
}

// ResetSession reads-and-resets the six per-interval counters. Totals are
// untouched — callers needing totals should read them separately via
// Totals(), before or after ResetSession.
func (s *Set) ResetSession() SessionSnapshot {
	return SessionSnapshot{
		MessagesSent:     s.MessagesSent.SumThenReset(),
		BytesSent:        s.BytesSent.SumThenReset(),
		Errors:           s.Errors.SumThenReset(),
		PollErrors:       s.PollErrors.SumThenReset(),
		MessagesReceived: s.MessagesReceived.SumThenReset(),
		BytesReceived:    s.BytesReceived.SumThenReset(),
	}
}

// TotalsSnapshot is the read-only view over the three never-reset totals.
type TotalsSnapshot struct {
	TotalMessagesSent     int64
	TotalErrors           int64
	TotalMessagesReceived int64
}

// Totals reads (without resetting) the three session-total counters.
func (s *Set) Totals() TotalsSnapshot {
	return TotalsSnapshot{
		TotalMessagesSent:     s.TotalMessagesSent.Sum(),
		TotalErrors:           s.TotalErrors.Sum(),
		TotalMessagesReceived: s.TotalMessagesReceived.Sum(),
	}
}

// ResetAll resets every counter, including totals. Only stop_all and a
// full worker reset are allowed to call this — reset_stats deliberately
// does not.
func (s *Set) ResetAll() {
	s.ResetSession()
	s.TotalMessagesSent.SumThenReset()
	s.TotalErrors.SumThenReset()
	s.TotalMessagesReceived.SumThenReset()
}
