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

// Package metricsink defines the hierarchical metrics-sink contract the
// core hands down to drivers: scope(name), counter(name), and
// op_stats(name). A no-op implementation is the default.
package metricsink

// OpStats records successful-event observations of a named operation,
// analogous to a timer/histogram in a metrics library.
type OpStats interface {
	RegisterSuccessfulEvent(value float64, unit string)
}

// Counter is a simple monotonic named counter.
type Counter interface {
	Inc()
	Add(n float64)
}

// Sink is a hierarchical metrics namespace. Scope returns a child sink
// whose metric names are implicitly prefixed by name, so a driver can
// build e.g. sink.Scope("producer").Counter("sent").Inc() without the
// core needing to know the driver's naming scheme.
type Sink interface {
	Scope(name string) Sink
	Counter(name string) Counter
	OpStats(name string) OpStats
}

// NoOp is the default Sink: every call is a cheap, allocation-free no-op.
var NoOp Sink = noopSink{}

type noopSink struct{}

func (noopSink) Scope(string) Sink      { return noopSink{} }
func (noopSink) Counter(string) Counter { return noopCounter{} }
func (noopSink) OpStats(string) OpStats { return noopOpStats{} }

type noopCounter struct{}

func (noopCounter) Inc()        {}
func (noopCounter) Add(float64) {}

type noopOpStats struct{}

func (noopOpStats) RegisterSuccessfulEvent(float64, string) {}
