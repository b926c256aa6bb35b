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

// Package ratelimiter implements the worker's deterministic, open-loop
// rate limiter. Unlike a token bucket that blocks callers internally,
// Acquire returns the nanosecond timestamp at which the
// caller's operation was intended to begin and lets the caller decide how
// to wait. This is what makes the limiter resistant to coordinated
// omission: a caller that arrives late still gets an intended time in the
// past, so send_time - intended_time is recorded honestly instead of
// being silently absorbed by the caller's tardiness.
package ratelimiter

import (
	"sync/atomic"
	"time"
)

// minRate is the floor enforced on any requested rate: rates below 1
// msg/s are clamped up to 1.
const minRate = 1.0

// Limiter paces Acquire calls at a fixed rate. The zero value is not
// usable; construct with New.
type Limiter struct {
	intervalNanos int64
	nextIntended  atomic.Int64
}

// New builds a Limiter targeting rate messages/sec (clamped to
// [1, +Inf)), with its first intended emission time set to now.
func New(rate float64) *Limiter {
	return newWithStart(rate, nowMonotonicNanos())
}

// newWithStart exists so tests can pin the starting instant.
func newWithStart(rate float64, startNanos int64) *Limiter {
	if rate < minRate {
		rate = minRate
	}
	l := &Limiter{intervalNanos: int64(1e9 / rate)}
	l.nextIntended.Store(startNanos)
	return l
}

// Acquire atomically reserves the next pacing slot and returns its
// intended nanosecond timestamp. It never blocks; the caller is
// responsible for waiting until the returned instant via SleepUntil.
func (l *Limiter) Acquire() int64 {
	return l.nextIntended.Add(l.intervalNanos) - l.intervalNanos
}

// Rate reports the limiter's configured rate in messages/sec.
func (l *Limiter) Rate() float64 {
	return 1e9 / float64(l.intervalNanos)
}

// coarseSleepQuantum bounds how long SleepUntil will block between checks
// of the cancellation signal, so a low-rate shutdown never hangs for a
// full inter-message interval.
const coarseSleepQuantum = 5 * time.Millisecond

// spinThreshold is how close to the target we switch from sleeping to a
// tight spin/yield loop, trading CPU for the sub-millisecond accuracy a
// coarse OS sleep can't guarantee.
const spinThreshold = int64(1500000) // 1.5ms in nanoseconds

// SleepUntil blocks the calling goroutine, uninterruptibly, until
// nowMonotonicNanos() has reached targetNanos, or until cancelled returns
// true at a coarse-sleep-quantum boundary. It never returns before
// targetNanos unless cancelled fires. For the final ~1.5ms it spins with
// runtime.Gosched() for sub-millisecond precision, since time.Sleep's OS
// scheduling granularity cannot be trusted at that resolution.
func SleepUntil(targetNanos int64, cancelled func() bool) {
	for {
		remaining := targetNanos - nowMonotonicNanos()
		if remaining <= 0 {
			return
		}
		if cancelled != nil && cancelled() {
			return
		}
		if remaining > spinThreshold {
			sleep := time.Duration(remaining - spinThreshold)
			if sleep > coarseSleepQuantum {
				sleep = coarseSleepQuantum
			}
			time.Sleep(sleep)
			continue
		}
		spinYield()
	}
}

var startInstant = time.Now()

// NowNanos returns a monotonic nanosecond clock reading shared by the
// limiter and its callers, so send_ns/intended_ns comparisons in the
// producer load engine are taken against the same clock Acquire used.
// time.Since on a value captured once at process start retains the
// runtime's monotonic clock reading transparently (Go's time package
// tracks it internally), giving a clock immune to wall-time adjustments.
func NowNanos() int64 {
	return int64(time.Since(startInstant))
}

func nowMonotonicNanos() int64 { return NowNanos() }
