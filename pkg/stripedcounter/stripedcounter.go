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

// Package stripedcounter provides a lock-free, cache-line-padded additive
// accumulator for use under heavy concurrent writer contention. It is the
// striping technique behind vsa.VSA's hot Update path, generalized into a
// pure monotonic/additive counter with no scalar budget or commit semantics.
package stripedcounter

import (
	"runtime"
	"sync/atomic"
)

// padSize over-pads each stripe to a full cache line (64 bytes is typical,
// 128 covers adjacent-line prefetch on most modern x86/ARM parts) so that two
// goroutines incrementing neighboring stripes never false-share a line.
const padSize = 128 - 8

type stripe struct {
	val atomic.Int64
	_   [padSize]byte
}

// Counter is a striped 64-bit additive accumulator. The zero value is not
// usable; construct with New.
type Counter struct {
	stripes []stripe
	mask    int
	chooser atomic.Uint64
}

// New creates a Counter sized to the current GOMAXPROCS, clamped to
// [8, 64] and rounded up to a power of two, matching vsa.VSA's default
// stripe sizing.
func New() *Counter {
	p := runtime.GOMAXPROCS(0)
	n := nextPow2(clamp(p, 8, 64))
	return &Counter{stripes: make([]stripe, n), mask: n - 1}
}

// Add atomically adds delta to one stripe, chosen round-robin across
// goroutines via an atomic counter to spread contention.
func (c *Counter) Add(delta int64) {
	idx := int(c.chooser.Add(1)) & c.mask
	c.stripes[idx].val.Add(delta)
}

// Inc is shorthand for Add(1).
func (c *Counter) Inc() { c.Add(1) }

// Sum returns the current total without resetting it.
func (c *Counter) Sum() int64 {
	var sum int64
	for i := range c.stripes {
		sum += c.stripes[i].val.Load()
	}
	return sum
}

// SumThenReset atomically drains every stripe, returning the sum observed
// at drain time. Concurrent Add calls that land after a given stripe has
// been drained are preserved for the next SumThenReset; this makes
// SumThenReset safe to call from one reader while many writers Add
// concurrently, at the cost of a small amount of fuzz at the read
// boundary — a handful of values recorded right at drain time can land in
// either snapshot.
func (c *Counter) SumThenReset() int64 {
	var sum int64
	for i := range c.stripes {
		sum += c.stripes[i].val.Swap(0)
	}
	return sum
}

func nextPow2(x int) int {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	return x + 1
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
