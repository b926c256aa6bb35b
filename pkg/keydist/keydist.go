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

// Package keydist implements the worker's per-message key distribution: a
// small, registry-extensible set of stateless-beyond-a-counter key
// generators.
package keydist

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Distributor produces the next key for a message. Implementations must
// be safe for concurrent use by multiple producer-load goroutines.
type Distributor interface {
	Next() (key string, ok bool)
}

// Type names the built-in distributor variants, mirroring the strings a
// coordinator would send in a ProducerWorkAssignment.
type Type string

const (
	NoKey         Type = "NO_KEY"
	KeyRoundRobin Type = "KEY_ROUND_ROBIN"
	RandomNano    Type = "RANDOM_NANO"
	HashKey       Type = "HASH_KEY"
)

// Factory builds a fresh Distributor instance.
type Factory func() Distributor

var (
	registryMu sync.RWMutex
	registry   = map[Type]Factory{
		NoKey:         func() Distributor { return noKey{} },
		KeyRoundRobin: func() Distributor { return &roundRobin{} },
		RandomNano:    func() Distributor { return &randomNano{} },
		HashKey:       func() Distributor { return &hashKey{} },
	}
)

// Register adds or replaces a named distributor variant. Driver-specific
// variants not covered by the built-ins can register themselves here at
// init time, the same registry-by-name shape used for drivers (see
// internal/driver.Register).
func Register(name Type, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New builds a Distributor for the named variant. An unknown name falls
// back to NoKey, the same unknown-enum-falls-back-to-default contract
// driver config uses.
func New(name Type) Distributor {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return noKey{}
	}
	return f()
}

// noKey always returns no key.
type noKey struct{}

func (noKey) Next() (string, bool) { return "", false }

// roundRobin cycles through an increasing integer sequence rendered as
// decimal, grounded on the hot/cold key cycling in
// tools/http-loadgen/main.go's zipf mode.
type roundRobin struct {
	n atomic.Uint64
}

func (r *roundRobin) Next() (string, bool) {
	v := r.n.Add(1) - 1
	return strconv.FormatUint(v, 10), true
}

// randomNano samples a fresh pseudo-random value per call. math/rand/v2's
// package-level generator is already safe for concurrent use and does not
// need external locking, unlike math/rand's legacy global source.
type randomNano struct{}

func (randomNano) Next() (string, bool) {
	return strconv.FormatUint(rand.Uint64(), 10), true
}

// hashKey derives a key by hashing a monotonically increasing counter with
// xxhash, giving a deterministic but well-distributed key stream —
// useful for drivers that shard by key hash and want reproducible runs.
type hashKey struct {
	n atomic.Uint64
}

func (h *hashKey) Next() (string, bool) {
	v := h.n.Add(1)
	sum := xxhash.Sum64(fmt.Appendf(nil, "%d", v))
	return strconv.FormatUint(sum, 16), true
}
