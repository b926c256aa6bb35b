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

package driver

import (
	"fmt"
	"sync"
)

// Factory builds a Driver from its config. It is registered under the
// driverClass string a coordinator names in its config file, replacing
// dynamic class loading with a compile-time registry so new drivers can
// self-register via an init() rather than growing a central switch.
type Factory func(cfg Config) (Driver, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a driver factory under name. Calling Register twice with
// the same name replaces the previous factory; this matches how a driver
// package would re-register itself if reloaded, and keeps tests able to
// install fakes without needing a separate test-only registry.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Build looks up cfg.DriverClass in the registry and constructs a Driver
// from it. An unknown class is a fatal configuration error.
func Build(cfg Config) (Driver, error) {
	registryMu.RLock()
	f, ok := registry[cfg.DriverClass]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("driver: unknown driverClass %q", cfg.DriverClass)
	}
	return f(cfg)
}
