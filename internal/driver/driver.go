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

// Package driver defines the broker-specific contract the core consumes —
// Driver, Producer, Consumer, and the consumer Callback — plus a
// build-by-name registry of compile-time-registered factories in place of
// dynamic class loading.
package driver

import "context"

// Config is the opaque driver configuration a coordinator has already
// decoded from YAML/JSON before handing it to initialize_driver. Parsing
// the config file itself is out of scope for this core; unknown keys are
// ignored by whichever driver reads them.
type Config struct {
	DriverClass string
	Raw         map[string]any
}

// Get reads a key from the raw config, returning ok=false for a missing
// key so drivers can fall back to defaults instead of panicking on a
// missing or mistyped value.
func (c Config) Get(key string) (any, bool) {
	if c.Raw == nil {
		return nil, false
	}
	v, ok := c.Raw[key]
	return v, ok
}

// Driver is the broker-specific factory the core drives through its
// lifecycle: topic management, and producer/consumer construction.
type Driver interface {
	// TopicNamePrefix returns the prefix created-topic names are built
	// from: "{prefix}-{random8}-{index:04}".
	TopicNamePrefix() string
	CreateTopic(ctx context.Context, name string, partitions int) error
	ValidateTopicExists(ctx context.Context, name string) (bool, error)
	CreateProducer(ctx context.Context, topic string) (Producer, error)
	CreateConsumer(ctx context.Context, topic, subscription string, cb Callback) (Consumer, error)
	Close() error
}

// Producer sends messages asynchronously. SendAsync must not block past
// dispatch: onComplete is invoked once the broker has acknowledged (or
// failed) the send, on whatever goroutine the driver's I/O completion runs
// on — the core does not constrain this. key is nil for NO_KEY-distributed
// sends.
type Producer interface {
	SendAsync(ctx context.Context, key *string, payload []byte, onComplete func(error))
	Close() error
}

// Consumer represents a subscription the driver is actively delivering
// messages for via the Callback supplied to CreateConsumer.
type Consumer interface {
	Close() error
}

// Callback is the per-message delivery contract a Consumer drives. Exactly
// one of OnMessage, OnMessageView, or OnMessagePrecomputed is called per
// delivered message, depending on what the driver already knows:
//
//   - OnMessage: the driver read the full payload into an owned buffer.
//   - OnMessageView: the driver can hand over a zero-copy view into its
//     own buffer; the callback must not retain it past the call.
//   - OnMessagePrecomputed: the driver already computed the end-to-end
//     latency itself (e.g. from broker-side timestamps) and only passes
//     the payload size and the elapsed nanoseconds.
//
// OnError reports a delivery/poll failure with no associated message.
type Callback interface {
	OnMessage(payload []byte, publishTimestampMs int64)
	OnMessageView(payload []byte, publishTimestampMs int64)
	OnMessagePrecomputed(payloadSize int, e2eLatencyNanos int64)
	OnError()
}
