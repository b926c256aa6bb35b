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

// Package noop implements an in-memory driver.Driver that completes every
// send immediately and by default never delivers to consumers — the reference driver
// for rate-accuracy and error-injection test scenarios that need a broker
// with negligible latency. Optionally loops back sends into its own
// consumers so pause/back-pressure scenarios can run without a real
// broker. Registers itself under driver class "noop" at init time,
// following the registry-by-name pattern in internal/driver.
package noop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/etalazz/benchworker/internal/driver"
)

const DriverClass = "noop"

func init() {
	driver.Register(DriverClass, func(cfg driver.Config) (driver.Driver, error) {
		d := &Driver{prefix: "noop-topic"}
		if v, ok := cfg.Get("topicNamePrefix"); ok {
			if s, ok := v.(string); ok && s != "" {
				d.prefix = s
			}
		}
		if v, ok := cfg.Get("failEveryNth"); ok {
			switch n := v.(type) {
			case int:
				d.failEveryNth = int64(n)
			case float64:
				d.failEveryNth = int64(n)
			}
		}
		if v, ok := cfg.Get("loopback"); ok {
			if b, ok := v.(bool); ok {
				d.loopback = b
			}
		}
		return d, nil
	})
}

// Driver is the in-memory reference driver.
type Driver struct {
	prefix       string
	failEveryNth int64 // 0 disables error injection
	loopback     bool

	mu               sync.Mutex
	topics           map[string]int
	consumersByTopic map[string][]*consumerHandle
	sent             atomic.Int64
}

func (d *Driver) TopicNamePrefix() string { return d.prefix }

func (d *Driver) CreateTopic(_ context.Context, name string, partitions int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.topics == nil {
		d.topics = make(map[string]int)
	}
	d.topics[name] = partitions
	return nil
}

func (d *Driver) ValidateTopicExists(_ context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.topics[name]
	return ok, nil
}

func (d *Driver) CreateProducer(_ context.Context, topic string) (driver.Producer, error) {
	return &producer{driver: d, topic: topic}, nil
}

// subscribersFor returns the consumer handles currently registered for
// topic, looked up at send time so CreateProducer/CreateConsumer ordering
// (a coordinator may call either first) never loses loopback delivery.
func (d *Driver) subscribersFor(topic string) []*consumerHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*consumerHandle(nil), d.consumersByTopic[topic]...)
}

func (d *Driver) CreateConsumer(_ context.Context, topic, _ string, cb driver.Callback) (driver.Consumer, error) {
	c := &consumerHandle{cb: cb}
	d.mu.Lock()
	if d.consumersByTopic == nil {
		d.consumersByTopic = make(map[string][]*consumerHandle)
	}
	d.consumersByTopic[topic] = append(d.consumersByTopic[topic], c)
	d.mu.Unlock()
	return c, nil
}

func (d *Driver) Close() error { return nil }

type producer struct {
	driver *Driver
	topic  string
}

func (p *producer) SendAsync(_ context.Context, _ *string, payload []byte, onComplete func(error)) {
	n := p.driver.sent.Add(1)
	if p.driver.failEveryNth > 0 && n%p.driver.failEveryNth == 0 {
		go onComplete(fmt.Errorf("noop: synthetic failure on send #%d", n))
		return
	}
	if p.driver.loopback {
		publishMs := time.Now().UnixNano() / 1_000_000
		for _, c := range p.driver.subscribersFor(p.topic) {
			c := c
			go c.cb.OnMessage(payload, publishMs)
		}
	}
	go onComplete(nil)
}

func (p *producer) Close() error { return nil }

type consumerHandle struct {
	cb driver.Callback
}

func (c *consumerHandle) Close() error { return nil }
