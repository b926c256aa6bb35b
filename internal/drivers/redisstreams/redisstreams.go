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

// Package redisstreams implements driver.Driver against Redis Streams via
// github.com/redis/go-redis/v9, using XADD to produce and a consumer-group
// XREADGROUP poll loop to deliver. The client construction and
// context-with-timeout-per-call style mirrors a typical go-redis wrapper,
// generalized from a single call surface to the fuller producer/consumer
// contract this driver needs.
package redisstreams

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/etalazz/benchworker/internal/driver"
)

const DriverClass = "redisstreams"

// field is the single stream-entry field sends are stored under.
const field = "payload"

func init() {
	driver.Register(DriverClass, func(cfg driver.Config) (driver.Driver, error) {
		addr := "127.0.0.1:6379"
		if v, ok := cfg.Get("addr"); ok {
			if s, ok := v.(string); ok && s != "" {
				addr = s
			}
		}
		prefix := "benchworker"
		if v, ok := cfg.Get("topicNamePrefix"); ok {
			if s, ok := v.(string); ok && s != "" {
				prefix = s
			}
		}
		return New(addr, prefix), nil
	})
}

// Driver is a driver.Driver backed by one Redis client and a fixed topic
// name prefix; each topic is a Redis Stream key.
type Driver struct {
	client *redis.Client
	prefix string
}

// New constructs a Driver dialing addr. Topics created through this driver
// are Redis Streams; partitions are accepted for interface compatibility
// but have no effect, since a Stream has no partition concept.
func New(addr, prefix string) *Driver {
	return &Driver{client: redis.NewClient(&redis.Options{Addr: addr}), prefix: prefix}
}

func (d *Driver) TopicNamePrefix() string { return d.prefix }

func (d *Driver) CreateTopic(ctx context.Context, name string, _ int) error {
	// XGROUP CREATE with MKSTREAM creates the stream if absent and a
	// default consumer group a later CreateConsumer can also attach to;
	// BUSYGROUP (already exists) is not an error.
	err := d.client.XGroupCreateMkStream(ctx, name, defaultGroup, "$").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("redisstreams: create topic %q: %w", name, err)
	}
	return nil
}

func (d *Driver) ValidateTopicExists(ctx context.Context, name string) (bool, error) {
	n, err := d.client.Exists(ctx, name).Result()
	if err != nil {
		return false, fmt.Errorf("redisstreams: validate topic %q: %w", name, err)
	}
	return n > 0, nil
}

func (d *Driver) CreateProducer(_ context.Context, topic string) (driver.Producer, error) {
	return &producer{client: d.client, topic: topic}, nil
}

const defaultGroup = "benchworker"

func (d *Driver) CreateConsumer(ctx context.Context, topic, subscription string, cb driver.Callback) (driver.Consumer, error) {
	group := subscription
	if group == "" {
		group = defaultGroup
	}
	if err := d.client.XGroupCreateMkStream(ctx, topic, group, "$").Err(); err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("redisstreams: create consumer group %q on %q: %w", group, topic, err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	c := &consumer{client: d.client, topic: topic, group: group, consumerName: "c-1", cancel: cancel}
	c.wg.Add(1)
	go c.pollLoop(pollCtx, cb)
	return c, nil
}

func (d *Driver) Close() error {
	return d.client.Close()
}

func isBusyGroup(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}

type producer struct {
	client *redis.Client
	topic  string
}

// SendAsync dispatches an XADD on its own goroutine so the caller never
// blocks on network I/O: send_async must return immediately and run the
// caller's completion closure later, not block on dispatch.
func (p *producer) SendAsync(ctx context.Context, key *string, payload []byte, onComplete func(error)) {
	go func() {
		values := map[string]any{field: payload}
		if key != nil {
			values["key"] = *key
		}
		err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: p.topic, Values: values}).Err()
		onComplete(err)
	}()
}

func (p *producer) Close() error { return nil }

type consumer struct {
	client       *redis.Client
	topic        string
	group        string
	consumerName string

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// pollLoop repeatedly XREADGROUPs new entries and delivers each via
// OnMessagePrecomputed, since Redis supplies only the stream entry ID
// (whose millisecond-resolution timestamp prefix we can use to compute
// end-to-end latency ourselves before handing the driver's own
// measurement to the callback).
func (c *consumer) pollLoop(ctx context.Context, cb driver.Callback) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumerName,
			Streams:  []string{c.topic, ">"},
			Count:    64,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			cb.OnError()
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				c.deliver(ctx, cb, msg)
			}
		}
	}
}

func (c *consumer) deliver(ctx context.Context, cb driver.Callback, msg redis.XMessage) {
	raw, _ := msg.Values[field].(string)
	publishMs := entryTimestampMs(msg.ID)
	e2eNanos := (time.Now().UnixNano() - publishMs*1_000_000)
	cb.OnMessagePrecomputed(len(raw), e2eNanos)
	c.client.XAck(ctx, c.topic, c.group, msg.ID)
}

// entryTimestampMs parses the millisecond portion of a Redis Stream entry
// ID ("<ms>-<seq>").
func entryTimestampMs(id string) int64 {
	var ms int64
	for i := 0; i < len(id); i++ {
		if id[i] == '-' {
			break
		}
		ms = ms*10 + int64(id[i]-'0')
	}
	return ms
}

func (c *consumer) Close() error {
	c.cancel()
	c.wg.Wait()
	return nil
}
