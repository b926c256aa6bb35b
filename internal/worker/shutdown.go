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

import "time"

// StopAll sets test_completed, clears pause, resets every recorder and
// session counter (including totals), sleeps shutdownDrain to let
// in-flight sends finish, then closes producers, consumers, and the
// driver in that order, returning the worker to UNINITIALIZED (spec
// §4.7). Idempotent: a second call is a no-op.
func (w *Worker) StopAll() {
	w.mu.Lock()
	if w.state == Uninitialized {
		w.mu.Unlock()
		return
	}
	w.state = Stopping
	testCompleted := w.testCompleted
	cancel := w.runCancel
	paused := w.paused
	producers := w.producers
	consumers := w.consumers
	drv := w.drv
	engine := w.engine
	w.mu.Unlock()

	if testCompleted != nil {
		testCompleted.Store(true)
	}
	if paused != nil {
		paused.Store(false)
	}

	w.counters.ResetAll()
	w.recorders.Reset()

	time.Sleep(shutdownDrain)

	if cancel != nil {
		cancel()
	}
	if engine != nil {
		engine.Wait()
	}

	for _, p := range producers {
		if err := p.P.Close(); err != nil {
			w.log.Printf("error closing producer for topic %s: %v", p.Topic, err)
		}
	}
	for _, c := range consumers {
		if err := c.Close(); err != nil {
			w.log.Printf("error closing consumer: %v", err)
		}
	}
	if drv != nil {
		if err := drv.Close(); err != nil {
			w.log.Printf("error closing driver: %v", err)
		}
	}

	w.mu.Lock()
	w.producers = nil
	w.consumers = nil
	w.drv = nil
	w.engine = nil
	w.testCompleted = nil
	w.paused = nil
	w.runCtx = nil
	w.runCancel = nil
	w.state = Uninitialized
	w.mu.Unlock()

	w.log.Println("worker stopped")
}

// Close tears the worker down if it has not already been stopped. Safe to
// call from any state, including after StopAll has already run.
func (w *Worker) Close() error {
	w.StopAll()
	return nil
}
