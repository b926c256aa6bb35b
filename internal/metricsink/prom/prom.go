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

// Package prom implements metricsink.Sink on top of
// github.com/prometheus/client_golang: counter/histogram vectors registered
// on a private per-Sink registry, plus a dedicated /metrics endpoint served
// on its own goroutine.
package prom

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/etalazz/benchworker/internal/metricsink"
)

// Sink is a metricsink.Sink backed by a Prometheus registry. Unlike the
// package-level global vars in prom_counters.go, metric objects here are
// created lazily per distinct name and cached, since scope/counter/op_stats
// names are only known once the worker starts driving a producer/consumer
// assignment.
type Sink struct {
	registry *prometheus.Registry
	prefix   string

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	histos   map[string]*prometheus.HistogramVec
}

// New constructs a root Sink registered against a fresh Prometheus
// registry, and starts a dedicated /metrics HTTP server on addr if addr is
// non-empty — mirroring startMetricsEndpoint in prom_counters.go.
func New(addr string) *Sink {
	s := &Sink{
		registry: prometheus.NewRegistry(),
		counters: make(map[string]*prometheus.CounterVec),
		histos:   make(map[string]*prometheus.HistogramVec),
	}
	if addr != "" {
		s.startMetricsEndpoint(addr)
	}
	return s
}

func (s *Sink) startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}

// Scope returns a child Sink whose metric names are prefixed with
// name + "_", sharing the same underlying registry and caches.
func (s *Sink) Scope(name string) metricsink.Sink {
	prefix := name
	if s.prefix != "" {
		prefix = s.prefix + "_" + name
	}
	return &Sink{registry: s.registry, prefix: prefix, counters: s.counters, histos: s.histos, mu: sync.Mutex{}}
}

func (s *Sink) fullName(name string) string {
	if s.prefix == "" {
		return sanitize(name)
	}
	return sanitize(s.prefix + "_" + name)
}

func sanitize(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "-", "_"), ".", "_")
}

// Counter returns (creating and registering on first use) a
// prometheus.CounterVec-backed counter for name.
func (s *Sink) Counter(name string) metricsink.Counter {
	full := s.fullName(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	cv, ok := s.counters[full]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: full,
			Help: "benchworker counter " + full,
		}, nil)
		s.registry.MustRegister(cv)
		s.counters[full] = cv
	}
	return counterMetric{cv.WithLabelValues()}
}

// OpStats returns (creating and registering on first use) a
// prometheus.HistogramVec-backed op-stats recorder for name.
func (s *Sink) OpStats(name string) metricsink.OpStats {
	full := s.fullName(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	hv, ok := s.histos[full]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    full,
			Help:    "benchworker op stats " + full,
			Buckets: prometheus.DefBuckets,
		}, []string{"unit"})
		s.registry.MustRegister(hv)
		s.histos[full] = hv
	}
	return opStatsMetric{hv}
}

type counterMetric struct {
	c prometheus.Counter
}

func (m counterMetric) Inc()          { m.c.Inc() }
func (m counterMetric) Add(n float64) { m.c.Add(n) }

type opStatsMetric struct {
	hv *prometheus.HistogramVec
}

func (m opStatsMetric) RegisterSuccessfulEvent(value float64, unit string) {
	m.hv.WithLabelValues(unit).Observe(value)
}
