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

// Package main provides the entry point for the benchmark worker process:
// it wires a driver registry, a metrics sink (no-op, or Prometheus-backed
// when -metrics_addr is set), and the HTTP control API a coordinator drives the worker through. Structured the
// way cmd/ratelimiter-api/main.go wires its own core + API server: parse
// flags, construct components, start serving, wait for a termination
// signal, shut down in dependency order.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etalazz/benchworker/internal/controlapi"
	"github.com/etalazz/benchworker/internal/metricsink"
	"github.com/etalazz/benchworker/internal/metricsink/prom"
	"github.com/etalazz/benchworker/internal/worker"

	_ "github.com/etalazz/benchworker/internal/drivers/noop"
	_ "github.com/etalazz/benchworker/internal/drivers/redisstreams"
)

func main() {
	httpAddr := flag.String("control_addr", ":8090", "HTTP control API listen address")
	metricsAddr := flag.String("metrics_addr", "", "If non-empty, expose Prometheus /metrics on this address (e.g. :9090)")
	flag.Parse()

	logger := log.New(log.Writer(), "[benchworker] ", log.LstdFlags)

	var sink metricsink.Sink = metricsink.NoOp
	if *metricsAddr != "" {
		sink = prom.New(*metricsAddr)
	}

	w := worker.New(logger, sink)
	api := controlapi.NewServer(w)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("benchworker control API listening on %s\n", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v\n", *httpAddr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nshutting down worker...")
	w.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("control API shutdown failed: %v", err)
	}
	fmt.Println("benchworker stopped.")
}
