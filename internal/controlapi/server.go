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

// Package controlapi implements the HTTP-facing control surface a
// coordinator drives the worker through — one handler per worker lifecycle
// operation, plus the three stats endpoints. NewServer/RegisterRoutes/
// ListenAndServe with http.Error on bad requests, bare net/http throughout.
package controlapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/etalazz/benchworker/internal/driver"
	"github.com/etalazz/benchworker/internal/loadengine"
	"github.com/etalazz/benchworker/internal/worker"
	"github.com/etalazz/benchworker/pkg/keydist"
)

// Server exposes a Worker's lifecycle operations over HTTP.
type Server struct {
	w *worker.Worker
}

// NewServer wraps w.
func NewServer(w *worker.Worker) *Server {
	return &Server{w: w}
}

// RegisterRoutes attaches every control-plane handler to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/initialize_driver", s.handleInitializeDriver)
	mux.HandleFunc("/create_or_validate_topics", s.handleCreateOrValidateTopics)
	mux.HandleFunc("/create_producers", s.handleCreateProducers)
	mux.HandleFunc("/create_consumers", s.handleCreateConsumers)
	mux.HandleFunc("/probe_producers", s.handleProbeProducers)
	mux.HandleFunc("/start_load", s.handleStartLoad)
	mux.HandleFunc("/adjust_publish_rate", s.handleAdjustPublishRate)
	mux.HandleFunc("/pause_consumers", s.handlePauseConsumers)
	mux.HandleFunc("/resume_consumers", s.handleResumeConsumers)
	mux.HandleFunc("/reset_stats", s.handleResetStats)
	mux.HandleFunc("/stop_all", s.handleStopAll)
	mux.HandleFunc("/period_stats", s.handleGetPeriodStats)
	mux.HandleFunc("/cumulative_latencies", s.handleGetCumulativeLatencies)
	mux.HandleFunc("/counters_stats", s.handleGetCountersStats)
}

// ListenAndServe starts the control API on addr with the same read/write/
// idle timeout posture cmd/benchworker uses for its own server.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return httpServer.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

type initializeDriverRequest struct {
	DriverClass string         `json:"driverClass"`
	Config      map[string]any `json:"config"`
}

func (s *Server) handleInitializeDriver(w http.ResponseWriter, r *http.Request) {
	var req initializeDriverRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err := s.w.InitializeDriver(driver.Config{DriverClass: req.DriverClass, Raw: req.Config})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type topicsInfoRequest struct {
	ExistingTopics     []string `json:"existingTopics"`
	NumberOfTopics     int      `json:"numberOfTopics"`
	PartitionsPerTopic int      `json:"partitionsPerTopic"`
}

func (s *Server) handleCreateOrValidateTopics(w http.ResponseWriter, r *http.Request) {
	var req topicsInfoRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	names, err := s.w.CreateOrValidateTopics(r.Context(), worker.TopicsInfo{
		ExistingTopics:     req.ExistingTopics,
		NumberOfTopics:     req.NumberOfTopics,
		PartitionsPerTopic: req.PartitionsPerTopic,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"topics": names})
}

func (s *Server) handleCreateProducers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topics []string `json:"topics"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.w.CreateProducers(r.Context(), req.Topics); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCreateConsumers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Assignment []worker.ConsumerSpec `json:"assignment"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.w.CreateConsumers(r.Context(), req.Assignment); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleProbeProducers(w http.ResponseWriter, r *http.Request) {
	if err := s.w.ProbeProducers(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type startLoadRequest struct {
	PublishRate      float64      `json:"publishRate"`
	KeyDistribution  keydist.Type `json:"keyDistribution"`
	PayloadData      [][]byte     `json:"payloadData"`
	MaxInFlightGroup int64        `json:"maxInFlightGroup"`
}

func (s *Server) handleStartLoad(w http.ResponseWriter, r *http.Request) {
	var req startLoadRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	err := s.w.StartLoad(r.Context(), loadengine.Assignment{
		PublishRate:      req.PublishRate,
		KeyDistribution:  req.KeyDistribution,
		PayloadData:      req.PayloadData,
		MaxInFlightGroup: req.MaxInFlightGroup,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleAdjustPublishRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rate float64 `json:"rate"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.w.AdjustPublishRate(req.Rate); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePauseConsumers(w http.ResponseWriter, _ *http.Request) {
	s.w.PauseConsumers()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleResumeConsumers(w http.ResponseWriter, _ *http.Request) {
	s.w.ResumeConsumers()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleResetStats(w http.ResponseWriter, _ *http.Request) {
	s.w.ResetStats()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStopAll(w http.ResponseWriter, _ *http.Request) {
	s.w.StopAll()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetPeriodStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.w.GetPeriodStats())
}

func (s *Server) handleGetCumulativeLatencies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.w.GetCumulativeLatencies())
}

func (s *Server) handleGetCountersStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.w.GetCountersStats())
}
