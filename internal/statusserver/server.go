// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package statusserver exposes a small read-only HTTP status surface
// (round summary, per-drive counters) for operators and monitoring
// tools, gated behind an optional --status-addr flag.
package statusserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/signum-network/signum-miner-go/internal/mlog"
)

var log = mlog.Logger(mlog.SubsystemMain)

// RoundStatus is the JSON shape served at GET /status.
type RoundStatus struct {
	Height   uint64  `json:"height"`
	Block    uint64  `json:"block"`
	Scanning bool    `json:"scanning"`
	Outage   bool    `json:"outage"`
	SpeedMBs float64 `json:"speed_mb_s"`
}

// DriveStatus is one entry of the JSON array served at GET /drives.
type DriveStatus struct {
	DriveID      string `json:"drive_id"`
	BytesRead    uint64 `json:"bytes_read"`
	TasksDone    int    `json:"tasks_done"`
	TasksPending int    `json:"tasks_pending"`
}

// Server is a read-only status endpoint; its data is supplied by the
// caller via SetRoundStatus/SetDriveStatus rather than pulled, so it
// never reaches back into the Controller's locked state.
type Server struct {
	mu     sync.RWMutex
	round  RoundStatus
	drives []DriveStatus

	router *mux.Router
	http   *http.Server
}

// New builds a Server listening on addr. Call Start to begin serving.
func New(addr string) *Server {
	s := &Server{router: mux.NewRouter()}
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/drives", s.handleDrives).Methods(http.MethodGet)
	s.http = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// SetRoundStatus updates the snapshot served at /status.
func (s *Server) SetRoundStatus(rs RoundStatus) {
	s.mu.Lock()
	s.round = rs
	s.mu.Unlock()
}

// SetDriveStatus updates the snapshot served at /drives.
func (s *Server) SetDriveStatus(ds []DriveStatus) {
	s.mu.Lock()
	s.drives = ds
	s.mu.Unlock()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	rs := s.round
	s.mu.RUnlock()
	writeJSON(w, rs)
}

func (s *Server) handleDrives(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ds := s.drives
	s.mu.RUnlock()
	writeJSON(w, ds)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("statusserver: encode response: %v", err)
	}
}

// Start begins serving in a background goroutine. ListenAndServe
// errors other than the expected shutdown error are logged.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("statusserver: %v", err)
		}
	}()
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.http.Close()
}
