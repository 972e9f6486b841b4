// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package miner implements the Miner Controller: the round state
// machine, the mining-info poller, the capacity-rescan scheduler, and
// the nonce consumer that filters and forwards candidate deadlines to
// the Submission Pipeline.
package miner

import (
	"sync"
	"time"
)

// State is the Controller's RoundState, owned behind a single mutex
// and never held across a suspension point — callers snapshot what
// they need into locals before doing I/O, per SPEC_FULL.md §9.
type State struct {
	mu sync.Mutex

	height             uint64
	block              uint64
	genSigHex          string
	genSig             [32]byte
	scoop              uint32
	baseTarget         uint64
	serverTargetDL     uint64
	accountBestDL      map[uint64]uint64
	roundStart         time.Time
	processedReaderTasks int
	readerTaskCount    int
	scanning           bool
	first              bool
	outage             bool
}

// NewState returns a State with `first` set, so the first MiningInfo
// seen always begins a round, whatever its generation signature.
func NewState() *State {
	return &State{
		accountBestDL: make(map[uint64]uint64),
		first:         true,
	}
}

// Snapshot is an immutable copy of the fields the Reader and nonce
// consumer need without holding the State lock.
type Snapshot struct {
	Height         uint64
	Block          uint64
	GenSig         [32]byte
	Scoop          uint32
	BaseTarget     uint64
	ServerTargetDL uint64
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Height: s.height, Block: s.block, GenSig: s.genSig, Scoop: s.scoop,
		BaseTarget: s.baseTarget, ServerTargetDL: s.serverTargetDL,
	}
}

// Snapshot returns a copy of the round-identifying fields under lock.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// BeginRound applies a new MiningInfo: if the generation signature
// changed, it advances block by exactly one, resets the per-account
// best-deadline map, marks scanning, and returns (snapshot, true).
// If the signature is unchanged, returns (snapshot, false) and the
// caller decides whether to issue a wakeup instead.
func (s *State) BeginRound(height, baseTarget uint64, genSigHex string, genSig [32]byte, scoop uint32, serverTargetDL uint64, readerTaskCount int) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.first || genSigHex != s.genSigHex
	if !changed {
		return s.snapshotLocked(), false
	}

	s.first = false
	s.height = height
	s.baseTarget = baseTarget
	s.genSigHex = genSigHex
	s.genSig = genSig
	s.scoop = scoop
	s.serverTargetDL = serverTargetDL
	s.block++
	s.accountBestDL = make(map[uint64]uint64)
	s.roundStart = time.Now()
	s.processedReaderTasks = 0
	s.readerTaskCount = readerTaskCount
	s.scanning = true

	return s.snapshotLocked(), true
}

// SetScanning updates the scanning flag, cleared once the Reader's
// StartRound call has actually been issued.
func (s *State) SetScanning(v bool) {
	s.mu.Lock()
	s.scanning = v
	s.mu.Unlock()
}

// Scanning reports whether a round start is currently in flight.
func (s *State) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Outage gets/sets the outage flag, returning the previous value so
// callers can detect the first-failure and recovery transitions
// spec §4.6 requires ("first error toggles outage ... recovery logs
// outage resolved").
func (s *State) SetOutage(v bool) (previous bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.outage
	s.outage = v
	return previous
}

// EffectiveCap resolves the effective cap for an account:
// min(server_target_deadline, per-account override or global default).
func (s *State) EffectiveCap(account uint64, perAccount map[uint64]uint64, global uint64) uint64 {
	s.mu.Lock()
	serverDL := s.serverTargetDL
	s.mu.Unlock()

	cap := global
	if v, ok := perAccount[account]; ok {
		cap = v
	}
	if serverDL != 0 && serverDL < cap {
		cap = serverDL
	}
	return cap
}

// TryAcceptDeadline applies invariant 5: updates
// account_id_to_best_deadline[account] only if deadline is both under
// cap and an improvement; returns whether it was accepted.
func (s *State) TryAcceptDeadline(height, account, deadline, cap uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if height != s.height {
		return false // stale round
	}
	if deadline >= cap {
		return false
	}
	best, ok := s.accountBestDL[account]
	if ok && deadline >= best {
		return false
	}
	s.accountBestDL[account] = deadline
	return true
}

// MarkReaderTaskProcessed increments processed_reader_tasks and
// reports whether the round is now finished (processed == expected),
// along with the elapsed round time at that instant.
func (s *State) MarkReaderTaskProcessed(height uint64) (finished bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if height != s.height {
		return false, 0
	}
	s.processedReaderTasks++
	if s.processedReaderTasks == s.readerTaskCount {
		return true, time.Since(s.roundStart)
	}
	return false, 0
}

// Height returns the current round height under lock.
func (s *State) Height() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// Block returns the current round block counter under lock.
func (s *State) Block() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.block
}
