// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBeginRoundIncrementsBlockOnce mirrors S3: two identical
// generation signatures back-to-back advance block exactly once.
func TestBeginRoundIncrementsBlockOnce(t *testing.T) {
	s := NewState()
	var gensig [32]byte

	snap1, changed1 := s.BeginRound(100, 1000, "abc", gensig, 5, 0, 1)
	assert.True(t, changed1)
	assert.Equal(t, uint64(1), snap1.Block)

	snap2, changed2 := s.BeginRound(100, 1000, "abc", gensig, 5, 0, 1)
	assert.False(t, changed2)
	assert.Equal(t, uint64(1), snap2.Block)

	gensig[0] = 1
	snap3, changed3 := s.BeginRound(101, 1000, "def", gensig, 5, 0, 1)
	assert.True(t, changed3)
	assert.Equal(t, uint64(2), snap3.Block)
}

// TestTryAcceptDeadlineFilter mirrors S4's filtering rules.
func TestTryAcceptDeadlineFilter(t *testing.T) {
	s := NewState()
	var gensig [32]byte
	s.BeginRound(10, 1, "g", gensig, 0, 1000, 1)

	perAccount := map[uint64]uint64{42: 200}
	capFor := func(account uint64) uint64 {
		return s.EffectiveCap(account, perAccount, 500)
	}

	assert.True(t, s.TryAcceptDeadline(10, 42, 199, capFor(42)))
	assert.False(t, s.TryAcceptDeadline(10, 42, 200, capFor(42)))

	assert.True(t, s.TryAcceptDeadline(10, 7, 499, capFor(7)))
	assert.False(t, s.TryAcceptDeadline(10, 7, 500, capFor(7)))
}

// TestTryAcceptDeadlineStaleRoundDiscarded checks invariant-adjacent
// behavior: a nonce from a previous height is always discarded.
func TestTryAcceptDeadlineStaleRoundDiscarded(t *testing.T) {
	s := NewState()
	var gensig [32]byte
	s.BeginRound(10, 1, "g", gensig, 0, 1000, 1)

	assert.False(t, s.TryAcceptDeadline(9, 1, 1, 1000))
}

// TestTryAcceptDeadlineNonIncreasing mirrors invariant 5:
// account_id_to_best_deadline is non-increasing within a round.
func TestTryAcceptDeadlineNonIncreasing(t *testing.T) {
	s := NewState()
	var gensig [32]byte
	s.BeginRound(10, 1, "g", gensig, 0, 1000, 1)

	assert.True(t, s.TryAcceptDeadline(10, 1, 500, 1000))
	assert.False(t, s.TryAcceptDeadline(10, 1, 600, 1000), "worse deadline must not override a better one")
	assert.True(t, s.TryAcceptDeadline(10, 1, 100, 1000), "strictly better deadline must override")
}

func TestMarkReaderTaskProcessedCompletesRound(t *testing.T) {
	s := NewState()
	var gensig [32]byte
	s.BeginRound(10, 1, "g", gensig, 0, 1000, 2)

	finished, _ := s.MarkReaderTaskProcessed(10)
	assert.False(t, finished)

	finished, elapsed := s.MarkReaderTaskProcessed(10)
	assert.True(t, finished)
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))
}

func TestSetOutageReturnsPreviousValue(t *testing.T) {
	s := NewState()
	assert.False(t, s.SetOutage(true))
	assert.True(t, s.SetOutage(true))
	assert.True(t, s.SetOutage(false))
}
