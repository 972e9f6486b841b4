// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package submit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestOrderingScenario mirrors S2 from spec §8.
func TestOrderingScenario(t *testing.T) {
	a := Params{Block: 0, Deadline: 1193}

	b := a
	b.Block = 1
	assert.True(t, a.Less(b))

	c := a
	c.Deadline = 1192
	assert.True(t, a.Less(c))

	d := a
	d.GenSig[0] = 1
	d.Deadline = 1194
	assert.True(t, a.Less(d))

	e := a
	e.Deadline = 1194
	assert.True(t, e.Less(a))
	assert.False(t, a.Less(e))
}

// TestDifferingGenSigQuirk documents the deliberately preserved
// non-antisymmetric case: two items at the same block with different
// gen_sig are mutually Less, matching the original Ord impl exactly.
func TestDifferingGenSigQuirk(t *testing.T) {
	a := Params{Block: 0}
	b := Params{Block: 0}
	b.GenSig[0] = 1

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(a))
}
