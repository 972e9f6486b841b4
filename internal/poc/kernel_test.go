// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package poc

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFindBestGolden mirrors the S1 scenario and the original
// implementation's test_deadline_hashing: a single winning all-zero
// scoop planted at offset i among otherwise-uniform 0x05 scoops must
// be found regardless of how many losing scoops surround it, and the
// winning scoop's deadline must match the reference implementation's
// published value.
func TestFindBestGolden(t *testing.T) {
	gensigHex := "4a6f686e6e7946464d206861742064656e206772f6df74656e2050656e697321"
	raw, err := hex.DecodeString(gensigHex)
	require.NoError(t, err)
	var gensig [32]byte
	copy(gensig[:], raw)

	const wantDeadline = uint64(3084580316385335914)

	winner := make([]byte, ScoopSize)
	loser := make([]byte, ScoopSize)
	for i := range loser {
		loser[i] = 5
	}

	data := make([]byte, ScoopSize*32)
	for i := range data {
		data[i] = 5
	}

	k := referenceKernel{}
	for i := 0; i < 32; i++ {
		copy(data[i*ScoopSize:(i+1)*ScoopSize], winner)

		res := k.FindBest(data[:(i+1)*ScoopSize], &gensig)
		require.Equal(t, wantDeadline, res.Deadline, "iteration %d", i)
		require.Equal(t, uint64(i), res.Offset, "iteration %d", i)

		copy(data[i*ScoopSize:(i+1)*ScoopSize], loser)
	}
}

// TestBatchedKernelMatchesReference checks the contract every
// registered SIMD-lane variant must satisfy: bit-identical
// (deadline, offset) to the reference kernel, including tie-break
// behavior (lowest offset wins).
func TestBatchedKernelMatchesReference(t *testing.T) {
	var gensig [32]byte
	for i := range gensig {
		gensig[i] = byte(i)
	}

	n := 37
	data := make([]byte, ScoopSize*n)
	for i := range data {
		data[i] = byte(i % 251)
	}

	ref := referenceKernel{}.FindBest(data, &gensig)

	for _, width := range []int{2, 4, 8, 16} {
		bk := batchedKernel{name: "test", width: width}
		got := bk.FindBest(data, &gensig)
		require.Equal(t, ref, got, "width=%d", width)
	}
}

// TestScoopIndexRange checks invariant 3's range constraint: the
// derived scoop index is always within [0, 4096).
func TestScoopIndexRange(t *testing.T) {
	var gensig [32]byte
	for h := uint64(0); h < 50; h++ {
		idx := ScoopIndex(&gensig, h)
		require.Less(t, idx, uint32(4096))
	}
}
