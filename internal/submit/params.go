// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package submit

// Params is SubmissionParameters from the data model: everything the
// priority-retry queue and the Pool Client need to (re)submit a
// nonce.
type Params struct {
	AccountID          uint64
	Nonce              uint64
	Height             uint64
	Block              uint64
	DeadlineUnadjusted uint64
	Deadline           uint64
	GenSig             [32]byte
}

// Less implements the total order from spec §3: larger block wins;
// within the same block, a smaller deadline wins when gen_sig is
// identical; a different gen_sig at the same block is treated as
// "less" in both directions.
//
// That last rule is deliberately preserved exactly as the original
// implementation's Ord impl, including its quirk: two items with
// different gen_sig at equal block are mutually Less (a.Less(b) and
// b.Less(a) are both true), which makes the order not a true total
// order — see DESIGN.md for why this is kept rather than "fixed".
func (a Params) Less(b Params) bool {
	if a.Block != b.Block {
		return a.Block < b.Block
	}
	if a.GenSig != b.GenSig {
		return true
	}
	return a.Deadline > b.Deadline
}

// Equal reports whether a and b are the same submission candidate for
// heap/debounce bookkeeping purposes: identical block, gen_sig, and
// deadline.
func (a Params) Equal(b Params) bool {
	return a.Block == b.Block && a.GenSig == b.GenSig && a.Deadline == b.Deadline
}
