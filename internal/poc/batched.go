// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package poc

import "sync"

// batchedKernel is the Go-idiomatic analogue of the reference
// project's vector-instruction kernels: true SIMD requires
// architecture-specific assembly, which is out of scope for this
// repository (§4.1). Instead each variant partitions the N scoops
// into `width`-wide lanes and hashes the lanes concurrently, then
// reduces with the same deterministic min-with-lowest-offset-wins
// rule as the reference kernel, so results stay bit-identical.
type batchedKernel struct {
	name  string
	width int
}

func (b batchedKernel) Name() string { return b.name }

func (b batchedKernel) FindBest(buf []byte, gensig *[32]byte) Result {
	n := len(buf) / ScoopSize
	if n <= b.width {
		return referenceKernel{}.FindBest(buf, gensig)
	}

	lanes := (n + b.width - 1) / b.width
	results := make([]Result, lanes)

	var wg sync.WaitGroup
	wg.Add(lanes)
	for lane := 0; lane < lanes; lane++ {
		go func(lane int) {
			defer wg.Done()
			start := lane * b.width
			end := start + b.width
			if end > n {
				end = n
			}
			sub := buf[start*ScoopSize : end*ScoopSize]
			r := referenceKernel{}.FindBest(sub, gensig)
			r.Offset += uint64(start)
			results[lane] = r
		}(lane)
	}
	wg.Wait()

	best := results[0]
	for _, r := range results[1:] {
		if r.Deadline < best.Deadline {
			best = r
		}
	}
	return best
}
