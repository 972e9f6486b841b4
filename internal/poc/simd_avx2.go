// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build simd_avx2

package poc

import "github.com/klauspost/cpuid/v2"

func init() {
	register(batchedKernel{name: "avx2-lanes", width: 8}, func() bool {
		return cpuid.CPU.Supports(cpuid.AVX2)
	})
}
