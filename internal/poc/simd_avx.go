// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build simd_avx

package poc

import "github.com/klauspost/cpuid/v2"

func init() {
	register(batchedKernel{name: "avx-lanes", width: 4}, func() bool {
		return cpuid.CPU.Supports(cpuid.AVX)
	})
}
