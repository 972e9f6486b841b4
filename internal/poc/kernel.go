// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package poc implements the Proof-of-Capacity kernel: given a
// generation signature and a buffer of concatenated 64-byte scoops, it
// finds the scoop whose Shabal256-derived deadline is smallest.
//
// The kernel is expressed as a small capability interface with a
// registry of variants, the same shape kangaroo-exccd uses for its
// solo/worker dispatch and the extimsu-gocryptfs example uses for its
// SIMD-capability batch processor: one reference implementation that
// is always correct, and zero or more faster variants selected at
// runtime by a CPU feature probe, never trusted over the reference
// without having been validated against it.
package poc

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/cpuid/v2"

	"github.com/signum-network/signum-miner-go/internal/mlog"
	"github.com/signum-network/signum-miner-go/internal/shabal"
)

const ScoopSize = 64

var log = mlog.Logger(mlog.SubsystemHash)

// Result is the kernel's output: the smallest deadline found in a
// buffer and the scoop offset (0-based, in units of ScoopSize) that
// produced it.
type Result struct {
	Deadline uint64
	Offset   uint64
}

// Kernel finds the best (lowest) deadline among the N scoops packed
// into buf (N == len(buf)/ScoopSize), given the round's 32-byte
// generation signature. Implementations must be deterministic and, on
// ties, return the lowest offset — this is what makes every batched
// variant bit-identical to the reference.
type Kernel interface {
	Name() string
	FindBest(buf []byte, gensig *[32]byte) Result
}

// ScoopIndex implements invariant 3 of the data model: the round's
// scoop number is the first four bytes (big-endian) of
// Shabal256(gensig || height) interpreted as a big-endian uint32,
// modulo 4096.
func ScoopIndex(gensig *[32]byte, height uint64) uint32 {
	var heightBE [8]byte
	binary.BigEndian.PutUint64(heightBE[:], height)

	var digest [32]byte
	shabal.Sum256(&digest, gensig[:], heightBE[:])

	return binary.BigEndian.Uint32(digest[:4]) % 4096
}

// deadlineOf hashes gensig||scoop and reads the first 8 bytes of the
// digest as a little-endian uint64 — the scoop's raw deadline, per
// spec §4.1.
func deadlineOf(gensig *[32]byte, scoop []byte) uint64 {
	var digest [32]byte
	shabal.Sum256(&digest, gensig[:], scoop)
	return binary.LittleEndian.Uint64(digest[:8])
}

// referenceKernel is the scalar, always-correct implementation every
// batched variant is validated against.
type referenceKernel struct{}

func (referenceKernel) Name() string { return "reference" }

func (referenceKernel) FindBest(buf []byte, gensig *[32]byte) Result {
	n := len(buf) / ScoopSize
	best := Result{Deadline: ^uint64(0), Offset: 0}
	for i := 0; i < n; i++ {
		scoop := buf[i*ScoopSize : i*ScoopSize+ScoopSize]
		dl := deadlineOf(gensig, scoop)
		if dl < best.Deadline {
			best = Result{Deadline: dl, Offset: uint64(i)}
		}
	}
	return best
}

// variant pairs a Kernel with the cpuid feature gate that must pass
// before it is considered usable on this machine.
type variant struct {
	kernel    Kernel
	supported func() bool
}

var registry []variant

// register is called from each build-tag-gated simd_*.go file's
// init(), mirroring the reference's compile-time-feature-flag
// selection: exactly one non-reference variant is linked per build.
func register(k Kernel, supported func() bool) {
	registry = append(registry, variant{kernel: k, supported: supported})
}

// Select returns the best kernel usable on the running CPU: the
// linked-in SIMD variant if its cpuid probe passes, otherwise the
// reference kernel with a logged warning, per spec §4.1's
// runtime-probe-with-fallback requirement.
func Select() Kernel {
	for _, v := range registry {
		if v.supported() {
			log.Infof("poc: selected kernel %s", v.kernel.Name())
			return v.kernel
		}
	}
	if len(registry) > 0 {
		log.Warnf("poc: CPU does not support the compiled-in SIMD kernel (%s), falling back to reference", cpuFeatureString())
	}
	return referenceKernel{}
}

// cpuFeatureString renders the subset of cpuid.CPU.Features this
// package cares about, used only for diagnostic logging.
func cpuFeatureString() string {
	return fmt.Sprintf("sse2=%v avx=%v avx2=%v avx512f=%v asimd=%v",
		cpuid.CPU.Supports(cpuid.SSE2),
		cpuid.CPU.Supports(cpuid.AVX),
		cpuid.CPU.Supports(cpuid.AVX2),
		cpuid.CPU.Supports(cpuid.AVX512F),
		cpuid.CPU.Supports(cpuid.ASIMD),
	)
}
