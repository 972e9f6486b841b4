// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build linux

package reader

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore pins the calling goroutine's underlying OS thread to a
// core chosen deterministically from driveID, spreading drives across
// cores the same way a fixed one-thread-per-drive design would. Must
// be called from the goroutine that will do the actual reading; it
// locks that goroutine to its OS thread itself (reader.runDrive calls
// this at the top of the goroutine that reads one drive for one
// round).
func pinToCore(driveID string) {
	runtime.LockOSThread()
	n := numCPU()
	if n <= 0 {
		return
	}
	core := int(hashString(driveID)) % n
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	_ = unix.SchedSetaffinity(0, &set)
}

func hashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
