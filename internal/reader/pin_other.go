// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !linux

package reader

// pinToCore is a no-op on platforms without a portable affinity API;
// cpu_thread_pinning silently has no effect there.
func pinToCore(driveID string) {}
