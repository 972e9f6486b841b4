// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !linux

package plot

import "os"

// openFile on non-Linux platforms always uses buffered I/O; O_DIRECT
// has no portable equivalent via the standard library, and the
// original project's direct-I/O path is itself Linux/Windows specific.
func openFile(path string, directIO bool) (*os.File, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}
