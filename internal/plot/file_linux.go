// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build linux

package plot

import (
	"os"

	"golang.org/x/sys/unix"
)

// openFile opens path for reading, requesting O_DIRECT when directIO
// is set. Callers that pass directIO=true are expected to have
// already excluded USB/removable drives (see drive.go); O_DIRECT on
// such devices frequently fails outright on Linux, so a failure here
// falls back to a buffered open rather than erroring the whole plot.
func openFile(path string, directIO bool) (*os.File, error) {
	if directIO {
		f, err := os.OpenFile(path, os.O_RDONLY|unix.O_DIRECT, 0)
		if err == nil {
			return f, nil
		}
	}
	return os.OpenFile(path, os.O_RDONLY, 0)
}
