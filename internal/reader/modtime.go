// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reader

import (
	"os"
	"time"
)

// defaultModTime returns path's last-modified time, or the zero Time
// on error — an unreadable plot simply sorts last, consistent with the
// "unreadable plot is logged and skipped" failure policy applied
// later when it's actually opened for reading.
func defaultModTime(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}
