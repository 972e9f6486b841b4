// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version holds the build-time identity of the miner, used in
// the pool client's User-Agent header and the startup log line.
package version

// These are overridden at link time with -ldflags "-X ...".
var (
	Major = "1"
	Minor = "0"
	Patch = "0"
)

// String returns the dotted semantic version, e.g. "1.0.0".
func String() string {
	return Major + "." + Minor + "." + Patch
}

// UserAgent is the identifier sent as the pool HTTP client's User-Agent
// and X-Miner header.
func UserAgent() string {
	return "signum-miner/" + String()
}
