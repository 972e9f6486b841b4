// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reader

import "runtime"

func numCPU() int { return runtime.NumCPU() }
