// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// DriveID resolves dir to a stable identifier for the physical device
// backing it, so two plot directories on the same spinning disk share
// one reader slot, per spec §4.2 ("the reader uses drive_id, not
// path"). It also reports whether the backing device is USB or
// removable, in which case direct I/O must be disabled automatically.
func DriveID(dir string) (driveID string, removable bool, err error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false, fmt.Errorf("plot: resolve %s: %w", dir, err)
	}

	partitions, err := disk.Partitions(false)
	if err != nil {
		// gopsutil is unavailable (e.g. unsupported platform in a
		// container without /proc); degrade to path-based identity
		// rather than fail plot scanning outright.
		return abs, false, nil
	}

	best := ""
	bestDevice := ""
	for _, p := range partitions {
		if len(p.Mountpoint) > len(best) && hasPrefix(abs, p.Mountpoint) {
			best = p.Mountpoint
			bestDevice = p.Device
		}
	}
	if bestDevice == "" {
		return abs, false, nil
	}

	isRemovable := isRemovableDevice(bestDevice)
	return bestDevice, isRemovable, nil
}

func hasPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if len(path) < len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix
}

// isRemovableDevice reports whether the device backing partition p
// sits on a USB bus (its "/sys/block/<dev>" link resolves through a
// "/usb" path) or carries the Linux sysfs removable flag
// ("/dev/sdb1" -> "/sys/block/sdb/removable").
// Non-Linux platforms and any lookup failure conservatively report
// not-removable, matching the "assume fixed disk unless proven
// otherwise" stance of direct-I/O enablement.
func isRemovableDevice(devicePath string) bool {
	name := filepath.Base(devicePath)
	for len(name) > 0 {
		last := name[len(name)-1]
		if last < '0' || last > '9' {
			break
		}
		name = name[:len(name)-1]
	}
	if name == "" {
		return false
	}
	if target, err := filepath.EvalSymlinks(filepath.Join("/sys/block", name)); err == nil && strings.Contains(target, "/usb") {
		return true
	}
	data, err := os.ReadFile(filepath.Join("/sys/block", name, "removable"))
	if err != nil {
		return false
	}
	return len(data) > 0 && data[0] == '1'
}
