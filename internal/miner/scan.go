// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"os"
	"path/filepath"

	"github.com/signum-network/signum-miner-go/internal/plot"
	"github.com/signum-network/signum-miner-go/internal/reader"
)

// readDirNames lists the base names of the entries directly under
// dir, skipping subdirectories.
func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// scanPlotDirs enumerates every plot file under dirs, groups them by
// stable drive_id (not path, per spec §4.2), and opens each one as a
// plot.Handle. It returns the resulting Drive set and the total
// plotted byte count across every successfully parsed plot (counted
// even for plots that failed to open, since capacity advertising
// should reflect what's on disk, not just what's currently readable).
func scanPlotDirs(dirs []string, useDirectIO bool) ([]*reader.Drive, uint64, error) {
	byDrive := make(map[string]*reader.Drive)
	var totalBytes uint64

	for _, dir := range dirs {
		names, err := readDirNames(dir)
		if err != nil {
			continue
		}

		driveID, removable, err := plot.DriveID(dir)
		if err != nil {
			driveID = dir
		}
		directIO := useDirectIO && !removable

		drive, ok := byDrive[driveID]
		if !ok {
			drive = &reader.Drive{ID: driveID, Removable: removable}
			byDrive[driveID] = drive
		}

		for _, name := range names {
			meta, err := plot.ParseMeta(name)
			if err != nil {
				continue
			}
			totalBytes += meta.TotalBytes()

			path := filepath.Join(dir, name)
			h, err := plot.Open(path, driveID, directIO)
			if err != nil {
				log.Warnf("controller: %v", err)
				continue
			}
			drive.Plots = append(drive.Plots, h)
		}
	}

	drives := make([]*reader.Drive, 0, len(byDrive))
	for _, d := range byDrive {
		drives = append(drives, d)
	}
	return drives, totalBytes, nil
}
