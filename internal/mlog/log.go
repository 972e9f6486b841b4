// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mlog provides the subsystem-leveled logging shared by every
// component of the miner, following the same minrLog/slog convention
// the teacher's pool and miner daemons use: one named logger per
// subsystem, a single rotating backend, and a SetLogLevels entry point
// for the config loader to apply user-requested verbosity.
package mlog

import (
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags, matching the components named in SPEC_FULL.md §7.
const (
	SubsystemCtrl  = "CTRL"
	SubsystemRead  = "RDDR"
	SubsystemHash  = "HASH"
	SubsystemSubm  = "SUBM"
	SubsystemPlot  = "PLOT"
	SubsystemPool  = "POOL"
	SubsystemMain  = "MAIN"
	SubsystemCfg   = "CFGR"
)

var backendLog = btclog.NewBackend(os.Stdout)

var loggers = map[string]btclog.Logger{
	SubsystemCtrl: backendLog.Logger(SubsystemCtrl),
	SubsystemRead: backendLog.Logger(SubsystemRead),
	SubsystemHash: backendLog.Logger(SubsystemHash),
	SubsystemSubm: backendLog.Logger(SubsystemSubm),
	SubsystemPlot: backendLog.Logger(SubsystemPlot),
	SubsystemPool: backendLog.Logger(SubsystemPool),
	SubsystemMain: backendLog.Logger(SubsystemMain),
	SubsystemCfg:  backendLog.Logger(SubsystemCfg),
}

var logRotator *rotator.Rotator

// Logger returns the named subsystem logger, defaulting to SubsystemMain
// for an unknown tag rather than panicking — a missing subsystem is a
// programming error, not a reason to crash the miner.
func Logger(subsystem string) btclog.Logger {
	if l, ok := loggers[subsystem]; ok {
		return l
	}
	return loggers[SubsystemMain]
}

// InitLogRotator opens (or creates) the log file at logFile and wires
// every subsystem logger to write to both stdout and the rotated file.
// Call once at startup, before any other logging happens.
func InitLogRotator(logFile string, maxRolls int) error {
	r, err := rotator.New(logFile, 10*1024, false, maxRolls)
	if err != nil {
		return fmt.Errorf("failed to create log rotator: %w", err)
	}
	logRotator = r
	w := io.MultiWriter(os.Stdout, logWriter{})
	backendLog = btclog.NewBackend(w)
	for name := range loggers {
		loggers[name] = backendLog.Logger(name)
	}
	return nil
}

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	if logRotator == nil {
		return len(p), nil
	}
	return logRotator.Write(p)
}

// SetLogLevel sets the log level for the named subsystem ("all" applies
// to every subsystem). Invalid level strings are ignored and leave the
// previous level in place, matching the teacher's tolerant flag parsing.
func SetLogLevel(subsystemID, levelStr string) {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return
	}
	if subsystemID == "all" {
		for _, l := range loggers {
			l.SetLevel(level)
		}
		return
	}
	if l, ok := loggers[subsystemID]; ok {
		l.SetLevel(level)
	}
}

// SetLogLevels sets every subsystem logger to levelStr.
func SetLogLevels(levelStr string) {
	SetLogLevel("all", levelStr)
}
