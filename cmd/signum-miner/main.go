// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command signum-miner is the Proof-of-Capacity mining engine's
// entrypoint: it loads configuration, wires the Reader, Hash
// Dispatcher, Miner Controller, and Submission Pipeline together, and
// runs until signaled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	bolt "github.com/coreos/bbolt"

	"github.com/signum-network/signum-miner-go/internal/buffer"
	"github.com/signum-network/signum-miner-go/internal/config"
	"github.com/signum-network/signum-miner-go/internal/dispatch"
	"github.com/signum-network/signum-miner-go/internal/miner"
	"github.com/signum-network/signum-miner-go/internal/mlog"
	"github.com/signum-network/signum-miner-go/internal/poc"
	"github.com/signum-network/signum-miner-go/internal/poolclient"
	"github.com/signum-network/signum-miner-go/internal/reader"
	"github.com/signum-network/signum-miner-go/internal/statusserver"
	"github.com/signum-network/signum-miner-go/internal/submit"
	"github.com/signum-network/signum-miner-go/internal/version"
)

// Exit codes, per spec.md §6.
const (
	exitOK           = 0
	exitConfigError  = 1
	exitStartupError = 2
)

var log = mlog.Logger(mlog.SubsystemMain)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}

	if err := config.ApplyLogging(cfg, 3); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	log.Infof("signum-miner %s starting", version.String())

	if cfg.ShowOpenCL {
		printOpenCLInfo()
		return exitOK
	}

	kernel := poc.Select()

	cpuThreads := cfg.CPUThreads
	if cpuThreads <= 0 {
		cpuThreads = runtime.GOMAXPROCS(0)
	}
	if cpuThreads <= 0 {
		log.Errorf("main: no hashing workers available")
		return exitStartupError
	}
	poolSize := cpuThreads + cfg.CPUWorkerTasks
	bufPool := buffer.New(poolSize, cfg.IOBufferSize)

	readChan := make(chan reader.ReadReply, poolSize)
	nonceChan := make(chan dispatch.NonceData, poolSize)

	rdr := reader.New(reader.Config{
		Pool:        bufPool,
		Out:         readChan,
		IOBufferSz:  cfg.IOBufferSize,
		Pinning:     cfg.CPUThreadPinning,
		BenchmarkIO: cfg.BenchmarkIO,
	})

	disp := dispatch.New(dispatch.Config{
		In:           readChan,
		Out:          nonceChan,
		Pool:         bufPool,
		Kernel:       kernel,
		Workers:      cpuThreads,
		BenchmarkCPU: cfg.BenchmarkCPU,
	})
	go disp.Run()

	client := poolclient.New(poolclient.Config{
		BaseURL:           cfg.URL,
		Timeout:           time.Duration(cfg.TimeoutMs) * time.Millisecond,
		Proxy:             poolclient.ProxyDetails{Enabled: cfg.SendProxyDetails},
		AdditionalHeaders: cfg.AdditionalHeaders,
		SecretPhrases:     cfg.AccountIDToSecretPhrase,
		RateLimit:         5,
		Burst:             10,
	})

	pipeline := submit.New(client, time.Duration(cfg.TimeoutMs)*time.Millisecond)
	defer pipeline.Close()

	db, err := bolt.Open(dbPath(cfg), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		log.Warnf("main: round-summary database unavailable, continuing without it: %v", err)
		db = nil
	} else {
		defer db.Close()
		if last, err := miner.LastRoundSummary(db); err == nil && last != "" {
			log.Infof("main: last round summary: %s", last)
		}
	}

	readerThreads := cfg.HDDReaderThreads

	controller := miner.New(miner.Config{
		Client:                client,
		Reader:                rdr,
		Pipeline:              pipeline,
		NonceIn:               nonceChan,
		GetMiningInfoInterval: time.Duration(cfg.GetMiningInfoMs) * time.Millisecond,
		CapacityCheckInterval: time.Duration(cfg.CapacityCheckSecs) * time.Second,
		HDDWakeupAfter:        time.Duration(cfg.HDDWakeupAfterSecs) * time.Second,
		PerAccountTargetDL:    cfg.AccountIDToTargetDL,
		GlobalTargetDL:        cfg.TargetDeadline,
		SubmitOnlyBest:        cfg.SubmitOnlyBest,
		PlotDirs:              cfg.PlotDirs,
		UseDirectIO:           cfg.HDDUseDirectIO,
		ReaderThreads:         readerThreads,
		DB:                    db,
	})

	var status *statusserver.Server
	if cfg.StatusAddr != "" {
		status = statusserver.New(cfg.StatusAddr)
		status.Start()
		defer status.Close()
		go reportStatus(controller, status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Infof("main: received %s, shutting down", s)
		cancel()
	}()

	controller.Run(ctx)

	log.Infof("main: shutdown complete")
	return exitOK
}

// reportStatus mirrors the Controller's round state into the optional
// status server every second; it never reaches back into the
// Controller's locked state beyond the one exported snapshot method.
func reportStatus(c *miner.Controller, s *statusserver.Server) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		snap := c.StateSnapshot()
		s.SetRoundStatus(statusserver.RoundStatus{
			Height: snap.Height,
			Block:  snap.Block,
		})
	}
}

func dbPath(cfg *config.Config) string {
	dir := cfg.LogDir
	if dir == "" {
		dir = "."
	}
	return dir + "/signum-miner.db"
}

// printOpenCLInfo reports the absence of OpenCL support: GPU plotting
// and GPU hashing are out of scope per spec.md's non-goals, so
// --opencl exists only to give operators an explicit, scriptable
// answer instead of a silent no-op.
func printOpenCLInfo() {
	fmt.Println("signum-miner was built without OpenCL support (GPU hashing is out of scope)")
}
