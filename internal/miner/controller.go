// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"time"

	bolt "github.com/coreos/bbolt"
	"github.com/davecgh/go-spew/spew"
	"github.com/fsnotify/fsnotify"

	"github.com/signum-network/signum-miner-go/internal/dispatch"
	"github.com/signum-network/signum-miner-go/internal/mlog"
	"github.com/signum-network/signum-miner-go/internal/plot"
	"github.com/signum-network/signum-miner-go/internal/poc"
	"github.com/signum-network/signum-miner-go/internal/poolclient"
	"github.com/signum-network/signum-miner-go/internal/reader"
	"github.com/signum-network/signum-miner-go/internal/submit"
)

var log = mlog.Logger(mlog.SubsystemCtrl)

var roundSummaryBucket = []byte("round_summaries")

// Config bundles everything the Controller needs to run the three
// tasks described in spec §4.6.
type Config struct {
	Client   *poolclient.Client
	Reader   *reader.Reader
	Pipeline *submit.Pipeline
	NonceIn  <-chan dispatch.NonceData

	GetMiningInfoInterval time.Duration
	CapacityCheckInterval time.Duration
	HDDWakeupAfter        time.Duration

	PerAccountTargetDL map[uint64]uint64
	GlobalTargetDL     uint64
	SubmitOnlyBest     bool

	PlotDirs       []string
	UseDirectIO    bool
	ReaderThreads  int

	DB *bolt.DB
}

// Controller runs the three periodic/streaming tasks and owns the
// round State.
type Controller struct {
	cfg   Config
	state *State

	lastRoundActivity time.Time

	bestMu        map[uint64]submit.Params
	bestSet       bool
}

// New constructs a Controller. Call Run to start its tasks; Run
// blocks until ctx is cancelled.
func New(cfg Config) *Controller {
	return &Controller{
		cfg:   cfg,
		state: NewState(),
	}
}

// Run starts the mining-info poller, the capacity-rescan scheduler,
// the plot-directory watcher, and the nonce consumer, and blocks until
// ctx is done.
func (c *Controller) Run(ctx context.Context) {
	go c.pollMiningInfo(ctx)
	go c.capacityRescan(ctx)
	go c.watchPlotDirs(ctx)
	c.consumeNonces(ctx)
}

// watchPlotDirs supplements the periodic capacity-rescan ticker with
// an immediate rescan whenever a plot directory changes on disk (a
// plot finishing, or a drive being remounted), using the same
// fsnotify watch-and-debounce idiom the rest of the btcsuite/Decred
// family uses for config-file hot reload. A missing or unwatchable
// directory is logged and skipped rather than treated as fatal, since
// the ticker in capacityRescan already covers it.
func (c *Controller) watchPlotDirs(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("controller: plot-dir watcher unavailable: %v", err)
		return
	}
	defer watcher.Close()

	for _, dir := range c.cfg.PlotDirs {
		if err := watcher.Add(dir); err != nil {
			log.Warnf("controller: failed to watch plot dir %s: %v", dir, err)
		}
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Debugf("controller: plot-dir watcher error: %v", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			log.Tracef("controller: plot-dir event %s", ev)
			if debounce == nil {
				debounce = time.NewTimer(2 * time.Second)
			} else {
				debounce.Reset(2 * time.Second)
			}
		case <-debounceC(debounce):
			debounce = nil
			c.rescanOnce()
		}
	}
}

// debounceC returns t's channel, or a nil channel (which blocks
// forever in a select) when no debounce timer is pending.
func debounceC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// StateSnapshot exposes the round state for the optional status
// server; it never mutates anything the poll/consume goroutines rely
// on.
func (c *Controller) StateSnapshot() Snapshot {
	return c.state.Snapshot()
}

// pollMiningInfo implements spec §4.6's "mining-info poll" task: a
// "new interval" ticker (reset only after each tick completes, so an
// outage never causes a stampede of queued ticks), outage flagging,
// and Reader.Wakeup() when idle past hdd_wakeup_after.
func (c *Controller) pollMiningInfo(ctx context.Context) {
	for {
		start := time.Now()

		c.pollOnce(ctx)

		elapsed := time.Since(start)
		wait := c.cfg.GetMiningInfoInterval - elapsed
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (c *Controller) pollOnce(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.GetMiningInfoInterval)
	defer cancel()

	info, err := c.cfg.Client.GetMiningInfo(reqCtx)
	if err != nil {
		if !c.state.SetOutage(true) {
			log.Errorf("controller: getMiningInfo failed: %v", err)
		}
		return
	}
	if c.state.SetOutage(false) {
		log.Infof("controller: outage resolved")
	}

	genSig, err := info.GenSigBytes()
	if err != nil {
		log.Errorf("controller: %v", err)
		return
	}

	scoop := poc.ScoopIndex(&genSig, info.Height)
	taskCount := c.cfg.Reader.TaskCount()

	snap, changed := c.state.BeginRound(info.Height, info.BaseTarget, info.GenerationSignature, genSig, scoop, info.TargetDeadline, taskCount)
	if changed {
		log.Infof("controller: new block %d, height %d, scoop %d", snap.Block, snap.Height, snap.Scoop)
		log.Tracef("controller: round state %s", spew.Sdump(snap))

		c.cfg.Reader.StartRound(reader.RoundParams{
			Height: snap.Height, Block: snap.Block, BaseTarget: snap.BaseTarget,
			GenSig: snap.GenSig, Scoop: snap.Scoop,
		})
		c.state.SetScanning(false)
		c.lastRoundActivity = time.Now()
		return
	}

	if !c.state.Scanning() && c.cfg.HDDWakeupAfter > 0 && time.Since(c.lastRoundActivity) > c.cfg.HDDWakeupAfter {
		c.cfg.Reader.Wakeup()
		c.lastRoundActivity = time.Now()
	}
}

// capacityRescan implements spec §4.6's capacity-rescan task: it
// re-enumerates plot directories and atomically swaps the Reader's
// drive set and the Pool Client's advertised capacity, never
// aborting an in-progress round (the new set only takes effect on the
// next round start, since Reader.SetDrives only replaces the snapshot
// StartRound reads).
func (c *Controller) capacityRescan(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CapacityCheckInterval)
	defer ticker.Stop()

	c.rescanOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.rescanOnce()
		}
	}
}

func (c *Controller) rescanOnce() {
	drives, totalBytes, err := scanPlotDirs(c.cfg.PlotDirs, c.cfg.UseDirectIO)
	if err != nil {
		log.Warnf("controller: capacity rescan: %v", err)
		return
	}
	previous := c.cfg.Reader.Drives()
	c.cfg.Reader.SetDrives(drives)
	gb := float64(totalBytes) / (1 << 30)
	c.cfg.Client.SetCapacityGB(gb)
	log.Infof("controller: capacity rescan found %d drives, %.2f GB", len(drives), gb)

	// Any round already in flight captured its own drive slice at
	// StartRound time, so closing the superseded handles here only
	// affects plots no future round will touch. A round that starts
	// in the narrow window between SetDrives and this close would
	// race; accepted as a rare, self-healing case (the next rescan
	// reopens the plot).
	closeDrives(previous)
}

func closeDrives(drives []*reader.Drive) {
	for _, d := range drives {
		for _, h := range d.Plots {
			h.Close()
		}
	}
}

// consumeNonces implements spec §4.6's nonce-consumer: deadline
// computation, stale-round discard, cap filtering, per-account
// best-deadline tracking, forwarding (or submit_only_best stashing),
// and round-finished detection/logging.
func (c *Controller) consumeNonces(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case nd, ok := <-c.cfg.NonceIn:
			if !ok {
				return
			}
			c.handleNonce(nd)
		}
	}
}

func (c *Controller) handleNonce(nd dispatch.NonceData) {
	if nd.DeadlineUnadjusted != math.MaxUint64 && nd.BaseTarget != 0 {
		deadline := nd.DeadlineUnadjusted / nd.BaseTarget
		cap := c.state.EffectiveCap(nd.AccountID, c.cfg.PerAccountTargetDL, c.cfg.GlobalTargetDL)

		if c.state.TryAcceptDeadline(nd.Height, nd.AccountID, deadline, cap) {
			params := submit.Params{
				AccountID: nd.AccountID, Nonce: nd.Nonce, Height: nd.Height, Block: nd.Block,
				DeadlineUnadjusted: nd.DeadlineUnadjusted, Deadline: deadline,
			}
			if c.cfg.SubmitOnlyBest {
				c.stashBest(params)
			} else {
				c.cfg.Pipeline.Submit(params)
			}
		}
	}

	if nd.ReaderTaskProcessed {
		finished, elapsed := c.state.MarkReaderTaskProcessed(nd.Height)
		if finished {
			c.onRoundFinished(nd.Height, nd.Block, elapsed)
		}
	}
}

func (c *Controller) stashBest(p submit.Params) {
	if c.bestMu == nil {
		c.bestMu = make(map[uint64]submit.Params)
	}
	c.bestMu[p.AccountID] = p
	c.bestSet = true
}

func (c *Controller) onRoundFinished(height, block uint64, elapsed time.Duration) {
	if c.cfg.SubmitOnlyBest && c.bestSet {
		for _, p := range c.bestMu {
			c.cfg.Pipeline.Submit(p)
		}
		c.bestMu = nil
		c.bestSet = false
	}

	totalBytes, _ := totalPlottedBytes(c.cfg.PlotDirs)
	var speed float64
	if elapsed > 0 {
		speed = float64(totalBytes) / elapsed.Seconds()
	}
	log.Infof("controller: round finished, height=%d block=%d roundtime=%s speed=%.2f MB/s",
		height, block, elapsed, speed/(1<<20))

	if c.cfg.DB != nil {
		c.persistRoundSummary(height, block, elapsed, speed)
	}
}

type roundSummary struct {
	Height    uint64  `json:"height"`
	Block     uint64  `json:"block"`
	ElapsedMs int64   `json:"elapsed_ms"`
	SpeedBps  float64 `json:"speed_bps"`
}

// persistRoundSummary writes one record per finished round to an
// embedded bbolt database, grounded on Eacred-eacrpool's pool.DB
// (*bolt.DB) field — purely informational, so any write failure is
// logged, never propagated.
func (c *Controller) persistRoundSummary(height, block uint64, elapsed time.Duration, speed float64) {
	rec := roundSummary{Height: height, Block: block, ElapsedMs: elapsed.Milliseconds(), SpeedBps: speed}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	err = c.cfg.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(roundSummaryBucket)
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], height)
		return b.Put(key[:], data)
	})
	if err != nil {
		log.Warnf("controller: failed to persist round summary: %v", err)
	}
}

// LastRoundSummary reads the most recently written round summary, used
// to report stats immediately after a restart.
func LastRoundSummary(db *bolt.DB) (string, error) {
	var out string
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(roundSummaryBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		_, v := c.Last()
		if v == nil {
			return nil
		}
		out = string(v)
		return nil
	})
	return out, err
}

func totalPlottedBytes(dirs []string) (uint64, error) {
	var total uint64
	for _, dir := range dirs {
		metas, err := scanDirMetas(dir)
		if err != nil {
			continue
		}
		for _, m := range metas {
			total += m.TotalBytes()
		}
	}
	return total, nil
}

func scanDirMetas(dir string) ([]plot.Meta, error) {
	entries, err := readDirNames(dir)
	if err != nil {
		return nil, err
	}
	var metas []plot.Meta
	for _, name := range entries {
		m, err := plot.ParseMeta(name)
		if err != nil {
			continue
		}
		metas = append(metas, m)
	}
	return metas, nil
}
