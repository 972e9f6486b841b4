// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package reader implements the per-drive reader threads that scan
// plot files and feed scoop data to the Hash Dispatcher via the
// buffer pool's bounded channels.
package reader

import (
	"sort"
	"sync"
	"time"

	"github.com/signum-network/signum-miner-go/internal/buffer"
	"github.com/signum-network/signum-miner-go/internal/mlog"
	"github.com/signum-network/signum-miner-go/internal/plot"
)

var log = mlog.Logger(mlog.SubsystemRead)

// RoundParams is the subset of RoundState the Reader needs to service
// a round: the scoop to read and the round tag used to detect
// preemption and to stamp every ReadReply, per data-model invariant 2.
type RoundParams struct {
	Height     uint64
	Block      uint64
	BaseTarget uint64
	GenSig     [32]byte
	Scoop      uint32
}

// ReadInfo is the read-info half of a ReadReply (spec §3).
type ReadInfo struct {
	Height     uint64
	Block      uint64
	BaseTarget uint64
	GenSig     [32]byte
	Scoop      uint32
	AccountID  uint64
	StartNonce uint64
	LenBytes   int
	Finished   bool
}

// ReadReply pairs a buffer with its read-info, per the data model.
type ReadReply struct {
	Buf  *buffer.Buffer
	Info ReadInfo
}

// Drive groups the plots that live on one physical device, identified
// by DriveID rather than path (spec §4.2).
type Drive struct {
	ID        string
	Removable bool
	Plots     []*plot.Handle
}

// Reader owns a set of drives and services rounds signalled via
// StartRound, starting one goroutine per drive for every round. There
// is no configurable reader-slot count: drives are never grouped onto
// a smaller number of worker goroutines.
type Reader struct {
	mu      sync.Mutex
	drives  []*Drive
	pool    *buffer.Pool
	out     chan<- ReadReply
	ioChunk int // nonces per chunk = io_buffer_size / 64
	pinning bool

	roundMu    sync.Mutex
	round      RoundParams
	roundToken uint64
	abandon    chan struct{}

	benchmarkIO bool
}

// Config bundles Reader construction parameters.
type Config struct {
	Pool        *buffer.Pool
	Out         chan<- ReadReply
	IOBufferSz  int
	Pinning     bool
	BenchmarkIO bool
}

func New(cfg Config) *Reader {
	return &Reader{
		pool:        cfg.Pool,
		out:         cfg.Out,
		ioChunk:     cfg.IOBufferSz / 64,
		pinning:     cfg.Pinning,
		abandon:     make(chan struct{}),
		benchmarkIO: cfg.BenchmarkIO,
	}
}

// SetDrives atomically replaces the drive set, used by the capacity
// rescan task. It must never abort an in-progress round — the new set
// only takes effect on the next StartRound, per spec §4.6.
func (r *Reader) SetDrives(drives []*Drive) {
	r.mu.Lock()
	r.drives = drives
	r.mu.Unlock()
}

// Drives returns the currently active drive set (read-only snapshot).
func (r *Reader) Drives() []*Drive {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Drive, len(r.drives))
	copy(out, r.drives)
	return out
}

// TaskCount returns the number of drives that will report Finished
// for the current round, i.e. reader_task_count in the Controller's
// round-completion arithmetic.
func (r *Reader) TaskCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drives)
}

// StartRound preempts any in-flight round and begins reading for the
// new one. Per spec §4.4.3, abandoned work emits no synthetic
// Finished reply; the Controller tolerates this via
// processed_reader_tasks < reader_task_count.
func (r *Reader) StartRound(p RoundParams) {
	r.roundMu.Lock()
	close(r.abandon)
	r.abandon = make(chan struct{})
	r.round = p
	r.roundToken++
	token := r.roundToken
	abandon := r.abandon
	r.roundMu.Unlock()

	drives := r.Drives()
	for _, d := range drives {
		go r.runDrive(d, p, token, abandon)
	}
}

// Wakeup issues a zero-length touch read to every plot to spin up
// idle HDDs; it never advances round state (spec §4.4.5).
func (r *Reader) Wakeup() {
	for _, d := range r.Drives() {
		for _, ph := range d.Plots {
			ph.Touch()
		}
	}
}

func (r *Reader) runDrive(d *Drive, p RoundParams, token uint64, abandon <-chan struct{}) {
	if r.pinning {
		pinToCore(d.ID)
	}

	plots := append([]*plot.Handle(nil), d.Plots...)
	sortByModTimeDesc(plots)

	finishedEmitted := false
	for pi, ph := range plots {
		select {
		case <-abandon:
			return
		default:
		}

		nonces := ph.Meta.Nonces
		for off := uint64(0); off < nonces; off += uint64(r.ioChunk) {
			select {
			case <-abandon:
				return
			default:
			}

			count := uint64(r.ioChunk)
			if off+count > nonces {
				count = nonces - off
			}

			buf, ok := r.pool.Acquire(abandon)
			if !ok {
				return
			}

			isLastChunk := pi == len(plots)-1 && off+count >= nonces

			if r.benchmarkIO {
				buf.Len = 0
				r.emit(buf, ph, p, off, 0, isLastChunk)
				if isLastChunk {
					finishedEmitted = true
				}
				continue
			}

			n, err := ph.ReadScoop(p.Scoop, off, count, buf.Data)
			if err != nil {
				log.Warnf("reader: %s: %v", ph.Path, err)
				r.pool.Release(buf)
				continue
			}
			buf.Len = n

			r.emit(buf, ph, p, off, n, isLastChunk)
			if isLastChunk {
				finishedEmitted = true
			}
		}
	}

	if !finishedEmitted {
		// The last chunk was never emitted (its read failed, or the
		// drive has no plots); still report finished so the round
		// can complete (spec §4.4
		// failure policy: an unreadable drive degrades silently).
		r.out <- ReadReply{Info: ReadInfo{
			Height: p.Height, Block: p.Block, BaseTarget: p.BaseTarget,
			GenSig: p.GenSig, Scoop: p.Scoop, Finished: true,
		}}
	}
}

func (r *Reader) emit(buf *buffer.Buffer, ph *plot.Handle, p RoundParams, chunkOffsetNonces uint64, n int, finished bool) {
	r.out <- ReadReply{
		Buf: buf,
		Info: ReadInfo{
			Height: p.Height, Block: p.Block, BaseTarget: p.BaseTarget,
			GenSig: p.GenSig, Scoop: p.Scoop,
			AccountID: ph.Meta.AccountID,
			// StartNonce is the first nonce this specific chunk
			// covers, not the plot's StartNonce: dispatch.NonceData's
			// Nonce = StartNonce + scoop-offset-within-chunk must
			// resolve to a real nonce, not one relative to the plot.
			StartNonce: ph.Meta.StartNonce + chunkOffsetNonces,
			LenBytes:   n,
			Finished:   finished,
		},
	}
}

func sortByModTimeDesc(plots []*plot.Handle) {
	sort.SliceStable(plots, func(i, j int) bool {
		return modTime(plots[i].Path).After(modTime(plots[j].Path))
	})
}

var modTimeFunc = defaultModTime

func modTime(path string) time.Time {
	return modTimeFunc(path)
}
