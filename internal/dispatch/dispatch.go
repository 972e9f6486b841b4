// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package dispatch implements the Hash Dispatcher: it consumes
// ReadReplies from the Reader, runs the PoC Kernel on a fixed pool of
// worker goroutines, and emits NonceData toward the Miner Controller.
package dispatch

import (
	"math"
	"sync"

	"github.com/signum-network/signum-miner-go/internal/buffer"
	"github.com/signum-network/signum-miner-go/internal/mlog"
	"github.com/signum-network/signum-miner-go/internal/poc"
	"github.com/signum-network/signum-miner-go/internal/reader"
)

var log = mlog.Logger(mlog.SubsystemHash)

// NonceData is emitted toward the Controller for every processed
// chunk, per the data model.
type NonceData struct {
	Height                uint64
	Block                 uint64
	BaseTarget            uint64
	DeadlineUnadjusted    uint64
	Nonce                 uint64
	AccountID             uint64
	ReaderTaskProcessed   bool
}

// Dispatcher owns a fixed-size worker pool that drains a ReadReply
// channel and pushes NonceData to its output channel.
type Dispatcher struct {
	in          <-chan reader.ReadReply
	out         chan<- NonceData
	pool        *buffer.Pool
	kernel      poc.Kernel
	workers     int
	benchmarkCPU bool
}

// Config bundles Dispatcher construction parameters.
type Config struct {
	In          <-chan reader.ReadReply
	Out         chan<- NonceData
	Pool        *buffer.Pool
	Kernel      poc.Kernel
	Workers     int
	BenchmarkCPU bool
}

func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		in:           cfg.In,
		out:          cfg.Out,
		pool:         cfg.Pool,
		kernel:       cfg.Kernel,
		workers:      cfg.Workers,
		benchmarkCPU: cfg.BenchmarkCPU,
	}
}

// Run starts the worker pool and blocks until the input channel is
// closed and every worker has drained, per testable property 3: every
// acquired buffer is released on every exit path.
func (d *Dispatcher) Run() {
	var wg sync.WaitGroup
	wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go func() {
			defer wg.Done()
			d.worker()
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) worker() {
	for reply := range d.in {
		d.process(reply)
	}
}

func (d *Dispatcher) process(reply reader.ReadReply) {
	info := reply.Info

	// len_bytes == 0 and finished: sentinel NonceData so the
	// Controller can count round completion; len_bytes == 0 and
	// !finished: nothing to emit.
	if info.LenBytes == 0 || d.benchmarkCPU {
		if reply.Buf != nil {
			d.pool.Release(reply.Buf)
		}
		if info.Finished {
			d.out <- NonceData{
				Height: info.Height, Block: info.Block, BaseTarget: info.BaseTarget,
				DeadlineUnadjusted:  math.MaxUint64,
				ReaderTaskProcessed: true,
			}
		}
		return
	}

	buf := reply.Buf
	gensig := info.GenSig
	res := d.kernel.FindBest(buf.Data[:buf.Len], &gensig)
	d.pool.Release(buf)

	d.out <- NonceData{
		Height:              info.Height,
		Block:               info.Block,
		BaseTarget:          info.BaseTarget,
		DeadlineUnadjusted:  res.Deadline,
		Nonce:               info.StartNonce + res.Offset,
		AccountID:           info.AccountID,
		ReaderTaskProcessed: info.Finished,
	}
}
