// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dispatch

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signum-network/signum-miner-go/internal/buffer"
	"github.com/signum-network/signum-miner-go/internal/poc"
	"github.com/signum-network/signum-miner-go/internal/reader"
)

type fakeKernel struct{}

func (fakeKernel) Name() string { return "fake" }
func (fakeKernel) FindBest(buf []byte, gensig *[32]byte) poc.Result {
	return poc.Result{Deadline: 42, Offset: 1}
}

func runDispatcher(t *testing.T, in chan reader.ReadReply, out chan NonceData, pool *buffer.Pool, benchmarkCPU bool) {
	d := New(Config{In: in, Out: out, Pool: pool, Kernel: fakeKernel{}, Workers: 1, BenchmarkCPU: benchmarkCPU})
	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()
	t.Cleanup(func() {
		close(in)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("dispatcher did not shut down")
		}
	})
}

func TestZeroLenNotFinishedReturnsBufferOnly(t *testing.T) {
	pool := buffer.New(1, 64)
	in := make(chan reader.ReadReply, 1)
	out := make(chan NonceData, 1)
	runDispatcher(t, in, out, pool, false)

	buf, ok := pool.Acquire(make(chan struct{}))
	require.True(t, ok)
	in <- reader.ReadReply{Buf: buf, Info: reader.ReadInfo{LenBytes: 0, Finished: false}}

	select {
	case <-out:
		t.Fatal("did not expect a NonceData for a non-finished zero-length reply")
	case <-time.After(50 * time.Millisecond):
	}

	b2, ok := pool.Acquire(make(chan struct{}))
	require.True(t, ok)
	assert.Equal(t, buf.ID, b2.ID, "buffer should have been returned to the pool")
}

func TestZeroLenFinishedEmitsSentinel(t *testing.T) {
	pool := buffer.New(1, 64)
	in := make(chan reader.ReadReply, 1)
	out := make(chan NonceData, 1)
	runDispatcher(t, in, out, pool, false)

	in <- reader.ReadReply{Info: reader.ReadInfo{Height: 5, Block: 2, LenBytes: 0, Finished: true}}

	select {
	case nd := <-out:
		assert.Equal(t, uint64(math.MaxUint64), nd.DeadlineUnadjusted)
		assert.True(t, nd.ReaderTaskProcessed)
		assert.Equal(t, uint64(5), nd.Height)
	case <-time.After(time.Second):
		t.Fatal("expected sentinel NonceData")
	}
}

func TestNormalReplyComputesNonceFromKernelOffset(t *testing.T) {
	pool := buffer.New(1, 128)
	in := make(chan reader.ReadReply, 1)
	out := make(chan NonceData, 1)
	runDispatcher(t, in, out, pool, false)

	buf, ok := pool.Acquire(make(chan struct{}))
	require.True(t, ok)
	buf.Len = 128
	in <- reader.ReadReply{Buf: buf, Info: reader.ReadInfo{
		StartNonce: 1000, LenBytes: 128, Finished: true, AccountID: 7,
	}}

	select {
	case nd := <-out:
		assert.Equal(t, uint64(42), nd.DeadlineUnadjusted)
		assert.Equal(t, uint64(1001), nd.Nonce) // StartNonce(1000) + fakeKernel offset(1)
		assert.Equal(t, uint64(7), nd.AccountID)
		assert.True(t, nd.ReaderTaskProcessed)
	case <-time.After(time.Second):
		t.Fatal("expected NonceData")
	}
}

func TestBenchmarkCPUModeSkipsHashing(t *testing.T) {
	pool := buffer.New(1, 64)
	in := make(chan reader.ReadReply, 1)
	out := make(chan NonceData, 1)
	runDispatcher(t, in, out, pool, true)

	buf, ok := pool.Acquire(make(chan struct{}))
	require.True(t, ok)
	buf.Len = 64
	in <- reader.ReadReply{Buf: buf, Info: reader.ReadInfo{LenBytes: 64, Finished: true}}

	select {
	case nd := <-out:
		assert.Equal(t, uint64(math.MaxUint64), nd.DeadlineUnadjusted)
	case <-time.After(time.Second):
		t.Fatal("expected sentinel NonceData in benchmark-cpu mode")
	}
}
