// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package buffer implements the fixed-size, reusable byte-buffer pool
// shared by the Reader and Hash Dispatcher. It follows the
// size-keyed sync.Pool idiom the gocryptfs example uses for its
// MemoryPool, but backed by bounded channels instead of sync.Pool so
// the pool doubles as the backpressure mechanism spec.md §4.3
// requires: a reader blocks acquiring an empty buffer when every
// buffer is already in flight.
package buffer

import "sync/atomic"

// Buffer is a fixed-capacity, single-writer-at-a-time byte region.
// Identity (ID) exists only to make log lines and debugging traceable
// across the reader -> dispatcher -> pool lifecycle; it has no
// semantic meaning.
type Buffer struct {
	ID   uint64
	Data []byte
	// Len is the number of valid bytes currently held, always a
	// multiple of 64 and <= cap(Data), per invariant 1.
	Len int
}

var nextID uint64

func newBuffer(size int) *Buffer {
	return &Buffer{
		ID:   atomic.AddUint64(&nextID, 1),
		Data: make([]byte, size),
	}
}

// Pool is a fixed-size set of reusable Buffers. Capacity is sized once
// at startup to cpu_worker_tasks + cpu_threads, per spec §4.3.
type Pool struct {
	empty chan *Buffer
	size  int
}

// New allocates `count` buffers of `bufSize` bytes (rounded down to a
// multiple of 64 by the caller, per the Buffer invariant) and seeds
// the empty-buffer channel with all of them.
func New(count, bufSize int) *Pool {
	p := &Pool{
		empty: make(chan *Buffer, count),
		size:  bufSize,
	}
	for i := 0; i < count; i++ {
		p.empty <- newBuffer(bufSize)
	}
	return p
}

// BufferSize returns the fixed capacity, in bytes, of every buffer
// this pool manages.
func (p *Pool) BufferSize() int { return p.size }

// Acquire blocks until an empty buffer is available or ctx-like
// cancellation is signaled via the done channel. Callers in the
// Reader pass a round-abandon channel as done so an in-flight
// acquisition can be interrupted when a new round preempts the
// current one.
func (p *Pool) Acquire(done <-chan struct{}) (*Buffer, bool) {
	select {
	case b := <-p.empty:
		b.Len = 0
		return b, true
	case <-done:
		return nil, false
	}
}

// Release returns a buffer to the pool. Every exit path in the
// Dispatcher — success, error, or a zero-length ReadReply — must call
// this exactly once per acquired buffer, per testable property 3 (no
// leaks).
func (p *Pool) Release(b *Buffer) {
	b.Len = 0
	p.empty <- b
}
