// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package submit implements the Submission Pipeline: the
// priority-retry stream combinator (debounce + max-heap buffer) and
// the wiring that submits accepted nonces to the Pool Client and
// re-enqueues transient failures.
//
// The naming here follows the original project's "PrioRetry" despite
// not being exponential backoff: it is a fixed 3-second debounce that
// always yields the single best-so-far item, exactly as described in
// spec §4.7 and ported from original_source/src/future/prio_retry.rs.
package submit

import (
	"container/heap"
	"time"
)

// debounceWindow is a var, not a const, so tests can shrink it; production
// code never changes it from the spec-mandated 3 seconds.
var debounceWindow = 3 * time.Second

// PrioRetry receives Params on In and releases at most one item every
// debounceWindow on Out: the currently-held ("delayed") item, unless
// a strictly higher-priority item preempts it first and restarts the
// window. Lower-or-equal-priority items are pushed to a max-heap and
// only surface once every higher-priority item has been emitted.
type PrioRetry struct {
	In  chan Params
	Out chan Params

	buffer paramsHeap
	timer  *time.Timer
	done   chan struct{}
}

// NewPrioRetry constructs a PrioRetry with unbuffered In/Out channels
// and starts its driving goroutine.
func NewPrioRetry() *PrioRetry {
	p := &PrioRetry{
		In:   make(chan Params),
		Out:  make(chan Params),
		done: make(chan struct{}),
	}
	go p.run()
	return p
}

// Close stops the driving goroutine. Safe to call once.
func (p *PrioRetry) Close() { close(p.done) }

func (p *PrioRetry) run() {
	var delayed *Params
	var timerC <-chan time.Time

	stopTimer := func() {
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	defer stopTimer()

	for {
		select {
		case <-p.done:
			return

		case item := <-p.In:
			switch {
			case delayed == nil:
				d := item
				delayed = &d
				stopTimer()
				p.timer = time.NewTimer(debounceWindow)
				timerC = p.timer.C
			case delayed.Less(item):
				heap.Push(&p.buffer, *delayed)
				d := item
				delayed = &d
				stopTimer()
				p.timer = time.NewTimer(debounceWindow)
				timerC = p.timer.C
			default:
				heap.Push(&p.buffer, item)
			}

		case <-timerC:
			emit := *delayed
			delayed = nil
			timerC = nil

			if p.buffer.Len() > 0 {
				next := heap.Pop(&p.buffer).(Params)
				delayed = &next
				stopTimer()
				p.timer = time.NewTimer(debounceWindow)
				timerC = p.timer.C
			}

			select {
			case p.Out <- emit:
			case <-p.done:
				return
			}
		}
	}
}
