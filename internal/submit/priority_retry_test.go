// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package submit

import (
	"container/heap"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withShortDebounce(t *testing.T, d time.Duration) {
	old := debounceWindow
	debounceWindow = d
	t.Cleanup(func() { debounceWindow = old })
}

func TestPrioRetryEmitsSingleItemAfterWindow(t *testing.T) {
	withShortDebounce(t, 30*time.Millisecond)
	p := NewPrioRetry()
	defer p.Close()

	item := Params{Block: 1, Deadline: 100}
	p.In <- item

	select {
	case got := <-p.Out:
		assert.Equal(t, item, got)
	case <-time.After(time.Second):
		t.Fatal("expected emission after debounce window")
	}
}

func TestPrioRetryPreemptionByHigherPriority(t *testing.T) {
	withShortDebounce(t, 80*time.Millisecond)
	p := NewPrioRetry()
	defer p.Close()

	low := Params{Block: 1, Deadline: 100}
	high := Params{Block: 2, Deadline: 100}

	p.In <- low
	time.Sleep(10 * time.Millisecond)
	p.In <- high // preempts low, resets the timer

	select {
	case got := <-p.Out:
		assert.Equal(t, high, got, "higher-priority item should be emitted first")
	case <-time.After(time.Second):
		t.Fatal("expected emission")
	}

	// The preempted low-priority item should surface next.
	select {
	case got := <-p.Out:
		assert.Equal(t, low, got)
	case <-time.After(time.Second):
		t.Fatal("expected the preempted item to surface afterward")
	}
}

func TestPrioRetryLowerPriorityBuffered(t *testing.T) {
	withShortDebounce(t, 40*time.Millisecond)
	p := NewPrioRetry()
	defer p.Close()

	best := Params{Block: 5, Deadline: 50}
	worse := Params{Block: 5, Deadline: 999}

	p.In <- best
	p.In <- worse // same gen_sig, higher (worse) deadline: buffered, not preempting

	select {
	case got := <-p.Out:
		assert.Equal(t, best, got)
	case <-time.After(time.Second):
		t.Fatal("expected best item first")
	}

	select {
	case got := <-p.Out:
		assert.Equal(t, worse, got)
	case <-time.After(time.Second):
		t.Fatal("expected buffered item to surface next")
	}
}

func TestParamsHeapPopsHighestPriorityFirst(t *testing.T) {
	h := &paramsHeap{}
	heap.Init(h)
	for _, it := range []Params{
		{Block: 1, Deadline: 10},
		{Block: 3, Deadline: 10},
		{Block: 2, Deadline: 10},
	} {
		heap.Push(h, it)
	}

	require.Equal(t, uint64(3), heap.Pop(h).(Params).Block)
	require.Equal(t, uint64(2), heap.Pop(h).(Params).Block)
	require.Equal(t, uint64(1), heap.Pop(h).(Params).Block)
}
