// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package submit

import "container/heap"

// paramsHeap is a max-heap over Params ordered by Params.Less: Pop
// always returns the highest-priority item currently buffered,
// matching the original implementation's std::collections::BinaryHeap
// (a max-heap by its Ord impl).
type paramsHeap []Params

func (h paramsHeap) Len() int { return len(h) }

// Less inverts Params.Less so container/heap's min-heap machinery
// yields a max-heap over the priority order: h[j].Less(h[i]) is true
// exactly when i should be considered "smaller" in heap terms, i.e.
// i has higher priority and must surface first.
func (h paramsHeap) Less(i, j int) bool { return h[j].Less(h[i]) }

func (h paramsHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *paramsHeap) Push(x any) { *h = append(*h, x.(Params)) }

func (h *paramsHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*paramsHeap)(nil)
