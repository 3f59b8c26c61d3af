// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package cdfmodel

import (
	"container/heap"
	"math"
	"sort"
)

// gapHeap is a bounded min-heap of gap sizes, used to retain the M largest
// gaps out of the n-1 adjacent key gaps.
type gapHeap []uint64

func (h gapHeap) Len() int            { return len(h) }
func (h gapHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h gapHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *gapHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }
func (h *gapHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// selectCandidateGaps retains the M largest of the given gaps using a
// bounded min-heap, then discards every gap equal to the smallest retained
// value (per the spec: such gaps don't justify a split on their own). The
// result is sorted ascending; it may be empty if every gap ties at the
// retained minimum (e.g. uniformly spaced keys), in which case the model
// degrades to a single interval.
func selectCandidateGaps(gaps []uint64, m int) []uint64 {
	if m <= 0 || len(gaps) == 0 {
		return nil
	}
	h := &gapHeap{}
	heap.Init(h)
	for _, g := range gaps {
		switch {
		case h.Len() < m:
			heap.Push(h, g)
		case g > (*h)[0]:
			heap.Pop(h)
			heap.Push(h, g)
		}
	}
	if h.Len() == 0 {
		return nil
	}
	vmin := (*h)[0]

	candidates := make([]uint64, 0, len(gaps))
	for _, g := range gaps {
		if g > vmin {
			candidates = append(candidates, g)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	return candidates
}

// selectThreshold picks the gap threshold T minimizing the expected-FPR
// proxy rho(T), breaking ties toward the smallest T. candidateGaps must be
// sorted ascending and non-empty.
func selectThreshold(candidateGaps []uint64, delta float64, n int, bPrime float64) uint64 {
	prefixSum := make([]float64, len(candidateGaps)+1)
	for i, g := range candidateGaps {
		prefixSum[i+1] = prefixSum[i] + float64(g)
	}

	bestRho := math.Inf(1)
	var bestT uint64
	haveBest := false

	i := 0
	for i < len(candidateGaps) {
		t := candidateGaps[i]
		// Advance j past every gap equal to t. i is the first index holding
		// t (candidateGaps is sorted ascending, so i is also the count of
		// gaps strictly below t).
		j := i
		for j < len(candidateGaps) && candidateGaps[j] == t {
			j++
		}
		mT := len(candidateGaps) - i
		deltaT := delta + prefixSum[i]

		exponent := bPrime - (float64(bookkeepingBitsPerInterval)/float64(n))*float64(mT+1)
		denom := math.Ceil(math.Pow(2, exponent) * float64(n))
		if denom < 1 {
			denom = 1
		}
		rho := (deltaT * deltaT) / denom

		if !haveBest || rho < bestRho {
			bestRho = rho
			bestT = t
			haveBest = true
		}
		i = j
	}
	return bestT
}
