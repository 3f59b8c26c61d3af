// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package cdfmodel implements the filter's CDF model (component B): a
// piecewise-linear mapping from a sorted key set onto a compressed
// position space, fitted to minimize expected false positives under a bit
// budget. It also implements the three-valued query classification
// protocol (OutOfScope / Exist / Uncertain) that the filter and block list
// build on.
package cdfmodel

import (
	"encoding/binary"
	"math"
	"math/big"
	"sort"

	"github.com/flowdb/rangefilter/internal/invariants"
	"github.com/flowdb/rangefilter/internal/rferrors"
)

// bookkeepingBitsPerInterval is C: the per-interval bookkeeping cost in
// bits (two u64 endpoints plus one u64 cumulative-alpha entry).
const bookkeepingBitsPerInterval = 3 * 64

// Status is the outcome of classifying a key or range against the model.
type Status int

const (
	// OutOfScope means no key in K can match: the query falls outside
	// [begin1, endS], inside a gap between intervals, or (for a point
	// query) lands on a singleton interval's non-boundary position.
	OutOfScope Status = iota
	// Exist means the query exactly matches an interval boundary, which
	// is always a real key; no bitset lookup is needed or possible.
	Exist
	// Uncertain means the query must be resolved by the block list at
	// the returned projected position(s).
	Uncertain
)

// Model is the built CDF model: S disjoint closed key intervals plus their
// cumulative position-space capacity.
type Model struct {
	// Begins[i], Ends[i] are the inclusive key bounds of interval i.
	Begins []uint64
	Ends   []uint64
	// A has length len(Begins)+1. A[0] is always 0. Interval i owns the
	// half-open slot range [A[i], A[i+1]) in the compressed position
	// space; A[i+1]-A[i] is its capacity (alpha_i). A[len(Begins)] is the
	// total compressed position-space size.
	A []uint64
}

// Build fits a CDF model to sorted, strictly increasing keys under a
// bits-per-key budget and block size, returning the model together with
// the projected positions of every key that is strictly interior to its
// interval (i.e. every key the block list must actually store — boundary
// keys are resolved by Exist and are never projected).
func Build(bitsPerKey float64, blockSize uint16, keys []uint64) (*Model, []uint64, error) {
	n := len(keys)
	if n == 0 {
		return nil, nil, rferrors.InvalidInputf("key set is empty")
	}
	if blockSize == 0 {
		return nil, nil, rferrors.InvalidInputf("block size must be >= 1")
	}
	for i := 0; i < n-1; i++ {
		if keys[i] >= keys[i+1] {
			return nil, nil, rferrors.InvalidInputf("keys must be sorted and strictly increasing (index %d: %d >= %d)", i, keys[i], keys[i+1])
		}
	}
	if bitsPerKey <= 0 {
		return nil, nil, rferrors.BudgetTooSmallf("bits-per-key budget must be positive, got %.4f", bitsPerKey)
	}

	// bPrime is the residual budget left for position-space capacity after
	// the fixed per-key bitset and bias-array overhead. It is allowed to go
	// non-positive for small block sizes or tight budgets: the capacity
	// formula below degrades gracefully (R floors to 0, every non-singleton
	// interval still gets its one guaranteed slot via the alpha floor), so
	// this is a quality knob rather than a hard precondition.
	bPrime := bitsPerKey - 2 - 64.0/float64(blockSize)

	if n == 1 {
		return &Model{
			Begins: []uint64{keys[0]},
			Ends:   []uint64{keys[0]},
			A:      []uint64{0, 0},
		}, nil, nil
	}

	gaps := make([]uint64, n-1)
	for i := 0; i < n-1; i++ {
		gaps[i] = keys[i+1] - keys[i]
	}

	// m bounds how many of the largest gaps the heap below retains. The raw
	// formula can floor to 0 or 1 for small key sets, but selectCandidateGaps
	// always discards every gap tied with the retained minimum, so a
	// single retained gap can never produce a non-empty candidate set
	// anyway; clamping to 2 just lets a real split happen whenever the key
	// set actually has one, instead of forcing a single-interval model on
	// every small or tightly-budgeted build.
	m := int(math.Floor(bitsPerKey * float64(n) / float64(bookkeepingBitsPerInterval)))
	if m < 2 {
		m = 2
	}

	candidateGaps := selectCandidateGaps(gaps, m)

	totalSpan := float64(keys[n-1] - keys[0])
	var sumCandidates float64
	for _, g := range candidateGaps {
		sumCandidates += float64(g)
	}
	delta := totalSpan - sumCandidates

	threshold := uint64(math.MaxUint64)
	if len(candidateGaps) > 0 {
		threshold = selectThreshold(candidateGaps, delta, n, bPrime)
	}

	begins, ends, startIdx, endIdx := partition(keys, threshold)
	s := len(begins)

	// R may legitimately floor to 0 when bPrime is small or negative; every
	// non-singleton interval still gets its guaranteed minimum slot via the
	// alpha floor below, so a tiny or zero R only costs false-positive rate,
	// never correctness.
	r := math.Floor(math.Pow(2, bPrime-float64(bookkeepingBitsPerInterval)*float64(s)/float64(n)) * float64(n))
	var capacityBudget uint64
	switch {
	case r <= 0:
		capacityBudget = 0
	case r >= float64(math.MaxUint64):
		capacityBudget = math.MaxUint64
	default:
		capacityBudget = uint64(r)
	}

	var omega float64
	for i := 0; i < s; i++ {
		if begins[i] != ends[i] {
			omega += float64(ends[i] - begins[i])
		}
	}

	a := make([]uint64, s+1)
	for i := 0; i < s; i++ {
		var alpha uint64
		if begins[i] != ends[i] {
			spread := float64(ends[i] - begins[i])
			alpha = uint64(math.Ceil(spread / omega * float64(capacityBudget)))
			if alpha < 1 {
				alpha = 1
			}
		}
		a[i+1] = a[i] + alpha
	}

	model := &Model{Begins: begins, Ends: ends, A: a}

	invariants.CheckSometimes(10, func() {
		for i := 0; i < s; i++ {
			if a[i+1] < a[i] {
				panic(rferrors.Internalf("prefix-sum capacity array is not monotone at interval %d: A[%d]=%d > A[%d]=%d", i, i, a[i], i+1, a[i+1]))
			}
			if begins[i] > ends[i] {
				panic(rferrors.Internalf("interval %d has begin %d > end %d", i, begins[i], ends[i]))
			}
			if i > 0 && ends[i-1] >= begins[i] {
				panic(rferrors.Internalf("interval %d begin %d does not follow interval %d end %d", i, begins[i], i-1, ends[i-1]))
			}
		}
	})

	// Dense runs of keys routinely project onto the same compressed
	// position (e.g. a single-interval model with alpha=1 maps every
	// interior key to position 0): the capacity invariant only promises
	// projected positions are non-decreasing, not distinct, and a
	// collapsed position is exactly the intended source of a false
	// positive. Collapse adjacent duplicates here so the block list only
	// ever sees the distinct positions it's built to store.
	var positions []uint64
	for i := 0; i < s; i++ {
		if a[i+1] == a[i] {
			continue // singleton (or otherwise zero-capacity) interval
		}
		for k := startIdx[i] + 1; k < endIdx[i]; k++ {
			pos := model.projectPos(i, keys[k])
			if len(positions) == 0 || positions[len(positions)-1] != pos {
				positions = append(positions, pos)
			}
		}
	}

	return model, positions, nil
}

// partition splits keys into maximal runs separated by gaps >= threshold,
// returning each interval's key bounds and the [startIdx, endIdx] index
// range (inclusive) into keys that it spans.
func partition(keys []uint64, threshold uint64) (begins, ends []uint64, startIdx, endIdx []int) {
	n := len(keys)
	curStart := 0
	for i := 0; i < n-1; i++ {
		if keys[i+1]-keys[i] >= threshold {
			begins = append(begins, keys[curStart])
			ends = append(ends, keys[i])
			startIdx = append(startIdx, curStart)
			endIdx = append(endIdx, i)
			curStart = i + 1
		}
	}
	begins = append(begins, keys[curStart])
	ends = append(ends, keys[n-1])
	startIdx = append(startIdx, curStart)
	endIdx = append(endIdx, n-1)
	return begins, ends, startIdx, endIdx
}

// projectPos computes pos(x) for a key x known to lie strictly inside
// non-singleton interval i, using arbitrary-precision arithmetic: the
// intermediate alpha_i*x + end_i*A[i] - begin_i*A[i+1] can both overflow
// 64 bits and go negative, which math/big.Int handles exactly. The
// division is Euclidean (floor, since the divisor end_i-begin_i is always
// positive for a non-singleton interval), matching Int.Div's documented
// semantics.
func (m *Model) projectPos(i int, x uint64) uint64 {
	alpha := m.A[i+1] - m.A[i]
	begin, end := m.Begins[i], m.Ends[i]

	num := new(big.Int).Mul(bigU64(alpha), bigU64(x))
	num.Add(num, new(big.Int).Mul(bigU64(end), bigU64(m.A[i])))
	num.Sub(num, new(big.Int).Mul(bigU64(begin), bigU64(m.A[i+1])))

	den := bigU64(end - begin)
	q := new(big.Int).Div(num, den)
	return q.Uint64()
}

func bigU64(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// intervalFor returns the index of the largest interval whose Begins[i] <=
// x, or -1 if x < Begins[0].
func (m *Model) intervalFor(x uint64) int {
	i := sort.Search(len(m.Begins), func(i int) bool { return m.Begins[i] > x })
	return i - 1
}

// Classify implements the point-query protocol of §4.2.
func (m *Model) Classify(x uint64) (Status, uint64) {
	s := len(m.Begins)
	if s == 0 {
		return OutOfScope, 0
	}
	if x < m.Begins[0] || x > m.Ends[s-1] {
		return OutOfScope, 0
	}
	i := m.intervalFor(x)
	if i < 0 || x > m.Ends[i] {
		return OutOfScope, 0
	}
	if x == m.Begins[i] || x == m.Ends[i] {
		return Exist, 0
	}
	if m.A[i+1] == m.A[i] {
		return OutOfScope, 0
	}
	return Uncertain, m.projectPos(i, x)
}

// ClassifyRange implements the range-query protocol of §4.2.
func (m *Model) ClassifyRange(l, r uint64) (Status, uint64, uint64) {
	s := len(m.Begins)
	if s == 0 {
		return OutOfScope, 0, 0
	}
	if l > m.Ends[s-1] || r < m.Begins[0] {
		return OutOfScope, 0, 0
	}
	i := m.intervalFor(l)
	if i < 0 {
		i = 0
	}
	if i < s-1 && r < m.Begins[i+1] && l > m.Ends[i] {
		return OutOfScope, 0, 0
	}
	strictlyInterior := l > m.Begins[i] && r < m.Ends[i]
	if !strictlyInterior {
		return Exist, 0, 0
	}
	if m.A[i+1] == m.A[i] {
		return OutOfScope, 0, 0
	}
	return Uncertain, m.projectPos(i, l), m.projectPos(i, r)
}

// Serialize encodes the model per §4.2's binary layout: an S length
// prefix, then the begins, ends, and A[1..S] arrays as contiguous u64
// sequences. S is itself a u64 so the layout is already 8-byte aligned;
// no padding bytes are ever emitted, matching the spec's description of
// alignment padding collapsing to zero width here.
func (m *Model) Serialize() []byte {
	s := len(m.Begins)
	buf := make([]byte, 0, 8+8*3*s)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s))
	for _, v := range m.Begins {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	for _, v := range m.Ends {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	for i := 1; i <= s; i++ {
		buf = binary.LittleEndian.AppendUint64(buf, m.A[i])
	}
	return buf
}

// ByteSize returns the exact length Serialize would produce.
func (m *Model) ByteSize() int {
	return 8 + 8*3*len(m.Begins)
}

// Deserialize decodes a model from buf, returning the model and the number
// of bytes consumed.
func Deserialize(buf []byte) (*Model, int, error) {
	if len(buf) < 8 {
		return nil, 0, rferrors.Corruptf("model header truncated: need 8 bytes, have %d", len(buf))
	}
	s := int(binary.LittleEndian.Uint64(buf))
	if s < 0 {
		return nil, 0, rferrors.Corruptf("model declares negative interval count")
	}
	need := 8 + 8*3*s
	if len(buf) < need {
		return nil, 0, rferrors.Corruptf("model body truncated: need %d bytes, have %d", need, len(buf))
	}

	off := 8
	begins := make([]uint64, s)
	for i := 0; i < s; i++ {
		begins[i] = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	ends := make([]uint64, s)
	for i := 0; i < s; i++ {
		ends[i] = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	a := make([]uint64, s+1)
	for i := 1; i <= s; i++ {
		a[i] = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}

	for i := 0; i < s; i++ {
		if begins[i] > ends[i] {
			return nil, 0, rferrors.Corruptf("interval %d has begin %d > end %d", i, begins[i], ends[i])
		}
		if i > 0 && ends[i-1] >= begins[i] {
			return nil, 0, rferrors.Corruptf("interval %d begin %d does not follow interval %d end %d", i, begins[i], i-1, ends[i-1])
		}
		if a[i+1] < a[i] {
			return nil, 0, rferrors.Corruptf("cumulative capacity array is not monotone at index %d", i+1)
		}
	}

	return &Model{Begins: begins, Ends: ends, A: a}, off, nil
}
