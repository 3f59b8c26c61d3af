// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package cdfmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRejectsEmptyKeys(t *testing.T) {
	_, _, err := Build(10, 4, nil)
	require.Error(t, err)
}

func TestBuildRejectsUnsortedKeys(t *testing.T) {
	_, _, err := Build(10, 4, []uint64{5, 3})
	require.Error(t, err)
}

func TestBuildRejectsZeroBlockSize(t *testing.T) {
	_, _, err := Build(10, 0, []uint64{1, 2, 3})
	require.Error(t, err)
}

func TestBuildRejectsNonPositiveBudget(t *testing.T) {
	_, _, err := Build(0, 4, []uint64{1, 2, 3})
	require.Error(t, err)
	_, _, err = Build(-1, 4, []uint64{1, 2, 3})
	require.Error(t, err)
}

func TestBuildSingletonKey(t *testing.T) {
	model, positions, err := Build(10, 4, []uint64{42})
	require.NoError(t, err)
	require.Empty(t, positions)
	status, _ := model.Classify(42)
	require.Equal(t, Exist, status)
	status, _ = model.Classify(41)
	require.Equal(t, OutOfScope, status)
}

func TestEveryKeyClassifiesAsPresent(t *testing.T) {
	keys := []uint64{1, 2, 3, 10, 100, 101, 102, 1000, 1_000_000, 1_000_001}
	model, positions, err := Build(10, 4, keys)
	require.NoError(t, err)

	for _, k := range keys {
		status, _ := model.Classify(k)
		require.NotEqual(t, OutOfScope, status, "key %d must never classify OutOfScope", k)
	}

	// Positions must land within the model's declared capacity.
	total := model.A[len(model.A)-1]
	for _, p := range positions {
		require.Less(t, p, total)
	}
}

func TestClassifyOutOfScopeOutsideBounds(t *testing.T) {
	keys := []uint64{10, 20, 30, 40, 50}
	model, _, err := Build(10, 4, keys)
	require.NoError(t, err)

	status, _ := model.Classify(5)
	require.Equal(t, OutOfScope, status)
	status, _ = model.Classify(1000)
	require.Equal(t, OutOfScope, status)
}

func TestClassifyRangeCoveringEverything(t *testing.T) {
	keys := []uint64{10, 20, 30, 40, 50}
	model, _, err := Build(10, 4, keys)
	require.NoError(t, err)

	status, _, _ := model.ClassifyRange(0, 1000)
	require.Equal(t, Exist, status)
}

func TestClassifyRangeOutOfScope(t *testing.T) {
	keys := []uint64{10, 20, 30, 40, 50}
	model, _, err := Build(10, 4, keys)
	require.NoError(t, err)

	status, _, _ := model.ClassifyRange(0, 5)
	require.Equal(t, OutOfScope, status)
	status, _, _ = model.ClassifyRange(60, 100)
	require.Equal(t, OutOfScope, status)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	keys := []uint64{1, 2, 3, 10, 100, 101, 102, 1000, 1_000_000, 1_000_001}
	model, _, err := Build(10, 4, keys)
	require.NoError(t, err)

	buf := model.Serialize()
	require.Equal(t, model.ByteSize(), len(buf))

	decoded, n, err := Deserialize(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, model.Begins, decoded.Begins)
	require.Equal(t, model.Ends, decoded.Ends)
	require.Equal(t, model.A, decoded.A)
}

func TestDeserializeRejectsTruncated(t *testing.T) {
	_, _, err := Deserialize([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDeserializeRejectsNonMonotoneCapacity(t *testing.T) {
	model := &Model{
		Begins: []uint64{0, 10},
		Ends:   []uint64{5, 20},
		A:      []uint64{0, 100, 50},
	}
	buf := model.Serialize()
	_, _, err := Deserialize(buf)
	require.Error(t, err)
}

func TestProjectPosMonotoneWithinInterval(t *testing.T) {
	keys := make([]uint64, 0, 100)
	for i := uint64(0); i < 100; i++ {
		keys = append(keys, i*3)
	}
	model, _, err := Build(20, 4, keys)
	require.NoError(t, err)

	var lastPos uint64
	var lastStatus Status
	for _, k := range keys {
		status, pos := model.Classify(k)
		if status == Uncertain {
			if lastStatus == Uncertain {
				require.LessOrEqual(t, lastPos, pos, "positions must be non-decreasing along sorted keys")
			}
			lastPos = pos
		}
		lastStatus = status
	}
}
