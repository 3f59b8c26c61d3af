// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package rangefilter

import (
	"bytes"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmptyKeys(t *testing.T) {
	_, err := New(10, 4, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewRejectsNonPositiveBudget(t *testing.T) {
	_, err := New(0, 4, []uint64{1, 2, 3})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBudgetTooSmall)
}

func TestNewRejectsUnsortedKeys(t *testing.T) {
	_, err := New(10, 4, []uint64{3, 1, 2})
	require.Error(t, err)
}

// The six end-to-end scenarios below all use block_size=4, bits_per_key=10
// unless stated otherwise, and are transcribed directly from the testable
// properties the build is required to satisfy.

func TestScenarioTinyDense(t *testing.T) {
	f, err := New(10, 4, []uint64{10, 11, 12, 13, 14})
	require.NoError(t, err)

	require.True(t, f.Point(10))
	require.True(t, f.Point(14))
	require.False(t, f.Point(9))
	require.False(t, f.Point(15))
	require.True(t, f.Point(12))
	require.True(t, f.Range(9, 10))
	require.False(t, f.Range(15, 20))
}

func TestScenarioOneBigGap(t *testing.T) {
	f, err := New(10, 4, []uint64{1, 2, 3, 1_000_000, 1_000_001, 1_000_002})
	require.NoError(t, err)

	require.False(t, f.Point(500_000))
	require.False(t, f.Range(100, 999_999))
	require.True(t, f.Range(999_999, 1_000_001))
}

func TestScenarioSingletonInterval(t *testing.T) {
	f, err := New(10, 4, []uint64{5, 6, 7, 8, 1_000_000_000})
	require.NoError(t, err)

	require.True(t, f.Point(1_000_000_000))
	require.False(t, f.Point(999_999_999))
	require.False(t, f.Point(1_000_000_001))
}

func TestScenarioRangeSpanningAGap(t *testing.T) {
	f, err := New(10, 4, []uint64{1, 2, 3, 1_000_000, 1_000_001, 1_000_002})
	require.NoError(t, err)

	require.True(t, f.Range(500, 2_000_000))
}

func TestScenarioSerializationRoundTrip(t *testing.T) {
	keys := sortedDistinctKeys(10_000, 101)
	f, err := New(10, 4, keys)
	require.NoError(t, err)

	buf := f.Serialize()
	decoded, err := Deserialize(buf)
	require.NoError(t, err)

	for _, k := range keys {
		require.True(t, decoded.Point(k))
	}

	rng := rand.New(rand.NewSource(202))
	present := make(map[uint64]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	lo, hi := keys[0], keys[len(keys)-1]
	tested := 0
	for tested < 10_000 {
		x := lo + rng.Uint64()%(hi-lo+1)
		if present[x] {
			continue
		}
		tested++
		require.Equal(t, f.Point(x), decoded.Point(x), "boolean vector must be identical across the round trip for x=%d", x)
	}
}

func TestScenarioRetuneCompliance(t *testing.T) {
	keys := sortedDistinctKeys(10_000, 303)
	const b = 12.0
	f, err := New(b, 4, keys)
	require.NoError(t, err)

	maxBytes := 1.05 * b * float64(len(keys)) / 8
	require.LessOrEqual(t, float64(f.ByteSize()), maxBytes,
		"retuned filter size exceeds 1.05*b*n/8 bytes")
}

func TestPointNoFalseNegatives(t *testing.T) {
	keys := sortedDistinctKeys(2000, 42)
	f, err := New(8, 32, keys)
	require.NoError(t, err)

	for _, k := range keys {
		require.True(t, f.Point(k), "key %d must never be reported absent", k)
	}
}

func TestRangeNoFalseNegatives(t *testing.T) {
	keys := sortedDistinctKeys(2000, 7)
	f, err := New(8, 32, keys)
	require.NoError(t, err)

	for i := 0; i < len(keys); i++ {
		// A range that starts and ends exactly on a real key must always
		// report true.
		require.True(t, f.Range(keys[i], keys[i]))
		if i+1 < len(keys) {
			require.True(t, f.Range(keys[i], keys[i+1]))
		}
	}
}

func TestPointFalsePositiveRateIsBounded(t *testing.T) {
	const bitsPerKey = 10.0
	keys := sortedDistinctKeys(5000, 99)
	f, err := New(bitsPerKey, 64, keys)
	require.NoError(t, err)

	present := make(map[uint64]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}

	rng := rand.New(rand.NewSource(1))
	trials := 20000
	falsePositives := 0
	tested := 0
	for i := 0; i < trials; i++ {
		x := rng.Uint64() % (keys[len(keys)-1] + 1)
		if present[x] {
			continue
		}
		tested++
		if f.Point(x) {
			falsePositives++
		}
	}
	require.Greater(t, tested, trials/2, "test is not exercising enough true negatives")
	rate := float64(falsePositives) / float64(tested)
	// The suggested bound is 2^-(b-3); allow a generous safety margin over
	// the theoretical value to absorb sampling noise rather than pinning
	// to it exactly.
	bound := 10 * math.Pow(2, -(bitsPerKey - 3))
	require.Less(t, rate, bound, "false positive rate %f exceeds the expected bound %f for a %g bit/key budget", rate, bound, bitsPerKey)
}

func TestByteSizeMatchesSerializeLength(t *testing.T) {
	keys := sortedDistinctKeys(500, 3)
	f, err := New(8, 16, keys)
	require.NoError(t, err)
	require.Equal(t, f.ByteSize(), len(f.Serialize()))
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	keys := sortedDistinctKeys(1000, 5)
	f, err := New(10, 32, keys)
	require.NoError(t, err)

	buf := f.Serialize()
	decoded, err := Deserialize(buf)
	require.NoError(t, err)

	for _, k := range keys {
		require.True(t, decoded.Point(k))
	}
	// Behavior for absent keys must match exactly across the round trip.
	lo := uint64(0)
	if keys[0] > 0 {
		lo = keys[0] - 1
	}
	for x := lo; x < keys[0]+50; x++ {
		require.Equal(t, f.Point(x), decoded.Point(x))
	}

	// serialize(deserialize(s)) must reproduce s bytewise.
	reserialized := decoded.Serialize()
	require.True(t, bytes.Equal(buf, reserialized), "re-serialized bytes must match the original blob exactly")
}

func TestDeserializeRejectsTruncated(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDeserializeDoesNotAliasSourceBuffer(t *testing.T) {
	keys := sortedDistinctKeys(500, 11)
	f, err := New(10, 8, keys)
	require.NoError(t, err)

	buf := f.Serialize()
	bufCopy := append([]byte(nil), buf...)

	decoded, err := Deserialize(buf)
	require.NoError(t, err)

	// Mutate (simulating release/reuse of) the source buffer; decoded must
	// be unaffected since Deserialize copies the payload section.
	for i := range buf {
		buf[i] = 0xFF
	}

	for _, k := range keys {
		require.True(t, decoded.Point(k))
	}
	require.True(t, bytes.Equal(decoded.Serialize(), bufCopy))
}

func TestSingleKeyFilter(t *testing.T) {
	f, err := New(10, 4, []uint64{7})
	require.NoError(t, err)
	require.True(t, f.Point(7))
	require.False(t, f.Point(6))
	require.False(t, f.Point(8))
	require.True(t, f.Range(0, 100))
	require.False(t, f.Range(0, 6))
	require.False(t, f.Range(8, 100))
}

func sortedDistinctKeys(n int, seed int64) []uint64 {
	rng := rand.New(rand.NewSource(seed))
	set := make(map[uint64]struct{}, n)
	for len(set) < n {
		set[rng.Uint64()%uint64(n*1000)] = struct{}{}
	}
	keys := make([]uint64, 0, n)
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
