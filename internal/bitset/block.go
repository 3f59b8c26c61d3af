// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package bitset implements the compressed bitset block described in the
// filter's component A: a bit-packed, rank-enabled set over a small
// universe [0, U) holding at most a block's worth of sorted distinct
// values, supporting point and range membership queries.
//
// Rather than hand-rolling an Elias-Fano codec, the block is backed by a
// github.com/RoaringBitmap/roaring/v2 bitmap. Roaring's own binary format
// is self-delimiting (Mount reports exactly how many bytes it consumed),
// which gives the block-list component the byte_size()-driven walk the
// filter's on-disk layout requires, and FromBuffer mounts a block as a view
// into caller-owned memory rather than copying it.
package bitset

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/flowdb/rangefilter/internal/rferrors"
)

// Block is a compressed, sorted set of uint32 values (deltas from a block
// list's bias) supporting point and range membership queries.
type Block struct {
	bm *roaring.Bitmap
	// raw is the exact encoded byte representation of bm: either the slice
	// Build produced, or the sub-slice of the mount buffer Mount consumed.
	// Keeping it around lets the block list re-emit a mounted block
	// byte-for-byte without re-encoding.
	raw []byte
}

// Build encodes a sorted slice of values (already delta-shifted relative
// to the batch's bias; repeated values collapse into one member) into a
// self-delimiting byte
// blob satisfying the block contract: point/range query correctness, size
// sublinear in the universe, and a self-describing length.
func Build(values []uint32) ([]byte, error) {
	bm := roaring.New()
	for _, v := range values {
		bm.Add(v)
	}
	data, err := bm.ToBytes()
	if err != nil {
		return nil, rferrors.InvalidInputf("encoding bitset block: %v", err)
	}
	return data, nil
}

// Raw returns the exact bytes this block was built or mounted from.
func (b *Block) Raw() []byte {
	return b.raw
}

// Count returns the number of distinct values held by this block.
func (b *Block) Count() int {
	return int(b.bm.GetCardinality())
}

// Mount creates a zero-copy view of a block encoded by Build, backed by
// buf. It returns the Block and the number of bytes of buf consumed by
// this block's encoding so the caller can advance to the next block in a
// shared payload buffer.
func Mount(buf []byte) (*Block, int64, error) {
	bm := roaring.New()
	n, err := bm.FromBuffer(buf)
	if err != nil {
		return nil, 0, rferrors.Corruptf("mounting bitset block: %v", err)
	}
	if n <= 0 || n > int64(len(buf)) {
		return nil, 0, rferrors.Corruptf("bitset block reports invalid length %d (buffer has %d bytes)", n, len(buf))
	}
	return &Block{bm: bm, raw: buf[:n]}, n, nil
}

// ByteSize returns this block's exact encoded footprint.
func (b *Block) ByteSize() int {
	return len(b.raw)
}

// PointQuery reports whether v is a member of the block.
func (b *Block) PointQuery(v uint32) bool {
	return b.bm.Contains(v)
}

// RangeQuery reports whether any member of the block falls in [lo, hi].
func (b *Block) RangeQuery(lo, hi uint32) bool {
	if lo > hi {
		return false
	}
	it := b.bm.Iterator()
	it.AdvanceIfNeeded(lo)
	return it.HasNext() && it.PeekNext() <= hi
}
