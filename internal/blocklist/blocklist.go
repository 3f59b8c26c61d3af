// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package blocklist implements the filter's block list (component C): the
// sequence of compressed bitset blocks covering a CDF model's projected
// position space, indexed by a bias array so a position can be routed to
// its owning block without scanning the whole payload.
//
// The block list does not own a complete, self-contained wire format: the
// filter's on-disk layout interleaves the block list's header and bias
// array, the serialized CDF model, and the block list's raw payload bytes
// (see §4.4), so serialization here is split into a header half and a
// payload half that the owning filter stitches together around the model.
package blocklist

import (
	"encoding/binary"
	"sort"

	"github.com/flowdb/rangefilter/internal/bitset"
	"github.com/flowdb/rangefilter/internal/rferrors"
)

// HeaderSize is the fixed-width prefix of SerializeHeader's output, before
// the variable-length bias array: batch count (u64), compressed-payload
// size (u64), block size (u16), last-batch size (u16), and 4 bytes of
// alignment padding.
const HeaderSize = 8 + 8 + 2 + 2 + 4

// BlockList holds the bias array and the concatenated, block-size-bounded
// bitset payload built over a CDF model's projected positions.
type BlockList struct {
	// bias has len(blocks)+1 entries (none for an empty block list). bias[j] is the first position of
	// batch j; bias[len(blocks)] is the last position of the final batch
	// (P[|P|-1]). A block's universe is [0, bias[j+1]-bias[j]].
	bias   []uint64
	blocks []*bitset.Block
	// payloadSize is the total encoded footprint of blocks, i.e. the sum
	// of each block's ByteSize(); it does not include the bias array.
	payloadSize int
}

// Build partitions the sorted, non-decreasing projected positions into
// batches of blockSize (the final batch may be smaller) and encodes one
// compressed bitset block per batch. Equal adjacent positions are allowed
// — a dense run of keys collapsing onto the same compressed position is
// the expected source of a false positive, not an error — and simply
// collapse inside whichever block they fall into. positions may be empty,
// producing an empty block list that answers every query false.
func Build(blockSize uint16, positions []uint64) (*BlockList, error) {
	if len(positions) == 0 {
		return &BlockList{}, nil
	}
	if blockSize == 0 {
		return nil, rferrors.InvalidInputf("block size must be >= 1")
	}
	for i := 0; i < len(positions)-1; i++ {
		if positions[i] > positions[i+1] {
			return nil, rferrors.InvalidInputf("projected positions must be non-decreasing (index %d: %d > %d)", i, positions[i], positions[i+1])
		}
	}

	bl := &BlockList{}
	n := len(positions)
	for start := 0; start < n; start += int(blockSize) {
		end := start + int(blockSize)
		if end > n {
			end = n
		}
		batch := positions[start:end]
		bias := batch[0]

		values := make([]uint32, len(batch))
		for i, p := range batch {
			delta := p - bias
			if delta > 0xFFFFFFFF {
				// A well-formed CDF model never allocates a single batch
				// this much capacity; seeing it here means the model's own
				// budget accounting is broken, not that the caller passed
				// bad data.
				return nil, rferrors.Internalf("batch position spread %d exceeds a 32-bit universe (bias=%d)", delta, bias)
			}
			values[i] = uint32(delta)
		}

		raw, err := bitset.Build(values)
		if err != nil {
			return nil, err
		}
		block, _, err := bitset.Mount(raw)
		if err != nil {
			return nil, err
		}

		bl.bias = append(bl.bias, bias)
		bl.blocks = append(bl.blocks, block)
		bl.payloadSize += block.ByteSize()
	}
	bl.bias = append(bl.bias, positions[n-1])
	return bl, nil
}

// PointQuery reports whether pos is a member of the projected position set.
func (bl *BlockList) PointQuery(pos uint64) bool {
	if len(bl.blocks) == 0 {
		return false
	}
	if pos < bl.bias[0] || pos > bl.bias[len(bl.bias)-1] {
		return false
	}
	j, exact := bl.locate(pos)
	if exact {
		return true
	}
	return bl.blocks[j].PointQuery(uint32(pos - bl.bias[j]))
}

// RangeQuery reports whether any projected position falls in [pl, pr].
func (bl *BlockList) RangeQuery(pl, pr uint64) bool {
	if len(bl.blocks) == 0 || pl > pr {
		return false
	}
	j := bl.locateFloor(pr)
	if j < 0 {
		return false
	}
	biasJ := bl.bias[j]
	if biasJ == pr || pl <= biasJ {
		return true
	}
	// pl > biasJ is now guaranteed, so pl-biasJ cannot underflow. pr-biasJ
	// can still exceed a uint32 if the caller queries past the filter's
	// real key range; every genuine member delta is already < 2^32 by
	// construction (Build rejects oversized batches), so clamping the
	// upper bound down to MaxUint32 never hides a real match.
	deltaHi := pr - biasJ
	if deltaHi > 0xFFFFFFFF {
		deltaHi = 0xFFFFFFFF
	}
	return bl.blocks[j].RangeQuery(uint32(pl-biasJ), uint32(deltaHi))
}

// locate returns the block index owning pos and whether pos is itself a
// bias value (in which case it's known occupied without a block lookup).
func (bl *BlockList) locate(pos uint64) (j int, exact bool) {
	// Search over the per-block bias entries only (exclude the trailing
	// sentinel), finding the largest bias[j] <= pos.
	i := sort.Search(len(bl.blocks), func(i int) bool { return bl.bias[i] > pos })
	j = i - 1
	if j < 0 {
		j = 0
	}
	return j, bl.bias[j] == pos
}

// locateFloor returns the largest block index j such that bias[j] <= v,
// or -1 if v is below every bias value.
func (bl *BlockList) locateFloor(v uint64) int {
	i := sort.Search(len(bl.blocks), func(i int) bool { return bl.bias[i] > v })
	return i - 1
}

// HeaderByteSize returns the size SerializeHeader would produce.
func (bl *BlockList) HeaderByteSize() int {
	return HeaderSize + 8*len(bl.bias)
}

// PayloadByteSize returns the total size of the raw per-block bytes
// SerializePayload would produce.
func (bl *BlockList) PayloadByteSize() int {
	return bl.payloadSize
}

// SerializeHeader encodes the batch count, compressed-payload size, block
// size, last-batch size, alignment padding, and the bias array: everything
// the filter's layout places before the serialized CDF model.
func (bl *BlockList) SerializeHeader(blockSize uint16) []byte {
	nbatches := len(bl.blocks)
	lastSize := 0
	if nbatches > 0 {
		lastSize = bl.blocks[nbatches-1].Count()
	}

	buf := make([]byte, 0, bl.HeaderByteSize())
	buf = binary.LittleEndian.AppendUint64(buf, uint64(nbatches))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(bl.payloadSize))
	buf = binary.LittleEndian.AppendUint16(buf, blockSize)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(lastSize))
	buf = append(buf, make([]byte, 4)...)
	for _, b := range bl.bias {
		buf = binary.LittleEndian.AppendUint64(buf, b)
	}
	return buf
}

// SerializePayload encodes the raw per-block bytes in build order: the
// section the filter's layout places after the serialized CDF model.
func (bl *BlockList) SerializePayload() []byte {
	buf := make([]byte, 0, bl.payloadSize)
	for _, blk := range bl.blocks {
		buf = append(buf, blk.Raw()...)
	}
	return buf
}

// DeserializeHeader decodes the batch count, compressed-payload size, block
// size, last-batch size, padding, and bias array from buf, returning a
// BlockList with its bias populated but its blocks not yet mounted (that
// happens in MountPayload, once the caller has stepped past the
// interleaved CDF model), the declared block size, and the number of bytes
// consumed.
func DeserializeHeader(buf []byte) (bl *BlockList, blockSize uint16, consumed int, err error) {
	if len(buf) < HeaderSize {
		return nil, 0, 0, rferrors.Corruptf("block list header truncated: need %d bytes, have %d", HeaderSize, len(buf))
	}
	nbatches := int(binary.LittleEndian.Uint64(buf))
	declaredPayloadSize := int(binary.LittleEndian.Uint64(buf[8:]))
	blockSize = binary.LittleEndian.Uint16(buf[16:])
	off := HeaderSize

	if nbatches == 0 {
		return &BlockList{}, blockSize, off, nil
	}
	if nbatches < 0 {
		return nil, 0, 0, rferrors.Corruptf("block list declares negative batch count")
	}

	needBias := 8 * (nbatches + 1)
	if len(buf) < off+needBias {
		return nil, 0, 0, rferrors.Corruptf("block list bias array truncated: need %d bytes, have %d", needBias, len(buf)-off)
	}
	bias := make([]uint64, nbatches+1)
	for i := range bias {
		bias[i] = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	for i := 0; i < nbatches; i++ {
		if bias[i] > bias[i+1] {
			return nil, 0, 0, rferrors.Corruptf("block list bias array is not monotone at index %d", i)
		}
	}

	return &BlockList{bias: bias, payloadSize: declaredPayloadSize}, blockSize, off, nil
}

// MountPayload mounts this block list's per-block bitsets as zero-copy
// views into buf, which must hold exactly the payload section produced by
// SerializePayload. It must be called after DeserializeHeader and before
// any query method. Returns the number of bytes consumed.
func (bl *BlockList) MountPayload(buf []byte) (int, error) {
	nbatches := len(bl.bias)
	if nbatches == 0 {
		return 0, nil
	}
	nbatches--

	blocks := make([]*bitset.Block, nbatches)
	off := 0
	sum := 0
	for i := 0; i < nbatches; i++ {
		block, n, err := bitset.Mount(buf[off:])
		if err != nil {
			return 0, err
		}
		blocks[i] = block
		off += int(n)
		sum += block.ByteSize()
	}
	if sum != bl.payloadSize {
		return 0, rferrors.Corruptf("block list payload size mismatch: header declares %d bytes, mounted blocks total %d", bl.payloadSize, sum)
	}
	bl.blocks = blocks
	return off, nil
}
