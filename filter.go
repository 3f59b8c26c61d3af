// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package rangefilter

import (
	"github.com/flowdb/rangefilter/internal/blocklist"
	"github.com/flowdb/rangefilter/internal/cdfmodel"
	"github.com/flowdb/rangefilter/internal/rferrors"
)

// retuneShortfall is the minimum gap (in bits per key) between the
// requested and actually achieved budget that triggers the one-step
// retune described in §4.4.
const retuneShortfall = 0.2

// Filter answers point and range membership queries over the key set it
// was built from, with no false negatives.
type Filter struct {
	model     *cdfmodel.Model
	blocks    *blocklist.BlockList
	blockSize uint16
}

// New builds a Filter from a sorted, strictly increasing key set under the
// given bits-per-key budget and block size. It performs at most one
// retune pass if the realized size falls meaningfully short of the
// requested budget.
func New(bitsPerKey float64, blockSize uint16, keys []uint64) (*Filter, error) {
	f, bAct, err := build(bitsPerKey, blockSize, keys)
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 && bAct+retuneShortfall <= bitsPerKey {
		bRetune := bitsPerKey + (bitsPerKey - bAct)
		retuned, _, err := build(bRetune, blockSize, keys)
		if err != nil {
			// The original budget already produced a valid filter; a
			// retune that can't build at the richer budget just forfeits
			// the extra tightening rather than failing the whole build.
			return f, nil
		}
		return retuned, nil
	}
	return f, nil
}

// build constructs a single (non-retuning) filter instance and reports the
// bits-per-key it actually achieved.
func build(bitsPerKey float64, blockSize uint16, keys []uint64) (*Filter, float64, error) {
	model, positions, err := cdfmodel.Build(bitsPerKey, blockSize, keys)
	if err != nil {
		return nil, 0, err
	}
	blocks, err := blocklist.Build(blockSize, positions)
	if err != nil {
		return nil, 0, err
	}
	f := &Filter{model: model, blocks: blocks, blockSize: blockSize}

	if len(keys) == 0 {
		return f, 0, nil
	}
	bAct := 8 * float64(f.ByteSize()) / float64(len(keys))
	return f, bAct, nil
}

// Point reports whether x may be a member of the built key set. It never
// returns false for a key that was actually present at build time.
func (f *Filter) Point(x uint64) bool {
	status, pos := f.model.Classify(x)
	switch status {
	case cdfmodel.Exist:
		return true
	case cdfmodel.OutOfScope:
		return false
	default:
		return f.blocks.PointQuery(pos)
	}
}

// Range reports whether the built key set may intersect [lo, hi]. It never
// returns false for a range that actually contains a built key.
func (f *Filter) Range(lo, hi uint64) bool {
	status, pl, pr := f.model.ClassifyRange(lo, hi)
	switch status {
	case cdfmodel.Exist:
		return true
	case cdfmodel.OutOfScope:
		return false
	default:
		return f.blocks.RangeQuery(pl, pr)
	}
}

// ByteSize returns the filter's exact serialized footprint.
func (f *Filter) ByteSize() int {
	return f.blocks.HeaderByteSize() + f.model.ByteSize() + f.blocks.PayloadByteSize()
}

// Serialize encodes the filter per §4.4: the block list header (batch
// count, compressed-payload size, block size, last-batch size, alignment
// padding, and the bias array), the serialized CDF model, and finally the
// block list's raw per-block payload bytes in build order.
func (f *Filter) Serialize() []byte {
	buf := make([]byte, 0, f.ByteSize())
	buf = append(buf, f.blocks.SerializeHeader(f.blockSize)...)
	buf = append(buf, f.model.Serialize()...)
	buf = append(buf, f.blocks.SerializePayload()...)
	return buf
}

// Deserialize reconstructs a Filter from a blob produced by Serialize. The
// payload section is copied into a freshly allocated buffer before
// mounting, so data may be released (or reused) as soon as Deserialize
// returns; the returned Filter shares no memory with it.
func Deserialize(data []byte) (*Filter, error) {
	blocks, blockSize, off, err := blocklist.DeserializeHeader(data)
	if err != nil {
		return nil, err
	}

	model, n, err := cdfmodel.Deserialize(data[off:])
	if err != nil {
		return nil, err
	}
	off += n

	payloadSize := blocks.PayloadByteSize()
	if len(data)-off < payloadSize {
		return nil, rferrors.Corruptf("filter blob truncated: need %d payload bytes, have %d", payloadSize, len(data)-off)
	}
	payload := make([]byte, payloadSize)
	copy(payload, data[off:off+payloadSize])

	n, err = blocks.MountPayload(payload)
	if err != nil {
		return nil, err
	}
	off += n

	if off > len(data) {
		return nil, rferrors.Corruptf("filter blob truncated: consumed %d bytes, have %d", off, len(data))
	}

	return &Filter{model: model, blocks: blocks, blockSize: blockSize}, nil
}
