// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package host implements the collaborator contract a storage engine
// layers on top of a bare rangefilter.Filter: a named policy, a builder
// that accepts keys one at a time in sorted order, and a registry that
// looks up a built filter by an opaque handle so the engine never has to
// hold a live *rangefilter.Filter itself. The core package has no
// knowledge of any type here; host depends on rangefilter, never the
// reverse.
package host

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/flowdb/rangefilter"
	"github.com/flowdb/rangefilter/internal/rferrors"
)

// Policy names and constructs rangefilter builders, analogous to the
// teacher's base.TableFilterPolicy.
type Policy struct {
	BitsPerKey float64
	BlockSize  uint16
}

// NewPolicy returns a Policy for the given budget and block size.
func NewPolicy(bitsPerKey float64, blockSize uint16) Policy {
	return Policy{BitsPerKey: bitsPerKey, BlockSize: blockSize}
}

// Name returns a string encoding of the policy's parameters, e.g.
// "rangefilter(10,4)".
func (p Policy) Name() string {
	return fmt.Sprintf("rangefilter(%g,%d)", p.BitsPerKey, p.BlockSize)
}

// NewBuilder returns a fresh Builder for this policy.
func (p Policy) NewBuilder() *Builder {
	return &Builder{policy: p}
}

// PolicyFromName parses a name produced by Policy.Name back into a Policy,
// mirroring bloom.PolicyFromName's fmt.Sscanf idiom.
func PolicyFromName(name string) (Policy, bool) {
	var bitsPerKey float64
	var blockSize uint16
	if n, err := fmt.Sscanf(name, "rangefilter(%g,%d)", &bitsPerKey, &blockSize); err == nil && n == 2 {
		return Policy{BitsPerKey: bitsPerKey, BlockSize: blockSize}, true
	}
	return Policy{}, false
}

// Builder accepts keys one at a time in sorted order and, on Finish, hands
// back an opaque Handle identifying the built filter inside Registry.
type Builder struct {
	policy Policy
	keys   []uint64
	broken bool
}

// AddKey appends the next key, which must be strictly greater than every
// key added so far. A key supplied out of order marks the builder broken:
// AddKey returns an error immediately, and Finish will fail without
// attempting to build.
func (b *Builder) AddKey(key uint64) error {
	if n := len(b.keys); n > 0 && b.keys[n-1] >= key {
		b.broken = true
		return rferrors.InvalidInputf("keys must be added in strictly increasing order (got %d after %d)", key, b.keys[n-1])
	}
	b.keys = append(b.keys, key)
	return nil
}

// Finish builds the filter and registers it with reg, returning the
// handle to look it up later and whether the build succeeded. A failed
// build (e.g. from malformed input) leaves reg untouched.
func (b *Builder) Finish(reg *Registry) (Handle, bool) {
	if b.broken {
		return Handle(0), false
	}
	f, err := rangefilter.New(b.policy.BitsPerKey, b.policy.BlockSize, b.keys)
	if err != nil {
		return Handle(0), false
	}
	return reg.register(f), true
}

// Handle is an opaque identifier for a filter held by a Registry.
type Handle uint64

// Registry owns a set of built filters, looked up by opaque Handle. It is
// safe for concurrent use; a Filter itself carries no registry awareness,
// keeping the core concrete per the collaborator boundary the package
// doc describes.
type Registry struct {
	mu      sync.RWMutex
	next    atomic.Uint64
	filters map[Handle]*rangefilter.Filter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{filters: make(map[Handle]*rangefilter.Filter)}
}

func (r *Registry) register(f *rangefilter.Filter) Handle {
	h := Handle(r.next.Add(1))
	r.mu.Lock()
	r.filters[h] = f
	r.mu.Unlock()
	return h
}

// Release evicts the filter associated with h. Releasing an unknown or
// already-released handle is a no-op.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	delete(r.filters, h)
	r.mu.Unlock()
}

// lookup returns the filter for h, or nil if h is unknown.
func (r *Registry) lookup(h Handle) *rangefilter.Filter {
	r.mu.RLock()
	f := r.filters[h]
	r.mu.RUnlock()
	return f
}

// Reader routes point/range queries to filters held by a Registry,
// optionally recording hit/miss metrics against a shared tracker.
type Reader struct {
	reg     *Registry
	tracker *rangefilter.FilterMetricsTracker
}

// NewReader returns a Reader over reg. tracker may be nil to skip metrics.
func NewReader(reg *Registry, tracker *rangefilter.FilterMetricsTracker) *Reader {
	return &Reader{reg: reg, tracker: tracker}
}

// MayContainPoint reports whether the filter identified by h may contain
// x. An unknown handle is treated as "no filter available" and
// conservatively reports true (never filters out a real key).
func (rd *Reader) MayContainPoint(h Handle, x uint64) bool {
	f := rd.reg.lookup(h)
	if f == nil {
		return true
	}
	return f.PointTracked(x, rd.tracker)
}

// MayContainRange reports whether the filter identified by h may
// intersect [lo, hi]. An unknown handle conservatively reports true.
func (rd *Reader) MayContainRange(h Handle, lo, hi uint64) bool {
	f := rd.reg.lookup(h)
	if f == nil {
		return true
	}
	return f.RangeTracked(lo, hi, rd.tracker)
}

// ErrUnknownHandle aliases the InvalidInput sentinel for reporting a
// Handle the Registry has never seen or has already released. No function
// in this package returns it: Release ignores unknown handles, and Reader
// answers true for them.
var ErrUnknownHandle = rferrors.InvalidInput
