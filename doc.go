// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package rangefilter provides a learned range filter: a compact,
// no-false-negative structure for answering "does this key, or any key in
// this range, possibly exist" over a fixed, sorted set of uint64 keys.
//
// A Filter is built once, from a sorted key set and a target bits-per-key
// budget, and is read-only and safe for concurrent use for the rest of its
// life. Internally it composes a piecewise-linear CDF model (package
// internal/cdfmodel) that projects keys onto a compressed position space
// with a compressed bitset block list (package internal/blocklist and
// internal/bitset) that resolves the rare positions the model cannot
// answer on its own.
//
// Callers embedding this filter in a storage engine's per-table filter
// slot should use package host, which wraps a Filter with the
// build/lookup/release lifecycle such an engine expects rather than
// holding a bare *Filter directly.
package rangefilter
