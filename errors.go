// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package rangefilter

import "github.com/flowdb/rangefilter/internal/rferrors"

// ErrInvalidInput is returned at build time when the input keys are empty,
// not strictly sorted and deduplicated, or blockSize is zero.
var ErrInvalidInput = rferrors.InvalidInput

// ErrBudgetTooSmall is returned at build time when the requested bits-per-key
// budget is non-positive. A budget too small to comfortably fund the
// bitset and bias-array overhead still builds; it just yields a worse
// false-positive rate, never a false negative.
var ErrBudgetTooSmall = rferrors.BudgetTooSmall

// ErrCorrupt is returned when deserializing a byte blob that is truncated,
// misaligned, or carries an internally inconsistent length.
var ErrCorrupt = rferrors.Corrupt

// ErrInternal indicates this package's own code violated an invariant it
// maintains, as opposed to bad caller input or corrupt bytes. Debug
// assertions, which run only in binaries built with the "invariants" or
// "race" tag, panic with it; the block list build also returns it in any
// build when a batch's position spread exceeds a 32-bit universe.
var ErrInternal = rferrors.Internal
