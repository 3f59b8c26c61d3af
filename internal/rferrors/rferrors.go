// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package rferrors holds the closed error taxonomy shared by the filter's
// internal packages and re-exported by the root package, so that a caller
// doing errors.Is(err, rangefilter.ErrCorrupt) matches regardless of which
// internal package actually detected the problem.
package rferrors

import "github.com/cockroachdb/errors"

// InvalidInput is returned at build time for malformed input: empty key
// sets, keys that are not strictly sorted and deduplicated, or a zero block
// size.
var InvalidInput = errors.New("rangefilter: invalid input")

// BudgetTooSmall is returned at build time when the requested bits-per-key
// budget is non-positive. Smaller (even negative) residual budgets after
// fixed overhead are accepted and degrade the false-positive rate rather
// than failing the build.
var BudgetTooSmall = errors.New("rangefilter: bits-per-key budget too small")

// Corrupt is returned when deserializing a byte blob that is truncated,
// misaligned, or carries an internally inconsistent length.
var Corrupt = errors.New("rangefilter: corrupt filter encoding")

// Internal marks invariant violations: a bug in this package rather than
// bad caller input or corrupt bytes. Debug assertions (see
// internal/invariants) panic with it, and the block list build returns it
// for a batch whose position spread exceeds a 32-bit universe.
var Internal = errors.New("rangefilter: internal invariant violation")

// InvalidInputf wraps InvalidInput with a formatted context message.
func InvalidInputf(format string, args ...interface{}) error {
	return errors.Wrapf(InvalidInput, format, args...)
}

// BudgetTooSmallf wraps BudgetTooSmall with context.
func BudgetTooSmallf(format string, args ...interface{}) error {
	return errors.Wrapf(BudgetTooSmall, format, args...)
}

// Corruptf wraps Corrupt with context.
func Corruptf(format string, args ...interface{}) error {
	return errors.Wrapf(Corrupt, format, args...)
}

// Internalf wraps Internal with context.
func Internalf(format string, args ...interface{}) error {
	return errors.Wrapf(Internal, format, args...)
}
