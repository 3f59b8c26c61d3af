// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package invariants centralizes build-tag gated debug assertions used by
// the filter's internal packages. Checks registered here only run in
// binaries built with the "invariants" or "race" tag; a normal build pays
// nothing for them.
package invariants

import "math/rand/v2"

// Sometimes returns true percent% of the time if we were built with the
// "invariants" or "race" build tags, and always false otherwise. Used to
// sample expensive consistency checks (e.g. re-verifying prefix-sum
// monotonicity after a build) without paying their cost on every build.
func Sometimes(percent int) bool {
	return Enabled && rand.Uint32N(100) < uint32(percent)
}

// CheckSometimes runs fn (expected to panic on failure) ~percent% of the
// time in invariant builds, and never in normal builds. Intended for
// consistency checks too expensive to run unconditionally, such as
// re-scanning a freshly built model's prefix sums for monotonicity.
func CheckSometimes(percent int, fn func()) {
	if Sometimes(percent) {
		fn()
	}
}
