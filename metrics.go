// Copyright 2026 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package rangefilter

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// FilterMetrics holds a point-in-time snapshot of a filter's query-time
// effectiveness. A hit means the filter avoided a real lookup by returning
// false; a miss means it returned true (a real match or a false positive)
// and the caller had to check further.
type FilterMetrics struct {
	Hits   int64
	Misses int64
}

// FilterMetricsTracker accumulates FilterMetrics atomically across
// concurrent queries against filters that share it. The host passes one
// tracker to the tracked queries of as many Filter instances as it wants
// aggregated together, e.g. one per store rather than one per SSTable.
type FilterMetricsTracker struct {
	hits   atomic.Int64
	misses atomic.Int64

	// hitCounter and missCounter, if set, mirror every observation into a
	// caller-provided Prometheus sink in addition to the atomic counters
	// above. Neither field is ever registered by this package; the host
	// owns registration and lifecycle.
	hitCounter  prometheus.Counter
	missCounter prometheus.Counter
}

// NewFilterMetricsTracker returns a tracker with no Prometheus sinks wired.
// Use WithPrometheusSinks to attach them.
func NewFilterMetricsTracker() *FilterMetricsTracker {
	return &FilterMetricsTracker{}
}

// WithPrometheusSinks attaches Prometheus counters that mirror every
// observation this tracker records. Either argument may be nil to leave
// that sink unattached. Returns the tracker for chaining.
func (t *FilterMetricsTracker) WithPrometheusSinks(hits, misses prometheus.Counter) *FilterMetricsTracker {
	t.hitCounter = hits
	t.missCounter = misses
	return t
}

func (t *FilterMetricsTracker) recordHit() {
	t.hits.Add(1)
	if t.hitCounter != nil {
		t.hitCounter.Inc()
	}
}

func (t *FilterMetricsTracker) recordMiss() {
	t.misses.Add(1)
	if t.missCounter != nil {
		t.missCounter.Inc()
	}
}

// Load returns the current values as a FilterMetrics snapshot.
func (t *FilterMetricsTracker) Load() FilterMetrics {
	return FilterMetrics{
		Hits:   t.hits.Load(),
		Misses: t.misses.Load(),
	}
}

// PointTracked is equivalent to Point, additionally recording a hit or
// miss against tracker. A nil tracker is a valid no-op.
func (f *Filter) PointTracked(x uint64, tracker *FilterMetricsTracker) bool {
	mayContain := f.Point(x)
	if tracker != nil {
		if mayContain {
			tracker.recordMiss()
		} else {
			tracker.recordHit()
		}
	}
	return mayContain
}

// RangeTracked is equivalent to Range, additionally recording a hit or
// miss against tracker. A nil tracker is a valid no-op.
func (f *Filter) RangeTracked(lo, hi uint64, tracker *FilterMetricsTracker) bool {
	mayContain := f.Range(lo, hi)
	if tracker != nil {
		if mayContain {
			tracker.recordMiss()
		} else {
			tracker.recordHit()
		}
	}
	return mayContain
}
