// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package metrics holds the per-thread seed-search counters and their
// mutex-merged aggregate, plus a small summary-statistics helper over
// a run's hit-size samples.
package metrics

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// SeedSearchMetrics is a plain-data counter block. Each worker owns one
// instance and mutates it without synchronization; only Aggregate.Merge
// needs a lock.
type SeedSearchMetrics struct {
	SeedSearch   int64 // seeds instantiated and searched
	PosSearch    int64 // ftab/fchr prefix-table lookups
	IntraHit     int64 // local-cache hits
	InterHit     int64 // shared-cache hits (including pending waits)
	FilteredSeed int64 // seeds dropped by N pre-debit infeasibility
	OOMs         int64 // shared-cache OOM events
	BWOps        int64 // extend() calls executed, plus one per ftab/fchr initial jump
	BWEds        int64 // edits charged across all extend() calls
}

// Add accumulates o's counters into m.
func (m *SeedSearchMetrics) Add(o SeedSearchMetrics) {
	m.SeedSearch += o.SeedSearch
	m.PosSearch += o.PosSearch
	m.IntraHit += o.IntraHit
	m.InterHit += o.InterHit
	m.FilteredSeed += o.FilteredSeed
	m.OOMs += o.OOMs
	m.BWOps += o.BWOps
	m.BWEds += o.BWEds
}

// Aggregate merges per-thread SeedSearchMetrics under a single mutex,
// so workers can accumulate lock-free and only pay for synchronization
// at barrier points.
type Aggregate struct {
	mu    sync.Mutex
	total SeedSearchMetrics
}

// Merge folds m into the aggregate total.
func (a *Aggregate) Merge(m SeedSearchMetrics) {
	a.mu.Lock()
	a.total.Add(m)
	a.mu.Unlock()
}

// Snapshot returns a copy of the current aggregate total.
func (a *Aggregate) Snapshot() SeedSearchMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// HitSizeSummary reports the mean and (sample) standard deviation
// of a run's per-hit range sizes, for the CLI's report subcommand.
func HitSizeSummary(sizes []float64) (mean, stddev float64) {
	if len(sizes) == 0 {
		return 0, 0
	}
	mean = stat.Mean(sizes, nil)
	stddev = stat.StdDev(sizes, nil)
	return mean, stddev
}
