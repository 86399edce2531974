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

// Package results aggregates one read's seed searches: the per-(offset,
// orientation) bases/qualities and hit ranges, running totals, and the
// ascending-hit-count rank view the downstream consumer walks first.
//
// seq/qual/nmask for every offset+orientation live here, in one arena
// per read; seed.InstantiatedSeed never holds a pointer into this
// arena, only the (SeedOffIdx, Fw) pair already on the struct, so there
// is no back-reference cycle between the two packages and a
// SeedResults is free to be copied or dropped independently of any
// instantiated seed built against it.
package results

import (
	"sort"

	"github.com/bioseed/seedalign/fmindex"
	"github.com/bioseed/seedalign/seed"
)

// entry holds one (offset index, orientation) pair's extracted bases
// and the merged hit set every instantiated seed tried at that pair
// contributed.
type entry struct {
	seq, qual []byte
	nmask     []bool

	seeds []*seed.InstantiatedSeed

	valid     bool
	ranges    []fmindex.Range
	seen      map[fmindex.Range]struct{}
	numElts   uint64
	seedLen   int
}

// SeedResults is the per-read aggregation of every seed search run
// against one read, across all configured offsets and both
// orientations.
type SeedResults struct {
	offIdx2off []int
	fw         [][]entry // fw[0]=forward orientation, fw[1]=reverse; indexed by offset index

	numRanges, numElts int
	numRangesOrient    [2]int
	numEltsOrient      [2]int
	nonzPairs          int

	rankOffs []int
	rankFws  []bool
	sorted   bool
}

// New returns an empty SeedResults for a read whose configured seed
// offsets (0 = closest to the 5' end) map to the given base offsets.
func New(offIdx2off []int) *SeedResults {
	n := len(offIdx2off)
	r := &SeedResults{
		offIdx2off: append([]int(nil), offIdx2off...),
		fw:         [][]entry{make([]entry, n), make([]entry, n)},
	}
	return r
}

func orientIdx(fw bool) int {
	if fw {
		return 0
	}
	return 1
}

// Offset returns the base offset configured seed-offset index offIdx
// maps to.
func (r *SeedResults) Offset(offIdx int) int { return r.offIdx2off[offIdx] }

// NumOffsets is the number of configured seed-offset indices.
func (r *SeedResults) NumOffsets() int { return len(r.offIdx2off) }

// SetBases records the extracted seed bases/qualities for one
// (offIdx, fw) pair, establishing the arena entry that subsequent
// AddSeed calls attach hit ranges to. Calling it again for the same
// pair overwrites the recorded bases and keeps any ranges already added.
func (r *SeedResults) SetBases(offIdx int, fw bool, seq, qual []byte, nmask []bool, seedLen int) {
	e := &r.fw[orientIdx(fw)][offIdx]
	e.seq = seq
	e.qual = qual
	e.nmask = nmask
	e.seedLen = seedLen
	r.sorted = false
}

// Bases returns the extracted seed bases/qualities previously recorded
// for (offIdx, fw).
func (r *SeedResults) Bases(offIdx int, fw bool) (seq, qual []byte, nmask []bool) {
	e := &r.fw[orientIdx(fw)][offIdx]
	return e.seq, e.qual, e.nmask
}

// AddSeed records one instantiated seed's hit set against (offIdx, fw),
// deduplicating ranges already merged in from an earlier seed at the
// same pair and updating every running total. Safe to call more than
// once per pair when more than one seed policy is assigned to the same
// offset.
func (r *SeedResults) AddSeed(offIdx int, fw bool, is *seed.InstantiatedSeed, hits []fmindex.Range) {
	e := &r.fw[orientIdx(fw)][offIdx]
	e.seeds = append(e.seeds, is)

	wasNonzero := e.valid && len(e.ranges) > 0
	if !e.valid {
		e.valid = true
		e.seen = make(map[fmindex.Range]struct{}, len(hits))
	}

	for _, h := range hits {
		if _, dup := e.seen[h]; dup {
			continue
		}
		e.seen[h] = struct{}{}
		e.ranges = append(e.ranges, h)
		sz := h.Size()
		e.numElts += sz
		r.numElts += int(sz)
		r.numEltsOrient[orientIdx(fw)] += int(sz)
	}
	r.numRanges = 0
	for side := 0; side < 2; side++ {
		r.numRangesOrient[side] = 0
		for i := range r.fw[side] {
			r.numRangesOrient[side] += len(r.fw[side][i].ranges)
		}
		r.numRanges += r.numRangesOrient[side]
	}

	if !wasNonzero && len(e.ranges) > 0 {
		r.nonzPairs++
	}
	r.sorted = false
}

// NumRanges, NumElts, NonzeroPairs report the running totals the
// aggregate tracks: NumRanges is the total deduplicated range count
// across every (offset, orientation) pair; NumElts is the total
// element (matched-locus) count those ranges denote; NonzeroPairs is
// the count of (offset, orientation) pairs with a non-empty hit set.
func (r *SeedResults) NumRanges() int          { return r.numRanges }
func (r *SeedResults) NumElts() int            { return r.numElts }
func (r *SeedResults) NonzeroPairs() int       { return r.nonzPairs }
func (r *SeedResults) NumRangesFw(fw bool) int { return r.numRangesOrient[orientIdx(fw)] }
func (r *SeedResults) NumEltsFw(fw bool) int   { return r.numEltsOrient[orientIdx(fw)] }

// Sort computes rankOffs/rankFws: a permutation of every non-empty
// (offset index, orientation) pair in ascending numElts order, ties
// broken forward-before-reverse then by smaller offset index.
// Implemented as a sort.Slice over the small (seed-count-bounded) pair
// list with an explicit three-key comparator, so the tie-break order
// is spelled out rather than left to whatever sort.Slice's internal
// algorithm happens to do with equal keys.
func (r *SeedResults) Sort() {
	if r.sorted {
		return
	}
	type pair struct {
		offIdx int
		fw     bool
		elts   uint64
	}
	var pairs []pair
	for side := 0; side < 2; side++ {
		for offIdx, e := range r.fw[side] {
			if e.valid && len(e.ranges) > 0 {
				pairs = append(pairs, pair{offIdx: offIdx, fw: side == 0, elts: e.numElts})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.elts != b.elts {
			return a.elts < b.elts
		}
		if a.fw != b.fw {
			return a.fw // forward (true) sorts before reverse (false)
		}
		return a.offIdx < b.offIdx
	})

	r.rankOffs = make([]int, len(pairs))
	r.rankFws = make([]bool, len(pairs))
	for i, p := range pairs {
		r.rankOffs[i] = p.offIdx
		r.rankFws[i] = p.fw
	}
	r.sorted = true
}

// NumRanked is the number of non-empty (offset, orientation) pairs
// Sort produced a rank for.
func (r *SeedResults) NumRanked() int {
	r.Sort()
	return len(r.rankOffs)
}

// HitsByRank returns the offset index, base offset, orientation, seed
// length, and deduplicated range set for the rank-th smallest
// (by numElts) non-empty pair.
func (r *SeedResults) HitsByRank(rank int) (offIdx, off int, fw bool, seedLen int, ranges []fmindex.Range) {
	r.Sort()
	offIdx = r.rankOffs[rank]
	fw = r.rankFws[rank]
	e := &r.fw[orientIdx(fw)][offIdx]
	return offIdx, r.offIdx2off[offIdx], fw, e.seedLen, append([]fmindex.Range(nil), e.ranges...)
}
