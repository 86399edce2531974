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

// Package naive is a small in-memory bidirectional FM-index built over
// a brute-force suffix array. It exists only to give tests and the demo
// CLI a real, correct fmindex.Pair to run the seed aligner against; a
// production succinct-rank index is out of scope for this module.
//
// The suffix array is built by sorting all rotations directly (no
// SA-IS, no checkpoint compression), after the one-string checkpoint /
// tally / first-column technique sketched in the corpus's toy BWT
// example, generalized here to a bidirectional pair of indices — one
// over the reference, one over its reverse — stepped together with the
// standard cross-update formulas for bidirectional backward search.
package naive

import (
	"fmt"
	"sort"

	"github.com/bioseed/seedalign/fmindex"
)

const sentinel int8 = -1

// fmi is a one-directional FM-index: suffix array, BWT, and the
// Occ/C tables needed for a backward-search step.
type fmi struct {
	n    int      // length of text including the trailing sentinel
	text []int8   // base codes 0..3, sentinel = -1, at the end
	sa   []int    // suffix array over text
	occ  [4][]int // occ[b][i] = count of base b in bwt[0:i], length n+1
	c    [4]int   // c[b] = count of symbols lexicographically < b in text
}

func buildFMI(codes []int8) *fmi {
	n := len(codes) + 1
	text := make([]int8, n)
	copy(text, codes)
	text[n-1] = sentinel

	sa := make([]int, n)
	for i := range sa {
		sa[i] = i
	}
	sort.Slice(sa, func(a, b int) bool {
		return lessRotation(text, sa[a], sa[b])
	})

	bwt := make([]int8, n)
	for i, s := range sa {
		prev := s - 1
		if prev < 0 {
			prev = n - 1
		}
		bwt[i] = text[prev]
	}

	idx := &fmi{n: n, text: text, sa: sa}
	for b := 0; b < 4; b++ {
		idx.occ[b] = make([]int, n+1)
	}
	for i, sym := range bwt {
		for b := 0; b < 4; b++ {
			idx.occ[b][i+1] = idx.occ[b][i]
		}
		if sym >= 0 {
			idx.occ[sym][i+1]++
		}
	}

	total := [4]int{}
	for _, sym := range text {
		if sym >= 0 {
			total[sym]++
		}
	}
	// One sentinel sorts before every base.
	running := 1
	for b := 0; b < 4; b++ {
		idx.c[b] = running
		running += total[b]
	}
	return idx
}

// lessRotation compares the rotation (equivalently suffix, given the
// unique trailing sentinel) starting at i against the one starting at
// j, treating the sentinel as smaller than every base.
func lessRotation(text []int8, i, j int) bool {
	n := len(text)
	for k := 0; k < n; k++ {
		a := text[(i+k)%n]
		b := text[(j+k)%n]
		if a != b {
			return a < b
		}
	}
	return false
}

func (idx *fmi) occAt(base byte, i int) int {
	return idx.occ[base][i]
}

func (idx *fmi) backwardStep(base byte, top, bot uint64) (uint64, uint64) {
	newTop := uint64(idx.c[base]) + uint64(idx.occAt(base, int(top)))
	newBot := uint64(idx.c[base]) + uint64(idx.occAt(base, int(bot)))
	return newTop, newBot
}

func (idx *fmi) smallerCount(base byte, top, bot uint64) uint64 {
	var s, all uint64
	for _, b := range fmindex.Bases {
		n := uint64(idx.occAt(b, int(bot)) - idx.occAt(b, int(top)))
		if b < base {
			s += n
		}
		all += n
	}
	// The sentinel sorts below every base; any row of [top, bot) that
	// holds no base holds the sentinel.
	return s + (bot - top - all)
}

// Index is a bidirectional fmindex.Pair: a forward index over the
// reference and a mirror index over its reverse.
type Index struct {
	fwd     *fmi
	mir     *fmi
	ftabLen int
}

var base2code [256]int8

func init() {
	for i := range base2code {
		base2code[i] = -1
	}
	base2code['A'], base2code['a'] = 0, 0
	base2code['C'], base2code['c'] = 1, 1
	base2code['G'], base2code['g'] = 2, 2
	base2code['T'], base2code['t'] = 3, 3
}

// New builds a bidirectional naive FM-index over an unambiguous
// (A/C/G/T only) reference sequence. ftabLen bounds FtabLookup and the
// MaxJump the aligner may resolve in one call.
func New(ref []byte, ftabLen int) (*Index, error) {
	if len(ref) == 0 {
		return nil, fmt.Errorf("naive: empty reference")
	}
	codes := make([]int8, len(ref))
	rev := make([]int8, len(ref))
	for i, b := range ref {
		c := base2code[b]
		if c < 0 {
			return nil, fmt.Errorf("naive: reference contains non-ACGT base %q at offset %d", b, i)
		}
		codes[i] = c
		rev[len(ref)-1-i] = c
	}
	return &Index{
		fwd:     buildFMI(codes),
		mir:     buildFMI(rev),
		ftabLen: ftabLen,
	}, nil
}

// Full implements fmindex.Pair.
func (idx *Index) Full() fmindex.Range {
	return fmindex.Range{TopF: 0, BotF: uint64(idx.fwd.n), TopB: 0, BotB: uint64(idx.mir.n)}
}

// FtabLen implements fmindex.Pair.
func (idx *Index) FtabLen() int { return idx.ftabLen }

// Extend implements fmindex.Pair using the standard bidirectional
// backward-search cross-update: the side named by dir is resolved by
// an ordinary backward-search step, and the other side's bounds are
// carried along via a rank-sum over the symbols (the sentinel and the
// bases) lexicographically smaller than the one just consumed.
func (idx *Index) Extend(dir fmindex.Dir, base byte, rng fmindex.Range) (fmindex.Range, bool) {
	if base > 3 {
		return fmindex.Range{}, false
	}
	switch dir {
	case fmindex.Left:
		newTopF, newBotF := idx.fwd.backwardStep(base, rng.TopF, rng.BotF)
		if newBotF <= newTopF {
			return fmindex.Range{}, false
		}
		smaller := idx.fwd.smallerCount(base, rng.TopF, rng.BotF)
		newTopB := rng.TopB + smaller
		newBotB := newTopB + (newBotF - newTopF)
		return fmindex.Range{TopF: newTopF, BotF: newBotF, TopB: newTopB, BotB: newBotB}, true
	case fmindex.Right:
		newTopB, newBotB := idx.mir.backwardStep(base, rng.TopB, rng.BotB)
		if newBotB <= newTopB {
			return fmindex.Range{}, false
		}
		smaller := idx.mir.smallerCount(base, rng.TopB, rng.BotB)
		newTopF := rng.TopF + smaller
		newBotF := newTopF + (newBotB - newTopB)
		return fmindex.Range{TopF: newTopF, BotF: newBotF, TopB: newTopB, BotB: newBotB}, true
	default:
		return fmindex.Range{}, false
	}
}

// Fchr implements fmindex.Pair: a single step from the full range in
// the requested direction, used when MaxJump == 1.
func (idx *Index) Fchr(dir fmindex.Dir, base byte) (fmindex.Range, bool) {
	return idx.Extend(dir, base, idx.Full())
}

// FtabLookup implements fmindex.Pair by walking bases one at a time
// from the full range in the requested direction; a production index
// resolves this in a single table lookup, but the result is identical.
func (idx *Index) FtabLookup(dir fmindex.Dir, bases []byte) (fmindex.Range, bool) {
	rng := idx.Full()
	ok := true
	for _, b := range bases {
		rng, ok = idx.Extend(dir, b, rng)
		if !ok {
			return fmindex.Range{}, false
		}
	}
	return rng, true
}

// Locate returns the 0-based reference start offsets for every row in
// [rng.TopF, rng.BotF), for use by tests and the demo CLI to confirm a
// hit against the original reference text.
func (idx *Index) Locate(rng fmindex.Range) []int {
	out := make([]int, 0, rng.Size())
	for i := rng.TopF; i < rng.BotF; i++ {
		out = append(out, idx.fwd.sa[i])
	}
	sort.Ints(out)
	return out
}
