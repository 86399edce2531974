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

// Package penalty computes the numeric cost of edits considered during
// seed search: mismatches (scaled by base quality), ambiguous-base
// mismatches, and gap open/extension.
package penalty

// Table is the set of pure cost functions the seed aligner consults
// while charging edits against a constraint. Every method must return
// a non-negative value.
type Table interface {
	// MM returns the cost of a mismatch at a base of the given quality.
	MM(q uint8) int
	// N returns the cost of a mismatch against an ambiguous ('N') base
	// of the given quality.
	N(q uint8) int
	// Del returns the cost of a deletion at the given 0-based
	// extension index (0 = gap open, 1 = first extension, ...).
	Del(ex int) int
	// Ins returns the cost of an insertion at the given extension index.
	Ins(ex int) int
}

// Simple is a Table driven by a handful of coefficients, in the style
// of a Phred-scaled mismatch penalty with flat gap open/extend costs.
type Simple struct {
	MMMin, MMMax int // mismatch penalty is clamped to [MMMin, MMMax]
	MMScale      int // quality units per penalty point, e.g. 10
	NPenalty     int // flat cost of an ambiguous-base mismatch
	GapOpen      int // cost of extension index 0
	GapExtend    int // cost of extension index >= 1
}

// Default returns the coefficients bowtie-style aligners commonly use:
// roughly one penalty point per 10 quality units, clamped to [2,6],
// a flat low-quality-like cost for Ns, and a 5/3 affine gap cost.
func Default() Simple {
	return Simple{
		MMMin:     2,
		MMMax:     6,
		MMScale:   10,
		NPenalty:  1,
		GapOpen:   5,
		GapExtend: 3,
	}
}

// MM implements Table.
func (t Simple) MM(q uint8) int {
	p := int(q) / t.scale()
	if p < t.MMMin {
		p = t.MMMin
	}
	if p > t.MMMax {
		p = t.MMMax
	}
	return p
}

// N implements Table.
func (t Simple) N(q uint8) int {
	if t.NPenalty < 0 {
		return 0
	}
	return t.NPenalty
}

// Del implements Table.
func (t Simple) Del(ex int) int {
	if ex <= 0 {
		return t.GapOpen
	}
	return t.GapExtend
}

// Ins implements Table.
func (t Simple) Ins(ex int) int {
	if ex <= 0 {
		return t.GapOpen
	}
	return t.GapExtend
}

func (t Simple) scale() int {
	if t.MMScale <= 0 {
		return 1
	}
	return t.MMScale
}
