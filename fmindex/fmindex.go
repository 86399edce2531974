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

// Package fmindex declares the contract the seed aligner needs from a
// bidirectional Burrows-Wheeler index: a forward index I and a mirror
// index I' over the reversed reference, stepped together so that a
// [top,bot) suffix-array range can be extended one base at a time to
// either side while always describing the same set of genome loci.
//
// Index construction and a production succinct-rank implementation are
// out of scope here; this package only fixes the interface. Sub-package
// fmindex/naive provides a small in-memory reference implementation
// used by tests and the demo CLI.
package fmindex

import "fmt"

// Dir is the direction a step extends the matched range.
type Dir int

const (
	Left Dir = iota
	Right
)

func (d Dir) String() string {
	if d == Left {
		return "LEFT"
	}
	return "RIGHT"
}

// Base codes, matching package read's A=0,C=1,G=2,T=3.
const (
	A byte = 0
	C byte = 1
	G byte = 2
	T byte = 3
)

// Bases is the canonical A,C,G,T enumeration order the aligner uses
// when trying mismatch branches, fixed to make search output
// deterministic.
var Bases = [4]byte{A, C, G, T}

// Range is a bidirectional suffix-array interval: [TopF,BotF) in the
// forward index and [TopB,BotB) in the mirror index, describing the
// same set of reference loci.
type Range struct {
	TopF, BotF uint64
	TopB, BotB uint64
}

// Empty reports whether the range matches no reference locus.
func (r Range) Empty() bool { return r.BotF <= r.TopF || r.BotB <= r.TopB }

// Size is the number of reference occurrences the range denotes.
func (r Range) Size() uint64 {
	if r.Empty() {
		return 0
	}
	return r.BotF - r.TopF
}

// Pair is a bidirectional FM-index: a forward index and its mirror,
// exposing only the primitives the seed aligner needs.
type Pair interface {
	// Extend narrows rng by one base in direction dir. ok is false if
	// the resulting range is empty.
	Extend(dir Dir, base byte, rng Range) (out Range, ok bool)

	// FtabLookup resolves the first len(bases) positions of an exact
	// match in one step, starting from the full range and extending in
	// dir. The real ftab is direction-specific (bowtie2 keeps one per
	// index of the pair), so this mirrors that rather than fixing a
	// single direction.
	FtabLookup(dir Dir, bases []byte) (out Range, ok bool)

	// Fchr resolves a single base from the full range; used when
	// MaxJump == 1 instead of the heavier FtabLookup.
	Fchr(dir Dir, base byte) (out Range, ok bool)

	// Full returns the unconstrained range spanning the whole index.
	Full() Range

	// FtabLen is the maximum prefix length FtabLookup can resolve in
	// one call.
	FtabLen() int
}

// ErrInvalidBase is returned by implementations when asked to extend
// by a base code outside [0,3].
var ErrInvalidBase = fmt.Errorf("fmindex: invalid base code")
