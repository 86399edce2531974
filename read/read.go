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

// Package read holds the short-read representation consumed by the
// seed aligner: 2-bit base codes (one per byte) with a parallel ambiguous-base
// ('N') marker, Phred-like qualities, and an on-demand reverse
// complement.
package read

import (
	"fmt"

	"github.com/rdleal/intervalst/interval"
)

// Base codes, matching the A=0,C=1,G=2,T=3 packing used throughout the
// corpus (index/twobit, kmers).
const (
	A byte = 0
	C byte = 1
	G byte = 2
	T byte = 3
	// N is stored as a regular base code (A) in Bases, with the
	// corresponding bit set in NMask; this keeps Bases always in [0,3]
	// so every consumer that only wants 2-bit codes can ignore NMask.
)

var code2base = [4]byte{'A', 'C', 'G', 'T'}
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

// Read is a forward-oriented sequencing read plus its qualities. Bases
// and quals are indexed 0 = 5' end.
type Read struct {
	Bases []byte // 2-bit codes in [0,3]; positions in NMask are ambiguous
	NMask []bool // true where the original base was ambiguous ('N' or other non-ACGT)
	Qual  []byte // Phred-like quality per base

	rc     []byte
	rcN    []bool
	rcQual []byte

	nTreeFw *interval.SearchTree[int, struct{}]
	nTreeRc *interval.SearchTree[int, struct{}]
}

// New builds a Read from raw ASCII bases (any of ACGTacgt; anything
// else is treated as an ambiguous base with code A) and qualities.
func New(bases, qual []byte) (*Read, error) {
	if len(qual) != 0 && len(qual) != len(bases) {
		return nil, fmt.Errorf("read: quality length %d does not match base length %d", len(qual), len(bases))
	}
	r := &Read{
		Bases: make([]byte, len(bases)),
		NMask: make([]bool, len(bases)),
		Qual:  make([]byte, len(bases)),
	}
	for i, b := range bases {
		c := base2code[b]
		if c < 0 {
			r.NMask[i] = true
			r.Bases[i] = A
		} else {
			r.Bases[i] = byte(c)
		}
	}
	if len(qual) == len(bases) {
		copy(r.Qual, qual)
	} else {
		for i := range r.Qual {
			r.Qual[i] = 40 // a flat high-confidence default when unknown
		}
	}
	return r, nil
}

// Len returns the number of bases in the read.
func (r *Read) Len() int { return len(r.Bases) }

// String renders the forward strand as ASCII (N shown where ambiguous).
func (r *Read) String() string {
	buf := make([]byte, len(r.Bases))
	for i, b := range r.Bases {
		if r.NMask[i] {
			buf[i] = 'N'
		} else {
			buf[i] = code2base[b]
		}
	}
	return string(buf)
}

// ReverseComplement lazily computes and caches bases/N-mask/quals for
// the reverse-complement strand.
func (r *Read) ReverseComplement() (bases []byte, nmask []bool, qual []byte) {
	if r.rc == nil {
		n := len(r.Bases)
		r.rc = make([]byte, n)
		r.rcN = make([]bool, n)
		r.rcQual = make([]byte, n)
		for i := 0; i < n; i++ {
			j := n - 1 - i
			r.rc[i] = 3 - r.Bases[j]
			r.rcN[i] = r.NMask[j]
			r.rcQual[i] = r.Qual[j]
		}
	}
	return r.rc, r.rcN, r.rcQual
}

// Strand returns the bases/N-mask/qual slices for the given orientation.
func (r *Read) Strand(fw bool) (bases []byte, nmask []bool, qual []byte) {
	if fw {
		return r.Bases, r.NMask, r.Qual
	}
	return r.ReverseComplement()
}

// NTree lazily builds and caches an interval search tree over the runs
// of consecutive ambiguous bases on the given strand, indexed by
// position in that strand's coordinate space. Every seed instantiated
// against this Read and strand shares the one tree, so the O(window)
// cost of finding the N runs is paid at most once per strand no matter
// how many seed windows later ask "does [off, off+L) touch an N run"
// via AnyIntersection.
func (r *Read) NTree(fw bool) *interval.SearchTree[int, struct{}] {
	if fw {
		if r.nTreeFw == nil {
			_, nmask, _ := r.Strand(true)
			r.nTreeFw = buildNRunTree(nmask)
		}
		return r.nTreeFw
	}
	if r.nTreeRc == nil {
		_, nmask, _ := r.Strand(false)
		r.nTreeRc = buildNRunTree(nmask)
	}
	return r.nTreeRc
}

func buildNRunTree(nmask []bool) *interval.SearchTree[int, struct{}] {
	cmp := func(a, b int) int { return a - b }
	t := interval.NewSearchTree[int, struct{}](cmp)
	n := len(nmask)
	i := 0
	for i < n {
		if !nmask[i] {
			i++
			continue
		}
		j := i
		for j < n && nmask[j] {
			j++
		}
		t.Insert(i, j-1, struct{}{})
		i = j
	}
	return t
}
