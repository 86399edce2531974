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

// Package seed declares seed policies (the fixed-length, fixed-offset
// regions of a read that get searched independently) and the
// per-(read,offset,orientation) instantiation of a policy into a step
// schedule the bidirectional aligner can execute.
package seed

import (
	"fmt"

	"github.com/bioseed/seedalign/constraint"
	"github.com/bioseed/seedalign/penalty"
	"github.com/bioseed/seedalign/read"
)

// Type is the closed set of seed search strategies.
type Type int

const (
	// Exact seeds forbid all edits; there is effectively one zone.
	Exact Type = iota + 1
	// LeftToRight seeds anchor the 5' half exactly and allow edits in
	// the 3' half.
	LeftToRight
	// RightToLeft seeds anchor the 3' half exactly and allow edits in
	// the 5' half.
	RightToLeft
	// InsideOut seeds anchor the center exactly and allow edits in the
	// two outer quarters.
	InsideOut
)

func (t Type) String() string {
	switch t {
	case Exact:
		return "EXACT"
	case LeftToRight:
		return "LEFT_TO_RIGHT"
	case RightToLeft:
		return "RIGHT_TO_LEFT"
	case InsideOut:
		return "INSIDE_OUT"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Seed is an immutable declarative policy for one seed: its length,
// search type, the three zone constraints, and a pointer to the
// overall constraint shared by every seed in the set it belongs to.
type Seed struct {
	Len     int
	Type    Type
	Zones   [3]constraint.Constraint
	Overall *constraint.Constraint
}

// MMSeeds returns the seed set implementing a 0/1/2-mismatch policy of
// the given per-seed length, wiring every returned seed to the shared
// overall constraint (which this function also configures).
func MMSeeds(mms, length int, overall *constraint.Constraint) ([]Seed, error) {
	switch mms {
	case 0:
		return zeroMMSeeds(length, overall), nil
	case 1:
		return oneMMSeeds(length, overall), nil
	case 2:
		return twoMMSeeds(length, overall), nil
	default:
		return nil, fmt.Errorf("seed: unsupported mismatch budget %d (only 0, 1, 2 are defined)", mms)
	}
}

func zeroMMSeeds(length int, overall *constraint.Constraint) []Seed {
	*overall = constraint.Exact()
	s := Seed{Len: length, Type: Exact, Overall: overall}
	s.Zones[0] = constraint.Exact()
	s.Zones[1] = constraint.Exact()
	s.Zones[2] = constraint.Exact()
	return []Seed{s}
}

func oneMMSeeds(length int, overall *constraint.Constraint) []Seed {
	*overall = constraint.MMBased(1)

	ltr := Seed{Len: length, Type: LeftToRight, Overall: overall}
	ltr.Zones[0] = constraint.Exact()
	ltr.Zones[1] = constraint.MMBased(1)
	ltr.Zones[2] = constraint.Exact()

	rtl := Seed{Len: length, Type: RightToLeft, Overall: overall}
	rtl.Zones[0] = constraint.Exact()
	rtl.Zones[1] = constraint.MMBased(1)
	rtl.Zones[2] = constraint.Exact()

	return []Seed{ltr, rtl}
}

func twoMMSeeds(length int, overall *constraint.Constraint) []Seed {
	*overall = constraint.MMBased(2)

	ltr := Seed{Len: length, Type: LeftToRight, Overall: overall}
	ltr.Zones[0] = constraint.Exact()
	ltr.Zones[1] = constraint.MMBased(2)
	ltr.Zones[2] = constraint.Exact()

	rtl := Seed{Len: length, Type: RightToLeft, Overall: overall}
	rtl.Zones[0] = constraint.Exact()
	rtl.Zones[1] = constraint.MMBased(2)
	rtl.Zones[2] = constraint.Exact()

	io := Seed{Len: length, Type: InsideOut, Overall: overall}
	io.Zones[0] = constraint.Exact()
	io.Zones[1] = constraint.MMBased(2)
	io.Zones[2] = constraint.MMBased(2)

	return []Seed{ltr, rtl, io}
}

// ShrinkForRead handles a read shorter than the configured seed length:
// a single exact-anchored seed covering the whole read is used in
// place of the configured set.
func ShrinkForRead(seeds []Seed, readLen int) []Seed {
	if len(seeds) == 0 {
		return seeds
	}
	if readLen >= seeds[0].Len {
		return seeds
	}
	overall := constraint.Exact()
	s := Seed{Len: readLen, Type: Exact, Overall: &overall}
	s.Zones[0] = constraint.Exact()
	s.Zones[1] = constraint.Exact()
	s.Zones[2] = constraint.Exact()
	return []Seed{s}
}

// InstantiatedSeed binds a Seed to concrete read bases/qualities at one
// (offset, orientation) and carries the step schedule the bidirectional
// aligner walks.
type InstantiatedSeed struct {
	// Steps[i] is a signed seed-position offset: +k means "extend
	// right consuming seed position k"; -(k+1) means "extend left
	// consuming seed position Len-1-k".
	Steps []int32

	// Zone[i] names the zone (0,1,2) charged for an edit at step i.
	Zone []int8

	// CloseOut[i] is true when step i is the last step assigned to its
	// zone, so the zone's Acceptable() must be checked right after.
	CloseOut []bool

	// Cons are the zone constraints, bound to the read length and
	// pre-debited for every 'N' the seed covers.
	Cons [3]constraint.Constraint

	// Overall is the shared overall constraint, bound to the read length.
	Overall constraint.Constraint

	// MaxJump is the number of leading exact, monotonic steps that may
	// be resolved via one ftab/fchr lookup instead of single-base steps.
	MaxJump int

	SeedOff     int // 0-based offset from the 5' end of the read
	SeedOffIdx  int // index into the seed-offset list (0 = closest to 5')
	SeedTypeIdx int // index of this Seed within its policy's seed set
	Fw          bool
	Len         int // effective seed length (may be < Seed.Len if shrunk)

	// NFiltered is true when pre-debiting Ns left some zone
	// infeasible; the aligner must skip this instantiated seed.
	NFiltered bool

	src Seed
}

// seedPosForLen maps a signed step value to the seed position it
// consumes, given the seed length el. A non-negative step k is an
// extend-right consuming position k directly. A negative step encodes
// an extend-left as -(k+1), consuming position el-1-k; the +1 offset
// keeps every left-extend strictly negative so it can never collide
// with the extend-right encoding of position 0 (int32's -0 is 0).
func seedPosForLen(step int32, el int) int {
	if step >= 0 {
		return int(step)
	}
	k := int(-step) - 1
	return el - 1 - k
}

// SeedPos maps a signed step value from InstantiatedSeed.Steps to the
// seed position (0-based from the 5' end of the seed) it consumes,
// given the instantiated seed's effective length.
func SeedPos(step int32, effLen int) int { return seedPosForLen(step, effLen) }

// StepDir reports the fmindex direction a signed step value extends
// in: a non-negative step extends right, a negative one extends left.
func StepDir(step int32) (right bool) { return step >= 0 }

// Instantiate builds an InstantiatedSeed for seed s applied to read r at
// the given 0-based depth (offset from 5') and orientation, extracting
// the covered bases/qualities and pre-debiting every ambiguous base
// against the zone constraint covering it.
func Instantiate(
	s *Seed,
	r *read.Read,
	fw bool,
	depth int,
	pens penalty.Table,
	ftabLen int,
	seedOffIdx, seedTypeIdx int,
) (is *InstantiatedSeed, seq []byte, nmask []bool, qual []byte, err error) {
	el := s.Len
	if depth+el > r.Len() {
		return nil, nil, nil, nil, fmt.Errorf("seed: offset %d + length %d exceeds read length %d", depth, el, r.Len())
	}
	bases, nm, q := r.Strand(fw)
	seq = append([]byte(nil), bases[depth:depth+el]...)
	nmask = append([]bool(nil), nm[depth:depth+el]...)
	qual = append([]byte(nil), q[depth:depth+el]...)

	steps, zone, closeout, exactRun := buildSteps(s.Type, el)

	is = &InstantiatedSeed{
		Steps:       steps,
		Zone:        zone,
		CloseOut:    closeout,
		SeedOff:     depth,
		SeedOffIdx:  seedOffIdx,
		SeedTypeIdx: seedTypeIdx,
		Fw:          fw,
		Len:         el,
		src:         *s,
	}

	for i := 0; i < 3; i++ {
		is.Cons[i] = s.Zones[i]
		if ierr := is.Cons[i].Instantiate(el); ierr != nil {
			return nil, nil, nil, nil, ierr
		}
	}

	// Pre-debit every ambiguous base against the zone constraint
	// covering its position, per step position->zone mapping. Most
	// seeds touch no N at all, so check that with a single interval
	// query against r's cached per-strand N-run tree before paying for
	// the per-position scan; the tree itself is built once per strand
	// and shared by every seed instantiated against this read.
	if _, touchesN := r.NTree(fw).AnyIntersection(depth, depth+el-1); touchesN {
		posZone := make([]int8, el)
		for i, st := range steps {
			posZone[seedPosForLen(st, el)] = zone[i]
		}
		for pos := 0; pos < el; pos++ {
			if !nmask[pos] {
				continue
			}
			z := posZone[pos]
			ok, cerr := is.Cons[z].CanN(qual[pos], pens)
			if cerr != nil {
				return nil, nil, nil, nil, cerr
			}
			if !ok {
				is.NFiltered = true
				continue
			}
			if cerr := is.Cons[z].ChargeN(qual[pos], pens); cerr != nil {
				return nil, nil, nil, nil, cerr
			}
		}
	}

	is.Overall = *s.Overall
	if ierr := is.Overall.Instantiate(r.Len()); ierr != nil {
		return nil, nil, nil, nil, ierr
	}

	// The leading run can only be jumped when its zone forbids every edit.
	if mm, merr := is.Cons[0].MustMatch(); merr != nil {
		return nil, nil, nil, nil, merr
	} else if !mm {
		exactRun = 0
	}
	if exactRun < ftabLen {
		is.MaxJump = exactRun
	} else {
		is.MaxJump = ftabLen
	}

	return is, seq, nmask, qual, nil
}

// buildSteps constructs the step/zone/closeout arrays for a seed type
// of effective length el, and returns the length of the leading
// monotonic run of exact-zone (zone 0) steps used to compute MaxJump.
func buildSteps(t Type, el int) (steps []int32, zone []int8, closeout []bool, exactRun int) {
	steps = make([]int32, el)
	zone = make([]int8, el)

	switch t {
	case Exact:
		for i := 0; i < el; i++ {
			steps[i] = int32(i)
			zone[i] = 0
		}
		exactRun = el

	case LeftToRight:
		half := el / 2
		for i := 0; i < el; i++ {
			steps[i] = int32(i)
			if i < half {
				zone[i] = 0
			} else {
				zone[i] = 1
			}
		}
		exactRun = half

	case RightToLeft:
		half := el / 2
		for i := 0; i < el; i++ {
			steps[i] = -int32(i + 1)
			if i < half {
				zone[i] = 0
			} else {
				zone[i] = 1
			}
		}
		exactRun = half

	case InsideOut:
		q := el / 4
		center := el - 2*q
		idx := 0
		// Center: ascending, rightward, zone 0.
		for p := q; p < q+center; p++ {
			steps[idx] = int32(p)
			zone[idx] = 0
			idx++
		}
		// Left-outer: descending toward 0, leftward, zone 1.
		for p := q - 1; p >= 0; p-- {
			k := el - 1 - p
			steps[idx] = -int32(k + 1)
			zone[idx] = 1
			idx++
		}
		// Right-outer: ascending from q+center, rightward, zone 2.
		for p := q + center; p < el; p++ {
			steps[idx] = int32(p)
			zone[idx] = 2
			idx++
		}
		exactRun = center

	default:
		panic(fmt.Sprintf("seed: unknown type %v", t))
	}

	closeout = make([]bool, el)
	lastOf := map[int8]int{}
	for i, z := range zone {
		lastOf[z] = i
	}
	for _, i := range lastOf {
		closeout[i] = true
	}

	return steps, zone, closeout, exactRun
}
