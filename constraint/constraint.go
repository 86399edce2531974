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

// Package constraint implements the per-zone and overall edit budgets
// consulted by the seed aligner: how many mismatches, insertions,
// deletions, and how much total penalty a branch of the search may
// still spend, and how much of that budget must have been spent
// before a branch is acceptable.
package constraint

import (
	"math"

	"github.com/pkg/errors"

	"github.com/bioseed/seedalign/penalty"
)

// unset is the "fully permissive" sentinel for an allowance or ceiling.
const unset = math.MaxInt32

var unsetF = math.MaxFloat64

// ErrNotInstantiated is returned by any charge/query operation invoked
// before Instantiate.
var ErrNotInstantiated = errors.New("constraint: not instantiated")

// ErrInvariant reports a charge that would drive an allowance negative,
// i.e. the caller charged an edit without first checking the matching
// CanX predicate: an internal invariant violation.
var ErrInvariant = errors.New("constraint: invariant violation")

// ErrReinstantiated is returned by Instantiate when called twice.
var ErrReinstantiated = errors.New("constraint: already instantiated")

// Constraint is a mutable budget of edits/mismatches/inserts/deletes
// and penalty remaining, plus ceilings on how much of that budget may
// remain unspent when the constrained region's acceptability is
// checked.
type Constraint struct {
	Edits, MMs, Ins, Dels, Penalty                int
	EditsCeil, MMsCeil, InsCeil, DelsCeil, PenaltyCeil int

	// PenConst/PenLinear instantiate Penalty from the read length when
	// PenConst has been set to something other than the unset sentinel:
	// Penalty = round(PenConst + PenLinear*readLen).
	PenConst, PenLinear float64

	instantiated bool
}

// New returns a fully permissive, uninstantiated Constraint.
func New() Constraint {
	var c Constraint
	c.Init()
	return c
}

// Init resets c to be fully permissive and uninstantiated.
func (c *Constraint) Init() {
	c.Edits, c.MMs, c.Ins, c.Dels, c.Penalty = unset, unset, unset, unset, unset
	c.EditsCeil, c.MMsCeil, c.InsCeil, c.DelsCeil, c.PenaltyCeil = unset, unset, unset, unset, unset
	c.PenConst, c.PenLinear = unsetF, unsetF
	c.instantiated = false
}

// Exact returns a Constraint that forbids any edit.
func Exact() Constraint {
	c := New()
	c.Edits, c.MMs, c.Ins, c.Dels = 0, 0, 0, 0
	return c
}

// MMBased returns a Constraint allowing up to k mismatches and k edits
// of any kind; gap allowances are left unconstrained, matching the
// "else unconstrained" preset definition.
func MMBased(k int) Constraint {
	c := New()
	c.Edits, c.MMs = k, k
	return c
}

// EditBased returns a Constraint allowing up to k edits of any kind.
func EditBased(k int) Constraint {
	c := New()
	c.Edits = k
	return c
}

// PenaltyBased returns a Constraint whose only limit is a flat total
// penalty budget.
func PenaltyBased(p int) Constraint {
	c := New()
	c.Penalty = p
	return c
}

// PenaltyFuncBased returns a Constraint whose penalty budget is derived
// from the read length at Instantiate time: round(penConst + penLinear*readLen).
func PenaltyFuncBased(penConst, penLinear float64) Constraint {
	c := New()
	c.PenConst, c.PenLinear = penConst, penLinear
	return c
}

// Instantiate binds c to a concrete read length, deriving Penalty from
// PenConst/PenLinear if those were set. It may be called only once.
func (c *Constraint) Instantiate(readLen int) error {
	if c.instantiated {
		return ErrReinstantiated
	}
	if c.PenConst != unsetF {
		c.Penalty = int(math.Round(c.PenConst + c.PenLinear*float64(readLen)))
	}
	c.instantiated = true
	return nil
}

// MustMatch returns true iff the constraint forbids any further edit.
func (c *Constraint) MustMatch() (bool, error) {
	if !c.instantiated {
		return false, ErrNotInstantiated
	}
	return c.Penalty == 0 ||
		(c.MMs == 0 && c.Edits == 0 && c.Dels == 0 && c.Ins == 0), nil
}

// CanMismatch reports whether a mismatch of quality q may still be charged.
func (c *Constraint) CanMismatch(q uint8, pt penalty.Table) (bool, error) {
	if !c.instantiated {
		return false, ErrNotInstantiated
	}
	return (c.MMs > 0 || c.Edits > 0) && c.Penalty >= pt.MM(q), nil
}

// CanN reports whether an N-mismatch of quality q may still be charged.
func (c *Constraint) CanN(q uint8, pt penalty.Table) (bool, error) {
	if !c.instantiated {
		return false, ErrNotInstantiated
	}
	return (c.MMs > 0 || c.Edits > 0) && c.Penalty >= pt.N(q), nil
}

// CanDelete reports whether a deletion at extension index ex may still
// be charged. Per the canonical resolution of the open question in the
// design notes, the gap-class allowance and the generic edit allowance
// are OR'd (either headroom admits the gap), matching CanInsert.
func (c *Constraint) CanDelete(ex int, pt penalty.Table) (bool, error) {
	if !c.instantiated {
		return false, ErrNotInstantiated
	}
	return (c.Dels > 0 || c.Edits > 0) && c.Penalty >= pt.Del(ex), nil
}

// CanInsert reports whether an insertion at extension index ex may
// still be charged.
func (c *Constraint) CanInsert(ex int, pt penalty.Table) (bool, error) {
	if !c.instantiated {
		return false, ErrNotInstantiated
	}
	return (c.Ins > 0 || c.Edits > 0) && c.Penalty >= pt.Ins(ex), nil
}

// CanGap reports whether a gap of any kind may still be charged, purely
// on allowance headroom (no penalty lookup, since the extension index
// isn't known yet).
func (c *Constraint) CanGap() (bool, error) {
	if !c.instantiated {
		return false, ErrNotInstantiated
	}
	return ((c.Ins > 0 || c.Dels > 0) || c.Edits > 0) && c.Penalty > 0, nil
}

// ChargeMismatch debits a mismatch of quality q. It must be preceded by
// a true CanMismatch check; violating that precondition drives an
// allowance negative and is reported as ErrInvariant.
func (c *Constraint) ChargeMismatch(q uint8, pt penalty.Table) error {
	if !c.instantiated {
		return ErrNotInstantiated
	}
	if c.MMs == 0 {
		c.Edits--
	} else {
		c.MMs--
	}
	c.Penalty -= pt.MM(q)
	return c.checkNonNegative()
}

// ChargeN debits an N-mismatch of quality q.
func (c *Constraint) ChargeN(q uint8, pt penalty.Table) error {
	if !c.instantiated {
		return ErrNotInstantiated
	}
	if c.MMs == 0 {
		c.Edits--
	} else {
		c.MMs--
	}
	c.Penalty -= pt.N(q)
	return c.checkNonNegative()
}

// ChargeDelete debits a deletion at extension index ex. A gap always
// charges both its own class counter and the generic edit counter.
func (c *Constraint) ChargeDelete(ex int, pt penalty.Table) error {
	if !c.instantiated {
		return ErrNotInstantiated
	}
	c.Dels--
	c.Edits--
	c.Penalty -= pt.Del(ex)
	return c.checkNonNegative()
}

// ChargeInsert debits an insertion at extension index ex.
func (c *Constraint) ChargeInsert(ex int, pt penalty.Table) error {
	if !c.instantiated {
		return ErrNotInstantiated
	}
	c.Ins--
	c.Edits--
	c.Penalty -= pt.Ins(ex)
	return c.checkNonNegative()
}

// Acceptable reports whether every remaining allowance is within its
// ceiling, i.e. at least as many edits as the ceiling demands have
// been consumed along this branch.
func (c *Constraint) Acceptable() (bool, error) {
	if !c.instantiated {
		return false, ErrNotInstantiated
	}
	return c.Edits <= c.EditsCeil &&
		c.MMs <= c.MMsCeil &&
		c.Ins <= c.InsCeil &&
		c.Dels <= c.DelsCeil &&
		c.Penalty <= c.PenaltyCeil, nil
}

func (c *Constraint) checkNonNegative() error {
	if c.MMs < 0 || c.Edits < 0 || c.Ins < 0 || c.Dels < 0 || c.Penalty < 0 {
		return ErrInvariant
	}
	return nil
}
