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

// Package seedaligner executes the bidirectional recursive search an
// instantiated seed describes against an fmindex.Pair, under the
// budgets a constraint.Constraint enforces, consulting the two-level
// cache before doing any work and reporting through observer sinks.
//
// Recursion depth is bounded by the seed length (a few tens of bases),
// so this implements searchBi as ordinary Go recursion rather than the
// explicit frame stack a fixed-stack-size implementation would need as
// a hedge — Go goroutine stacks grow on demand, so that hazard does not
// apply here, and the recursive form reads closer to the algorithm
// itself.
package seedaligner

import (
	"github.com/pkg/errors"

	"github.com/bioseed/seedalign/cache"
	"github.com/bioseed/seedalign/constraint"
	"github.com/bioseed/seedalign/fmindex"
	"github.com/bioseed/seedalign/metrics"
	"github.com/bioseed/seedalign/observer"
	"github.com/bioseed/seedalign/penalty"
	"github.com/bioseed/seedalign/seed"
)

// ErrInternal reports an invariant violation surfaced from the
// constraint layer during search: the current read's alignment is
// aborted rather than left in an inconsistent state.
var ErrInternal = errors.New("seedaligner: internal invariant violation")

// EditKind names the four charged-edit categories the branch ordering
// tries, in a fixed order: exact, mismatch, deletion, insertion. An
// N-mismatch is a variant of mismatch and shares its slot in the
// fixed-size [4]int counters.
type EditKind int

const (
	KindExact EditKind = iota
	KindMismatch
	KindDelete
	KindInsert
)

// Edit records one charged edit along a reported hit's path.
type Edit struct {
	Kind EditKind
	Base byte // substituted base code, for KindMismatch
	Pos  int  // seed position (0-based from 5') the edit occurs at
}

// Hit is one accepted terminal state of the search: a bidirectional
// range plus the edit path that reached it. Edits is only populated
// for a hit produced by a fresh cache build — a cache hit (local or
// shared) returns the range list alone, since the cache stores ranges
// only, deduplicated on the four-coordinate range tuple rather than
// the edit list that produced it.
type Hit struct {
	Range fmindex.Range
	Len   int
	Edits []Edit
}

// Aligner runs searches against one fmindex.Pair under one penalty
// table, optionally deduplicating work through a shared cache and
// tapping observer sinks. An Aligner is meant to be owned by a single
// worker goroutine: its Metrics field is mutated without locking.
type Aligner struct {
	Index   fmindex.Pair
	Pens    penalty.Table
	Shared  *cache.Shared // nil disables the shared level (local-only)
	Sinks   observer.Sinks
	Metrics metrics.SeedSearchMetrics
}

// New returns an Aligner ready to search idx under pens, optionally
// backed by a shared cache.
func New(idx fmindex.Pair, pens penalty.Table, shared *cache.Shared) *Aligner {
	return &Aligner{Index: idx, Pens: pens, Shared: shared}
}

// searchCtx threads the per-call read-level data and accumulators
// through the recursive search without re-deriving them at every
// frame.
type searchCtx struct {
	is       *seed.InstantiatedSeed
	seq      []byte
	qual     []byte
	nmask    []bool
	readSeq  string
	readQual string
	sinks    observer.Sinks
	hits     []Hit
	bwops    int64
	bweds    int64
	matchd   [4]int
	editd    [4]int
	maxDepth int
	ftabLookups int
	fchrLookups int
}

// SearchSeed resolves the hit set for one instantiated seed, checking
// the local cache, then the shared cache, then falling back to a fresh
// bidirectional search. seq/nmask/qual are the seed's extracted bases
// (as returned by seed.Instantiate);
// readSeq/readQual are the whole read's strings, used only for
// observer hit/counter records.
func (a *Aligner) SearchSeed(
	is *seed.InstantiatedSeed,
	seq []byte, nmask []bool, qual []byte,
	readSeq, readQual string,
	local *cache.Local,
) ([]Hit, error) {
	a.Metrics.SeedSearch++

	if is.NFiltered {
		a.Metrics.FilteredSeed++
		return nil, nil
	}

	key := cache.Fingerprint(seq, nmask, is.Fw)

	if v, ok := local.Lookup(key); ok {
		a.Metrics.IntraHit++
		return rangesToHits(v.Ranges, is.Len), nil
	}

	if a.Shared == nil {
		return a.build(is, seq, nmask, qual, readSeq, readQual, key, local, nil)
	}

	for {
		if v, ok := a.Shared.Lookup(key); ok {
			a.Metrics.InterHit++
			local.Store(key, v)
			return rangesToHits(v.Ranges, is.Len), nil
		}

		res := a.Shared.BeginAdd(key)
		switch {
		case res.Handle != nil:
			return a.build(is, seq, nmask, qual, readSeq, readQual, key, local, res.Handle)
		case res.Present != nil:
			a.Metrics.InterHit++
			local.Store(key, *res.Present)
			return rangesToHits(res.Present.Ranges, is.Len), nil
		case res.Pending != nil:
			<-res.Pending
			continue
		case res.OOM:
			a.Metrics.OOMs++
			return a.build(is, seq, nmask, qual, readSeq, readQual, key, local, nil)
		default:
			return nil, errors.New("seedaligner: cache returned an empty BeginResult")
		}
	}
}

// build performs the fresh recursive search (CACHE_BUILD), installs
// the resulting range list into the local cache and, if handle is
// non-nil, into the shared cache, and reports counter/hit observer
// records.
func (a *Aligner) build(
	is *seed.InstantiatedSeed,
	seq []byte, nmask []bool, qual []byte,
	readSeq, readQual string,
	key cache.Key,
	local *cache.Local,
	handle *cache.Handle,
) ([]Hit, error) {
	ctx := &searchCtx{
		is: is, seq: seq, qual: qual, nmask: nmask,
		readSeq: readSeq, readQual: readQual,
		sinks: a.Sinks,
	}

	rng, step, ok := a.initialJump(ctx, is)
	if ok {
		cons := is.Cons
		overall := is.Overall
		if err := a.searchBi(ctx, step, rng, cons, overall, -1, 0, nil, 0); err != nil {
			if handle != nil {
				a.Shared.Abandon(handle)
			}
			return nil, err
		}
	}

	a.Metrics.BWOps += ctx.bwops
	a.Metrics.BWEds += ctx.bweds

	seen := make(map[fmindex.Range]struct{}, len(ctx.hits))
	ranges := make([]fmindex.Range, 0, len(ctx.hits))
	for _, h := range ctx.hits {
		if _, dup := seen[h.Range]; dup {
			continue
		}
		seen[h.Range] = struct{}{}
		ranges = append(ranges, h.Range)
		if handle != nil {
			a.Shared.AddRange(handle, h.Range)
		}
		ctx.sinks.ReportHit(readSeq, readQual, string(seqToASCII(seq, nmask)))
	}

	v := cache.QVal{Ranges: ranges}
	if handle != nil {
		v = a.Shared.Finalize(handle)
	}
	local.Store(key, v)

	ctx.sinks.ReportCounters(observer.CounterRecord{
		ReadSeq: readSeq, ReadQual: readQual,
		SeedsSearched: 1,
		FtabLookups:   ctx.ftabLookups,
		FchrLookups:   ctx.fchrLookups,
		MatchD:        ctx.matchd,
		EditD:         ctx.editd,
		Hits:          len(ranges),
		MaxDepth:      ctx.maxDepth,
	})

	return ctx.hits, nil
}

// initialJump resolves is.MaxJump leading steps via fchr/ftab instead
// of single-base extends, returning the resulting range and the step
// index recursion should resume from. ok is false if the jump itself
// already ruled out every locus.
func (a *Aligner) initialJump(ctx *searchCtx, is *seed.InstantiatedSeed) (fmindex.Range, int, bool) {
	if is.MaxJump == 0 {
		return a.Index.Full(), 0, true
	}

	dir := fmindex.Right
	if !seed.StepDir(is.Steps[0]) {
		dir = fmindex.Left
	}

	bases := make([]byte, is.MaxJump)
	for i := 0; i < is.MaxJump; i++ {
		p := seed.SeedPos(is.Steps[i], is.Len)
		bases[i] = ctx.seq[p]
	}

	var rng fmindex.Range
	var ok bool
	if is.MaxJump == 1 {
		rng, ok = a.Index.Fchr(dir, bases[0])
		ctx.fchrLookups++
	} else {
		rng, ok = a.Index.FtabLookup(dir, bases)
		ctx.ftabLookups++
	}
	a.Metrics.PosSearch++
	ctx.bwops++
	ctx.matchd[KindExact] += is.MaxJump
	if !ok {
		return fmindex.Range{}, 0, false
	}
	return rng, is.MaxJump, true
}

// searchBi is the recursive bidirectional search over is.Steps[step:].
// lastGapKind/lastGapExt track the running extension index for
// whichever gap class (int(KindDelete), int(KindInsert), or -1 for
// none) the
// immediately preceding branch charged, since the extension index
// resets whenever the gap streak breaks.
func (a *Aligner) searchBi(
	ctx *searchCtx,
	step int,
	rng fmindex.Range,
	cons [3]constraint.Constraint,
	overall constraint.Constraint,
	lastGapKind, lastGapExt int,
	edits []Edit,
	depth int,
) error {
	if depth > ctx.maxDepth {
		ctx.maxDepth = depth
	}

	is := ctx.is
	if step >= len(is.Steps) {
		okOverall, err := overall.Acceptable()
		if err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
		if !okOverall {
			return nil
		}
		for z := 0; z < 3; z++ {
			okZone, err := cons[z].Acceptable()
			if err != nil {
				return errors.Wrap(ErrInternal, err.Error())
			}
			if !okZone {
				return nil
			}
		}
		ctx.hits = append(ctx.hits, Hit{Range: rng, Len: is.Len, Edits: append([]Edit(nil), edits...)})
		return nil
	}

	st := is.Steps[step]
	p := seed.SeedPos(st, is.Len)
	right := seed.StepDir(st)
	dir := fmindex.Left
	if right {
		dir = fmindex.Right
	}
	z := is.Zone[step]
	rb := ctx.seq[p]
	rq := ctx.qual[p]

	if ctx.nmask[p] {
		return a.searchAmbiguous(ctx, step, p, dir, rng, cons, overall, edits, depth)
	}

	// Exact branch. An exact step is not a gap, so the gap streak breaks
	// here: the next deletion or insertion attempt must charge a fresh
	// gap-open cost, not an extension of whatever streak preceded this
	// step.
	if next, ok := a.Index.Extend(dir, rb, rng); ok {
		ctx.bwops++
		ctx.matchd[KindExact]++
		if err := a.stepThrough(ctx, step, z, next, cons, overall, -1, 0, edits, depth); err != nil {
			return err
		}
	}

	// Mismatch branch.
	canZ, err := cons[z].CanMismatch(rq, a.Pens)
	if err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	canO, err := overall.CanMismatch(rq, a.Pens)
	if err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	if canZ && canO {
		for _, b := range fmindex.Bases {
			if b == rb {
				continue
			}
			next, ok := a.Index.Extend(dir, b, rng)
			if !ok {
				continue
			}
			ctx.bwops++
			ctx.bweds++
			ctx.matchd[KindMismatch]++
			ctx.editd[KindMismatch]++
			c2 := cons
			o2 := overall
			if err := c2[z].ChargeMismatch(rq, a.Pens); err != nil {
				return errors.Wrap(ErrInternal, err.Error())
			}
			if err := o2.ChargeMismatch(rq, a.Pens); err != nil {
				return errors.Wrap(ErrInternal, err.Error())
			}
			ctx.reportAction(observer.ActionMismatch, p, depth)
			e := append(edits, Edit{Kind: KindMismatch, Base: b, Pos: p})
			// A mismatch is not a gap either: break the streak the same
			// way the exact branch does.
			if err := a.stepThrough(ctx, step, z, next, c2, o2, -1, 0, e, depth); err != nil {
				return err
			}
		}
	}

	// Deletion branch: consumes a reference base without consuming a
	// read base, so it recurses at the same step with the range
	// advanced and does not itself check close-out (the step that
	// triggered it hasn't been satisfied yet).
	delExt := 0
	if lastGapKind == int(KindDelete) {
		delExt = lastGapExt + 1
	}
	canZ, err = cons[z].CanDelete(delExt, a.Pens)
	if err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	canO, err = overall.CanDelete(delExt, a.Pens)
	if err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	if canZ && canO {
		for _, b := range fmindex.Bases {
			next, ok := a.Index.Extend(dir, b, rng)
			if !ok {
				continue
			}
			ctx.bwops++
			ctx.bweds++
			ctx.matchd[KindDelete]++
			ctx.editd[KindDelete]++
			c2 := cons
			o2 := overall
			if err := c2[z].ChargeDelete(delExt, a.Pens); err != nil {
				return errors.Wrap(ErrInternal, err.Error())
			}
			if err := o2.ChargeDelete(delExt, a.Pens); err != nil {
				return errors.Wrap(ErrInternal, err.Error())
			}
			ctx.reportAction(observer.ActionDelete, p, depth)
			e := append(edits, Edit{Kind: KindDelete, Pos: p})
			if err := a.searchBi(ctx, step, next, c2, o2, int(KindDelete), delExt, e, depth+1); err != nil {
				return err
			}
		}
	}

	// Insertion branch: consumes a read base without extending the
	// range, so it recurses at step+1 with the range unchanged.
	insExt := 0
	if lastGapKind == int(KindInsert) {
		insExt = lastGapExt + 1
	}
	canZ, err = cons[z].CanInsert(insExt, a.Pens)
	if err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	canO, err = overall.CanInsert(insExt, a.Pens)
	if err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	if canZ && canO {
		ctx.bweds++
		ctx.matchd[KindInsert]++
		ctx.editd[KindInsert]++
		c2 := cons
		o2 := overall
		if err := c2[z].ChargeInsert(insExt, a.Pens); err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
		if err := o2.ChargeInsert(insExt, a.Pens); err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
		ctx.reportAction(observer.ActionInsert, p, depth)
		e := append(edits, Edit{Kind: KindInsert, Pos: p})
		if err := a.stepThrough(ctx, step, z, rng, c2, o2, int(KindInsert), insExt, e, depth); err != nil {
			return err
		}
	}

	return nil
}

// searchAmbiguous handles a seed position the read marks as ambiguous
// ('N'). Its cost was already charged once, in bulk, as a pre-debit at
// instantiation time; the recursive search simply fans out over all
// four bases with no further charge, since the true reference base at
// this locus is unknown.
func (a *Aligner) searchAmbiguous(
	ctx *searchCtx,
	step, p int,
	dir fmindex.Dir,
	rng fmindex.Range,
	cons [3]constraint.Constraint,
	overall constraint.Constraint,
	edits []Edit,
	depth int,
) error {
	z := ctx.is.Zone[step]
	for _, b := range fmindex.Bases {
		next, ok := a.Index.Extend(dir, b, rng)
		if !ok {
			continue
		}
		ctx.bwops++
		ctx.matchd[KindMismatch]++
		ctx.reportAction(observer.ActionNMismatch, p, depth)
		e := append(edits, Edit{Kind: KindMismatch, Base: b, Pos: p})
		// An N-mismatch is not a gap either: break the streak.
		if err := a.stepThrough(ctx, step, z, next, cons, overall, -1, 0, e, depth); err != nil {
			return err
		}
	}
	return nil
}

// stepThrough advances past step (which consumed a read base), running
// the close-out acceptability check first if step was the last one
// assigned to its zone.
func (a *Aligner) stepThrough(
	ctx *searchCtx,
	step int, z int8,
	rng fmindex.Range,
	cons [3]constraint.Constraint,
	overall constraint.Constraint,
	lastGapKind, lastGapExt int,
	edits []Edit,
	depth int,
) error {
	if ctx.is.CloseOut[step] {
		ok, err := cons[z].Acceptable()
		if err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
		if !ok {
			return nil
		}
	}
	return a.searchBi(ctx, step+1, rng, cons, overall, lastGapKind, lastGapExt, edits, depth+1)
}

func (ctx *searchCtx) reportAction(kind observer.ActionKind, pos, depth int) {
	if ctx.sinks.Actions == nil {
		return
	}
	ctx.sinks.ReportAction(observer.ActionRecord{
		ReadSeq: ctx.readSeq, ReadQual: ctx.readQual,
		Position: pos, Type: kind,
		SeedIdx: ctx.is.SeedTypeIdx, SeedOffset: ctx.is.SeedOff,
		Depth: depth,
	})
}

func rangesToHits(rs []fmindex.Range, length int) []Hit {
	out := make([]Hit, len(rs))
	for i, r := range rs {
		out[i] = Hit{Range: r, Len: length}
	}
	return out
}

var code2base = [4]byte{'A', 'C', 'G', 'T'}

func seqToASCII(seq []byte, nmask []bool) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		if nmask[i] {
			out[i] = 'N'
		} else {
			out[i] = code2base[b]
		}
	}
	return out
}
