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

// Package cache implements the two-level alignment cache: a local
// (per-read) map and a shared (process-wide) map from seed fingerprint
// to the set of bidirectional ranges a search produced, with
// at-most-one-concurrent-build-per-key semantics on the shared level.
package cache

import (
	"sync"

	"github.com/zeebo/wyhash"

	"github.com/bioseed/seedalign/fmindex"
)

// hashSeed is fixed so fingerprint routing is reproducible across runs,
// which P9 (determinism) and the cache tests both rely on.
const hashSeed uint64 = 0x5eed4a11671

// Key is a seed fingerprint: the exact 2-bit-plus-N byte sequence of
// the seed's bases and its orientation. Two instantiated seeds that
// cover the same bases in the same orientation always produce the same
// Key, regardless of which read or offset they came from — that is
// what makes the shared cache usable across reads.
type Key struct {
	bases string
	nmask string
	fw    bool
}

// Fingerprint builds a cache Key from instantiated-seed bases, an
// N-mask of the same length, and orientation.
func Fingerprint(seq []byte, nmask []bool, fw bool) Key {
	bb := make([]byte, len(seq))
	copy(bb, seq)
	nb := make([]byte, len(nmask))
	for i, v := range nmask {
		if v {
			nb[i] = 1
		}
	}
	return Key{bases: string(bb), nmask: string(nb), fw: fw}
}

func (k Key) hashBytes() []byte {
	buf := make([]byte, 0, len(k.bases)+len(k.nmask)+1)
	buf = append(buf, k.bases...)
	buf = append(buf, k.nmask...)
	if k.fw {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// QVal is a handle naming the (deduplicated) list of ranges a search
// for one fingerprint produced.
type QVal struct {
	Ranges []fmindex.Range
}

// Local is the per-read cache: a plain map, no synchronization, reset
// once per read.
type Local struct {
	m map[Key]QVal
}

// NewLocal returns an empty per-read cache.
func NewLocal() *Local {
	return &Local{m: make(map[Key]QVal)}
}

// Lookup reports the cached value for key, if any.
func (l *Local) Lookup(k Key) (QVal, bool) {
	v, ok := l.m[k]
	return v, ok
}

// Store records a finished result for key, overwriting any prior value.
func (l *Local) Store(k Key, v QVal) {
	l.m[k] = v
}

// buildState tracks a shared-cache entry's lifecycle.
type buildState int

const (
	building buildState = iota
	ready
)

type entry struct {
	state  buildState
	ranges []fmindex.Range
	seen   map[fmindex.Range]struct{}
	done   chan struct{}
}

type shard struct {
	mu sync.Mutex
	m  map[Key]*entry
}

// Shared is the process-wide, cross-read cache. It is safe for
// concurrent use by many workers and guarantees at-most-one concurrent
// build per key: a second caller racing to build the same key observes
// AlreadyPending and waits on the first caller's Finalize instead of
// duplicating the search.
type Shared struct {
	shards   []shard
	capacity int // 0 = unbounded; otherwise a soft per-shard entry cap simulating OOM

	mu   sync.Mutex // guards ooms
	ooms int
}

// NewShared returns a shared cache sharded numShards ways (rounded up
// to a power of two); capacity is the maximum number of entries per
// shard before BeginAdd reports OOM (0 = unbounded).
func NewShared(numShards, capacity int) *Shared {
	if numShards < 1 {
		numShards = 1
	}
	n := 1
	for n < numShards {
		n <<= 1
	}
	s := &Shared{shards: make([]shard, n), capacity: capacity}
	for i := range s.shards {
		s.shards[i].m = make(map[Key]*entry)
	}
	return s
}

func (s *Shared) shardFor(k Key) *shard {
	h := wyhash.Hash(k.hashBytes(), hashSeed)
	return &s.shards[h&uint64(len(s.shards)-1)]
}

// Lookup returns the finalized value for key, if present.
func (s *Shared) Lookup(k Key) (QVal, bool) {
	sh := s.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.m[k]
	if !ok || e.state != ready {
		return QVal{}, false
	}
	return QVal{Ranges: append([]fmindex.Range(nil), e.ranges...)}, true
}

// BeginResult is the outcome of BeginAdd.
type BeginResult struct {
	Handle  *Handle // non-nil only when this call must perform the build
	Present *QVal   // non-nil when the key was already finalized
	Pending <-chan struct{}
	OOM     bool
}

// Handle is returned by BeginAdd to the single caller responsible for
// building a key's range set.
type Handle struct {
	key Key
	sh  *shard
	e   *entry
}

// BeginAdd attempts to become the builder for key. Exactly one of
// Handle, Present, Pending, or OOM is set in the result; OOM means the
// shard is full and no entry was created.
func (s *Shared) BeginAdd(k Key) BeginResult {
	sh := s.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.m[k]; ok {
		if e.state == ready {
			v := QVal{Ranges: append([]fmindex.Range(nil), e.ranges...)}
			return BeginResult{Present: &v}
		}
		return BeginResult{Pending: e.done}
	}

	if s.capacity > 0 && len(sh.m) >= s.capacity {
		s.mu.Lock()
		s.ooms++
		s.mu.Unlock()
		return BeginResult{OOM: true}
	}

	e := &entry{state: building, seen: make(map[fmindex.Range]struct{}), done: make(chan struct{})}
	sh.m[k] = e
	return BeginResult{Handle: &Handle{key: k, sh: sh, e: e}}
}

// AddRange records one range under a handle's key, silently
// deduplicating a tuple already seen for this key.
func (s *Shared) AddRange(h *Handle, r fmindex.Range) {
	h.sh.mu.Lock()
	defer h.sh.mu.Unlock()
	if _, dup := h.e.seen[r]; dup {
		return
	}
	h.e.seen[r] = struct{}{}
	h.e.ranges = append(h.e.ranges, r)
}

// Finalize marks the build complete, releasing any callers blocked in
// BeginAdd's Pending channel, and returns the finished value.
func (s *Shared) Finalize(h *Handle) QVal {
	h.sh.mu.Lock()
	h.e.state = ready
	v := QVal{Ranges: append([]fmindex.Range(nil), h.e.ranges...)}
	close(h.e.done)
	h.sh.mu.Unlock()
	return v
}

// Abandon drops a partial build without finalizing it, e.g. when a
// driver cancels a worker mid-build: the key becomes buildable again,
// and any waiters must retry BeginAdd rather than hang forever.
func (s *Shared) Abandon(h *Handle) {
	h.sh.mu.Lock()
	delete(h.sh.m, h.key)
	close(h.e.done)
	h.sh.mu.Unlock()
}

// OOMs returns the number of BeginAdd calls that reported OOM so far.
func (s *Shared) OOMs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ooms
}
