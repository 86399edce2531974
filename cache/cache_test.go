package cache

import (
	"sync"
	"testing"

	"github.com/bioseed/seedalign/fmindex"
)

func TestLocalLookupStore(t *testing.T) {
	l := NewLocal()
	k := Fingerprint([]byte{0, 1, 2, 3}, []bool{false, false, false, false}, true)
	if _, ok := l.Lookup(k); ok {
		t.Fatalf("expected miss before Store")
	}
	v := QVal{Ranges: []fmindex.Range{{TopF: 0, BotF: 1, TopB: 0, BotB: 1}}}
	l.Store(k, v)
	got, ok := l.Lookup(k)
	if !ok || len(got.Ranges) != 1 {
		t.Fatalf("expected a hit with one range, got %+v ok=%v", got, ok)
	}
}

// P6: lookup after finalize returns a QVal with the same range multiset
// as was built, and duplicate AddRange calls are suppressed.
func TestSharedIdempotence(t *testing.T) {
	s := NewShared(4, 0)
	k := Fingerprint([]byte{0, 1, 2, 3}, []bool{false, false, false, false}, true)

	res := s.BeginAdd(k)
	if res.Handle == nil {
		t.Fatal("expected to become the builder")
	}
	r1 := fmindex.Range{TopF: 0, BotF: 1, TopB: 0, BotB: 1}
	r2 := fmindex.Range{TopF: 2, BotF: 3, TopB: 2, BotB: 3}
	s.AddRange(res.Handle, r1)
	s.AddRange(res.Handle, r2)
	s.AddRange(res.Handle, r1) // duplicate, must not double up
	got := s.Finalize(res.Handle)
	if len(got.Ranges) != 2 {
		t.Fatalf("expected 2 deduplicated ranges, got %d", len(got.Ranges))
	}

	v1, ok := s.Lookup(k)
	if !ok || len(v1.Ranges) != 2 {
		t.Fatalf("expected lookup after finalize to return 2 ranges, got %+v ok=%v", v1, ok)
	}
	v2, ok := s.Lookup(k)
	if !ok || len(v2.Ranges) != len(v1.Ranges) {
		t.Fatalf("repeated lookup must return the same multiset")
	}
}

// P7: at-most-one-build-per-key under concurrency — of N concurrent
// BeginAdd calls for the same missing key, exactly one gets a Handle;
// the rest observe Pending and, once the builder finalizes, read the
// finished value through Lookup.
func TestSharedAtMostOneBuild(t *testing.T) {
	s := NewShared(4, 0)
	k := Fingerprint([]byte{3, 2, 1, 0}, []bool{false, false, false, false}, false)

	const n = 16
	var wg sync.WaitGroup
	var builders int32Counter
	results := make([]BeginResult, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = s.BeginAdd(k)
		}(i)
	}
	wg.Wait()

	var handle *Handle
	pendingCount := 0
	for _, r := range results {
		if r.Handle != nil {
			builders.inc()
			handle = r.Handle
		} else if r.Pending != nil {
			pendingCount++
		} else {
			t.Fatalf("unexpected BeginResult with neither Handle nor Pending: %+v", r)
		}
	}
	if builders.get() != 1 {
		t.Fatalf("expected exactly one builder, got %d", builders.get())
	}
	if pendingCount != n-1 {
		t.Fatalf("expected %d pending callers, got %d", n-1, pendingCount)
	}

	s.AddRange(handle, fmindex.Range{TopF: 5, BotF: 6, TopB: 5, BotB: 6})
	s.Finalize(handle)

	for _, r := range results {
		if r.Pending == nil {
			continue
		}
		<-r.Pending
		v, ok := s.Lookup(k)
		if !ok || len(v.Ranges) != 1 {
			t.Fatalf("expected pending caller to see the finished build after waiting")
		}
	}
}

// int32Counter is a tiny mutex-guarded counter, avoiding a sync/atomic
// import for a single test's bookkeeping.
type int32Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int32Counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *int32Counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestSharedOOM(t *testing.T) {
	s := NewShared(1, 1)
	k1 := Fingerprint([]byte{0}, []bool{false}, true)
	k2 := Fingerprint([]byte{1}, []bool{false}, true)

	res1 := s.BeginAdd(k1)
	if res1.Handle == nil {
		t.Fatal("expected first key to get a builder")
	}
	res2 := s.BeginAdd(k2)
	if !res2.OOM {
		t.Fatalf("expected second distinct key in a full shard to report OOM, got %+v", res2)
	}
	if s.OOMs() != 1 {
		t.Fatalf("expected OOMs()==1, got %d", s.OOMs())
	}
}

func TestSharedAbandon(t *testing.T) {
	s := NewShared(2, 0)
	k := Fingerprint([]byte{0, 0}, []bool{false, false}, true)
	res := s.BeginAdd(k)
	s.AddRange(res.Handle, fmindex.Range{TopF: 0, BotF: 1, TopB: 0, BotB: 1})
	s.Abandon(res.Handle)

	if _, ok := s.Lookup(k); ok {
		t.Fatalf("abandoned build must not be visible via Lookup")
	}
	res2 := s.BeginAdd(k)
	if res2.Handle == nil {
		t.Fatalf("key must be buildable again after Abandon")
	}
}
