package naive

import (
	"sort"
	"strings"
	"testing"

	"github.com/bioseed/seedalign/fmindex"
)

func bruteForce(ref, pattern string) []int {
	var out []int
	for i := 0; i+len(pattern) <= len(ref); i++ {
		if ref[i:i+len(pattern)] == pattern {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func codes(s string) []byte {
	out := make([]byte, len(s))
	for i, b := range []byte(s) {
		out[i] = byte(base2code[b])
	}
	return out
}

// P10: searching for a substring of the reference always returns it,
// and the reported range size matches a brute-force scan.
func TestRoundTripExactMatch(t *testing.T) {
	ref := "ACGTACGTTGCATCGATCGATCGGGATCGATCGATCGTAGCTAGCTAGCTA"
	idx, err := New([]byte(ref), 4)
	if err != nil {
		t.Fatal(err)
	}
	for _, pattern := range []string{"ACGT", "TCGATCGA", "GCTAGCTA", "A", "TA"} {
		rng, ok := idx.FtabLookup(fmindex.Right, encode(pattern))
		if !ok {
			t.Fatalf("pattern %q: expected a match", pattern)
		}
		got := idx.Locate(rng)
		want := bruteForce(ref, pattern)
		if len(got) != len(want) {
			t.Fatalf("pattern %q: got %d hits, want %d (%v vs %v)", pattern, len(got), len(want), got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("pattern %q: hit %d = %d, want %d", pattern, i, got[i], want[i])
			}
		}
	}
}

func TestNoMatchIsEmpty(t *testing.T) {
	idx, err := New([]byte("ACGTACGTACGT"), 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.FtabLookup(fmindex.Right, encode("GGGGGG")); ok {
		t.Fatalf("expected no match for a pattern absent from the reference")
	}
}

// Extending left one base at a time must agree with a single
// FtabLookup call over the same bases read left to right.
func TestLeftExtendAgreesWithFtabLookup(t *testing.T) {
	ref := "ACGTACGTTGCATCGATCGATCG"
	idx, err := New([]byte(ref), 8)
	if err != nil {
		t.Fatal(err)
	}
	pattern := "TCGATCGA"
	enc := encode(pattern)

	rng := idx.Full()
	var ok bool
	for i := len(enc) - 1; i >= 0; i-- {
		rng, ok = idx.Extend(fmindex.Left, enc[i], rng)
		if !ok {
			t.Fatalf("left-extend step %d failed unexpectedly", i)
		}
	}

	want, ok := idx.FtabLookup(fmindex.Right, enc)
	if !ok {
		t.Fatal("expected FtabLookup to find the pattern")
	}
	if rng != want {
		t.Fatalf("left-extend range %+v does not match FtabLookup range %+v", rng, want)
	}
}

func TestRejectsAmbiguousReference(t *testing.T) {
	if _, err := New([]byte("ACGTN"), 4); err == nil {
		t.Fatal("expected an error for a reference containing N")
	}
}

func encode(s string) []byte {
	return codes(strings.ToUpper(s))
}
