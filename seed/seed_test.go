package seed

import (
	"testing"

	"github.com/bioseed/seedalign/constraint"
	"github.com/bioseed/seedalign/penalty"
	"github.com/bioseed/seedalign/read"
)

// P3: steps has length L and visits each seed position exactly once.
func TestStepCoverage(t *testing.T) {
	for _, typ := range []Type{Exact, LeftToRight, RightToLeft, InsideOut} {
		for _, L := range []int{4, 5, 8, 16, 21} {
			steps, _, _, _ := buildSteps(typ, L)
			if len(steps) != L {
				t.Fatalf("%v len=%d: expected %d steps, got %d", typ, L, L, len(steps))
			}
			seen := make([]bool, L)
			for _, st := range steps {
				p := seedPosForLen(st, L)
				if p < 0 || p >= L {
					t.Fatalf("%v len=%d: step %d maps out of range position %d", typ, L, st, p)
				}
				if seen[p] {
					t.Fatalf("%v len=%d: position %d visited twice", typ, L, p)
				}
				seen[p] = true
			}
			for p, ok := range seen {
				if !ok {
					t.Fatalf("%v len=%d: position %d never visited", typ, L, p)
				}
			}
		}
	}
}

// P4: zone partition — every position in exactly one of {0,1,2}; for
// LEFT_TO_RIGHT/RIGHT_TO_LEFT zone 0 is the anchor half, for INSIDE_OUT
// zone 0 is the middle half.
func TestZonePartition(t *testing.T) {
	L := 16
	steps, zone, _, _ := buildSteps(LeftToRight, L)
	half := L / 2
	for i, st := range steps {
		p := seedPosForLen(st, L)
		wantZone := int8(1)
		if p < half {
			wantZone = 0
		}
		if zone[i] != wantZone {
			t.Fatalf("LEFT_TO_RIGHT: position %d expected zone %d, got %d", p, wantZone, zone[i])
		}
	}

	steps, zone, _, _ = buildSteps(RightToLeft, L)
	for i, st := range steps {
		p := seedPosForLen(st, L)
		wantZone := int8(1)
		if p >= L-half {
			wantZone = 0
		}
		if zone[i] != wantZone {
			t.Fatalf("RIGHT_TO_LEFT: position %d expected zone %d, got %d", p, wantZone, zone[i])
		}
	}

	steps, zone, _, _ = buildSteps(InsideOut, L)
	q := L / 4
	for i, st := range steps {
		p := seedPosForLen(st, L)
		var want int8
		switch {
		case p < q:
			want = 1
		case p >= L-q:
			want = 2
		default:
			want = 0
		}
		if zone[i] != want {
			t.Fatalf("INSIDE_OUT: position %d expected zone %d, got %d", p, want, zone[i])
		}
	}
}

// P5: the first MaxJump positions of steps are in the exact zone and
// monotonic in the same direction.
func TestMaxJumpCorrectness(t *testing.T) {
	r, err := read.New([]byte("ACGTACGTACGTACGT"), nil)
	if err != nil {
		t.Fatal(err)
	}
	pens := penalty.Default()
	overall := constraint.MMBased(1)
	seeds, err := MMSeeds(1, 16, &overall)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range seeds {
		is, _, _, _, err := Instantiate(&s, r, true, 0, pens, 100, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if is.MaxJump <= 0 {
			t.Fatalf("%v: expected positive MaxJump", s.Type)
		}
		dir := int32(0)
		for i := 0; i < is.MaxJump; i++ {
			if is.Zone[i] != 0 {
				t.Fatalf("%v: step %d within MaxJump not in exact zone", s.Type, i)
			}
			st := is.Steps[i]
			sign := int32(1)
			if st < 0 {
				sign = -1
			}
			if dir == 0 {
				dir = sign
			} else if sign != dir {
				t.Fatalf("%v: MaxJump prefix not monotonic in one direction", s.Type)
			}
		}
		// capped by ftabLen
		is2, _, _, _, err := Instantiate(&s, r, true, 0, pens, 2, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if is2.MaxJump > 2 {
			t.Fatalf("%v: MaxJump should be capped at ftabLen=2, got %d", s.Type, is2.MaxJump)
		}
	}
}

func TestNPreDebitFilters(t *testing.T) {
	r, err := read.New([]byte("ANGT"), []byte{40, 1, 40, 40})
	if err != nil {
		t.Fatal(err)
	}
	pens := penalty.Default()
	overall := constraint.Exact()
	seeds, err := MMSeeds(0, 4, &overall)
	if err != nil {
		t.Fatal(err)
	}
	is, _, nmask, _, err := Instantiate(&seeds[0], r, true, 0, pens, 10, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !nmask[1] {
		t.Fatalf("expected position 1 to be flagged ambiguous")
	}
	if !is.NFiltered {
		t.Fatalf("expected exact seed covering an N to be nfiltered")
	}
}

func TestShrinkForRead(t *testing.T) {
	overall := constraint.MMBased(1)
	seeds, err := MMSeeds(1, 20, &overall)
	if err != nil {
		t.Fatal(err)
	}
	shrunk := ShrinkForRead(seeds, 10)
	if len(shrunk) != 1 {
		t.Fatalf("expected exactly one seed after shrinking, got %d", len(shrunk))
	}
	if shrunk[0].Len != 10 {
		t.Fatalf("expected shrunk seed length 10, got %d", shrunk[0].Len)
	}
}
