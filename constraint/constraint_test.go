package constraint

import (
	"testing"

	"github.com/bioseed/seedalign/penalty"
)

func TestExactForbidsEdits(t *testing.T) {
	c := Exact()
	if err := c.Instantiate(100); err != nil {
		t.Fatal(err)
	}
	pt := penalty.Default()
	if ok, err := c.CanMismatch(30, pt); err != nil || ok {
		t.Fatalf("exact constraint should forbid mismatch, got ok=%v err=%v", ok, err)
	}
	mm, err := c.MustMatch()
	if err != nil || !mm {
		t.Fatalf("exact constraint MustMatch should be true, got %v err=%v", mm, err)
	}
}

func TestMMBasedAllowsExactlyK(t *testing.T) {
	c := MMBased(2)
	if err := c.Instantiate(50); err != nil {
		t.Fatal(err)
	}
	pt := penalty.Default()
	for i := 0; i < 2; i++ {
		ok, err := c.CanMismatch(40, pt)
		if err != nil || !ok {
			t.Fatalf("mismatch %d should be permitted: ok=%v err=%v", i, ok, err)
		}
		if err := c.ChargeMismatch(40, pt); err != nil {
			t.Fatalf("charge %d failed: %v", i, err)
		}
	}
	if ok, _ := c.CanMismatch(40, pt); ok {
		t.Fatalf("third mismatch should be forbidden")
	}
}

// P1: budget monotonicity — allowances never go negative and never
// exceed their initial value; penalty is non-increasing.
func TestBudgetMonotonicity(t *testing.T) {
	c := MMBased(3)
	if err := c.Instantiate(100); err != nil {
		t.Fatal(err)
	}
	pt := penalty.Default()
	prevPenalty := c.Penalty
	for i := 0; i < 3; i++ {
		if ok, _ := c.CanMismatch(20, pt); !ok {
			t.Fatalf("expected mismatch to be permitted at iter %d", i)
		}
		if err := c.ChargeMismatch(20, pt); err != nil {
			t.Fatal(err)
		}
		if c.MMs < 0 || c.Edits < 0 || c.Penalty < 0 {
			t.Fatalf("allowance went negative at iter %d: %+v", i, c)
		}
		if c.Penalty > prevPenalty {
			t.Fatalf("penalty increased: %d -> %d", prevPenalty, c.Penalty)
		}
		prevPenalty = c.Penalty
	}
}

// P2: charge without a preceding can-check surfaces as ErrInvariant,
// never silently wraps the allowance negative.
func TestChargeWithoutHeadroomIsInvariantError(t *testing.T) {
	c := Exact()
	if err := c.Instantiate(10); err != nil {
		t.Fatal(err)
	}
	pt := penalty.Default()
	err := c.ChargeMismatch(30, pt)
	if err != ErrInvariant {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestAcceptableRequiresFloor(t *testing.T) {
	c := MMBased(2)
	c.MMsCeil = 0 // at least 2 mismatches must be spent
	c.EditsCeil = 0
	if err := c.Instantiate(50); err != nil {
		t.Fatal(err)
	}
	pt := penalty.Default()
	if ok, _ := c.Acceptable(); ok {
		t.Fatalf("fresh constraint with 0 ceil should not be acceptable before any mismatch is spent")
	}
	// charge one mismatch: still not acceptable because ceil demands 0 remaining
	if err := c.ChargeMismatch(20, pt); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Acceptable(); ok {
		t.Fatalf("expected not acceptable with 1 of 2 required mismatches spent")
	}
	if err := c.ChargeMismatch(20, pt); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Acceptable(); !ok {
		t.Fatalf("expected acceptable once both required mismatches spent")
	}
}

func TestPenaltyFuncBasedInstantiation(t *testing.T) {
	c := PenaltyFuncBased(2, 0.1)
	if err := c.Instantiate(100); err != nil {
		t.Fatal(err)
	}
	if c.Penalty != 12 {
		t.Fatalf("expected penalty 12 (round(2+0.1*100)), got %d", c.Penalty)
	}
}

func TestReinstantiateForbidden(t *testing.T) {
	c := MMBased(1)
	if err := c.Instantiate(10); err != nil {
		t.Fatal(err)
	}
	if err := c.Instantiate(10); err != ErrReinstantiated {
		t.Fatalf("expected ErrReinstantiated, got %v", err)
	}
}

func TestCanDeleteCanInsertUseDisjunction(t *testing.T) {
	// A "2 edits of any kind" policy (EditBased) must be able to express
	// a deletion even though Dels/Ins allowances are both zero — this is
	// the canonical resolution of the open question in the design notes.
	c := EditBased(2)
	c.Dels, c.Ins = 0, 0
	if err := c.Instantiate(50); err != nil {
		t.Fatal(err)
	}
	pt := penalty.Default()
	if ok, err := c.CanDelete(0, pt); err != nil || !ok {
		t.Fatalf("expected deletion permitted via generic edit headroom: ok=%v err=%v", ok, err)
	}
	if ok, err := c.CanInsert(0, pt); err != nil || !ok {
		t.Fatalf("expected insertion permitted via generic edit headroom: ok=%v err=%v", ok, err)
	}
}
