package observer

import (
	"bytes"
	"strings"
	"testing"
)

func TestTabHitSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewTabHitSink(&buf)
	s.ReportHit("ACGT", "IIII", "ACGT")
	if got := buf.String(); got != "ACGT\tIIII\tACGT\n" {
		t.Fatalf("unexpected hit line: %q", got)
	}
}

func TestTabCounterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewTabCounterSink(&buf)
	s.ReportCounters(CounterRecord{
		ReadSeq: "ACGT", ReadQual: "IIII",
		SeedsSearched: 1, FtabLookups: 2, FchrLookups: 0,
		MatchD: [4]int{1, 2, 3, 4}, EditD: [4]int{5, 6, 7, 8},
		Hits: 9, MaxDepth: 4,
	})
	fields := strings.Split(strings.TrimRight(buf.String(), "\n"), "\t")
	if len(fields) != 15 {
		t.Fatalf("expected 15 fields, got %d: %v", len(fields), fields)
	}
}

func TestTabActionSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewTabActionSink(&buf)
	s.ReportAction(ActionRecord{ReadSeq: "ACGT", ReadQual: "IIII", Position: 2, Type: ActionMismatch, SeedIdx: 0, SeedOffset: 0, Depth: 3})
	fields := strings.Split(strings.TrimRight(buf.String(), "\n"), "\t")
	if len(fields) != 7 {
		t.Fatalf("expected 7 fields, got %d: %v", len(fields), fields)
	}
	if fields[3] != "MM" {
		t.Fatalf("expected action type MM, got %s", fields[3])
	}
}

func TestSinksNilSafe(t *testing.T) {
	var s Sinks
	s.ReportHit("a", "b", "c")
	s.ReportCounters(CounterRecord{})
	s.ReportAction(ActionRecord{})
}

func TestSinksFanOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	s := Sinks{Hits: []HitSink{NewTabHitSink(&buf1), NewTabHitSink(&buf2)}}
	s.ReportHit("A", "I", "A")
	if buf1.String() != buf2.String() {
		t.Fatalf("expected both sinks to receive the same record")
	}
}
