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

// Package observer declares the three narrow sink interfaces the
// aligner taps during a search — hit, counter, action — and provides
// tab-delimited stream implementations of each. Sinks never mutate
// aligner state and may be nil; the aligner must treat a nil sink list
// as "report nothing".
package observer

import (
	"fmt"
	"io"
	"sync"
)

// HitSink receives one record per successful terminal range.
type HitSink interface {
	ReportHit(readSeq, readQual, seedSeq string)
}

// CounterRecord is one read's worth of search counters.
type CounterRecord struct {
	ReadSeq, ReadQual string
	SeedsSearched     int
	FtabLookups       int
	FchrLookups       int
	MatchD            [4]int // exact/mismatch/delete/insert branch counts taken
	EditD             [4]int // edits charged, by the same four kinds
	Hits              int
	MaxDepth          int
}

// CounterSink receives one CounterRecord per read.
type CounterSink interface {
	ReportCounters(rec CounterRecord)
}

// ActionKind names a branch taken during the recursive search.
type ActionKind int

const (
	ActionExact ActionKind = iota
	ActionMismatch
	ActionNMismatch
	ActionDelete
	ActionInsert
)

func (k ActionKind) String() string {
	switch k {
	case ActionExact:
		return "EXACT"
	case ActionMismatch:
		return "MM"
	case ActionNMismatch:
		return "NMM"
	case ActionDelete:
		return "DEL"
	case ActionInsert:
		return "INS"
	default:
		return "UNKNOWN"
	}
}

// ActionRecord traces one branch taken at one recursion depth.
type ActionRecord struct {
	ReadSeq, ReadQual string
	Position          int
	Type              ActionKind
	SeedIdx           int
	SeedOffset        int
	Depth             int
}

// ActionSink receives one ActionRecord per branch attempted.
type ActionSink interface {
	ReportAction(rec ActionRecord)
}

// TabHitSink writes hit records as "readSeq\treadQual\tseedSeq\n" to an
// underlying writer, one line per call, serialized by an internal
// mutex so concurrent workers can share one sink safely.
type TabHitSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTabHitSink wraps w as a HitSink.
func NewTabHitSink(w io.Writer) *TabHitSink { return &TabHitSink{w: w} }

// ReportHit implements HitSink.
func (s *TabHitSink) ReportHit(readSeq, readQual, seedSeq string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s\t%s\t%s\n", readSeq, readQual, seedSeq)
}

// TabCounterSink writes one 15-field tab-delimited line per read.
type TabCounterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTabCounterSink wraps w as a CounterSink.
func NewTabCounterSink(w io.Writer) *TabCounterSink { return &TabCounterSink{w: w} }

// ReportCounters implements CounterSink.
func (s *TabCounterSink) ReportCounters(rec CounterRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
		rec.ReadSeq, rec.ReadQual,
		rec.SeedsSearched, rec.FtabLookups, rec.FchrLookups,
		rec.MatchD[0], rec.MatchD[1], rec.MatchD[2], rec.MatchD[3],
		rec.EditD[0], rec.EditD[1], rec.EditD[2], rec.EditD[3],
		rec.Hits, rec.MaxDepth)
}

// TabActionSink writes one 7-field tab-delimited line per branch.
type TabActionSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTabActionSink wraps w as an ActionSink.
func NewTabActionSink(w io.Writer) *TabActionSink { return &TabActionSink{w: w} }

// ReportAction implements ActionSink.
func (s *TabActionSink) ReportAction(rec ActionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s\t%s\t%d\t%s\t%d\t%d\t%d\n",
		rec.ReadSeq, rec.ReadQual, rec.Position, rec.Type, rec.SeedIdx, rec.SeedOffset, rec.Depth)
}

// Sinks bundles the three optional sink lists the aligner taps. A nil
// slice in any field means "report nothing" for that channel.
type Sinks struct {
	Hits     []HitSink
	Counters []CounterSink
	Actions  []ActionSink
}

func (s Sinks) reportHit(readSeq, readQual, seedSeq string) {
	for _, sink := range s.Hits {
		sink.ReportHit(readSeq, readQual, seedSeq)
	}
}

func (s Sinks) reportCounters(rec CounterRecord) {
	for _, sink := range s.Counters {
		sink.ReportCounters(rec)
	}
}

func (s Sinks) reportAction(rec ActionRecord) {
	for _, sink := range s.Actions {
		sink.ReportAction(rec)
	}
}

// ReportHit taps every registered hit sink.
func (s Sinks) ReportHit(readSeq, readQual, seedSeq string) { s.reportHit(readSeq, readQual, seedSeq) }

// ReportCounters taps every registered counter sink.
func (s Sinks) ReportCounters(rec CounterRecord) { s.reportCounters(rec) }

// ReportAction taps every registered action sink.
func (s Sinks) ReportAction(rec ActionRecord) { s.reportAction(rec) }
