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

package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/bioseed/seedalign/cache"
	"github.com/bioseed/seedalign/constraint"
	"github.com/bioseed/seedalign/fmindex"
	"github.com/bioseed/seedalign/fmindex/naive"
	"github.com/bioseed/seedalign/metrics"
	"github.com/bioseed/seedalign/read"
	"github.com/bioseed/seedalign/results"
	"github.com/bioseed/seedalign/seed"
	"github.com/bioseed/seedalign/seedaligner"
)

func init() {
	alignCmd.Flags().StringP("ref", "r", "", "reference FASTA file (single sequence)")
	alignCmd.Flags().StringP("query", "i", "-", "query FASTA/FASTQ file, - for stdin")
	alignCmd.Flags().IntP("seed-length", "k", 0, "seed length (0 = use config default)")
	alignCmd.Flags().IntP("mismatches", "m", -1, "per-seed mismatch budget, 0/1/2 (-1 = use config default)")
	alignCmd.Flags().StringP("out", "o", "-", "output TSV file, - for stdout")
	rootCmd.AddCommand(alignCmd)
}

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Seed-align reads against a reference",
	Long: `Seed-align reads against a reference sequence.

Every read is searched at both orientations, at a tiling of seed
offsets, through the configured mismatch-budget seed policy. Hits are
written as one TSV line per (offset, orientation) rank, ascending by
element count, alongside per-run counters.`,
	Run: func(cmd *cobra.Command, args []string) {
		refFile := getFlagString(cmd, "ref")
		if refFile == "" {
			checkError(fmt.Errorf("align: --ref is required"))
		}
		cfg := loadConfig(cmd)
		threads := numThreads(cmd, cfg)
		verbose := !getFlagBool(cmd, "quiet")

		seedLen := getFlagNonNegativeInt(cmd, "seed-length")
		if seedLen == 0 {
			seedLen = cfg.Seed.Length
		}
		mms := cfg.Seed.Mismatches
		if v, _ := cmd.Flags().GetInt("mismatches"); v >= 0 {
			mms = v
		}

		idx := loadReferenceIndex(refFile, cfg.Seed.FtabLen)
		pens := cfg.PenaltyTable()

		var overall constraint.Constraint
		seeds, err := seed.MMSeeds(mms, seedLen, &overall)
		checkError(err)

		shared := cache.NewShared(cfg.Cache.Shards, cfg.Cache.Capacity)

		out := openOutput(getFlagString(cmd, "out"))
		defer out.Close()

		queries := readQueries(getFlagString(cmd, "query"))

		var pbs *mpb.Progress
		var pbar *mpb.Bar
		if verbose {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			pbar = pbs.AddBar(int64(len(queries)),
				mpb.PrependDecorators(
					decor.Name("reads: ", decor.WC{W: len("reads: "), C: decor.DindentRight}),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 10),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)
		}

		agg := &metrics.Aggregate{}
		var mu sync.Mutex // guards out
		var wg sync.WaitGroup
		tokens := make(chan struct{}, threads)

		for _, q := range queries {
			tokens <- struct{}{}
			wg.Add(1)
			go func(q queryRecord) {
				defer func() {
					<-tokens
					wg.Done()
					if pbar != nil {
						pbar.Increment()
					}
				}()

				a := seedaligner.New(idx, pens, shared)
				lines, lerr := alignOneRead(a, idx, seeds, seedLen, q.name, q.bases, q.qual)
				agg.Merge(a.Metrics)

				mu.Lock()
				if lerr != nil {
					fmt.Fprintf(out, "%s\terror\t%s\n", q.name, lerr)
				} else {
					for _, l := range lines {
						fmt.Fprintln(out, l)
					}
				}
				mu.Unlock()
			}(q)
		}
		wg.Wait()
		if pbs != nil {
			pbs.Wait()
		}

		snap := agg.Snapshot()
		if verbose {
			log.Infof("seed searches: %d, local hits: %d, shared hits: %d, filtered: %d",
				snap.SeedSearch, snap.IntraHit, snap.InterHit, snap.FilteredSeed)
		}
	},
}

// queryRecord is a read's name/bases/qualities copied out of a reused
// fastx.Record, safe to hand to a worker goroutine.
type queryRecord struct {
	name, bases, qual []byte
}

// readQueries reads every record of path into memory up front, so the
// progress bar can report a known total instead of growing it as
// records stream in.
func readQueries(path string) []queryRecord {
	fastxReader, err := fastx.NewReader(nil, path, "")
	checkError(err)
	defer fastxReader.Close()

	var out []queryRecord
	var record *fastx.Record
	for {
		record, err = fastxReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			checkError(err)
			break
		}
		q := queryRecord{name: append([]byte(nil), record.Name...), bases: append([]byte(nil), record.Seq.Seq...)}
		if len(record.Seq.Qual) > 0 {
			q.qual = append([]byte(nil), record.Seq.Qual...)
		}
		out = append(out, q)
	}
	return out
}

// loadReferenceIndex reads the first sequence of refFile and builds a
// naive bidirectional FM-index over it; a production run would swap
// this for a succinct-rank implementation of the same fmindex.Pair
// contract.
func loadReferenceIndex(refFile string, ftabLen int) *naive.Index {
	fastxReader, err := fastx.NewReader(nil, refFile, "")
	checkError(err)
	defer fastxReader.Close()

	record, err := fastxReader.Read()
	checkError(err)

	idx, err := naive.New(record.Seq.Seq, ftabLen)
	checkError(err)
	return idx
}

func openOutput(path string) *os.File {
	if path == "-" {
		return os.Stdout
	}
	f, err := os.Create(path)
	checkError(err)
	return f
}

// seedOffsets tiles seed-length windows across a read of length
// readLen, non-overlapping, shrinking the final window if it would run
// past the read's end.
func seedOffsets(readLen, seedLen int) []int {
	if seedLen <= 0 || readLen <= 0 {
		return nil
	}
	var offs []int
	for o := 0; o+1 <= readLen; o += seedLen {
		offs = append(offs, o)
		if o+seedLen >= readLen {
			break
		}
	}
	return offs
}

// alignOneRead runs every configured seed at every tiled offset and
// both orientations against one read, returning one formatted line per
// ranked (offset, orientation) hit set.
func alignOneRead(a *seedaligner.Aligner, idx *naive.Index, seeds []seed.Seed, seedLen int, name, bases, qual []byte) ([]string, error) {
	r, err := read.New(bases, qual)
	if err != nil {
		return nil, err
	}

	offs := seedOffsets(r.Len(), seedLen)
	res := results.New(offs)
	local := cache.NewLocal()

	for offIdx, off := range offs {
		for _, fw := range [2]bool{true, false} {
			for typeIdx, s := range seeds {
				effSeeds := seed.ShrinkForRead([]seed.Seed{s}, r.Len()-off)
				for _, es := range effSeeds {
					is, seq, nmask, qb, ierr := seed.Instantiate(&es, r, fw, off, a.Pens, idx.FtabLen(), offIdx, typeIdx)
					if ierr != nil {
						continue
					}
					res.SetBases(offIdx, fw, seq, qb, nmask, is.Len)

					hits, serr := a.SearchSeed(is, seq, nmask, qb, string(bases), string(qual), local)
					if serr != nil {
						continue
					}
					ranges := make([]fmindex.Range, len(hits))
					for i, h := range hits {
						ranges[i] = h.Range
					}
					res.AddSeed(offIdx, fw, is, ranges)
				}
			}
		}
	}

	var lines []string
	for rank := 0; rank < res.NumRanked(); rank++ {
		offIdx, off, fw, sl, ranges := res.HitsByRank(rank)
		var positions []int
		for _, rg := range ranges {
			positions = append(positions, idx.Locate(rg)...)
		}
		lines = append(lines, fmt.Sprintf("%s\t%d\t%d\t%v\t%d\t%d\t%v",
			name, offIdx, off, fw, sl, len(positions), positions))
	}
	return lines, nil
}
