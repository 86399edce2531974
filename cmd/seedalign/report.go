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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/bioseed/seedalign/metrics"
)

func init() {
	reportCmd.Flags().StringP("tsv", "i", "-", "align's TSV output, - for stdin")
	reportCmd.Flags().StringP("histogram", "p", "", "write a hit-size histogram to this PNG path (empty = skip)")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize an align run's hit-size distribution",
	Long: `Reads the TSV lines an align run wrote, reports the mean and
standard deviation of the per-rank hit count, and optionally plots
their distribution as a histogram.`,
	Run: func(cmd *cobra.Command, args []string) {
		in := openInput(getFlagString(cmd, "tsv"))
		defer in.Close()

		sizes, err := readHitSizes(in)
		checkError(err)

		mean, stddev := metrics.HitSizeSummary(sizes)
		fmt.Printf("ranked hits: %d\tmean size: %.3f\tstddev: %.3f\n", len(sizes), mean, stddev)

		if path := getFlagString(cmd, "histogram"); path != "" {
			checkError(plotHitSizes(sizes, path))
		}
	},
}

func openInput(path string) *os.File {
	if path == "-" {
		return os.Stdin
	}
	f, err := os.Open(path)
	checkError(err)
	return f
}

// readHitSizes extracts the hit-count column (the second-to-last
// tab-separated field) from every well-formed line align wrote,
// skipping the error lines align emits for unalignable reads.
func readHitSizes(r io.Reader) ([]float64, error) {
	var sizes []float64
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < 2 || fields[1] == "error" {
			continue
		}
		n, err := strconv.Atoi(fields[len(fields)-2])
		if err != nil {
			continue
		}
		sizes = append(sizes, float64(n))
	}
	return sizes, sc.Err()
}

// plotHitSizes writes a histogram of sizes to path as a PNG.
func plotHitSizes(sizes []float64, path string) error {
	p := plot.New()
	p.Title.Text = "seed hit size distribution"
	p.X.Label.Text = "hits per ranked (offset, orientation) pair"
	p.Y.Label.Text = "count"

	vals := make(plotter.Values, len(sizes))
	copy(vals, sizes)
	hist, err := plotter.NewHist(vals, 20)
	if err != nil {
		return err
	}
	p.Add(hist)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
