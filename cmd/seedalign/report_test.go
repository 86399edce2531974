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
	"strings"
	"testing"
)

func TestReadHitSizesSkipsErrorLines(t *testing.T) {
	tsv := strings.Join([]string{
		"read1\t0\t0\ttrue\t8\t2\t[14 27]",
		"read2\terror\tsome failure",
		"read3\t0\t0\tfalse\t8\t5\t[1 2 3 4 5]",
	}, "\n")

	sizes, err := readHitSizes(strings.NewReader(tsv))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{2, 5}
	if len(sizes) != len(want) {
		t.Fatalf("got %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("got %v, want %v", sizes, want)
		}
	}
}

func TestReadHitSizesEmptyInput(t *testing.T) {
	sizes, err := readHitSizes(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(sizes) != 0 {
		t.Fatalf("expected no sizes, got %v", sizes)
	}
}
