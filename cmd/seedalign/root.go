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
	"os"
	"runtime"

	colorable "github.com/mattn/go-colorable"
	logging "github.com/shenwei356/go-logging"
	"github.com/spf13/cobra"

	"github.com/bioseed/seedalign/config"
)

var log = logging.MustGetLogger("seedalign")

func init() {
	format := logging.MustStringFormatter(`%{color}[%{level:.4s}]%{color:reset} %{message}`)
	backend := logging.NewLogBackend(colorable.NewColorableStderr(), "", 0)
	formatted := logging.NewBackendFormatter(backend, format)
	logging.SetBackend(formatted)
}

func checkError(err error) {
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seedalign",
	Short: "Bidirectional FM-index seed alignment core",
	Long: `seedalign searches short reads against a reference via a
bidirectional FM-index, under configurable mismatch/edit budgets,
reusing an alignment cache across reads that share seed bases.`,
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		checkError(err)
	}
}

func init() {
	rootCmd.PersistentFlags().IntP("threads", "j", 0, "number of worker threads (0 = all CPUs)")
	rootCmd.PersistentFlags().String("config", "", "path to a TOML config file (default ~/.seedalign.toml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
}

func getFlagNonNegativeInt(cmd *cobra.Command, name string) int {
	v, err := cmd.Flags().GetInt(name)
	checkError(err)
	if v < 0 {
		checkError(fmt.Errorf("flag --%s should be a non-negative integer", name))
	}
	return v
}

func getFlagString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	checkError(err)
	return v
}

func getFlagBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	checkError(err)
	return v
}

func getFlagPositiveInt(cmd *cobra.Command, name string) int {
	v := getFlagNonNegativeInt(cmd, name)
	if v == 0 {
		checkError(fmt.Errorf("flag --%s should be a positive integer", name))
	}
	return v
}

func loadConfig(cmd *cobra.Command) *config.Config {
	path := getFlagString(cmd, "config")
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		checkError(err)
	}
	cfg, err := config.Load(path)
	checkError(err)
	return cfg
}

func numThreads(cmd *cobra.Command, cfg *config.Config) int {
	threads := getFlagNonNegativeInt(cmd, "threads")
	if threads == 0 {
		threads = cfg.Threads
	}
	if threads == 0 {
		threads = runtime.NumCPU()
	}
	return threads
}
