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

// Package config loads seedalign's on-disk defaults: seed policy,
// penalty table, and cache sizing, read once at startup and overridden
// by CLI flags.
package config

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/util/pathutil"

	"github.com/bioseed/seedalign/penalty"
)

// Config is the full set of file-configurable defaults.
type Config struct {
	Seed    SeedConfig    `toml:"seed"`
	Penalty PenaltyConfig `toml:"penalty"`
	Cache   CacheConfig   `toml:"cache"`
	Threads int           `toml:"threads"`
}

// SeedConfig selects the default seed policy.
type SeedConfig struct {
	Length     int `toml:"length"`
	Mismatches int `toml:"mismatches"` // 0, 1, or 2
	FtabLen    int `toml:"ftab_len"`
}

// PenaltyConfig mirrors penalty.Simple's fields for TOML round-tripping.
type PenaltyConfig struct {
	MMMin     int `toml:"mismatch_min"`
	MMMax     int `toml:"mismatch_max"`
	MMScale   int `toml:"mismatch_scale"`
	NPenalty  int `toml:"n_penalty"`
	GapOpen   int `toml:"gap_open"`
	GapExtend int `toml:"gap_extend"`
}

// CacheConfig sizes the shared alignment cache.
type CacheConfig struct {
	Shards   int `toml:"shards"`
	Capacity int `toml:"capacity"` // 0 = unbounded
}

// Default returns the built-in configuration used when no config file
// is found, matching penalty.Default() and a 1-mismatch, 2-zone seed
// policy.
func Default() *Config {
	return &Config{
		Seed: SeedConfig{Length: 31, Mismatches: 1, FtabLen: 12},
		Penalty: PenaltyConfig{
			MMMin: 2, MMMax: 6, MMScale: 10,
			NPenalty:  1,
			GapOpen:   5,
			GapExtend: 3,
		},
		Cache:   CacheConfig{Shards: 16, Capacity: 0},
		Threads: 0, // 0 = runtime.NumCPU()
	}
}

// PenaltyTable builds a penalty.Simple from the configured values.
func (c *Config) PenaltyTable() penalty.Table {
	return penalty.Simple{
		MMMin: c.Penalty.MMMin, MMMax: c.Penalty.MMMax, MMScale: c.Penalty.MMScale,
		NPenalty:  c.Penalty.NPenalty,
		GapOpen:   c.Penalty.GapOpen,
		GapExtend: c.Penalty.GapExtend,
	}
}

// DefaultPath returns "~/.seedalign.toml", resolved via the user's home
// directory.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "config: resolving home directory")
	}
	return filepath.Join(home, ".seedalign.toml"), nil
}

// Load reads and parses the TOML config at path, returning Default()
// unmodified if the file does not exist.
func Load(path string) (*Config, error) {
	existed, err := pathutil.Exists(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: checking %s", path)
	}
	if !existed {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %s", path)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories as
// needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "config: creating directory for %s", path)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "config: marshaling")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "config: writing %s", path)
}
