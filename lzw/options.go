// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package lzw

import (
	"errors"
	"fmt"

	"github.com/SnellerInc/bbor62/flexdict"
)

// The first two codes of every dictionary are
// escapes that introduce a raw literal.
// Their seed entries are the characters with
// the same value.
const (
	asciiEscape   = 0 // followed by an 8-bit character
	unicodeEscape = 1 // followed by a 16-bit UTF-16 code unit
)

// DefaultSeed is the seed dictionary shared by
// every BBOR62 implementation. Entries are coded
// by their position; changing it breaks the wire
// format.
var DefaultSeed = []string{
	"\x00", "\x01",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	" ", ".", ",",
	"e", "a", "r", "i", "o", "t", "n", "s", "l", "c",
	"u", "d", "p", "m", "h", "g", "b", "f", "v", "k",
	"w", "j",
	"q", "x", "y", "z",
	"A", "M", "S", "C", "P", "D", "B", "R", "L", "T",
	"E", "N", "H", "G", "F", "W", "I", "J", "K", "O",
	"V", "U",
	"Q", "X", "Y", "Z",
	"th", "en", "er", "in", "es", "on", "an", "re", "st", "le",
}

// DefaultMaxDictSize is the default bound on the
// number of dictionary entries, which keeps codes
// within 10 bits.
const DefaultMaxDictSize = 1<<10 - 1

// Options describes an LZW configuration.
type Options struct {
	// Seed is the ordered static dictionary.
	// Seed[0] must be "\x00" and Seed[1] "\x01".
	Seed []string `json:"seed,omitempty"`
	// DynamicDict lets the dictionary learn new
	// sequences on top of the seed.
	DynamicDict bool `json:"dynamicDict"`
	// MaxDictSize bounds the total number of entries.
	MaxDictSize int `json:"maxDictSize"`
	// DictReset clears the learned entries when the
	// dictionary is full instead of freezing it.
	DictReset bool `json:"dictReset"`
	// ByteAlign pads every compressed string to a
	// whole number of bytes.
	ByteAlign bool `json:"byteAlign"`
}

// DefaultOptions returns the default LZW options.
func DefaultOptions() Options {
	return Options{
		Seed:        DefaultSeed,
		DynamicDict: true,
		MaxDictSize: DefaultMaxDictSize,
		DictReset:   true,
		ByteAlign:   true,
	}
}

// Config is a validated, immutable LZW configuration.
type Config struct {
	opts Options
	fwd  map[units]int // seed entry -> code
	rev  map[int]units // code -> seed entry
}

// Default is the configuration built
// from DefaultOptions.
var Default *Config

func init() {
	c, err := DefaultOptions().Config()
	if err != nil {
		panic(err)
	}
	Default = c
}

var errSeed = errors.New("lzw: invalid seed dictionary")

// Config validates o and compiles its seed dictionary.
func (o Options) Config() (*Config, error) {
	if len(o.Seed) < 2 || o.Seed[asciiEscape] != "\x00" || o.Seed[unicodeEscape] != "\x01" {
		return nil, fmt.Errorf("%w: the first entries must be \"\\x00\" and \"\\x01\"", errSeed)
	}
	keys := make([]units, len(o.Seed))
	for i, s := range o.Seed {
		if s == "" {
			return nil, fmt.Errorf("%w: empty entry at %d", errSeed, i)
		}
		u, ok := toUnits(s)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d is not valid UTF-8", errSeed, i)
		}
		keys[i] = u
	}
	fwd, rev, err := flexdict.Seed(keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errSeed, err)
	}
	if o.MaxDictSize < len(o.Seed) {
		return nil, fmt.Errorf("lzw: max dictionary size %d below seed size %d", o.MaxDictSize, len(o.Seed))
	}
	o.Seed = append([]string(nil), o.Seed...)
	return &Config{opts: o, fwd: fwd, rev: rev}, nil
}

// Options returns a copy of the options
// the Config was built from.
func (c *Config) Options() Options {
	o := c.opts
	o.Seed = append([]string(nil), o.Seed...)
	return o
}

// ByteAlign reports whether compressed
// strings end on a byte boundary.
func (c *Config) ByteAlign() bool { return c.opts.ByteAlign }

// SeedSize returns the number of seed entries.
func (c *Config) SeedSize() int { return len(c.opts.Seed) }

// full reports whether a dictionary of the
// given size must be reset before it grows.
func (c *Config) full(size int) bool {
	return c.opts.DynamicDict && c.opts.DictReset && size >= c.opts.MaxDictSize
}

// nextCode returns the largest code a reader whose
// dictionary holds size entries may receive next.
// The writer has already registered the pair that
// ends with the upcoming token, so one code past the
// reader's dictionary is valid exactly when that pair
// could be registered.
func (c *Config) nextCode(size int) int {
	if c.opts.DynamicDict && size < c.opts.MaxDictSize {
		return size
	}
	return size - 1
}
