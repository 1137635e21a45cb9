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

// Package radix implements a streaming bit codec
// that renders a bit stream as fixed-size blocks of
// symbols drawn from an arbitrary alphabet.
//
// Each block of CharsPerBlock symbols carries
// BitsPerBlock bits, the largest bit count that always
// fits in the block. When bit squeezing is enabled the
// encoder packs an extra bit into a block whenever the
// resulting value still fits the block's capacity, which
// reclaims the slack of alphabets whose size is not a
// power of two. The final block is shortened to the
// fewest symbols that can hold its bits; the decoder
// recovers its bit length from the running byte
// alignment and the number of symbols.
package radix

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/SnellerInc/bbor62/ints"
)

// DefaultAlphabet is the base62 alphabet.
const DefaultAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// DefaultCharsPerBlock is the default block size.
const DefaultCharsPerBlock = 4

var (
	// ErrAmbiguous is returned by NewConfig when the
	// length of a final block cannot be recovered
	// unambiguously for the given alphabet and block size.
	ErrAmbiguous = errors.New("radix: final block length is ambiguous")
	// ErrInvalidSymbol is returned when decoding
	// input that contains a symbol outside the alphabet.
	ErrInvalidSymbol = errors.New("radix: invalid symbol")
	// ErrLastBlock is returned when the final
	// block of the input cannot be decoded.
	ErrLastBlock = errors.New("radix: invalid last block")
	// ErrBlockValue is returned when a complete
	// block holds a value the encoder cannot produce.
	ErrBlockValue = errors.New("radix: block value out of range")
	// ErrUnaligned is returned when the bit stream
	// does not end on a byte boundary.
	ErrUnaligned = errors.New("radix: stream not byte aligned")
)

// Default is the configuration built
// from DefaultAlphabet and DefaultCharsPerBlock,
// with bit squeezing enabled.
var Default *Config

func init() {
	c, err := NewConfig(DefaultAlphabet, DefaultCharsPerBlock, true)
	if err != nil {
		panic(err)
	}
	Default = c
}

type lastBlock struct {
	modulo int // bits written mod 8 before the block
	chars  int // symbols in the block
}

// Config is an immutable block codec configuration.
// A Config may be shared by any number of encoders
// and decoders.
type Config struct {
	alphabet []rune
	index    map[rune]int
	chars    int
	squeeze  bool

	radix    uint64
	bits     int    // bits per block
	maxValue uint64 // 1<<bits - 1
	capacity uint64 // radix**chars
	last     map[lastBlock]int
}

// NewConfig builds a Config for the given alphabet
// and block size. It fails if the alphabet has fewer
// than two symbols or repeats a symbol, if a block can
// hold more than 32 bits, or if final blocks would be
// ambiguous.
func NewConfig(alphabet string, charsPerBlock int, squeeze bool) (*Config, error) {
	if !utf8.ValidString(alphabet) {
		return nil, fmt.Errorf("radix: alphabet is not valid UTF-8")
	}
	c := &Config{
		alphabet: []rune(alphabet),
		index:    make(map[rune]int),
		chars:    charsPerBlock,
		squeeze:  squeeze,
	}
	if len(c.alphabet) < 2 {
		return nil, fmt.Errorf("radix: alphabet needs at least 2 symbols, have %d", len(c.alphabet))
	}
	for i, r := range c.alphabet {
		if j, ok := c.index[r]; ok {
			return nil, fmt.Errorf("radix: symbol %q repeated at %d and %d", r, j, i)
		}
		c.index[r] = i
	}
	if charsPerBlock < 1 {
		return nil, fmt.Errorf("radix: block size %d < 1", charsPerBlock)
	}
	c.radix = uint64(len(c.alphabet))
	capacity, ok := ints.Pow(c.radix, charsPerBlock)
	if !ok || capacity > 1<<32 {
		return nil, fmt.Errorf("radix: %d symbols of radix %d exceed 32 bits", charsPerBlock, c.radix)
	}
	c.capacity = capacity
	// floor(chars * log2(radix)), computed exactly
	c.bits = ints.BitLen(capacity) - 1
	c.maxValue = 1<<c.bits - 1
	last, err := c.buildLastBlock()
	if err != nil {
		return nil, err
	}
	c.last = last
	return c, nil
}

// buildLastBlock computes the bit length of a final block
// for every (byte alignment, symbol count) pair that a
// byte-aligned stream can end with. A final block of
// CharsPerBlock symbols may also be a complete block of
// BitsPerBlock bits, so that length competes with the
// partial ones. Partial blocks always hold fewer bits.
func (c *Config) buildLastBlock() (map[lastBlock]int, error) {
	out := make(map[lastBlock]int)
	for n := 1; n <= c.chars; n++ {
		lo, _ := ints.Pow(c.radix, n-1)
		hi, _ := ints.Pow(c.radix, n)
		minBits := ints.Max(ints.Log2Ceil(lo), 1)
		maxBits := c.bits
		if n < c.chars {
			maxBits = ints.Min(ints.Log2Ceil(hi-1), c.bits-1)
		}
		for modulo := 0; modulo < 8; modulo++ {
			for bits := minBits; bits <= maxBits; bits++ {
				if (modulo+bits)%8 != 0 {
					continue
				}
				key := lastBlock{modulo, n}
				if prev, ok := out[key]; ok {
					return nil, fmt.Errorf("%w: %d and %d bits both end %d symbols at offset %d",
						ErrAmbiguous, prev, bits, n, modulo)
				}
				out[key] = bits
			}
		}
	}
	return out, nil
}

// Alphabet returns the symbols of the alphabet.
func (c *Config) Alphabet() string { return string(c.alphabet) }

// Radix returns the number of symbols in the alphabet.
func (c *Config) Radix() int { return int(c.radix) }

// CharsPerBlock returns the number of symbols in a full block.
func (c *Config) CharsPerBlock() int { return c.chars }

// BitsPerBlock returns the number of bits that
// always fit in a full block.
func (c *Config) BitsPerBlock() int { return c.bits }

// MaxBlockValue returns 1<<BitsPerBlock - 1.
func (c *Config) MaxBlockValue() uint64 { return c.maxValue }

// MaxBlockCapacity returns Radix**CharsPerBlock.
func (c *Config) MaxBlockCapacity() uint64 { return c.capacity }

// Squeeze reports whether bit squeezing is enabled.
func (c *Config) Squeeze() bool { return c.squeeze }

// LastBlockBits returns the bit length of a final block
// of chars symbols that starts at the given byte
// alignment, and whether such a block is valid.
// A final block of CharsPerBlock symbols whose value
// exceeds MaxBlockValue is a squeezed complete block
// of BitsPerBlock+1 bits and is not covered here.
func (c *Config) LastBlockBits(modulo, chars int) (int, bool) {
	bits, ok := c.last[lastBlock{modulo, chars}]
	return bits, ok
}

// appendBlock appends the symbols of v to dst,
// most significant first, left-padded with the
// zero symbol to at least width symbols.
func (c *Config) appendBlock(dst []rune, v uint64, width int) []rune {
	var tmp [64]rune
	i := len(tmp)
	for {
		i--
		tmp[i] = c.alphabet[v%c.radix]
		v /= c.radix
		if v == 0 {
			break
		}
	}
	for len(tmp)-i < width {
		i--
		tmp[i] = c.alphabet[0]
	}
	return append(dst, tmp[i:]...)
}

// finalWidth returns the number of symbols used for a
// final block of nbits bits holding a value that needs
// digits symbols.
func (c *Config) finalWidth(digits, nbits int) int {
	for {
		capacity, _ := ints.Pow(c.radix, digits)
		if ints.Log2Ceil(capacity-1) >= nbits {
			return digits
		}
		digits++
	}
}
