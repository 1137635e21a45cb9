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

package radix

import (
	"fmt"
	"strings"

	"github.com/SnellerInc/bbor62/bitstream"
	"github.com/SnellerInc/bbor62/ints"
)

// Encoder packs bits into blocks of symbols.
// Every completed block is passed to the emit
// callback as soon as it fills, in order.
type Encoder struct {
	c      *Config
	emit   func(block string)
	buf    uint64 // bits of the current block
	nbits  int    // bits in buf
	modulo int    // total bits written mod 8
	tmp    []rune
}

var _ bitstream.Writer = &Encoder{}

// NewEncoder returns an Encoder that passes
// completed blocks to emit.
func NewEncoder(c *Config, emit func(block string)) *Encoder {
	return &Encoder{c: c, emit: emit}
}

// WriteBits implements bitstream.Writer.WriteBits.
func (e *Encoder) WriteBits(v uint32, n int) error {
	if err := bitstream.Check(v, n); err != nil {
		return err
	}
	for n > 0 {
		k := ints.Min(n, e.c.bits-e.nbits)
		n -= k
		e.buf = e.buf<<k | uint64(v>>n)&(1<<k-1)
		e.nbits += k
		e.modulo = (e.modulo + k) % 8
		if e.nbits < e.c.bits {
			continue
		}
		if e.c.squeeze {
			// borrow bits from the rest of v while the
			// block value stays within the block capacity
			// but above the guaranteed range
			for n > 0 {
				try := e.buf<<1 | uint64(v>>(n-1))&1
				if try <= e.c.maxValue || try >= e.c.capacity {
					break
				}
				e.buf = try
				e.nbits++
				e.modulo = (e.modulo + 1) % 8
				n--
			}
		}
		e.tmp = e.c.appendBlock(e.tmp[:0], e.buf, e.c.chars)
		e.emit(string(e.tmp))
		e.buf, e.nbits = 0, 0
	}
	return nil
}

// Flush implements bitstream.Writer.Flush.
// It emits the pending partial block using the
// fewest symbols from which the decoder can
// recover its length. The total number of bits
// written must be a multiple of eight.
func (e *Encoder) Flush() error {
	if e.modulo != 0 {
		return fmt.Errorf("%w: %d trailing bits", ErrUnaligned, e.modulo)
	}
	if e.nbits > 0 {
		e.tmp = e.c.appendBlock(e.tmp[:0], e.buf, 1)
		e.tmp = e.c.appendBlock(e.tmp[:0], e.buf, e.c.finalWidth(len(e.tmp), e.nbits))
		e.emit(string(e.tmp))
	}
	e.buf, e.nbits = 0, 0
	return nil
}

// EncodeToString encodes p as a string of
// symbols from the alphabet of c.
func EncodeToString(c *Config, p []byte) (string, error) {
	var sb strings.Builder
	e := NewEncoder(c, func(block string) { sb.WriteString(block) })
	for _, b := range p {
		if err := e.WriteBits(uint32(b), 8); err != nil {
			return "", err
		}
	}
	if err := e.Flush(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
