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
	"unicode/utf8"

	"github.com/SnellerInc/bbor62/bitstream"
)

// Decoder reads the bits encoded in a string of
// symbols. Symbols are consumed lazily as bits are
// requested. The first error encountered is sticky.
type Decoder struct {
	c   *Config
	in  string
	pos int // byte offset of the next symbol

	block  []int  // digits of the current block
	buf    uint64 // decoded bits not yet forming a byte
	nbits  int
	modulo int // bits decoded mod 8

	out bitstream.Buffer
	err error
}

var _ bitstream.Reader = &Decoder{}

// NewDecoder returns a Decoder reading from s.
func NewDecoder(c *Config, s string) *Decoder {
	return &Decoder{c: c, in: s, block: make([]int, 0, c.chars)}
}

// Err returns the first error encountered
// while decoding symbols, if any.
func (d *Decoder) Err() error { return d.err }

// fill decodes symbols until n bits are
// buffered or the input is exhausted.
func (d *Decoder) fill(n int) {
	for d.err == nil && !d.out.HasNext(n) && d.pos < len(d.in) {
		r, size := utf8.DecodeRuneInString(d.in[d.pos:])
		idx, ok := d.c.index[r]
		if !ok {
			d.err = fmt.Errorf("%w %q at offset %d", ErrInvalidSymbol, r, d.pos)
			return
		}
		d.pos += size
		d.symbol(idx, d.pos == len(d.in))
	}
}

func (d *Decoder) symbol(idx int, last bool) {
	d.block = append(d.block, idx)
	if len(d.block) == d.c.chars || (last && len(d.block) > 0) {
		d.decodeBlock(last)
	}
	if last && d.err == nil && d.nbits > 0 {
		d.err = fmt.Errorf("%w: %d trailing bits", ErrUnaligned, d.nbits)
	}
}

// blockBits returns the bit length of the
// current block holding val, or -1 if it
// cannot be decoded.
func (d *Decoder) blockBits(val uint64, last bool) int {
	full := len(d.block) == d.c.chars
	if val > d.c.maxValue {
		// only a complete block that absorbed
		// one extra bit exceeds the guaranteed range
		if !full || !d.c.squeeze {
			return -1
		}
		return d.c.bits + 1
	}
	if !last {
		return d.c.bits
	}
	bits, ok := d.c.LastBlockBits(d.modulo, len(d.block))
	if !ok {
		return -1
	}
	return bits
}

func (d *Decoder) decodeBlock(last bool) {
	if d.err != nil {
		return
	}
	var val uint64
	for _, idx := range d.block {
		val = val*d.c.radix + uint64(idx)
	}
	bits := d.blockBits(val, last)
	if bits < 0 && !last {
		d.err = fmt.Errorf("%w: %d at offset %d", ErrBlockValue, val, d.pos)
		return
	}
	if bits < 0 {
		d.err = fmt.Errorf("%w: %d symbols at bit offset %d", ErrLastBlock, len(d.block), d.modulo)
		return
	}
	if val>>bits != 0 {
		d.err = fmt.Errorf("%w: value %d exceeds %d bits", ErrLastBlock, val, bits)
		return
	}
	d.block = d.block[:0]
	d.buf = d.buf<<bits | val
	d.nbits += bits
	d.modulo = (d.modulo + bits) % 8
	for d.nbits >= 8 {
		rest := d.nbits - 8
		if err := d.out.WriteBits(uint32(d.buf>>rest), 8); err != nil {
			d.err = err
			return
		}
		d.buf &= 1<<rest - 1
		d.nbits = rest
	}
}

// HasNext implements bitstream.Reader.HasNext.
func (d *Decoder) HasNext(n int) bool {
	d.fill(n)
	return d.err == nil && d.out.HasNext(n)
}

// ReadBits implements bitstream.Reader.ReadBits.
func (d *Decoder) ReadBits(n int) (uint32, error) {
	d.fill(n)
	if d.err != nil {
		return 0, d.err
	}
	return d.out.ReadBits(n)
}

// Done reports whether every symbol has been
// consumed and all decoded bits have been read.
func (d *Decoder) Done() bool {
	d.fill(1)
	return d.err == nil && d.pos == len(d.in) && !d.out.HasNext(1)
}

// DecodeString returns the bytes encoded in s.
func DecodeString(c *Config, s string) ([]byte, error) {
	d := NewDecoder(c, s)
	var out []byte
	for d.HasNext(8) {
		b, err := d.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(b))
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
