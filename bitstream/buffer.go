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

// Package bitstream implements MSB-first bit-level
// readers and writers over byte buffers.
package bitstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/SnellerInc/bbor62/ints"
)

var (
	// ErrBitCount is returned when a read or write
	// is requested for fewer than 1 or more than 32 bits.
	ErrBitCount = errors.New("bitstream: bit count out of range [1, 32]")
	// ErrOverflow is returned when a value does not
	// fit in the number of bits it is written with.
	ErrOverflow = errors.New("bitstream: value too large for bit count")
	// ErrUnaligned is returned by Flush when
	// a partial byte is still pending.
	ErrUnaligned = errors.New("bitstream: stream not byte aligned")
)

// Writer is the interface implemented by
// bit sinks.
type Writer interface {
	// WriteBits writes the low n bits of v,
	// most significant bit first.
	WriteBits(v uint32, n int) error
	// Flush checks that the written bits
	// form a whole number of bytes and emits
	// any pending output.
	Flush() error
}

// Reader is the interface implemented by
// bit sources.
type Reader interface {
	// ReadBits reads n bits, most significant bit first.
	ReadBits(n int) (uint32, error)
	// HasNext reports whether n more bits
	// can be read.
	HasNext(n int) bool
}

// Check returns an error if v cannot
// be written using n bits.
func Check(v uint32, n int) error {
	if n < 1 || n > 32 {
		return fmt.Errorf("%w: %d", ErrBitCount, n)
	}
	if n < 32 && v>>n != 0 {
		return fmt.Errorf("%w: %d in %d bits", ErrOverflow, v, n)
	}
	return nil
}

const initialSize = 8

// Buffer is a growable byte buffer with independent
// bit-granular read and write cursors.
// The zero value is an empty Buffer ready to use.
type Buffer struct {
	buf  []byte
	rpos int    // next byte to read
	rbit int    // bits of buf[rpos] already consumed
	wpos int    // next byte to write
	wbit int    // bits pending in wacc
	wacc uint32 // partial output byte
}

var (
	_ Reader = &Buffer{}
	_ Writer = &Buffer{}
)

// NewBuffer returns a Buffer whose readable
// contents are buf. The Buffer takes ownership of buf.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{buf: buf, wpos: len(buf)}
}

// WriteBits implements Writer.WriteBits.
// A byte is appended to the buffer every
// time eight bits have accumulated.
func (b *Buffer) WriteBits(v uint32, n int) error {
	if err := Check(v, n); err != nil {
		return err
	}
	for n > 0 {
		k := ints.Min(n, 8-b.wbit)
		n -= k
		b.wacc = b.wacc<<k | (v>>n)&(1<<k-1)
		b.wbit += k
		if b.wbit == 8 {
			b.grow(1)
			b.buf[b.wpos] = byte(b.wacc)
			b.wpos++
			b.wacc = 0
			b.wbit = 0
		}
	}
	return nil
}

// WriteBytes appends whole bytes. The buffer
// must be byte aligned.
func (b *Buffer) WriteBytes(p []byte) error {
	if b.wbit != 0 {
		return ErrUnaligned
	}
	b.grow(len(p))
	b.wpos += copy(b.buf[b.wpos:], p)
	return nil
}

// grow makes room for n more bytes, dropping
// the already-consumed prefix before reallocating.
func (b *Buffer) grow(n int) {
	if b.wpos+n <= len(b.buf) {
		return
	}
	if b.rpos > 0 {
		b.wpos = copy(b.buf, b.buf[b.rpos:b.wpos])
		b.rpos = 0
		if b.wpos+n <= len(b.buf) {
			return
		}
	}
	size := ints.Max(len(b.buf), initialSize)
	for size < b.wpos+n {
		size *= 2
	}
	nb := make([]byte, size)
	copy(nb, b.buf[:b.wpos])
	b.buf = nb
}

// ReadBits implements Reader.ReadBits.
// It returns io.ErrUnexpectedEOF if fewer
// than n bits are available.
func (b *Buffer) ReadBits(n int) (uint32, error) {
	if n < 1 || n > 32 {
		return 0, fmt.Errorf("%w: %d", ErrBitCount, n)
	}
	if !b.HasNext(n) {
		return 0, io.ErrUnexpectedEOF
	}
	var out uint32
	for n > 0 {
		avail := 8 - b.rbit
		k := ints.Min(n, avail)
		cur := uint32(b.buf[b.rpos])
		out = out<<k | (cur>>(avail-k))&(1<<k-1)
		n -= k
		b.rbit += k
		if b.rbit == 8 {
			b.rpos++
			b.rbit = 0
		}
	}
	return out, nil
}

// HasNext implements Reader.HasNext.
func (b *Buffer) HasNext(n int) bool {
	return b.rpos*8+b.rbit+n <= b.wpos*8
}

// Flush implements Writer.Flush.
// The buffer has no downstream, so Flush
// only verifies byte alignment.
func (b *Buffer) Flush() error {
	if b.wbit > 0 {
		return fmt.Errorf("%w: %d bits pending", ErrUnaligned, b.wbit)
	}
	return nil
}

// Len returns the number of complete
// bytes that have not been fully read.
func (b *Buffer) Len() int { return b.wpos - b.rpos }

// Bytes returns the unread complete bytes.
// The slice aliases the buffer and is only
// valid until the next write.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.rpos:b.wpos]
}

// Reset empties the buffer, keeping its storage.
func (b *Buffer) Reset() {
	b.rpos, b.rbit = 0, 0
	b.wpos, b.wbit = 0, 0
	b.wacc = 0
}
