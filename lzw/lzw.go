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

// Package lzw implements a Lempel-Ziv-Welch
// compressor for short strings that writes
// variable-width codes to a bit stream.
//
// The dictionary starts from a seed whose first
// two codes are escapes for raw 8-bit and 16-bit
// literals, grows by one entry per emitted token,
// and is optionally cleared when it reaches its
// maximum size. Codes are written with the fewest
// bits that can represent the largest code assigned
// so far.
package lzw

import (
	"errors"
	"fmt"
	"unicode/utf16"

	"github.com/SnellerInc/bbor62/bitstream"
	"github.com/SnellerInc/bbor62/flexdict"
	"github.com/SnellerInc/bbor62/ints"
)

var (
	// ErrEmptyInput is returned when compressing
	// the empty string.
	ErrEmptyInput = errors.New("lzw: empty input")
	// ErrInvalidUTF8 is returned when compressing
	// a string that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("lzw: input is not valid UTF-8")
	// ErrInvalidCode is returned when decompressing
	// a code that is neither an escape, a dictionary
	// entry, nor the next code to be assigned.
	ErrInvalidCode = errors.New("lzw: invalid code")
)

// Codec compresses and decompresses strings.
//
// The compression and decompression dictionaries
// are created on first use and carried over from one
// call to the next, so that all strings of a document
// build on each other. Use a new Codec (or Reset) to
// start from the seed dictionary again.
//
// A Codec is not safe for concurrent use.
type Codec struct {
	// Logf, if non-nil, is called
	// with dictionary maintenance events.
	Logf func(f string, args ...interface{})

	c   *Config
	enc *flexdict.Dict[units, int]
	dec *flexdict.Dict[int, units]
	out []uint16
}

// New returns a Codec using configuration c.
func New(c *Config) *Codec {
	return &Codec{c: c}
}

// Reset discards both learned dictionaries.
func (z *Codec) Reset() {
	z.enc = nil
	z.dec = nil
}

func (z *Codec) logf(f string, args ...interface{}) {
	if z.Logf != nil {
		z.Logf(f, args...)
	}
}

type resetter interface {
	Len() int
	Reset()
}

// learn is the dictionary maintenance that follows
// each token on both sides of the stream: a full
// dictionary is reset, then a literal seen for the
// first time is registered by add.
func (z *Codec) learn(d resetter, fresh bool, add func()) {
	if z.c.full(d.Len()) {
		z.logf("lzw: dictionary reset at %d entries", d.Len())
		d.Reset()
	}
	if fresh {
		add()
	}
}

// Compress writes the compressed form of s to w.
// The dictionary learned so far is extended.
func (z *Codec) Compress(s string, w bitstream.Writer) error {
	if s == "" {
		return ErrEmptyInput
	}
	in, ok := toUnits(s)
	if !ok {
		return ErrInvalidUTF8
	}
	if z.enc == nil {
		z.enc = flexdict.New(z.c.fwd, z.c.opts.DynamicDict, z.c.opts.MaxDictSize)
	}
	align := 0
	last := in.slice(0, 1)
	for i := 1; i < in.len(); i++ {
		cur := in.slice(i, i+1)
		pair := last + cur
		if z.enc.Has(pair) {
			last = pair
			continue
		}
		if err := z.emit(w, &align, last); err != nil {
			return err
		}
		z.enc.Add(pair, z.enc.Len())
		last = cur
	}
	if err := z.emit(w, &align, last); err != nil {
		return err
	}
	if !z.c.opts.ByteAlign || align == 0 {
		return nil
	}
	// The reader knows where the string ends, so the
	// padding only has to be something it can discard:
	// either a code that does not fit in the remaining
	// bits, or an escape without room for its literal.
	gap := 8 - align
	k := ints.Min(ints.CodeWidth(z.enc.Len()-1), gap)
	if err := w.WriteBits(asciiEscape, k); err != nil {
		return err
	}
	if gap > k {
		return w.WriteBits(0, gap-k)
	}
	return nil
}

// emit writes the code for tok, which is either a
// dictionary entry or a single unseen code unit,
// and updates the dictionary accordingly.
func (z *Codec) emit(w bitstream.Writer, align *int, tok units) error {
	width := ints.CodeWidth(z.enc.Len() - 1)
	*align = (*align + width) % 8
	fresh := false
	code, ok := z.enc.Get(tok)
	var err error
	switch {
	case ok && (code == asciiEscape || code == unicodeEscape):
		// the escape characters themselves are
		// sent as 8-bit literals
		err = write2(w, asciiEscape, width, uint32(code), 8)
	case ok:
		err = w.WriteBits(uint32(code), width)
	case tok.len() == 1:
		if c := tok.at(0); c < 256 {
			err = write2(w, asciiEscape, width, uint32(c), 8)
		} else {
			err = write2(w, unicodeEscape, width, uint32(c), 16)
		}
		fresh = true
	default:
		return fmt.Errorf("lzw: sequence of %d units missing from dictionary", tok.len())
	}
	if err != nil {
		return err
	}
	z.learn(z.enc, fresh, func() { z.enc.Add(tok, z.enc.Len()) })
	return nil
}

func write2(w bitstream.Writer, code uint32, width int, lit uint32, n int) error {
	if err := w.WriteBits(code, width); err != nil {
		return err
	}
	return w.WriteBits(lit, n)
}

// Decompress reads one compressed string from r.
// It stops when r cannot supply another code, so r
// must end where the string ends (see bitstream.LimitReader).
func (z *Codec) Decompress(r bitstream.Reader) (string, error) {
	if z.dec == nil {
		z.dec = flexdict.New(z.c.rev, z.c.opts.DynamicDict, z.c.opts.MaxDictSize)
	}
	z.out = z.out[:0]
	align := 0
	next := z.dec.Len() - 1
	var last units
loop:
	for {
		width := ints.CodeWidth(next)
		if !r.HasNext(width) {
			break
		}
		code, err := r.ReadBits(width)
		if err != nil {
			return "", err
		}
		align = (align + width) % 8
		var cur units
		fresh := false
		switch {
		case code == asciiEscape || code == unicodeEscape:
			if z.c.opts.ByteAlign && !r.HasNext(8) {
				// padding
				break loop
			}
			n := 8
			if code == unicodeEscape {
				n = 16
			}
			lit, err := r.ReadBits(n)
			if err != nil {
				return "", err
			}
			cur = unit(uint16(lit))
			fresh = lit != asciiEscape && lit != unicodeEscape
		default:
			var ok bool
			cur, ok = z.dec.Get(int(code))
			if ok {
				break
			}
			if int(code) != next || last == "" {
				return "", fmt.Errorf("%w %d (dictionary size %d)", ErrInvalidCode, code, z.dec.Len())
			}
			// the writer used the entry it registered
			// right before this token: last + its own
			// first unit
			cur = last + last.slice(0, 1)
		}
		z.out = cur.appendTo(z.out)
		if last != "" {
			z.dec.Add(z.dec.Len(), last+cur.slice(0, 1))
		}
		z.learn(z.dec, fresh, func() { z.dec.Add(z.dec.Len(), cur) })
		last = cur
		next = z.c.nextCode(z.dec.Len())
	}
	if z.c.opts.ByteAlign && align > 0 {
		if _, err := r.ReadBits(8 - align); err != nil {
			return "", err
		}
	}
	return string(utf16.Decode(z.out)), nil
}
