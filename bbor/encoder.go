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

package bbor

import (
	"fmt"
	"math"
	"math/big"

	"github.com/SnellerInc/bbor62/bitstream"
	"github.com/SnellerInc/bbor62/flexdict"
)

// MaxSafeInt is the largest integer magnitude
// written with the plain integer major types.
// Larger integers are written as bignums.
const MaxSafeInt = 1<<53 - 1

const (
	majorUint = iota
	majorNegInt
	majorBytes
	majorText
	majorArray
	majorMap
	majorTag
	majorSimple
)

const (
	simpleFalse     = 0xf4
	simpleTrue      = 0xf5
	simpleNull      = 0xf6
	simpleUndefined = 0xf7
	simpleFloat32   = 0xfa
	simpleFloat64   = 0xfb
	tagPosBignum    = 0xc2
	tagNegBignum    = 0xc3
)

// Encoder writes BBOR items to a bit stream.
//
// The Write methods form a generator interface:
// containers are opened with their element count
// and need no closing call. Encode writes a whole
// Go value.
//
// An Encoder remembers the field names it has
// written, so one Encoder must be used for a whole
// document. It is not safe for concurrent use.
type Encoder struct {
	w       bitstream.Writer
	c       *Config
	comp    Compressor
	fields  *flexdict.Dict[string, int]
	scratch bitstream.Buffer
}

// NewEncoder returns an Encoder writing to w.
// Text strings are compressed with comp if c
// enables string compression and comp is non-nil.
func NewEncoder(w bitstream.Writer, c *Config, comp Compressor) *Encoder {
	if !c.opts.StringCompression {
		comp = nil
	}
	return &Encoder{
		w:      w,
		c:      c,
		comp:   comp,
		fields: flexdict.New(c.fwd, true, flexdict.Unbounded),
	}
}

// SetOutput directs further output to w.
// Learned field names are kept.
func (e *Encoder) SetOutput(w bitstream.Writer) { e.w = w }

// ResetFields forgets all learned field names.
func (e *Encoder) ResetFields() { e.fields.Reset() }

func (e *Encoder) put8(v uint32) error {
	return e.w.WriteBits(v, 8)
}

func (e *Encoder) put64(v uint64) error {
	if err := e.w.WriteBits(uint32(v>>32), 32); err != nil {
		return err
	}
	return e.w.WriteBits(uint32(v), 32)
}

// head writes a tag byte for the given major
// type and length, using the shortest form.
func (e *Encoder) head(major int, n uint64) error {
	tag := uint32(major) << 5
	var ai uint32
	var width int
	switch {
	case n < 24:
		return e.put8(tag | uint32(n))
	case n <= math.MaxUint8:
		ai, width = 24, 8
	case n <= math.MaxUint16:
		ai, width = 25, 16
	case n <= math.MaxUint32:
		ai, width = 26, 32
	default:
		if err := e.put8(tag | 27); err != nil {
			return err
		}
		return e.put64(n)
	}
	if err := e.put8(tag | ai); err != nil {
		return err
	}
	return e.w.WriteBits(uint32(n), width)
}

func (e *Encoder) raw(p []byte) error {
	for _, b := range p {
		if err := e.put8(uint32(b)); err != nil {
			return err
		}
	}
	return nil
}

// WriteNull writes null.
func (e *Encoder) WriteNull() error { return e.put8(simpleNull) }

// WriteUndefined writes undefined.
func (e *Encoder) WriteUndefined() error { return e.put8(simpleUndefined) }

// WriteBool writes a boolean.
func (e *Encoder) WriteBool(b bool) error {
	if b {
		return e.put8(simpleTrue)
	}
	return e.put8(simpleFalse)
}

// WriteInt writes an integer. Values whose
// magnitude exceeds MaxSafeInt become bignums.
func (e *Encoder) WriteInt(v int64) error {
	switch {
	case v >= 0 && v <= MaxSafeInt:
		return e.head(majorUint, uint64(v))
	case v < 0 && v >= -MaxSafeInt:
		return e.head(majorNegInt, uint64(-1-v))
	case v > 0:
		return e.bignum(tagPosBignum, beBytes(uint64(v)))
	default:
		return e.bignum(tagNegBignum, beBytes(uint64(-1-v)))
	}
}

// WriteUint writes an unsigned integer.
func (e *Encoder) WriteUint(v uint64) error {
	if v <= MaxSafeInt {
		return e.head(majorUint, v)
	}
	return e.bignum(tagPosBignum, beBytes(v))
}

// WriteBigInt writes an arbitrary precision integer.
func (e *Encoder) WriteBigInt(b *big.Int) error {
	if b.IsInt64() {
		return e.WriteInt(b.Int64())
	}
	if b.Sign() > 0 {
		return e.bignum(tagPosBignum, b.Bytes())
	}
	// -1 - b
	mag := new(big.Int).Add(b, big.NewInt(1))
	return e.bignum(tagNegBignum, mag.Neg(mag).Bytes())
}

// beBytes returns the minimal big-endian
// representation of v, at least one byte long.
func beBytes(v uint64) []byte {
	var buf [8]byte
	i := len(buf) - 1
	for {
		buf[i] = byte(v)
		v >>= 8
		if v == 0 {
			break
		}
		i--
	}
	return buf[i:]
}

func (e *Encoder) bignum(tag uint32, mag []byte) error {
	if len(mag) == 0 {
		mag = []byte{0}
	}
	if err := e.put8(tag); err != nil {
		return err
	}
	if err := e.head(majorBytes, uint64(len(mag))); err != nil {
		return err
	}
	return e.raw(mag)
}

// WriteFloat writes a number. Integral values
// within MaxSafeInt are written as integers and
// values that survive conversion to float32 with a
// relative error below 1e-7 are written as float32.
func (e *Encoder) WriteFloat(f float64) error {
	if f == math.Trunc(f) && math.Abs(f) <= MaxSafeInt {
		return e.WriteInt(int64(f))
	}
	f32 := float32(f)
	if math.Abs((f-float64(f32))/f) < 1e-7 {
		if err := e.put8(simpleFloat32); err != nil {
			return err
		}
		return e.w.WriteBits(math.Float32bits(f32), 32)
	}
	if err := e.put8(simpleFloat64); err != nil {
		return err
	}
	return e.put64(math.Float64bits(f))
}

// WriteString writes a text string.
func (e *Encoder) WriteString(s string) error {
	if e.comp == nil || s == "" {
		if err := e.head(majorText, uint64(len(s))); err != nil {
			return err
		}
		for i := 0; i < len(s); i++ {
			if err := e.put8(uint32(s[i])); err != nil {
				return err
			}
		}
		return nil
	}
	e.scratch.Reset()
	if err := e.comp.Compress(s, &e.scratch); err != nil {
		return fmt.Errorf("bbor: compressing string: %w", err)
	}
	if err := e.scratch.Flush(); err != nil {
		return fmt.Errorf("bbor: compressing string: %w", err)
	}
	p := e.scratch.Bytes()
	if err := e.head(majorText, uint64(len(p))); err != nil {
		return err
	}
	return e.raw(p)
}

// WriteBytes writes a byte string.
func (e *Encoder) WriteBytes(p []byte) error {
	if err := e.head(majorBytes, uint64(len(p))); err != nil {
		return err
	}
	return e.raw(p)
}

// WriteStartArray opens an array of n elements.
func (e *Encoder) WriteStartArray(n int) error {
	if n < 0 {
		return fmt.Errorf("bbor: negative array length %d", n)
	}
	return e.head(majorArray, uint64(n))
}

// WriteStartObject opens an object of n fields.
// Each field is written as WriteFieldName
// followed by its value.
func (e *Encoder) WriteStartObject(n int) error {
	if n < 0 {
		return fmt.Errorf("bbor: negative object length %d", n)
	}
	return e.head(majorMap, uint64(n))
}

// WriteFieldName writes an object key. With key
// mapping enabled, a name seen before is written
// as its code and a new name is assigned the next
// code.
func (e *Encoder) WriteFieldName(name string) error {
	if !e.c.opts.KeyMapping {
		return e.WriteString(name)
	}
	if code, ok := e.fields.Get(name); ok {
		return e.WriteUint(uint64(code))
	}
	if err := e.WriteString(name); err != nil {
		return err
	}
	e.fields.Add(name, e.fields.Len())
	return nil
}
