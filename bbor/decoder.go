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
	"io"
	"math"
	"math/big"
	"strconv"

	"github.com/SnellerInc/bbor62/bitstream"
	"github.com/SnellerInc/bbor62/flexdict"
	"github.com/SnellerInc/bbor62/ints"
)

type frameKind uint8

const (
	arrayFrame frameKind = iota
	objectFrame
	bytesFrame
)

// frame is one open container.
type frame struct {
	kind  frameKind
	size  uint64 // tokens in the container; keys count
	n     uint64 // tokens started so far
	field string // last field name, for objects
}

// Decoder reads BBOR items from a bit stream.
//
// ReadNext returns one token at a time; Read and
// Decode materialize whole values. The field names
// learned while reading persist for the lifetime of
// the Decoder. A Decoder is not safe for concurrent use.
type Decoder struct {
	r      bitstream.Reader
	c      *Config
	comp   Compressor
	fields *flexdict.Dict[int, string]
	stack  []frame
	end    bool
	ntok   int

	value any
	prim  Primitive
}

// NewDecoder returns a Decoder reading from r.
// Text strings are decompressed with comp if c
// enables string compression and comp is non-nil.
func NewDecoder(r bitstream.Reader, c *Config, comp Compressor) *Decoder {
	if !c.opts.StringCompression {
		comp = nil
	}
	return &Decoder{
		r:      r,
		c:      c,
		comp:   comp,
		fields: flexdict.New(c.rev, true, flexdict.Unbounded),
	}
}

// SetInput starts reading a new document from r.
// Learned field names are kept.
func (d *Decoder) SetInput(r bitstream.Reader) {
	d.r = r
	d.stack = d.stack[:0]
	d.end = false
	d.ntok = 0
	d.value, d.prim = nil, NoPrimitive
}

// ResetFields forgets all learned field names.
func (d *Decoder) ResetFields() { d.fields.Reset() }

// Value returns the value of the last token:
// the name for FieldName, nil for structural
// tokens, and otherwise one of nil, Undefined,
// bool, int64, uint64, *big.Int, float64 or string.
func (d *Decoder) Value() any { return d.value }

// Primitive returns the wire representation
// of the last token.
func (d *Decoder) Primitive() Primitive { return d.prim }

// Depth returns the number of open containers.
func (d *Decoder) Depth() int { return len(d.stack) }

// FieldName returns the last field name read
// in the innermost enclosing object.
func (d *Decoder) FieldName() string {
	for i := len(d.stack) - 1; i >= 0; i-- {
		if d.stack[i].kind == objectFrame {
			return d.stack[i].field
		}
	}
	return ""
}

func (d *Decoder) errorf(f string, args ...interface{}) error {
	return fmt.Errorf("%w: %s at item %d", ErrSyntax, fmt.Sprintf(f, args...), d.ntok)
}

// ReadNext reads the next token. It returns io.EOF
// once a complete top-level value has been read.
// A byte string is reported as StartArray followed
// by one ValueNumberInt token per byte and EndArray.
func (d *Decoder) ReadNext() (Token, error) {
	d.value, d.prim = nil, NoPrimitive
	key := false
	if n := len(d.stack); n > 0 {
		top := &d.stack[n-1]
		if top.n == top.size {
			kind := top.kind
			d.stack = d.stack[:n-1]
			d.end = len(d.stack) == 0
			if kind == objectFrame {
				return EndObject, nil
			}
			return EndArray, nil
		}
		key = top.kind == objectFrame && top.n%2 == 0
		top.n++
		if top.kind == bytesFrame {
			b, err := d.r.ReadBits(8)
			if err != nil {
				return 0, err
			}
			d.value, d.prim = int64(b), Byte
			return ValueNumberInt, nil
		}
	} else if d.end {
		return 0, io.EOF
	}
	d.ntok++
	tok, err := d.item(key)
	if err != nil {
		return 0, err
	}
	if key {
		name, err := d.fieldName(tok)
		if err != nil {
			return 0, err
		}
		d.stack[len(d.stack)-1].field = name
		d.value, d.prim = name, NoPrimitive
		tok = FieldName
	}
	if len(d.stack) == 0 {
		d.end = true
	}
	return tok, nil
}

func (d *Decoder) fieldName(tok Token) (string, error) {
	switch {
	case tok == ValueString:
		s := d.value.(string)
		if d.c.opts.KeyMapping {
			d.fields.Add(d.fields.Len(), s)
		}
		return s, nil
	case d.prim == PositiveInteger && d.c.opts.KeyMapping:
		if code, ok := d.value.(int64); ok && code <= math.MaxInt {
			if s, ok := d.fields.Get(int(code)); ok {
				return s, nil
			}
		}
		return "", fmt.Errorf("%w %v at item %d", ErrUnknownField, d.value, d.ntok)
	default:
		return "", fmt.Errorf("%w: %s at item %d", ErrInvalidKey, d.prim, d.ntok)
	}
}

func (d *Decoder) readUint(ai uint32) (uint64, error) {
	var width int
	switch {
	case ai < 24:
		return uint64(ai), nil
	case ai == 24:
		width = 8
	case ai == 25:
		width = 16
	case ai == 26:
		width = 32
	case ai == 27:
		hi, err := d.r.ReadBits(32)
		if err != nil {
			return 0, err
		}
		lo, err := d.r.ReadBits(32)
		if err != nil {
			return 0, err
		}
		return uint64(hi)<<32 | uint64(lo), nil
	default:
		return 0, d.errorf("invalid additional info %d", ai)
	}
	v, err := d.r.ReadBits(width)
	return uint64(v), err
}

func (d *Decoder) push(kind frameKind, size uint64) {
	d.stack = append(d.stack, frame{kind: kind, size: size})
}

// item reads one tag byte and the item it introduces.
func (d *Decoder) item(key bool) (Token, error) {
	ib, err := d.r.ReadBits(8)
	if err != nil {
		return 0, err
	}
	major, ai := ib>>5, ib&0x1f
	if key && major != majorUint && major != majorText {
		return 0, fmt.Errorf("%w: major type %d at item %d", ErrInvalidKey, major, d.ntok)
	}
	length, err := d.readUint(ai)
	if err != nil {
		return 0, err
	}
	switch major {
	case majorUint:
		d.value, d.prim = intValue(length), PositiveInteger
		return ValueNumberInt, nil
	case majorNegInt:
		if length <= math.MaxInt64 {
			d.value = -1 - int64(length)
		} else {
			b := new(big.Int).SetUint64(length)
			d.value = b.Sub(big.NewInt(-1), b)
		}
		d.prim = NegativeInteger
		return ValueNumberInt, nil
	case majorBytes:
		d.push(bytesFrame, length)
		d.prim = ByteString
		return StartArray, nil
	case majorText:
		s, err := d.text(length)
		if err != nil {
			return 0, err
		}
		d.value, d.prim = s, TextString
		return ValueString, nil
	case majorArray:
		d.push(arrayFrame, length)
		return StartArray, nil
	case majorMap:
		if length > math.MaxUint64/2 {
			return 0, d.errorf("object length %d", length)
		}
		d.push(objectFrame, length*2)
		return StartObject, nil
	case majorTag:
		if ai != 2 && ai != 3 {
			return 0, d.errorf("unsupported tag %d", length)
		}
		return d.bignum(ai == 2)
	default:
		return d.simple(ai, length)
	}
}

func intValue(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func (d *Decoder) bignum(positive bool) (Token, error) {
	ib, err := d.r.ReadBits(8)
	if err != nil {
		return 0, err
	}
	if ib>>5 != majorBytes {
		return 0, d.errorf("bignum tag followed by major type %d", ib>>5)
	}
	length, err := d.readUint(ib & 0x1f)
	if err != nil {
		return 0, err
	}
	p, err := d.raw(length)
	if err != nil {
		return 0, err
	}
	b := new(big.Int).SetBytes(p)
	d.prim = PositiveBignum
	if !positive {
		b.Sub(big.NewInt(-1), b)
		d.prim = NegativeBignum
	}
	switch {
	case b.IsInt64():
		d.value = b.Int64()
	case b.IsUint64():
		d.value = b.Uint64()
	default:
		d.value = b
	}
	return ValueNumberInt, nil
}

func (d *Decoder) simple(ai uint32, length uint64) (Token, error) {
	switch ai {
	case 20:
		d.value, d.prim = false, Boolean
		return ValueFalse, nil
	case 21:
		d.value, d.prim = true, Boolean
		return ValueTrue, nil
	case 22:
		d.prim = Null
		return ValueNull, nil
	case 23:
		d.value, d.prim = Undefined, Undef
		return ValueNull, nil
	case 24:
		d.value, d.prim = int64(length), Byte
		return ValueNumberInt, nil
	case 25:
		return 0, d.errorf("half-precision floats are not supported")
	case 26:
		d.value, d.prim = widen(math.Float32frombits(uint32(length))), Float32
		return ValueNumberFloat, nil
	case 27:
		d.value, d.prim = math.Float64frombits(length), Float64
		return ValueNumberFloat, nil
	default:
		return 0, d.errorf("unsupported simple value %d", ai)
	}
}

// widen converts f to the float64 nearest
// to its shortest decimal representation,
// so that 0.1f becomes 0.1.
func widen(f float32) float64 {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return float64(f)
	}
	out, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return out
}

func (d *Decoder) raw(n uint64) ([]byte, error) {
	if n > math.MaxInt32 {
		return nil, d.errorf("length %d too large", n)
	}
	out := make([]byte, 0, ints.Min(int(n), 1024))
	for i := uint64(0); i < n; i++ {
		b, err := d.r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(b))
	}
	return out, nil
}

func (d *Decoder) text(n uint64) (string, error) {
	if d.comp == nil || n == 0 {
		p, err := d.raw(n)
		return string(p), err
	}
	if n > math.MaxInt32 {
		return "", d.errorf("length %d too large", n)
	}
	lr := bitstream.LimitReader(d.r, int64(n))
	s, err := d.comp.Decompress(lr)
	if err != nil {
		return "", fmt.Errorf("bbor: decompressing string at item %d: %w", d.ntok, err)
	}
	if lr.N != 0 {
		return "", d.errorf("compressed string ends %d bits early", lr.N)
	}
	return s, nil
}

// Read reads one complete value. Arrays are
// returned as []any, objects as Object and
// byte strings as []byte; scalars are returned
// as described for Value.
func (d *Decoder) Read() (any, error) {
	tok, err := d.ReadNext()
	if err != nil {
		return nil, err
	}
	return d.read(tok)
}

func (d *Decoder) next() (Token, error) {
	tok, err := d.ReadNext()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return tok, err
}

func (d *Decoder) read(tok Token) (any, error) {
	switch tok {
	case StartObject:
		obj := Object{}
		for {
			tok, err := d.next()
			if err != nil {
				return nil, err
			}
			if tok == EndObject {
				return obj, nil
			}
			name := d.value.(string)
			if tok, err = d.next(); err != nil {
				return nil, err
			}
			v, err := d.read(tok)
			if err != nil {
				return nil, err
			}
			obj = append(obj, Field{Name: name, Value: v})
		}
	case StartArray:
		if d.prim == ByteString {
			var out []byte
			for {
				tok, err := d.next()
				if err != nil {
					return nil, err
				}
				if tok == EndArray {
					if out == nil {
						out = []byte{}
					}
					return out, nil
				}
				out = append(out, byte(d.value.(int64)))
			}
		}
		arr := []any{}
		for {
			tok, err := d.next()
			if err != nil {
				return nil, err
			}
			if tok == EndArray {
				return arr, nil
			}
			v, err := d.read(tok)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
	case EndObject, EndArray, FieldName:
		return nil, d.errorf("unexpected %s", tok)
	default:
		return d.value, nil
	}
}
