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

// Package bbor62 encodes structured values as
// compact strings made only of printable symbols.
//
// A value is written in BBOR, a CBOR-style tagged
// binary form with field-name mapping and LZW text
// compression (see package bbor and package lzw),
// and the resulting bit stream is rendered with a
// radix alphabet (see package radix), by default
// base62 in blocks of four symbols.
//
// Encode and Decode use the Default configuration.
// A Config built from Options allows a custom
// alphabet, dictionaries and feature switches;
// both peers must use the same Config.
package bbor62

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/SnellerInc/bbor62/bbor"
	"github.com/SnellerInc/bbor62/lzw"
	"github.com/SnellerInc/bbor62/radix"
)

// ErrTrailingData is returned by Decode when the
// input holds more data after the top-level value.
var ErrTrailingData = errors.New("bbor62: trailing data after value")

// Options is the complete set of settings
// that determine the wire format.
type Options struct {
	// Alphabet is the set of output symbols.
	Alphabet string `json:"alphabet"`
	// CharsPerBlock is the number of symbols
	// in a full block.
	CharsPerBlock int `json:"charsPerBlock"`
	// BitSqueezing lets a block absorb extra bits
	// when its value leaves room for them.
	BitSqueezing bool `json:"bitSqueezing"`
	// KeyMapping replaces repeated object keys
	// by integer codes.
	KeyMapping bool `json:"keyMapping"`
	// StringCompression compresses text strings
	// with LZW.
	StringCompression bool `json:"stringCompression"`
	// Fields seeds the field-name dictionary.
	Fields []string `json:"fields,omitempty"`
	// LZW configures string compression.
	LZW lzw.Options `json:"lzw"`
}

// DefaultOptions returns the options
// Default is built from.
func DefaultOptions() Options {
	b := bbor.DefaultOptions()
	return Options{
		Alphabet:          radix.DefaultAlphabet,
		CharsPerBlock:     radix.DefaultCharsPerBlock,
		BitSqueezing:      true,
		KeyMapping:        b.KeyMapping,
		StringCompression: b.StringCompression,
		Fields:            b.Fields,
		LZW:               lzw.DefaultOptions(),
	}
}

// Config is a validated, immutable configuration.
// It is safe for concurrent use.
type Config struct {
	opts  Options
	radix *radix.Config
	lzw   *lzw.Config
	bbor  *bbor.Config
}

// Default is built from DefaultOptions.
var Default *Config

func init() {
	c, err := DefaultOptions().Config()
	if err != nil {
		panic(err)
	}
	Default = c
}

// Config validates o and compiles it
// into a Config.
func (o Options) Config() (*Config, error) {
	rc, err := radix.NewConfig(o.Alphabet, o.CharsPerBlock, o.BitSqueezing)
	if err != nil {
		return nil, err
	}
	lc, err := o.LZW.Config()
	if err != nil {
		return nil, err
	}
	if o.StringCompression && !o.LZW.ByteAlign {
		return nil, errors.New("bbor62: string compression requires lzw.byteAlign")
	}
	bc, err := bbor.Options{
		KeyMapping:        o.KeyMapping,
		StringCompression: o.StringCompression,
		Fields:            o.Fields,
	}.Config()
	if err != nil {
		return nil, err
	}
	c := &Config{radix: rc, lzw: lc, bbor: bc}
	c.opts = o
	c.opts.Fields = bc.Options().Fields
	c.opts.LZW = lc.Options()
	return c, nil
}

// Options returns a copy of the options
// c was built from.
func (c *Config) Options() Options {
	o := c.opts
	o.Fields = c.bbor.Options().Fields
	o.LZW = c.lzw.Options()
	return o
}

// Radix returns the symbol encoding of c.
func (c *Config) Radix() *radix.Config { return c.radix }

// LZW returns the string compression settings of c.
func (c *Config) LZW() *lzw.Config { return c.lzw }

// BBOR returns the structural encoding settings of c.
func (c *Config) BBOR() *bbor.Config { return c.bbor }

// Encode encodes v with the Default configuration.
// See bbor.Encoder.Encode for the accepted types.
func Encode(v any) (string, error) { return Default.Encode(v) }

// Decode decodes a string produced by Encode
// with the Default configuration.
// See bbor.Decoder.Read for the returned types.
func Decode(s string) (any, error) { return Default.Decode(s) }

// Unmarshal decodes s into the value
// pointed to by dst using the Default configuration.
func Unmarshal(s string, dst any) error { return Default.Unmarshal(s, dst) }

// Marshal is equivalent to Encode.
func Marshal(v any) (string, error) { return Default.Encode(v) }

// Encode encodes v using c.
// Each call starts from the seed dictionaries.
func (c *Config) Encode(v any) (string, error) {
	return NewCodec(c).Encode(v)
}

// Decode decodes s using c.
// Each call starts from the seed dictionaries.
func (c *Config) Decode(s string) (any, error) {
	return NewCodec(c).Decode(s)
}

// Unmarshal decodes s into the value
// pointed to by dst using c.
func (c *Config) Unmarshal(s string, dst any) error {
	return NewCodec(c).Unmarshal(s, dst)
}

// Codec encodes and decodes a sequence of
// messages, keeping learned field names and
// string dictionaries from one message to the
// next. The encoding and decoding sides are
// independent; a peer decoding the output of
// Encode must decode the messages in the same
// order with a Codec built from the same Config.
//
// A Codec is not safe for concurrent use.
// After an error the states of the two peers
// have diverged and both must call Reset.
type Codec struct {
	// Logf, if non-nil, receives
	// dictionary reset traces.
	Logf func(f string, args ...interface{})

	c   *Config
	z   *lzw.Codec
	enc *bbor.Encoder
	dec *bbor.Decoder
	out strings.Builder
}

// NewCodec returns a Codec using c.
func NewCodec(c *Config) *Codec {
	return &Codec{c: c}
}

// Reset returns the Codec to the seed state.
func (x *Codec) Reset() {
	if x.z != nil {
		x.z.Reset()
	}
	if x.enc != nil {
		x.enc.ResetFields()
	}
	if x.dec != nil {
		x.dec.ResetFields()
	}
}

func (x *Codec) compressor() *lzw.Codec {
	if x.z == nil {
		x.z = lzw.New(x.c.lzw)
	}
	x.z.Logf = x.Logf
	return x.z
}

// Encode encodes one message.
func (x *Codec) Encode(v any) (string, error) {
	x.out.Reset()
	w := radix.NewEncoder(x.c.radix, func(block string) {
		x.out.WriteString(block)
	})
	if x.enc == nil {
		x.enc = bbor.NewEncoder(w, x.c.bbor, x.compressor())
	} else {
		x.compressor()
		x.enc.SetOutput(w)
	}
	if err := x.enc.Encode(v); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return x.out.String(), nil
}

func (x *Codec) input(s string) (*radix.Decoder, *bbor.Decoder, error) {
	if s == "" {
		return nil, nil, fmt.Errorf("bbor62: empty input: %w", io.ErrUnexpectedEOF)
	}
	r := radix.NewDecoder(x.c.radix, s)
	if x.dec == nil {
		x.dec = bbor.NewDecoder(r, x.c.bbor, x.compressor())
	} else {
		x.compressor()
		x.dec.SetInput(r)
	}
	return r, x.dec, nil
}

// finish checks that r holds nothing
// past the value just decoded.
func finish(r *radix.Decoder) error {
	if r.Done() {
		return nil
	}
	if err := r.Err(); err != nil {
		return err
	}
	return ErrTrailingData
}

// Decode decodes one message.
func (x *Codec) Decode(s string) (any, error) {
	r, d, err := x.input(s)
	if err != nil {
		return nil, err
	}
	v, err := d.Read()
	if err != nil {
		return nil, err
	}
	if err := finish(r); err != nil {
		return nil, err
	}
	return v, nil
}

// Unmarshal decodes one message into
// the value pointed to by dst.
func (x *Codec) Unmarshal(s string, dst any) error {
	r, d, err := x.input(s)
	if err != nil {
		return err
	}
	if err := d.Decode(dst); err != nil {
		return err
	}
	return finish(r)
}

var _ bbor.Compressor = (*lzw.Codec)(nil)
