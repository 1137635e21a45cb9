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

// Package bbor implements BBOR, a CBOR-style
// tagged encoding of structured values written to
// and read from bit streams.
//
// Each item starts with a tag byte holding a major
// type in its top three bits and either a literal
// length or the size of a following length field in
// its low five bits. BBOR departs from CBOR in two
// ways: object keys may be replaced by small integer
// codes assigned on first use, and text strings may
// carry a compressed payload instead of UTF-8 bytes.
package bbor

import (
	"errors"
	"fmt"

	"github.com/SnellerInc/bbor62/bitstream"
	"github.com/SnellerInc/bbor62/flexdict"
)

// Compressor compresses text string payloads.
// A single Compressor is used for every string
// of a document, so it may learn across strings.
type Compressor interface {
	// Compress writes the compressed form of s to w.
	// The output must end on a byte boundary.
	Compress(s string, w bitstream.Writer) error
	// Decompress reads a string written by Compress.
	// It must stop when r runs out of bits.
	Decompress(r bitstream.Reader) (string, error)
}

// DefaultFields is the seed field-name dictionary.
// Names are coded by their position; changing it
// breaks the wire format.
var DefaultFields = []string{
	"id",
	"type",
	"name",
	"status",
	"count",
	"data",
	"value",
	"error",
	"response",
	"version",
}

// Options describes the structural encoding.
type Options struct {
	// KeyMapping replaces repeated object
	// keys by their dictionary codes.
	KeyMapping bool `json:"keyMapping"`
	// StringCompression routes non-empty text
	// strings through the Compressor.
	StringCompression bool `json:"stringCompression"`
	// Fields seeds the field-name dictionary.
	Fields []string `json:"fields,omitempty"`
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		KeyMapping:        true,
		StringCompression: true,
		Fields:            DefaultFields,
	}
}

// Config is a validated, immutable Options.
type Config struct {
	opts Options
	fwd  map[string]int
	rev  map[int]string
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

// Config validates o.
func (o Options) Config() (*Config, error) {
	fwd, rev, err := flexdict.Seed(o.Fields)
	if err != nil {
		return nil, fmt.Errorf("bbor: fields: %w", err)
	}
	o.Fields = append([]string(nil), o.Fields...)
	return &Config{opts: o, fwd: fwd, rev: rev}, nil
}

// Options returns a copy of the options c was built from.
func (c *Config) Options() Options {
	o := c.opts
	o.Fields = append([]string(nil), o.Fields...)
	return o
}

// KeyMapping reports whether field names are mapped to codes.
func (c *Config) KeyMapping() bool { return c.opts.KeyMapping }

// StringCompression reports whether text strings are compressed.
func (c *Config) StringCompression() bool { return c.opts.StringCompression }

var (
	// ErrUnsupported is returned when encoding
	// a Go value that has no BBOR representation.
	ErrUnsupported = errors.New("bbor: unsupported type")
	// ErrSyntax is returned for malformed input.
	ErrSyntax = errors.New("bbor: syntax error")
	// ErrUnknownField is returned when an object key
	// refers to a field code that was never assigned.
	ErrUnknownField = errors.New("bbor: unknown field code")
	// ErrInvalidKey is returned when an object
	// key is neither a string nor a field code.
	ErrInvalidKey = errors.New("bbor: invalid object key")
	// ErrType is returned by Decode when a value
	// cannot be stored in the destination.
	ErrType = errors.New("bbor: cannot decode into type")
)
