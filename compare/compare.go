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

// Package compare measures a document in BBOR62
// against other text-safe encodings of it.
package compare

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"text/tabwriter"

	"github.com/fxamacker/cbor/v2"

	"github.com/SnellerInc/bbor62"
	"github.com/SnellerInc/bbor62/bbor"
	"github.com/SnellerInc/bbor62/compr"
	"github.com/SnellerInc/bbor62/radix"
)

// ErrMismatch is the error of a row whose
// output did not decode to the original document.
var ErrMismatch = errors.New("compare: round trip mismatch")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("compare: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		BigIntDec:      cbor.BigIntDecodePointer,
	}.DecMode()
	if err != nil {
		panic("compare: CBOR decoder initialization failed: " + err.Error())
	}
}

// Row is the measurement of one encoding.
type Row struct {
	// Name identifies the encoding.
	Name string
	// Len is the length of the output in bytes.
	Len int
	// Err is set when the encoding failed
	// or did not round-trip.
	Err error
}

// Report holds the rows of one comparison.
// The first row is always plain JSON.
type Report struct {
	Rows []Row
}

// Ratio returns the length of row i
// relative to the JSON row.
func (r *Report) Ratio(i int) float64 {
	if len(r.Rows) == 0 || r.Rows[0].Len == 0 {
		return 0
	}
	return float64(r.Rows[i].Len) / float64(r.Rows[0].Len)
}

// Get returns the row with the given name.
func (r *Report) Get(name string) (Row, bool) {
	for i := range r.Rows {
		if r.Rows[i].Name == name {
			return r.Rows[i], true
		}
	}
	return Row{}, false
}

// WriteTo writes r as an aligned table.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "encoding\tlength\tratio\t\n")
	for i := range r.Rows {
		row := &r.Rows[i]
		if row.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t %s\n", row.Name, row.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t\n", row.Name, row.Len, r.Ratio(i))
	}
	if err := tw.Flush(); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

// Runner compares documents against
// a BBOR62 configuration.
type Runner struct {
	// Config is the BBOR62 configuration
	// measured; nil means bbor62.Default.
	Config *bbor62.Config
	// Logf, if non-nil, receives one
	// line per measured encoding.
	Logf func(f string, args ...interface{})
}

func (r *Runner) logf(f string, args ...interface{}) {
	if r.Logf != nil {
		r.Logf(f, args...)
	}
}

// Run measures doc against cfg.
// A nil cfg means bbor62.Default.
func Run(doc any, cfg *bbor62.Config) (*Report, error) {
	r := &Runner{Config: cfg}
	return r.Run(doc)
}

// Run measures doc in every encoding. doc must be
// representable as JSON; a document read with
// bbor62.FromJSON always is. Failures of single
// encodings are reported in their rows.
func (r *Runner) Run(doc any) (*Report, error) {
	cfg := r.Config
	if cfg == nil {
		cfg = bbor62.Default
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	rep := &Report{}
	add := func(name string, n int, err error) {
		if err != nil {
			r.logf("compare: %s: %s", name, err)
		} else {
			r.logf("compare: %s: %d bytes", name, n)
		}
		rep.Rows = append(rep.Rows, Row{Name: name, Len: n, Err: err})
	}
	add("json", len(js), nil)
	text := func(name string, p []byte, check func([]byte) error) {
		s := base64.StdEncoding.EncodeToString(p)
		back, err := base64.StdEncoding.DecodeString(s)
		if err == nil {
			err = check(back)
		}
		add(name+"+base64", len(s), err)

		s, err = radix.EncodeToString(radix.Default, p)
		if err == nil {
			back, err = radix.DecodeString(radix.Default, s)
		}
		if err == nil {
			err = check(back)
		}
		add(name+"+base62", len(s), err)
	}
	same := func(p []byte) error {
		if !bytes.Equal(p, js) {
			return ErrMismatch
		}
		return nil
	}
	text("json", js, same)

	plain, err := json.Marshal(toPlain(doc))
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	cb, err := encMode.Marshal(toPlain(doc))
	if err != nil {
		add("cbor", 0, err)
	} else {
		text("cbor", cb, func(p []byte) error {
			var v any
			if err := decMode.Unmarshal(p, &v); err != nil {
				return err
			}
			out, err := json.Marshal(v)
			if err != nil {
				return err
			}
			if !bytes.Equal(out, plain) {
				return ErrMismatch
			}
			return nil
		})
	}

	for _, name := range compr.Names() {
		z, err := compr.Compression(name).Compress(js, nil)
		if err != nil {
			add(name, 0, err)
			continue
		}
		s := base64.StdEncoding.EncodeToString(z)
		dst := make([]byte, len(js))
		err = compr.Decompression(name).Decompress(z, dst)
		if err == nil {
			err = same(dst)
		}
		add(name+"+base64", len(s), err)
	}

	o := cfg.Options()
	variants := []struct {
		name string
		edit func(o *bbor62.Options)
	}{
		{"bbor62", nil},
		{"bbor62 uncompressed", func(o *bbor62.Options) { o.StringCompression = false }},
		{"bbor62 unmapped", func(o *bbor62.Options) { o.KeyMapping = false }},
	}
	for _, v := range variants {
		c := cfg
		if v.edit != nil {
			vo := o
			v.edit(&vo)
			if c, err = vo.Config(); err != nil {
				add(v.name, 0, err)
				continue
			}
		}
		s, err := c.Encode(doc)
		if err != nil {
			add(v.name, 0, err)
			continue
		}
		back, err := c.Decode(s)
		if err == nil {
			var out []byte
			out, err = json.Marshal(back)
			if err == nil {
				err = same(out)
			}
		}
		add(v.name, len(s), err)
	}
	return rep, nil
}

// toPlain replaces ordered objects by maps
// so that the value encodes as a CBOR map.
func toPlain(v any) any {
	switch v := v.(type) {
	case bbor.Object:
		m := make(map[string]any, len(v))
		for i := range v {
			m[v[i].Name] = toPlain(v[i].Value)
		}
		return m
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = toPlain(v[i])
		}
		return out
	default:
		return v
	}
}
