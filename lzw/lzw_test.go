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

package lzw

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/SnellerInc/bbor62/bitstream"
)

func compress(t testing.TB, z *Codec, s string) []byte {
	t.Helper()
	var b bitstream.Buffer
	if err := z.Compress(s, &b); err != nil {
		t.Fatalf("compress %q: %s", s, err)
	}
	if z.c.ByteAlign() {
		if err := b.Flush(); err != nil {
			t.Fatalf("compress %q: %s", s, err)
		}
	}
	return append([]byte(nil), b.Bytes()...)
}

func decompress(t testing.TB, z *Codec, buf []byte) string {
	t.Helper()
	r := bitstream.LimitReader(bitstream.NewBuffer(buf), int64(len(buf)))
	s, err := z.Decompress(r)
	if err != nil {
		t.Fatalf("decompress %x: %s", buf, err)
	}
	if r.N != 0 {
		t.Fatalf("decompress %x: %d bits left over", buf, r.N)
	}
	return s
}

func TestVectors(t *testing.T) {
	tcs := []struct {
		in  string
		out []byte
	}{
		// 'e' is code 15 in 7 bits, padded with one zero bit
		{"e", []byte{0x1e}},
		// 'a' (16) and 'b' (31), then two padding bits
		{"ab", []byte{0x20, 0x7c}},
	}
	for _, tc := range tcs {
		got := compress(t, New(Default), tc.in)
		if !bytes.Equal(got, tc.out) {
			t.Errorf("%q: got %x, want %x", tc.in, got, tc.out)
		}
		if s := decompress(t, New(Default), tc.out); s != tc.in {
			t.Errorf("%x: got %q, want %q", tc.out, s, tc.in)
		}
	}
}

var corpus = []string{
	"a",
	"Z",
	"the",
	"hello, world",
	"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
	"abababababababababababab",
	"The quick brown fox jumps over the lazy dog.",
	"\x00",
	"\x01\x00\x01",
	"~`!@#$%^&*()_+=-{}[]|\\:;\"'<>?/",
	"über straße",
	"日本語のテキスト",
	"emoji 😀🎉 mixed with text 🚀",
	"￿Āÿ",
	"\U0010ffff",
	strings.Repeat("status response ", 50),
}

func TestRoundTrip(t *testing.T) {
	for _, s := range corpus {
		buf := compress(t, New(Default), s)
		if got := decompress(t, New(Default), buf); got != s {
			t.Errorf("got %q, want %q", got, s)
		}
	}
}

func TestSharedDictionary(t *testing.T) {
	enc, dec := New(Default), New(Default)
	s := "The quick brown fox jumps over the lazy dog."
	first := compress(t, enc, s)
	second := compress(t, enc, s)
	if len(second) >= len(first) {
		t.Errorf("no gain from learned entries: %d then %d bytes", len(first), len(second))
	}
	for _, buf := range [][]byte{first, second} {
		if got := decompress(t, dec, buf); got != s {
			t.Fatalf("got %q, want %q", got, s)
		}
	}
	for _, s := range corpus {
		buf := compress(t, enc, s)
		if got := decompress(t, dec, buf); got != s {
			t.Fatalf("got %q, want %q", got, s)
		}
	}
	enc.Reset()
	dec.Reset()
	if got := compress(t, enc, s); !bytes.Equal(got, first) {
		t.Errorf("after reset: got %x, want %x", got, first)
	}
	if got := decompress(t, dec, first); got != s {
		t.Fatalf("after reset: got %q", got)
	}
}

// countingWriter counts the bits written through it.
type countingWriter struct {
	bitstream.Writer
	n int
}

func (w *countingWriter) WriteBits(v uint32, n int) error {
	w.n += n
	return w.Writer.WriteBits(v, n)
}

func TestOptions(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	text := func() string {
		var sb strings.Builder
		r := []rune("abcdefgh ijké中😀\x00\x01")
		n := 1 + rnd.Intn(200)
		for i := 0; i < n; i++ {
			sb.WriteRune(r[rnd.Intn(len(r))])
		}
		return sb.String()
	}
	seed := len(DefaultSeed)
	for _, opts := range []Options{
		{DynamicDict: true, MaxDictSize: DefaultMaxDictSize, DictReset: true, ByteAlign: true},
		{DynamicDict: true, MaxDictSize: seed, DictReset: true, ByteAlign: true},
		{DynamicDict: true, MaxDictSize: seed + 1, DictReset: true, ByteAlign: true},
		{DynamicDict: true, MaxDictSize: 128, DictReset: true, ByteAlign: true},
		{DynamicDict: true, MaxDictSize: 129, DictReset: true, ByteAlign: true},
		{DynamicDict: true, MaxDictSize: 256, DictReset: false, ByteAlign: true},
		{DynamicDict: true, MaxDictSize: 100, DictReset: true, ByteAlign: false},
		{DynamicDict: false, MaxDictSize: seed, ByteAlign: true},
		{DynamicDict: false, MaxDictSize: seed, ByteAlign: false},
	} {
		opts := opts
		opts.Seed = DefaultSeed
		name := fmt.Sprintf("dyn=%v,max=%d,reset=%v,align=%v",
			opts.DynamicDict, opts.MaxDictSize, opts.DictReset, opts.ByteAlign)
		t.Run(name, func(t *testing.T) {
			c, err := opts.Config()
			if err != nil {
				t.Fatal(err)
			}
			enc, dec := New(c), New(c)
			resets := 0
			enc.Logf = func(f string, args ...interface{}) { resets++ }
			for i := 0; i < 50; i++ {
				s := text()
				var b bitstream.Buffer
				w := &countingWriter{Writer: &b}
				if err := enc.Compress(s, w); err != nil {
					t.Fatal(err)
				}
				bits := w.n
				if opts.ByteAlign && bits%8 != 0 {
					t.Fatalf("string %d: %d bits is not byte aligned", i, bits)
				}
				// without alignment the reader is
				// told exactly where the string ends
				for w.n%8 != 0 {
					w.WriteBits(0, 1)
				}
				r := &bitstream.LimitedReader{R: &b, N: int64(bits)}
				got, err := dec.Decompress(r)
				if err != nil {
					t.Fatalf("string %d: %s", i, err)
				}
				if got != s {
					t.Fatalf("string %d: got %q, want %q", i, got, s)
				}
				if opts.ByteAlign && r.N != 0 {
					t.Fatalf("string %d: %d bits left over", i, r.N)
				}
			}
			if opts.DynamicDict && opts.DictReset && opts.MaxDictSize < 200 && resets == 0 {
				t.Error("dictionary never reset")
			}
			if !opts.DictReset && resets != 0 {
				t.Errorf("%d resets with reset disabled", resets)
			}
		})
	}
}

func TestUUIDs(t *testing.T) {
	enc, dec := New(Default), New(Default)
	for i := 0; i < 100; i++ {
		s := uuid.NewString()
		buf := compress(t, enc, s)
		if got := decompress(t, dec, buf); got != s {
			t.Fatalf("got %q, want %q", got, s)
		}
	}
}

func TestCompressErrors(t *testing.T) {
	var b bitstream.Buffer
	if err := New(Default).Compress("", &b); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("empty: got %v", err)
	}
	if err := New(Default).Compress("a\xffb", &b); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("invalid utf-8: got %v", err)
	}
}

func TestDecompressErrors(t *testing.T) {
	// 7-bit code 100 is neither an entry nor the
	// next code of an empty history
	var b bitstream.Buffer
	b.WriteBits(100, 7)
	b.WriteBits(0, 1)
	_, err := New(Default).Decompress(bitstream.LimitReader(&b, 1))
	if !errors.Is(err, ErrInvalidCode) {
		t.Errorf("got %v", err)
	}
	// truncated 16-bit literal
	b.Reset()
	b.WriteBits(unicodeEscape, 7)
	b.WriteBits(0xab, 9)
	_, err = New(Default).Decompress(bitstream.LimitReader(&b, 2))
	if err == nil {
		t.Error("truncated literal accepted")
	}
}

func TestConfig(t *testing.T) {
	bad := []Options{
		{Seed: []string{"a", "\x01"}, MaxDictSize: 10},
		{Seed: []string{"\x00"}, MaxDictSize: 10},
		{Seed: []string{"\x00", "\x01", ""}, MaxDictSize: 10},
		{Seed: []string{"\x00", "\x01", "a", "a"}, MaxDictSize: 10},
		{Seed: []string{"\x00", "\x01", "\xff"}, MaxDictSize: 10},
		{Seed: []string{"\x00", "\x01", "a"}, MaxDictSize: 2},
	}
	for i := range bad {
		if _, err := bad[i].Config(); err == nil {
			t.Errorf("options %d accepted", i)
		}
	}
	o := Default.Options()
	o.Seed[2] = "x"
	if Default.Options().Seed[2] != "0" {
		t.Error("Options shares the seed")
	}
	if Default.SeedSize() != 77 {
		t.Errorf("seed size %d", Default.SeedSize())
	}
}

func BenchmarkCompress(b *testing.B) {
	s := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 4)
	var buf bitstream.Buffer
	b.SetBytes(int64(len(s)))
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := New(Default).Compress(s, &buf); err != nil {
			b.Fatal(err)
		}
	}
}
