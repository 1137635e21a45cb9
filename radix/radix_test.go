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
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/SnellerInc/bbor62/bitstream"
)

func TestDefaultConfig(t *testing.T) {
	c := Default
	if c.Radix() != 62 {
		t.Fatalf("radix %d", c.Radix())
	}
	if c.BitsPerBlock() != 23 {
		t.Fatalf("bits per block %d", c.BitsPerBlock())
	}
	if c.MaxBlockValue() != 1<<23-1 {
		t.Fatalf("max block value %d", c.MaxBlockValue())
	}
	if c.MaxBlockCapacity() != 14776336 {
		t.Fatalf("max block capacity %d", c.MaxBlockCapacity())
	}
	lut := []struct {
		modulo, chars, bits int
		ok                  bool
	}{
		{0, 1, 0, false},
		{2, 1, 6, true},
		{7, 1, 1, true},
		{0, 2, 8, true},
		{4, 2, 12, true},
		{0, 3, 16, true},
		{4, 3, 12, true},
		{1, 4, 23, true},
		{0, 4, 0, false},
		{5, 4, 19, true},
	}
	for _, x := range lut {
		bits, ok := c.LastBlockBits(x.modulo, x.chars)
		if ok != x.ok || (ok && bits != x.bits) {
			t.Errorf("LastBlockBits(%d, %d) = %d, %v; want %d, %v", x.modulo, x.chars, bits, ok, x.bits, x.ok)
		}
	}
}

func TestVectors(t *testing.T) {
	noSqueeze, err := NewConfig(DefaultAlphabet, DefaultCharsPerBlock, false)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		c    *Config
		in   []byte
		want string
	}{
		{Default, nil, ""},
		{Default, []byte{0x00}, "00"},
		{Default, []byte{0x41}, "13"},
		{Default, []byte{0xff, 0xff, 0xff}, "ZCG71"},
		// the 24th bit is absorbed into the first block
		{Default, []byte{0x80, 0x00, 0x00}, "ZCG8"},
		{noSqueeze, []byte{0x80, 0x00, 0x00}, "Hb840"},
	}
	for i := range cases {
		got, err := EncodeToString(cases[i].c, cases[i].in)
		if err != nil {
			t.Fatalf("case %d: %s", i, err)
		}
		if got != cases[i].want {
			t.Errorf("case %d: encoded %x as %q, want %q", i, cases[i].in, got, cases[i].want)
		}
		back, err := DecodeString(cases[i].c, got)
		if err != nil {
			t.Fatalf("case %d: decoding %q: %s", i, got, err)
		}
		if !bytes.Equal(back, cases[i].in) {
			t.Errorf("case %d: decoded %x, want %x", i, back, cases[i].in)
		}
	}
}

func testRoundTrip(t *testing.T, c *Config, r *rand.Rand) {
	for size := 0; size < 120; size++ {
		buf := make([]byte, size)
		r.Read(buf)
		s, err := EncodeToString(c, buf)
		if err != nil {
			t.Fatal(err)
		}
		for _, sym := range s {
			if !strings.ContainsRune(c.Alphabet(), sym) {
				t.Fatalf("output %q contains %q", s, sym)
			}
		}
		out, err := DecodeString(c, s)
		if err != nil {
			t.Fatalf("size %d: %q: %s", size, s, err)
		}
		if !bytes.Equal(out, buf) {
			t.Fatalf("size %d: round trip mismatch\n%x\n%x", size, buf, out)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(62))
	alphabets := []struct {
		alphabet string
		chars    int
	}{
		{DefaultAlphabet, 4},
		{"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/", 4},
		{"0123456789", 4},
		{"0123456789abcdef", 2},
		{DefaultAlphabet, 2},
		{DefaultAlphabet, 5},
	}
	for _, a := range alphabets {
		for _, squeeze := range []bool{true, false} {
			c, err := NewConfig(a.alphabet, a.chars, squeeze)
			if err != nil {
				t.Fatalf("%q/%d: %s", a.alphabet, a.chars, err)
			}
			testRoundTrip(t, c, r)
		}
	}
}

// arbitrary write widths, not only whole bytes
func TestBitRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 300; iter++ {
		var sb strings.Builder
		e := NewEncoder(Default, func(b string) { sb.WriteString(b) })
		var ref bitstream.Buffer
		total := 0
		for i := r.Intn(40); i >= 0; i-- {
			n := 1 + r.Intn(32)
			v := r.Uint32()
			if n < 32 {
				v &= 1<<n - 1
			}
			if err := e.WriteBits(v, n); err != nil {
				t.Fatal(err)
			}
			ref.WriteBits(v, n)
			total += n
		}
		if pad := (8 - total%8) % 8; pad > 0 {
			e.WriteBits(0, pad)
			ref.WriteBits(0, pad)
		}
		if err := e.Flush(); err != nil {
			t.Fatal(err)
		}
		got, err := DecodeString(Default, sb.String())
		if err != nil {
			t.Fatalf("iter %d: %s", iter, err)
		}
		if !bytes.Equal(got, ref.Bytes()) {
			t.Fatalf("iter %d: mismatch", iter)
		}
	}
}

func TestStreamingEmit(t *testing.T) {
	var blocks []string
	e := NewEncoder(Default, func(b string) { blocks = append(blocks, b) })
	if err := e.WriteBits(0, 22); err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 0 {
		t.Fatal("block emitted before it was full")
	}
	if err := e.WriteBits(0, 1); err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || blocks[0] != "0000" {
		t.Fatalf("blocks = %q", blocks)
	}
	if err := e.WriteBits(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.Flush(); err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 || blocks[1] != "0" {
		t.Fatalf("blocks = %q", blocks)
	}
}

func TestErrors(t *testing.T) {
	e := NewEncoder(Default, func(string) {})
	if err := e.WriteBits(5, 3); err != nil {
		t.Fatal(err)
	}
	if err := e.Flush(); !errors.Is(err, ErrUnaligned) {
		t.Errorf("unaligned flush: %v", err)
	}
	if err := e.WriteBits(8, 3); !errors.Is(err, bitstream.ErrOverflow) {
		t.Errorf("overflow: %v", err)
	}
	if _, err := DecodeString(Default, "12-4"); !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("invalid symbol: %v", err)
	}
	if _, err := DecodeString(Default, "Z"); !errors.Is(err, ErrLastBlock) {
		t.Errorf("single symbol: %v", err)
	}
	// 'z' is 61: more than the 8 bits a
	// 2-symbol block at offset 0 may hold
	if _, err := DecodeString(Default, "zz"); !errors.Is(err, ErrLastBlock) {
		t.Errorf("oversized last block: %v", err)
	}
	noSqueeze, err := NewConfig(DefaultAlphabet, DefaultCharsPerBlock, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeString(noSqueeze, "zzzz00"); !errors.Is(err, ErrBlockValue) {
		t.Errorf("block above 23 bits without squeezing: %v", err)
	}
}

// a final block as wide as a complete block
// may still carry fewer bits
func TestShortBlocks(t *testing.T) {
	cases := []struct {
		alphabet string
		chars    int
		in       []byte
		want     string
	}{
		{DefaultAlphabet, 2, []byte{0x00}, "00"},
		{DefaultAlphabet, 2, []byte{0x41}, "13"},
		{"01234567", 3, []byte{0xff}, "377"},
	}
	for _, x := range cases {
		for _, squeeze := range []bool{true, false} {
			c, err := NewConfig(x.alphabet, x.chars, squeeze)
			if err != nil {
				t.Fatal(err)
			}
			got, err := EncodeToString(c, x.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != x.want {
				t.Errorf("%q/%d: encoded %x as %q, want %q", x.alphabet, x.chars, x.in, got, x.want)
			}
			back, err := DecodeString(c, got)
			if err != nil {
				t.Fatalf("%q/%d: decoding %q: %s", x.alphabet, x.chars, got, err)
			}
			if !bytes.Equal(back, x.in) {
				t.Errorf("%q/%d: decoded %x, want %x", x.alphabet, x.chars, back, x.in)
			}
		}
	}
}

// every configuration NewConfig accepts
// must decode everything it encodes
func TestAcceptedConfigs(t *testing.T) {
	r := rand.New(rand.NewSource(190))
	accepted, rejected := 0, 0
	for radix := 2; radix <= 200; radix++ {
		alphabet := make([]rune, radix)
		for i := range alphabet {
			alphabet[i] = rune(0x100 + i)
		}
		for chars := 1; chars <= 8; chars++ {
			for _, squeeze := range []bool{true, false} {
				c, err := NewConfig(string(alphabet), chars, squeeze)
				if errors.Is(err, ErrAmbiguous) {
					rejected++
					continue
				}
				if err != nil {
					// wider than 32 bits
					continue
				}
				accepted++
				check := func(in []byte) {
					s, err := EncodeToString(c, in)
					if err != nil {
						t.Fatalf("radix %d chars %d squeeze %v: %s", radix, chars, squeeze, err)
					}
					out, err := DecodeString(c, s)
					if err != nil {
						t.Fatalf("radix %d chars %d squeeze %v: decoding %x: %s", radix, chars, squeeze, in, err)
					}
					if !bytes.Equal(out, in) {
						t.Fatalf("radix %d chars %d squeeze %v: %x became %x", radix, chars, squeeze, in, out)
					}
				}
				for b := 0; b < 256; b++ {
					check([]byte{byte(b)})
				}
				for size := 0; size < 12; size++ {
					for i := 0; i < 8; i++ {
						buf := make([]byte, size)
						r.Read(buf)
						check(buf)
					}
				}
			}
		}
	}
	if accepted == 0 || rejected == 0 {
		t.Fatalf("accepted %d, rejected %d", accepted, rejected)
	}
}

func TestNewConfigErrors(t *testing.T) {
	if _, err := NewConfig("a", 4, true); err == nil {
		t.Error("single-symbol alphabet accepted")
	}
	if _, err := NewConfig("abca", 4, true); err == nil {
		t.Error("repeated symbol accepted")
	}
	if _, err := NewConfig(DefaultAlphabet, 0, true); err == nil {
		t.Error("empty block accepted")
	}
	if _, err := NewConfig(DefaultAlphabet, 6, true); err == nil {
		t.Error("block wider than 32 bits accepted")
	}
	var wide []rune
	for i := 0; i < 512; i++ {
		wide = append(wide, rune(0x4e00+i))
	}
	if _, err := NewConfig(string(wide), 2, true); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("radix 512: %v", err)
	}
	for _, x := range []struct {
		alphabet string
		chars    int
	}{
		{DefaultAlphabet, 2},
		{DefaultAlphabet, 5},
		{"01234567", 3},
	} {
		for _, squeeze := range []bool{true, false} {
			if _, err := NewConfig(x.alphabet, x.chars, squeeze); err != nil {
				t.Errorf("%q/%d rejected: %s", x.alphabet, x.chars, err)
			}
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	buf := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(buf)
	b.SetBytes(int64(len(buf)))
	for i := 0; i < b.N; i++ {
		if _, err := EncodeToString(Default, buf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	buf := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(buf)
	s, err := EncodeToString(Default, buf)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(buf)))
	for i := 0; i < b.N; i++ {
		if _, err := DecodeString(Default, s); err != nil {
			b.Fatal(err)
		}
	}
}

func TestDone(t *testing.T) {
	s, err := EncodeToString(Default, []byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	d := NewDecoder(Default, s)
	for i := 0; i < 3; i++ {
		if d.Done() {
			t.Fatalf("done after %d bytes", i)
		}
		if _, err := d.ReadBits(8); err != nil {
			t.Fatal(err)
		}
	}
	if !d.Done() {
		t.Fatal("not done after reading everything")
	}
	if d.HasNext(1) {
		t.Fatal("bits left after Done")
	}
}
