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

package compr

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ctl := bytes.Repeat([]byte(`{"id":"8b1a9953","status":"active"},`), 100)
	for _, name := range Names() {
		comp := Compression(name)
		if comp == nil {
			t.Fatalf("no compressor for %q", name)
		}
		if n := comp.Name(); n != name {
			t.Errorf("compressor for %q is named %q", name, n)
		}
		dec := Decompression(name)
		if dec == nil {
			t.Fatalf("no decompressor for %q", name)
		}
		prefix := []byte("prefix")
		cmp, err := comp.Compress(ctl, append([]byte(nil), prefix...))
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		if !bytes.HasPrefix(cmp, prefix) {
			t.Fatalf("%s: prefix clobbered", name)
		}
		cmp = cmp[len(prefix):]
		if len(cmp) >= len(ctl) {
			t.Errorf("%s: %d bytes compressed to %d", name, len(ctl), len(cmp))
		}
		dst := make([]byte, len(ctl))
		if err := dec.Decompress(cmp, dst); err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		if !bytes.Equal(dst, ctl) {
			t.Errorf("%s: mismatch", name)
		}
		// wrong output size
		if err := dec.Decompress(cmp, make([]byte, len(ctl)+1)); err == nil {
			t.Errorf("%s: oversized output accepted", name)
		}
	}
	if Compression("gzip") != nil || Decompression("gzip") != nil {
		t.Error("unknown algorithm accepted")
	}
}

func TestShortInput(t *testing.T) {
	for _, name := range Names() {
		for _, src := range [][]byte{[]byte("x"), []byte("abc")} {
			cmp, err := Compression(name).Compress(src, nil)
			if err != nil {
				t.Fatalf("%s: %s", name, err)
			}
			dst := make([]byte, len(src))
			if err := Decompression(name).Decompress(cmp, dst); err != nil {
				t.Fatalf("%s: %q: %s", name, src, err)
			}
			if !bytes.Equal(dst, src) {
				t.Errorf("%s: got %q", name, dst)
			}
		}
	}
}

func TestS2Overlap(t *testing.T) {
	comp := Compression("s2")
	dec := Decompression("s2")
	ctl := bytes.Repeat([]byte("foo"), 1000)
	src := append([]byte(nil), ctl...)
	dst := make([]byte, len(src))
	cmp, err := comp.Compress(src[10:], src[:8])
	if err != nil {
		t.Fatal(err)
	}
	if err := dec.Decompress(cmp[8:], dst[10:]); err != nil {
		t.Error(err)
	} else if string(ctl[10:]) != string(dst[10:]) {
		t.Error("mismatch")
	}
}

func TestOverlaps(t *testing.T) {
	a := make([]byte, 10, 30)
	if overlaps(a, make([]byte, 20)) {
		t.Error("separate slices overlap")
	}
	if b := a[10:]; overlaps(a, b) || overlaps(b, a) {
		t.Error("adjacent slices overlap")
	}
	for _, off := range []int{5, 9} {
		if b := a[off:]; !overlaps(a, b) || !overlaps(b, a) {
			t.Errorf("slices at offset %d do not overlap", off)
		}
	}
}
