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

package bbor62

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/SnellerInc/bbor62/bbor"
)

func messages(n int) []any {
	ids := uuids(n)
	out := make([]any, n)
	for i := range out {
		out[i] = bbor.Object{
			{Name: "id", Value: ids[i]},
			{Name: "event", Value: "session.heartbeat"},
			{Name: "payload", Value: bbor.Object{
				{Name: "sequence", Value: int64(i)},
				{Name: "status", Value: "active"},
			}},
		}
	}
	return out
}

func TestCodecStream(t *testing.T) {
	msgs := messages(20)
	enc := NewCodec(Default)
	dec := NewCodec(Default)
	var first, last string
	for i, m := range msgs {
		s, err := enc.Encode(m)
		if err != nil {
			t.Fatalf("message %d: %s", i, err)
		}
		v, err := dec.Decode(s)
		if err != nil {
			t.Fatalf("message %d: decoding %q: %s", i, s, err)
		}
		if !reflect.DeepEqual(v, m) {
			t.Fatalf("message %d: got %#v", i, v)
		}
		if i == 0 {
			first = s
		}
		last = s
	}
	if len(last) >= len(first) {
		t.Errorf("stream did not shrink: first %d symbols, last %d", len(first), len(last))
	}
	// a one-shot encoding of the last message
	// is as long as the first one of the stream
	oneshot, err := Encode(msgs[len(msgs)-1])
	if err != nil {
		t.Fatal(err)
	}
	if len(oneshot) <= len(last) {
		t.Errorf("one-shot %d symbols, streamed %d", len(oneshot), len(last))
	}
}

func TestCodecReset(t *testing.T) {
	msgs := messages(3)
	enc := NewCodec(Default)
	var resets int
	enc.Logf = func(f string, args ...interface{}) {
		resets++
		t.Logf(f, args...)
	}
	want := make([]string, len(msgs))
	for i := range msgs {
		s, err := enc.Encode(msgs[i])
		if err != nil {
			t.Fatal(err)
		}
		want[i] = s
	}
	enc.Reset()
	dec := NewCodec(Default)
	for i := range msgs {
		s, err := enc.Encode(msgs[i])
		if err != nil {
			t.Fatal(err)
		}
		if s != want[i] {
			t.Fatalf("message %d after Reset: %q, want %q", i, s, want[i])
		}
		if _, err := dec.Decode(s); err != nil {
			t.Fatal(err)
		}
	}
	// the decoder must also start over
	dec.Reset()
	v, err := dec.Decode(want[0])
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, msgs[0]) {
		t.Fatalf("got %#v", v)
	}
	if resets != 0 {
		t.Errorf("%d dictionary resets for three short messages", resets)
	}
}

func TestCodecDictionaryReset(t *testing.T) {
	o := DefaultOptions()
	o.LZW.MaxDictSize = len(o.LZW.Seed) + 16
	c := mustConfig(t, o)
	enc, dec := NewCodec(c), NewCodec(c)
	var resets int
	enc.Logf = func(f string, args ...interface{}) { resets++ }
	for i := 0; i < 10; i++ {
		m := fmt.Sprintf("message number %d with a bit of text", i)
		s, err := enc.Encode(m)
		if err != nil {
			t.Fatal(err)
		}
		v, err := dec.Decode(s)
		if err != nil {
			t.Fatalf("message %d: %s", i, err)
		}
		if v != m {
			t.Fatalf("message %d: got %q", i, v)
		}
	}
	if resets == 0 {
		t.Error("dictionary never reset")
	}
}

func TestCodecUnmarshal(t *testing.T) {
	enc, dec := NewCodec(Default), NewCodec(Default)
	for i := 0; i < 3; i++ {
		in := record{ID: fmt.Sprint(i), Count: i, Score: 1.5}
		s, err := enc.Encode(in)
		if err != nil {
			t.Fatal(err)
		}
		var out record
		if err := dec.Unmarshal(s, &out); err != nil {
			t.Fatalf("message %d: %s", i, err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Fatalf("message %d: got %+v", i, out)
		}
	}
}
