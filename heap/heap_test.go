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

package heap

import (
	"math/rand"
	"testing"

	"golang.org/x/exp/slices"
)

func less(a, b int) bool { return a < b }

func TestHeap(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	x := make([]int, 0, 1000)
	for len(x) < cap(x) {
		PushSlice(&x, r.Intn(5000), less)
	}
	sorted := make([]int, 0, len(x))
	for len(x) > 0 {
		sorted = append(sorted, PopSlice(&x, less))
	}
	if !slices.IsSorted(sorted) {
		t.Fatal("not sorted")
	}

	for len(x) < cap(x) {
		PushSlice(&x, r.Intn(5000), less)
	}
	// disturb ordering, then Fix
	x[len(x)/2] = -1
	FixSlice(x, len(x)/2, less)
	if x[0] != -1 {
		t.Fatalf("min is %d after FixSlice", x[0])
	}
	sorted = sorted[:0]
	for len(x) > 0 {
		sorted = append(sorted, PopSlice(&x, less))
	}
	if !slices.IsSorted(sorted) {
		t.Fatal("not sorted after FixSlice")
	}
}

func TestPushBounded(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	var all []int
	var x []int
	for i := 0; i < 500; i++ {
		v := r.Intn(10000)
		all = append(all, v)
		PushBounded(&x, v, 20, less)
	}
	if len(x) != 20 {
		t.Fatalf("len %d", len(x))
	}
	slices.Sort(all)
	want := all[len(all)-20:]
	var got []int
	for len(x) > 0 {
		got = append(got, PopSlice(&x, less))
	}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
	if PushBounded(&x, 1, 0, less) {
		t.Fatal("zero limit kept an item")
	}
}
