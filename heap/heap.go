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

// Package heap implements min-heap operations
// over plain slices, ordered by a caller-supplied
// less function.
package heap

// PushSlice appends item to the heap x.
func PushSlice[T any](x *[]T, item T, less func(a, b T) bool) {
	*x = append(*x, item)
	siftUp(*x, len(*x)-1, less)
}

// PopSlice removes and returns the least
// element of the non-empty heap x.
func PopSlice[T any](x *[]T, less func(a, b T) bool) T {
	h := *x
	ret := h[0]
	last := len(h) - 1
	h[0] = h[last]
	*x = h[:last]
	if last > 0 {
		siftDown(*x, 0, less)
	}
	return ret
}

// FixSlice restores the heap order of x after
// the element at index has changed.
func FixSlice[T any](x []T, index int, less func(a, b T) bool) {
	siftDown(x, index, less)
	siftUp(x, index, less)
}

// PushBounded adds item to the heap x, which holds
// at most limit elements. Once x is full, item
// replaces the least element only if that element
// is less than item. PushBounded reports whether
// item was kept.
func PushBounded[T any](x *[]T, item T, limit int, less func(a, b T) bool) bool {
	if len(*x) < limit {
		PushSlice(x, item, less)
		return true
	}
	if len(*x) == 0 || !less((*x)[0], item) {
		return false
	}
	(*x)[0] = item
	FixSlice(*x, 0, less)
	return true
}

func siftUp[T any](x []T, i int, less func(a, b T) bool) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(x[i], x[parent]) {
			return
		}
		x[i], x[parent] = x[parent], x[i]
		i = parent
	}
}

func siftDown[T any](x []T, i int, less func(a, b T) bool) {
	for {
		child := 2*i + 1
		if child >= len(x) {
			return
		}
		if r := child + 1; r < len(x) && less(x[r], x[child]) {
			child = r
		}
		if !less(x[child], x[i]) {
			return
		}
		x[i], x[child] = x[child], x[i]
		i = child
	}
}
