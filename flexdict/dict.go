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

// Package flexdict implements a dictionary made of
// an immutable seed part and a bounded, resettable
// dynamic part.
package flexdict

import (
	"fmt"
	"math"

	"golang.org/x/exp/maps"
)

// Unbounded is the maximum size of a
// dictionary whose dynamic part may grow
// without limit.
const Unbounded = math.MaxInt

// Dict maps keys to values. Lookups consult
// the static part first. Codes are typically
// assigned as Len() at insertion time so that
// static and dynamic entries share one dense
// code space.
//
// A Dict is not safe for concurrent use.
type Dict[K comparable, V any] struct {
	static  map[K]V // never mutated
	dynamic map[K]V
	order   []K // dynamic keys in insertion order
	enabled bool
	maxSize int
}

// New returns a Dict seeded with static.
// The static map is shared, not copied,
// and must not be modified afterwards.
// When dynamic is false Add never inserts.
// maxSize bounds Len().
func New[K comparable, V any](static map[K]V, dynamic bool, maxSize int) *Dict[K, V] {
	return &Dict[K, V]{
		static:  static,
		dynamic: make(map[K]V),
		enabled: dynamic,
		maxSize: maxSize,
	}
}

// Get returns the value associated with k.
func (d *Dict[K, V]) Get(k K) (V, bool) {
	if v, ok := d.static[k]; ok {
		return v, true
	}
	v, ok := d.dynamic[k]
	return v, ok
}

// Has reports whether k is present
// in either part of the dictionary.
func (d *Dict[K, V]) Has(k K) bool {
	if _, ok := d.static[k]; ok {
		return true
	}
	_, ok := d.dynamic[k]
	return ok
}

// Add inserts (k, v) into the dynamic part.
// It is a no-op if dynamic growth is disabled,
// the dictionary is full, or k is already
// present; it reports whether it inserted.
func (d *Dict[K, V]) Add(k K, v V) bool {
	if !d.enabled || d.Len() >= d.maxSize || d.Has(k) {
		return false
	}
	d.dynamic[k] = v
	d.order = append(d.order, k)
	return true
}

// Len returns the number of entries
// in both parts of the dictionary.
func (d *Dict[K, V]) Len() int {
	return len(d.static) + len(d.dynamic)
}

// Full reports whether the dictionary
// can no longer grow.
func (d *Dict[K, V]) Full() bool {
	return !d.enabled || d.Len() >= d.maxSize
}

// Reset drops the dynamic part.
func (d *Dict[K, V]) Reset() {
	maps.Clear(d.dynamic)
	d.order = d.order[:0]
}

// DynamicKeys returns the dynamic keys
// in insertion order.
func (d *Dict[K, V]) DynamicKeys() []K {
	return d.order
}

// Seed builds the forward and reverse static maps
// for an ordered list of entries, where each entry's
// code is its position in the list. It fails if the
// list contains duplicates.
func Seed[K comparable](keys []K) (map[K]int, map[int]K, error) {
	fwd := make(map[K]int, len(keys))
	rev := make(map[int]K, len(keys))
	for i, k := range keys {
		if j, ok := fwd[k]; ok {
			return nil, nil, fmt.Errorf("flexdict: duplicate seed entry %v at %d and %d", k, j, i)
		}
		fwd[k] = i
		rev[i] = k
	}
	return fwd, rev, nil
}
