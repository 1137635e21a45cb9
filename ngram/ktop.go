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

package ngram

import (
	"github.com/SnellerInc/bbor62/heap"
)

// ktop keeps the k greatest grams seen,
// ordered by count and then text. grams is
// a min-heap so the weakest entry is grams[0].
type ktop struct {
	grams []Gram
	limit int
}

// weaker orders a before b when a
// ranks below b in the result.
func weaker(a, b Gram) bool {
	if a.Count != b.Count {
		return a.Count < b.Count
	}
	return a.Text > b.Text
}

func (k *ktop) add(g Gram) {
	heap.PushBounded(&k.grams, g, k.limit, weaker)
}

// capture empties the heap and returns
// its contents, strongest first.
func (k *ktop) capture() []Gram {
	out := make([]Gram, len(k.grams))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.PopSlice(&k.grams, weaker)
	}
	return out
}
