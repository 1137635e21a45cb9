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

// Package ngram counts character n-grams in
// decoded documents and derives LZW seed
// dictionaries from them.
//
// Text is measured in UTF-16 code units, the
// units LZW compresses, so a character outside
// the Basic Multilingual Plane counts as two.
// Grams that would split such a character are
// not counted.
package ngram

import (
	"unicode/utf16"

	"golang.org/x/exp/maps"

	"github.com/SnellerInc/bbor62/bbor"
)

// MaxN is the longest gram counted.
const MaxN = 4

// Gram is a counted n-gram.
type Gram struct {
	Text  string
	Count int
}

// Counter counts n-grams of length 1 through MaxN.
// The zero value is ready to use.
type Counter struct {
	// Fields includes object field
	// names in the counts.
	Fields bool

	counts  [MaxN + 1]map[string]int
	strings int
}

func isHigh(u uint16) bool { return u >= 0xd800 && u < 0xdc00 }
func isLow(u uint16) bool  { return u >= 0xdc00 && u < 0xe000 }

// AddString counts the grams of s.
func (c *Counter) AddString(s string) {
	c.strings++
	u := utf16.Encode([]rune(s))
	for n := 1; n <= MaxN; n++ {
		if c.counts[n] == nil {
			c.counts[n] = make(map[string]int)
		}
		for i := 0; i+n <= len(u); i++ {
			if isLow(u[i]) || isHigh(u[i+n-1]) {
				continue
			}
			c.counts[n][string(utf16.Decode(u[i:i+n]))]++
		}
	}
}

// Add counts the grams of every string in v,
// which is a value as returned by bbor.Decoder.Read.
func (c *Counter) Add(v any) {
	switch v := v.(type) {
	case string:
		c.AddString(v)
	case []any:
		for i := range v {
			c.Add(v[i])
		}
	case bbor.Object:
		for i := range v {
			if c.Fields {
				c.AddString(v[i].Name)
			}
			c.Add(v[i].Value)
		}
	}
}

// Strings returns the number of strings counted.
func (c *Counter) Strings() int { return c.strings }

// Distinct returns the number of
// distinct grams of length n.
func (c *Counter) Distinct(n int) int {
	if n < 1 || n > MaxN {
		return 0
	}
	return len(c.counts[n])
}

// Count returns the number of
// occurrences of gram.
func (c *Counter) Count(gram string) int {
	n := len(utf16.Encode([]rune(gram)))
	if n < 1 || n > MaxN {
		return 0
	}
	return c.counts[n][gram]
}

// Top returns the k most frequent grams
// of length n, most frequent first. Grams
// with equal counts are ordered by text.
// A k < 1 returns every gram.
func (c *Counter) Top(n, k int) []Gram {
	if n < 1 || n > MaxN {
		return nil
	}
	if k < 1 {
		k = len(c.counts[n])
	}
	top := ktop{limit: k}
	for text, count := range c.counts[n] {
		top.add(Gram{Text: text, Count: count})
	}
	return top.capture()
}

// SuggestSeed returns an LZW seed dictionary of
// at most budget entries for text like the text
// counted by c: the two escape entries, then every
// counted character and then the most frequent
// bigrams, each in order of frequency.
// The budget is raised to 2 if it is lower.
func SuggestSeed(c *Counter, budget int) []string {
	seed := []string{"\x00", "\x01"}
	seen := map[string]bool{"\x00": true, "\x01": true}
	for n := 1; n <= 2 && len(seed) < budget; n++ {
		for _, g := range c.Top(n, 0) {
			if len(seed) >= budget {
				break
			}
			if !seen[g.Text] {
				seen[g.Text] = true
				seed = append(seed, g.Text)
			}
		}
	}
	return seed
}

// Merge adds the counts of o to c.
func (c *Counter) Merge(o *Counter) {
	c.strings += o.strings
	for n := 1; n <= MaxN; n++ {
		if o.counts[n] == nil {
			continue
		}
		if c.counts[n] == nil {
			c.counts[n] = maps.Clone(o.counts[n])
			continue
		}
		for k, v := range o.counts[n] {
			c.counts[n][k] += v
		}
	}
}
