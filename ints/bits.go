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

// Package ints provides the integer helpers
// shared by the bit-level codecs.
package ints

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Min returns the smaller value of x and y
func Min[T constraints.Integer](x, y T) T {
	if x <= y {
		return x
	}
	return y
}

// Max returns the greater value of x and y
func Max[T constraints.Integer](x, y T) T {
	if x >= y {
		return x
	}
	return y
}

// BitLen returns the number of bits required
// to represent x; BitLen(0) is 0.
func BitLen[T constraints.Unsigned](x T) int {
	return bits.Len64(uint64(x))
}

// Log2Ceil returns the smallest k such that
// 1<<k >= x. Values of x below 2 yield 0.
func Log2Ceil[T constraints.Integer](x T) int {
	if x <= 1 {
		return 0
	}
	return bits.Len64(uint64(x - 1))
}

// CodeWidth returns the number of bits needed to
// write the code c, with a minimum of one bit.
func CodeWidth[T constraints.Integer](c T) int {
	if c <= 0 {
		return 1
	}
	return bits.Len64(uint64(c))
}

// Pow returns base**exp and reports whether
// the result fits in a uint64.
func Pow(base uint64, exp int) (uint64, bool) {
	out := uint64(1)
	for i := 0; i < exp; i++ {
		hi, lo := bits.Mul64(out, base)
		if hi != 0 {
			return 0, false
		}
		out = lo
	}
	return out, true
}
