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
	"unicode/utf16"
	"unicode/utf8"
)

// units is a sequence of UTF-16 code units packed
// two bytes per unit, big endian. Compression works
// on code units so that the wire format matches
// implementations whose strings are UTF-16.
type units string

func toUnits(s string) (units, bool) {
	if !utf8.ValidString(s) {
		return "", false
	}
	buf := make([]byte, 0, 2*len(s))
	for _, r := range s {
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			buf = append(buf, byte(r1>>8), byte(r1), byte(r2>>8), byte(r2))
		} else {
			buf = append(buf, byte(r>>8), byte(r))
		}
	}
	return units(buf), true
}

func unit(c uint16) units {
	return units([]byte{byte(c >> 8), byte(c)})
}

func (u units) len() int { return len(u) / 2 }

func (u units) at(i int) uint16 {
	return uint16(u[2*i])<<8 | uint16(u[2*i+1])
}

func (u units) slice(i, j int) units { return u[2*i : 2*j] }

func (u units) appendTo(dst []uint16) []uint16 {
	for i := 0; i < u.len(); i++ {
		dst = append(dst, u.at(i))
	}
	return dst
}

func (u units) String() string {
	return string(utf16.Decode(u.appendTo(nil)))
}
