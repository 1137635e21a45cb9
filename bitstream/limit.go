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

package bitstream

import "io"

// LimitedReader reads from R but stops
// once N bits have been consumed.
// It is used to bound an embedded decoder
// to the declared length of one field.
type LimitedReader struct {
	R Reader // underlying reader
	N int64  // bits remaining
}

var _ Reader = &LimitedReader{}

// LimitReader returns a Reader that yields
// at most nbytes bytes worth of bits from r.
func LimitReader(r Reader, nbytes int64) *LimitedReader {
	return &LimitedReader{R: r, N: nbytes * 8}
}

// HasNext implements Reader.HasNext.
func (l *LimitedReader) HasNext(n int) bool {
	return int64(n) <= l.N && l.R.HasNext(n)
}

// ReadBits implements Reader.ReadBits.
func (l *LimitedReader) ReadBits(n int) (uint32, error) {
	if int64(n) > l.N {
		return 0, io.ErrUnexpectedEOF
	}
	v, err := l.R.ReadBits(n)
	if err != nil {
		return 0, err
	}
	l.N -= int64(n)
	return v, nil
}
