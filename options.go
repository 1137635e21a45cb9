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
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dchest/siphash"
	"sigs.k8s.io/yaml"
)

// just pick an upper limit to prevent DoS
const maxOptionsSize = 1024 * 1024

// ParseOptions parses YAML or JSON options.
// Settings absent from buf keep their
// DefaultOptions values; unknown settings
// are an error.
func ParseOptions(buf []byte) (Options, error) {
	if len(buf) > maxOptionsSize {
		return Options{}, fmt.Errorf("bbor62: options of size %d beyond limit %d", len(buf), maxOptionsSize)
	}
	o := DefaultOptions()
	// decoding reuses the backing arrays of slices
	o.Fields = append([]string(nil), o.Fields...)
	o.LZW.Seed = append([]string(nil), o.LZW.Seed...)
	if err := yaml.UnmarshalStrict(buf, &o); err != nil {
		return Options{}, fmt.Errorf("bbor62: parsing options: %w", err)
	}
	return o, nil
}

// LoadOptions reads options from the file at path
// and compiles them into a Config.
//
// See also: ParseOptions
func LoadOptions(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := io.ReadAll(io.LimitReader(f, maxOptionsSize+1))
	if err != nil {
		return nil, err
	}
	o, err := ParseOptions(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o.Config()
}

// MarshalOptions renders o as YAML.
func MarshalOptions(o Options) ([]byte, error) {
	return yaml.Marshal(o)
}

// Fingerprint returns a hash of every setting
// that affects the wire format. Two Configs
// with equal fingerprints produce and accept
// the same strings.
func (c *Config) Fingerprint() uint64 {
	const (
		k0 = 0x62626f7236325f31
		k1 = 0xc6a4a7935bd1e995
	)
	o := c.Options()
	flags := func(b ...bool) uint32 {
		var u uint32
		for i := range b {
			if b[i] {
				u |= 1 << i
			}
		}
		return u
	}
	var tmp []byte
	str := func(s string) {
		tmp = binary.LittleEndian.AppendUint32(tmp, uint32(len(s)))
		tmp = append(tmp, s...)
	}
	list := func(lst []string) {
		tmp = binary.LittleEndian.AppendUint32(tmp, uint32(len(lst)))
		for i := range lst {
			str(lst[i])
		}
	}
	str(o.Alphabet)
	tmp = binary.LittleEndian.AppendUint32(tmp, uint32(o.CharsPerBlock))
	tmp = binary.LittleEndian.AppendUint32(tmp, flags(
		o.BitSqueezing, o.KeyMapping, o.StringCompression,
		o.LZW.DynamicDict, o.LZW.DictReset, o.LZW.ByteAlign))
	list(o.Fields)
	list(o.LZW.Seed)
	tmp = binary.LittleEndian.AppendUint32(tmp, uint32(o.LZW.MaxDictSize))
	return siphash.Hash(k0, k1, tmp)
}
