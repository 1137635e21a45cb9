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
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/SnellerInc/bbor62/bbor"
)

func jsonObject(d *json.Decoder) (any, error) {
	out := bbor.Object{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		if tok == json.Delim('}') {
			break
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string field name; found %v", tok)
		}
		body, err := d.Token()
		if err != nil {
			return nil, err
		}
		v, err := fromJSON(body, d)
		if err != nil {
			return nil, err
		}
		// duplicate names keep the last value
		out.Set(name, v)
	}
	return out, nil
}

func jsonArray(d *json.Decoder) (any, error) {
	out := []any{}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		if tok == json.Delim(']') {
			break
		}
		v, err := fromJSON(tok, d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// jsonNumber converts n to int64 when it is
// an integer in range, to *big.Int when it is
// a wider integer, and to float64 otherwise.
func jsonNumber(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if b, ok := new(big.Int).SetString(s, 10); ok {
			return b, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("number %q out of range", s)
	}
	return f, nil
}

func fromJSON(tok json.Token, d *json.Decoder) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		if t == json.Delim('{') {
			return jsonObject(d)
		}
		if t == json.Delim('[') {
			return jsonArray(d)
		}
		return nil, fmt.Errorf("fromJSON: unexpected delim %v", t)
	case json.Number:
		return jsonNumber(t)
	case float64:
		return t, nil
	case string, bool, nil:
		return t, nil
	default:
		return nil, fmt.Errorf("fromJSON: unexpected token %v", t)
	}
}

// FromJSON decodes one JSON value from d.
// Objects become bbor.Object, preserving the
// order of their fields, and arrays become []any.
// Numbers become int64, *big.Int or float64.
func FromJSON(d *json.Decoder) (any, error) {
	d.UseNumber()
	tok, err := d.Token()
	if err != nil {
		return nil, err
	}
	v, err := fromJSON(tok, d)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return v, err
}
