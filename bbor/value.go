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

package bbor

import (
	"bytes"
	"encoding/json"
)

// UndefinedType is the type of Undefined.
type UndefinedType struct{}

// Undefined is the value written with the
// "undefined" simple value (0xf7), which is
// distinct from null on the wire.
var Undefined UndefinedType

func (UndefinedType) String() string { return "undefined" }

// MarshalJSON implements json.Marshaler.
// JSON has no undefined, so it becomes null.
func (UndefinedType) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Field is one name/value pair of an Object.
type Field struct {
	Name  string
	Value any
}

// Object is a map that preserves the order
// in which its fields were written.
type Object []Field

// Len returns the number of fields in o.
func (o Object) Len() int { return len(o) }

// Get returns the value of the first
// field of o with the given name.
func (o Object) Get(name string) (any, bool) {
	for i := range o {
		if o[i].Name == name {
			return o[i].Value, true
		}
	}
	return nil, false
}

// Set replaces the value of the field with
// the given name, or appends a new field.
func (o *Object) Set(name string, v any) {
	for i := range *o {
		if (*o)[i].Name == name {
			(*o)[i].Value = v
			return
		}
	}
	*o = append(*o, Field{Name: name, Value: v})
}

// Keys returns the field names in order.
func (o Object) Keys() []string {
	out := make([]string, len(o))
	for i := range o {
		out[i] = o[i].Name
	}
	return out
}

// MarshalJSON implements json.Marshaler.
// Fields are written in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(o[i].Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(o[i].Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
