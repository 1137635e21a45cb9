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
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

var (
	structEncoders sync.Map // reflect.Type -> encodefn
	fieldCache     sync.Map // reflect.Type -> []structField
)

var (
	bigIntType     = reflect.TypeOf(big.Int{})
	objectType     = reflect.TypeOf(Object(nil))
	undefinedType  = reflect.TypeOf(Undefined)
	jsonNumberType = reflect.TypeOf(json.Number(""))
)

type encodefn func(*Encoder, reflect.Value) error

// Encode writes v.
//
// Booleans, numbers, strings, byte slices, slices,
// arrays, maps with string keys, structs, pointers,
// *big.Int, json.Number, Object and Undefined are
// supported. Struct fields are named by their "bbor"
// tag if present, and tag options "omitempty" and
// "-" behave as they do for encoding/json. A struct
// field of any other type fails with ErrUnsupported
// unless it is omitted or tagged "-". Maps are
// written in sorted key order. Functions and channels
// are skipped: they do not count towards the length
// of the enclosing container, and a top-level one
// produces no output at all.
func (e *Encoder) Encode(v any) error {
	switch v := v.(type) {
	case nil:
		return e.WriteNull()
	case bool:
		return e.WriteBool(v)
	case string:
		return e.WriteString(v)
	case int64:
		return e.WriteInt(v)
	case int:
		return e.WriteInt(int64(v))
	case float64:
		return e.WriteFloat(v)
	case []any:
		if v == nil {
			return e.WriteNull()
		}
		return e.writeList(v)
	case Object:
		return e.writeObject(v)
	}
	return e.encodeValue(reflect.ValueOf(v))
}

func (e *Encoder) encodeValue(v reflect.Value) error {
	if skipped(v) {
		return nil
	}
	fn, ok := encoderFunc(v.Type())
	if !ok {
		return fmt.Errorf("%w %s", ErrUnsupported, v.Type())
	}
	return fn(e, v)
}

// skipped reports whether v is a value that
// is silently left out of the output.
func skipped(v reflect.Value) bool {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return isSkippedKind(v.Kind())
}

func isSkippedKind(k reflect.Kind) bool {
	return k == reflect.Func || k == reflect.Chan || k == reflect.UnsafePointer
}

func skippedAny(v any) bool {
	return v != nil && skipped(reflect.ValueOf(v))
}

func (e *Encoder) writeList(lst []any) error {
	n := 0
	for i := range lst {
		if !skippedAny(lst[i]) {
			n++
		}
	}
	if err := e.WriteStartArray(n); err != nil {
		return err
	}
	for i := range lst {
		if skippedAny(lst[i]) {
			continue
		}
		if err := e.Encode(lst[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeObject(o Object) error {
	n := 0
	for i := range o {
		if !skippedAny(o[i].Value) {
			n++
		}
	}
	if err := e.WriteStartObject(n); err != nil {
		return err
	}
	for i := range o {
		if skippedAny(o[i].Value) {
			continue
		}
		if err := e.WriteFieldName(o[i].Name); err != nil {
			return err
		}
		if err := e.Encode(o[i].Value); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeNumber(n json.Number) error {
	if i, err := n.Int64(); err == nil {
		return e.WriteInt(i)
	}
	if b, ok := new(big.Int).SetString(string(n), 10); ok {
		return e.WriteBigInt(b)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("bbor: invalid number %q", string(n))
	}
	return e.WriteFloat(f)
}

type structField struct {
	index     int
	name      string
	omitempty bool
}

// structFields returns the encodable fields of
// struct type t, shared by the encoder and Decode.
func structFields(t reflect.Type) []structField {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]structField)
	}
	var out []structField
	fields := reflect.VisibleFields(t)
	for i := range fields {
		if !fields[i].IsExported() || len(fields[i].Index) != 1 {
			continue // unexported or promoted embedded struct field
		}
		name := fields[i].Name
		omitempty := false
		if val, ok := fields[i].Tag.Lookup("bbor"); ok {
			tagged, rest, _ := strings.Cut(val, ",")
			if tagged != "" {
				name = tagged
			}
			omitempty = rest == "omitempty"
		}
		if name == "-" {
			continue // explicitly ignored
		}
		out = append(out, structField{
			index:     fields[i].Index[0],
			name:      name,
			omitempty: omitempty,
		})
	}
	f, _ := fieldCache.LoadOrStore(t, out)
	return f.([]structField)
}

func compileEncoder(t reflect.Type) (encodefn, bool) {
	// in order to break dependency chains for (mutually-)recursive types,
	// force any concurrent lookups to delay compilation until eval time
	slow := func(e *Encoder, v reflect.Value) error {
		fn, ok := encoderFunc(v.Type())
		if !ok {
			return fmt.Errorf("%w %s", ErrUnsupported, v.Type())
		}
		return fn(e, v)
	}
	f, ok := structEncoders.LoadOrStore(t, encodefn(nil))
	if ok {
		fn := f.(encodefn)
		if fn != nil {
			return fn, true
		}
		return slow, true
	}
	type fieldEnc struct {
		structField
		fn encodefn
	}
	var encs []fieldEnc
	for _, sf := range structFields(t) {
		ft := t.Field(sf.index).Type
		if isSkippedKind(ft.Kind()) {
			continue
		}
		efn, ok := encoderFunc(ft)
		if !ok {
			efn = unsupported(t, sf.name, ft)
		}
		encs = append(encs, fieldEnc{structField: sf, fn: efn})
	}
	present := func(src reflect.Value, enc *fieldEnc) bool {
		val := src.Field(enc.index)
		return !(enc.omitempty && val.IsZero()) && !skipped(val)
	}
	self := func(e *Encoder, src reflect.Value) error {
		n := 0
		for i := range encs {
			if present(src, &encs[i]) {
				n++
			}
		}
		if err := e.WriteStartObject(n); err != nil {
			return err
		}
		for i := range encs {
			if !present(src, &encs[i]) {
				continue
			}
			if err := e.WriteFieldName(encs[i].name); err != nil {
				return err
			}
			if err := encs[i].fn(e, src.Field(encs[i].index)); err != nil {
				return err
			}
		}
		return nil
	}
	structEncoders.Store(t, encodefn(self))
	return self, true
}

// unsupported fails when the field is written,
// so an omitted zero value is still accepted.
func unsupported(st reflect.Type, name string, ft reflect.Type) encodefn {
	return func(*Encoder, reflect.Value) error {
		return fmt.Errorf("%w %s in field %s of %s", ErrUnsupported, ft, name, st)
	}
}

func encodeList(e *Encoder, inner encodefn, src reflect.Value) error {
	l := src.Len()
	dynamic := src.Type().Elem().Kind() == reflect.Interface
	n := l
	if dynamic {
		n = 0
		for i := 0; i < l; i++ {
			if !skipped(src.Index(i)) {
				n++
			}
		}
	}
	if err := e.WriteStartArray(n); err != nil {
		return err
	}
	for i := 0; i < l; i++ {
		el := src.Index(i)
		if dynamic && skipped(el) {
			continue
		}
		if err := inner(e, el); err != nil {
			return err
		}
	}
	return nil
}

func encodeMap(e *Encoder, inner encodefn, src reflect.Value) error {
	keys := src.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) bool {
		return a.String() < b.String()
	})
	dynamic := src.Type().Elem().Kind() == reflect.Interface
	n := len(keys)
	if dynamic {
		n = 0
		for i := range keys {
			if !skipped(src.MapIndex(keys[i])) {
				n++
			}
		}
	}
	if err := e.WriteStartObject(n); err != nil {
		return err
	}
	for i := range keys {
		val := src.MapIndex(keys[i])
		if dynamic && skipped(val) {
			continue
		}
		if err := e.WriteFieldName(keys[i].String()); err != nil {
			return err
		}
		if err := inner(e, val); err != nil {
			return err
		}
	}
	return nil
}

func encoderFunc(t reflect.Type) (encodefn, bool) {
	switch t {
	case bigIntType:
		return func(e *Encoder, src reflect.Value) error {
			b := src.Interface().(big.Int)
			return e.WriteBigInt(&b)
		}, true
	case objectType:
		return func(e *Encoder, src reflect.Value) error {
			return e.writeObject(src.Interface().(Object))
		}, true
	case undefinedType:
		return func(e *Encoder, src reflect.Value) error {
			return e.WriteUndefined()
		}, true
	case jsonNumberType:
		return func(e *Encoder, src reflect.Value) error {
			return e.writeNumber(src.Interface().(json.Number))
		}, true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(e *Encoder, src reflect.Value) error {
			return e.WriteInt(src.Int())
		}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(e *Encoder, src reflect.Value) error {
			return e.WriteUint(src.Uint())
		}, true
	case reflect.Float32, reflect.Float64:
		return func(e *Encoder, src reflect.Value) error {
			return e.WriteFloat(src.Float())
		}, true
	case reflect.Bool:
		return func(e *Encoder, src reflect.Value) error {
			return e.WriteBool(src.Bool())
		}, true
	case reflect.String:
		return func(e *Encoder, src reflect.Value) error {
			return e.WriteString(src.String())
		}, true
	case reflect.Slice, reflect.Array:
		elem := t.Elem()
		if elem.Kind() == reflect.Uint8 {
			// encode []byte and [N]byte
			return func(e *Encoder, src reflect.Value) error {
				if src.Kind() == reflect.Slice {
					if src.IsNil() {
						return e.WriteNull()
					}
					return e.WriteBytes(src.Bytes())
				}
				p := make([]byte, src.Len())
				for i := range p {
					p[i] = byte(src.Index(i).Uint())
				}
				return e.WriteBytes(p)
			}, true
		}
		if isSkippedKind(elem.Kind()) {
			// every element is skipped
			return func(e *Encoder, src reflect.Value) error {
				if src.Kind() == reflect.Slice && src.IsNil() {
					return e.WriteNull()
				}
				return e.WriteStartArray(0)
			}, true
		}
		inner, ok := encoderFunc(elem)
		if !ok {
			return nil, false
		}
		return func(e *Encoder, src reflect.Value) error {
			if src.Kind() == reflect.Slice && src.IsNil() {
				return e.WriteNull()
			}
			return encodeList(e, inner, src)
		}, true
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, false
		}
		inner, ok := encoderFunc(t.Elem())
		if !ok {
			return nil, false
		}
		return func(e *Encoder, src reflect.Value) error {
			if src.IsNil() {
				return e.WriteNull()
			}
			return encodeMap(e, inner, src)
		}, true
	case reflect.Struct:
		return compileEncoder(t)
	case reflect.Pointer:
		body, ok := encoderFunc(t.Elem())
		if !ok {
			return nil, false
		}
		return func(e *Encoder, src reflect.Value) error {
			if src.IsNil() {
				return e.WriteNull()
			}
			return body(e, src.Elem())
		}, true
	case reflect.Interface:
		return func(e *Encoder, src reflect.Value) error {
			if src.IsNil() {
				return e.WriteNull()
			}
			return e.encodeValue(src.Elem())
		}, true
	default:
		return nil, false
	}
}
