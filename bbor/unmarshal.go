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
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
)

var errNilValue = errors.New("bbor: Decode requires a non-nil pointer")

// Decode reads one complete value and stores it in
// the value pointed to by dst, following the rules
// of encoding/json: pointers are allocated as needed,
// numbers are converted when they fit the destination,
// objects fill maps with string keys and structs
// (matching the names Encode uses), and an empty
// interface receives the value Read would return.
// Object keys without a matching struct field are ignored.
func (d *Decoder) Decode(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errNilValue
	}
	v, err := d.Read()
	if err != nil {
		return err
	}
	return store(rv.Elem(), v)
}

func typeErr(v any, t reflect.Type) error {
	return fmt.Errorf("%w %s: %T", ErrType, t, v)
}

// store assigns v, a value produced by Read, to rv.
func store(rv reflect.Value, v any) error {
	if v == nil || v == Undefined {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	rt := rv.Type()
	switch rt {
	case bigIntType:
		b, ok := toBig(v)
		if !ok {
			return typeErr(v, rt)
		}
		rv.Set(reflect.ValueOf(*b))
		return nil
	case objectType:
		o, ok := v.(Object)
		if !ok {
			return typeErr(v, rt)
		}
		rv.Set(reflect.ValueOf(o))
		return nil
	case jsonNumberType:
		s, ok := numberString(v)
		if !ok {
			return typeErr(v, rt)
		}
		rv.SetString(s)
		return nil
	}
	switch rt.Kind() {
	case reflect.Interface:
		val := reflect.ValueOf(v)
		if !val.Type().AssignableTo(rt) {
			return typeErr(v, rt)
		}
		rv.Set(val)
		return nil
	case reflect.Pointer:
		elem := reflect.New(rt.Elem())
		if err := store(elem.Elem(), v); err != nil {
			return err
		}
		rv.Set(elem)
		return nil
	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return typeErr(v, rt)
		}
		rv.SetBool(b)
		return nil
	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return typeErr(v, rt)
		}
		rv.SetString(s)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := toInt(v)
		if !ok || rv.OverflowInt(i) {
			return typeErr(v, rt)
		}
		rv.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, ok := toUint(v)
		if !ok || rv.OverflowUint(u) {
			return typeErr(v, rt)
		}
		rv.SetUint(u)
		return nil
	case reflect.Float32, reflect.Float64:
		f, ok := toFloat(v)
		if !ok {
			return typeErr(v, rt)
		}
		rv.SetFloat(f)
		return nil
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			if p, ok := v.([]byte); ok {
				out := reflect.MakeSlice(rt, len(p), len(p))
				for i := range p {
					out.Index(i).SetUint(uint64(p[i]))
				}
				rv.Set(out)
				return nil
			}
		}
		lst, ok := v.([]any)
		if !ok {
			return typeErr(v, rt)
		}
		out := reflect.MakeSlice(rt, len(lst), len(lst))
		for i := range lst {
			if err := store(out.Index(i), lst[i]); err != nil {
				return err
			}
		}
		rv.Set(out)
		return nil
	case reflect.Array:
		return storeArray(rv, v)
	case reflect.Map:
		return storeMap(rv, v)
	case reflect.Struct:
		return storeStruct(rv, v)
	default:
		return fmt.Errorf("%w %s", ErrUnsupported, rt)
	}
}

func storeArray(rv reflect.Value, v any) error {
	rt := rv.Type()
	if p, ok := v.([]byte); ok && rt.Elem().Kind() == reflect.Uint8 {
		if len(p) != rv.Len() {
			return fmt.Errorf("%w %s: %d bytes", ErrType, rt, len(p))
		}
		for i := range p {
			rv.Index(i).SetUint(uint64(p[i]))
		}
		return nil
	}
	lst, ok := v.([]any)
	if !ok {
		return typeErr(v, rt)
	}
	if len(lst) != rv.Len() {
		return fmt.Errorf("%w %s: %d elements", ErrType, rt, len(lst))
	}
	for i := range lst {
		if err := store(rv.Index(i), lst[i]); err != nil {
			return err
		}
	}
	return nil
}

func storeMap(rv reflect.Value, v any) error {
	rt := rv.Type()
	obj, ok := v.(Object)
	if !ok || rt.Key().Kind() != reflect.String {
		return typeErr(v, rt)
	}
	out := reflect.MakeMapWithSize(rt, len(obj))
	for i := range obj {
		key := reflect.New(rt.Key()).Elem()
		key.SetString(obj[i].Name)
		elem := reflect.New(rt.Elem()).Elem()
		if err := store(elem, obj[i].Value); err != nil {
			return err
		}
		out.SetMapIndex(key, elem)
	}
	rv.Set(out)
	return nil
}

func storeStruct(rv reflect.Value, v any) error {
	rt := rv.Type()
	obj, ok := v.(Object)
	if !ok {
		return typeErr(v, rt)
	}
	// fields absent from the object are zeroed
	rv.Set(reflect.Zero(rt))
	fields := structFields(rt)
	for i := range obj {
		for j := range fields {
			if fields[j].name != obj[i].Name {
				continue
			}
			if err := store(rv.Field(fields[j].index), obj[i].Value); err != nil {
				return fmt.Errorf("field %q: %w", obj[i].Name, err)
			}
			break
		}
	}
	return nil
}

func toInt(v any) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case uint64:
		return 0, false
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return int64(v), true
		}
	}
	return 0, false
}

func toUint(v any) (uint64, bool) {
	switch v := v.(type) {
	case int64:
		return uint64(v), v >= 0
	case uint64:
		return v, true
	case float64:
		if v == math.Trunc(v) && v >= 0 && v < math.MaxUint64 {
			return uint64(v), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f, true
	}
	return 0, false
}

func toBig(v any) (*big.Int, bool) {
	switch v := v.(type) {
	case int64:
		return big.NewInt(v), true
	case uint64:
		return new(big.Int).SetUint64(v), true
	case *big.Int:
		return v, true
	}
	return nil, false
}

func numberString(v any) (string, bool) {
	switch v := v.(type) {
	case int64, uint64, *big.Int, float64:
		return fmt.Sprint(v), true
	}
	return "", false
}
