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

// Token is a parse event produced by Decoder.ReadNext.
type Token uint8

const (
	StartObject Token = iota
	EndObject
	StartArray
	EndArray
	FieldName
	ValueString
	ValueNumberInt
	ValueNumberFloat
	ValueTrue
	ValueFalse
	ValueNull
)

func (t Token) String() string {
	switch t {
	case StartObject:
		return "start-object"
	case EndObject:
		return "end-object"
	case StartArray:
		return "start-array"
	case EndArray:
		return "end-array"
	case FieldName:
		return "field-name"
	case ValueString:
		return "string"
	case ValueNumberInt:
		return "int"
	case ValueNumberFloat:
		return "float"
	case ValueTrue:
		return "true"
	case ValueFalse:
		return "false"
	case ValueNull:
		return "null"
	default:
		return "invalid"
	}
}

// Primitive is the wire representation
// that produced the current value token.
type Primitive uint8

const (
	// NoPrimitive is reported for structural
	// tokens and field names.
	NoPrimitive Primitive = iota
	PositiveInteger
	NegativeInteger
	ByteString
	TextString
	PositiveBignum
	NegativeBignum
	Boolean
	Null
	Undef
	Byte
	Float16 // never produced; half floats are rejected
	Float32
	Float64
)

func (p Primitive) String() string {
	switch p {
	case NoPrimitive:
		return "none"
	case PositiveInteger:
		return "positive-integer"
	case NegativeInteger:
		return "negative-integer"
	case ByteString:
		return "byte-string"
	case TextString:
		return "text-string"
	case PositiveBignum:
		return "positive-bignum"
	case NegativeBignum:
		return "negative-bignum"
	case Boolean:
		return "boolean"
	case Null:
		return "null"
	case Undef:
		return "undefined"
	case Byte:
		return "byte"
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "invalid"
	}
}
