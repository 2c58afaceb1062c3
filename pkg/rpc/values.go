/*
Copyright 2023 The Nuclio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rpc

import (
	"math"
	"strings"

	"github.com/nuclio/errors"
)

// ValueType is the one character type code used in parameter and return specs
type ValueType byte

const (
	ValueTypeInt8   ValueType = 'b'
	ValueTypeInt16  ValueType = 'h'
	ValueTypeInt32  ValueType = 'i'
	ValueTypeInt64  ValueType = 'l'
	ValueTypeString ValueType = 's'
	ValueTypeData   ValueType = 'x'
)

// values decoded off the wire carry a uint64, narrower types must fit their width
var maxIntValues = map[ValueType]uint64{
	ValueTypeInt8:  math.MaxUint8,
	ValueTypeInt16: math.MaxUint16,
	ValueTypeInt32: math.MaxUint32,
}

// Value is a single typed argument or return value
type Value struct {
	Type  ValueType `msgpack:"t"`
	Int   uint64    `msgpack:"i,omitempty"`
	Bytes []byte    `msgpack:"b,omitempty"`
}

// Values is an ordered list of typed values
type Values []Value

func (v *Values) AddInt8(value uint8) {
	*v = append(*v, Value{Type: ValueTypeInt8, Int: uint64(value)})
}

func (v *Values) AddInt16(value uint16) {
	*v = append(*v, Value{Type: ValueTypeInt16, Int: uint64(value)})
}

func (v *Values) AddInt32(value uint32) {
	*v = append(*v, Value{Type: ValueTypeInt32, Int: uint64(value)})
}

func (v *Values) AddInt64(value uint64) {
	*v = append(*v, Value{Type: ValueTypeInt64, Int: value})
}

func (v *Values) AddString(value string) {
	*v = append(*v, Value{Type: ValueTypeString, Bytes: []byte(value)})
}

// AddData appends a byte blob. The slice is referenced, not copied
func (v *Values) AddData(value []byte) {
	*v = append(*v, Value{Type: ValueTypeData, Bytes: value})
}

// TypeString returns the type codes of all values, e.g. "bix"
func (v Values) TypeString() string {
	var builder strings.Builder

	for _, value := range v {
		builder.WriteByte(byte(value.Type))
	}

	return builder.String()
}

func (v Values) GetInt8(index int) (uint8, error) {
	value, err := v.get(index, ValueTypeInt8)
	if err != nil {
		return 0, err
	}

	return uint8(value.Int), nil
}

func (v Values) GetInt16(index int) (uint16, error) {
	value, err := v.get(index, ValueTypeInt16)
	if err != nil {
		return 0, err
	}

	return uint16(value.Int), nil
}

func (v Values) GetInt32(index int) (uint32, error) {
	value, err := v.get(index, ValueTypeInt32)
	if err != nil {
		return 0, err
	}

	return uint32(value.Int), nil
}

func (v Values) GetInt64(index int) (uint64, error) {
	value, err := v.get(index, ValueTypeInt64)
	if err != nil {
		return 0, err
	}

	return value.Int, nil
}

func (v Values) GetString(index int) (string, error) {
	value, err := v.get(index, ValueTypeString)
	if err != nil {
		return "", err
	}

	return string(value.Bytes), nil
}

func (v Values) GetData(index int) ([]byte, error) {
	value, err := v.get(index, ValueTypeData)
	if err != nil {
		return nil, err
	}

	return value.Bytes, nil
}

func (v Values) get(index int, valueType ValueType) (*Value, error) {
	if index < 0 || index >= len(v) {
		return nil, errors.Wrapf(ErrValueIndex, "Index %d out of %d values", index, len(v))
	}

	if v[index].Type != valueType {
		return nil, errors.Wrapf(ErrValueType,
			"Value %d is of type '%c', expected '%c'",
			index,
			v[index].Type,
			valueType)
	}

	if maxValue, bounded := maxIntValues[valueType]; bounded && v[index].Int > maxValue {
		return nil, errors.Wrapf(ErrValueType,
			"Value %d of type '%c' out of range: %d",
			index,
			valueType,
			v[index].Int)
	}

	return &v[index], nil
}
