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

package message

import (
	"math"

	"github.com/nuclio/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

var ErrParse = errors.New("Failed to parse message")

// Message is a structured message that can be carried in an envelope
type Message interface {

	// Marshal serializes the message in protobuf wire format
	Marshal() []byte

	// Unmarshal replaces the contents of the message with the parsed data
	Unmarshal(data []byte) error
}

// fieldHandler consumes the value of a known field and returns the number of bytes
// it read. Returning zero marks the field as unknown and it is skipped
type fieldHandler func(number protowire.Number, wireType protowire.Type, data []byte) (int, error)

func consumeFields(data []byte, handler fieldHandler) error {
	for len(data) > 0 {
		number, wireType, tagLength := protowire.ConsumeTag(data)
		if tagLength < 0 {
			return errors.Wrap(ErrParse, protowire.ParseError(tagLength).Error())
		}

		data = data[tagLength:]

		consumed, err := handler(number, wireType, data)
		if err != nil {
			return errors.Wrapf(err, "Field %d", number)
		}

		if consumed == 0 {
			consumed = protowire.ConsumeFieldValue(number, wireType, data)
			if consumed < 0 {
				return errors.Wrap(ErrParse, protowire.ParseError(consumed).Error())
			}
		}

		data = data[consumed:]
	}

	return nil
}

func expectWireType(actual protowire.Type, expected protowire.Type) error {
	if actual != expected {
		return errors.Wrapf(ErrParse, "Unexpected wire type %d, expected %d", actual, expected)
	}

	return nil
}

func consumeVarint(wireType protowire.Type, data []byte) (uint64, int, error) {
	if err := expectWireType(wireType, protowire.VarintType); err != nil {
		return 0, 0, err
	}

	value, length := protowire.ConsumeVarint(data)
	if length < 0 {
		return 0, 0, errors.Wrap(ErrParse, protowire.ParseError(length).Error())
	}

	return value, length, nil
}

func consumeInt32(wireType protowire.Type, data []byte, destination *int32) (int, error) {
	value, length, err := consumeVarint(wireType, data)
	*destination = int32(value)

	return length, err
}

func consumeInt64(wireType protowire.Type, data []byte, destination *int64) (int, error) {
	value, length, err := consumeVarint(wireType, data)
	*destination = int64(value)

	return length, err
}

func consumeBool(wireType protowire.Type, data []byte, destination *bool) (int, error) {
	value, length, err := consumeVarint(wireType, data)
	*destination = protowire.DecodeBool(value)

	return length, err
}

func consumeDouble(wireType protowire.Type, data []byte, destination *float64) (int, error) {
	if err := expectWireType(wireType, protowire.Fixed64Type); err != nil {
		return 0, err
	}

	value, length := protowire.ConsumeFixed64(data)
	if length < 0 {
		return 0, errors.Wrap(ErrParse, protowire.ParseError(length).Error())
	}

	*destination = math.Float64frombits(value)

	return length, nil
}

// consumeBytes returns a copy of a length delimited field so that parsed messages
// never alias the transport buffer
func consumeBytes(wireType protowire.Type, data []byte) ([]byte, int, error) {
	if err := expectWireType(wireType, protowire.BytesType); err != nil {
		return nil, 0, err
	}

	value, length := protowire.ConsumeBytes(data)
	if length < 0 {
		return nil, 0, errors.Wrap(ErrParse, protowire.ParseError(length).Error())
	}

	return append([]byte{}, value...), length, nil
}

func consumeString(wireType protowire.Type, data []byte, destination *string) (int, error) {
	value, length, err := consumeBytes(wireType, data)
	*destination = string(value)

	return length, err
}

func consumeMessage(wireType protowire.Type, data []byte, destination Message) (int, error) {
	value, length, err := consumeBytes(wireType, data)
	if err != nil {
		return 0, err
	}

	return length, destination.Unmarshal(value)
}

// proto3 semantics: default values are not written

func appendInt32(buffer []byte, number protowire.Number, value int32) []byte {
	return appendInt64(buffer, number, int64(value))
}

func appendInt64(buffer []byte, number protowire.Number, value int64) []byte {
	if value == 0 {
		return buffer
	}

	buffer = protowire.AppendTag(buffer, number, protowire.VarintType)
	return protowire.AppendVarint(buffer, uint64(value))
}

func appendBool(buffer []byte, number protowire.Number, value bool) []byte {
	if !value {
		return buffer
	}

	buffer = protowire.AppendTag(buffer, number, protowire.VarintType)
	return protowire.AppendVarint(buffer, protowire.EncodeBool(value))
}

func appendDouble(buffer []byte, number protowire.Number, value float64) []byte {
	if value == 0 && !math.Signbit(value) {
		return buffer
	}

	buffer = protowire.AppendTag(buffer, number, protowire.Fixed64Type)
	return protowire.AppendFixed64(buffer, math.Float64bits(value))
}

func appendBytes(buffer []byte, number protowire.Number, value []byte) []byte {
	if len(value) == 0 {
		return buffer
	}

	return appendRepeatedBytes(buffer, number, value)
}

// appendRepeatedBytes always writes the field, since an empty element of a repeated field is meaningful
func appendRepeatedBytes(buffer []byte, number protowire.Number, value []byte) []byte {
	buffer = protowire.AppendTag(buffer, number, protowire.BytesType)
	return protowire.AppendBytes(buffer, value)
}

func appendString(buffer []byte, number protowire.Number, value string) []byte {
	if value == "" {
		return buffer
	}

	buffer = protowire.AppendTag(buffer, number, protowire.BytesType)
	return protowire.AppendString(buffer, value)
}

func appendMessage(buffer []byte, number protowire.Number, value Message) []byte {
	return appendRepeatedBytes(buffer, number, value.Marshal())
}
