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

package envelope

import (
	"github.com/nuclio/searchnode/pkg/rpc"
	"github.com/nuclio/searchnode/pkg/searchprotocol/compression"

	"github.com/nuclio/errors"
)

// TypeString is the spec of every request parameter list and reply return list:
// codec tag, uncompressed size, payload
const TypeString = "bix"

var ErrMalformedEnvelope = errors.New("Malformed envelope")

// Envelope is the three value wire frame wrapping a serialized message
type Envelope struct {
	Type             compression.Type
	UncompressedSize uint32
	Payload          []byte
}

// Encode compresses a serialized message according to config and appends the
// resulting envelope to destination. Returns the codec that was applied
func Encode(config compression.Config, message []byte, destination *rpc.Values) compression.Type {
	compressionType, payload := compression.Compress(config, message)

	Envelope{
		Type:             compressionType,
		UncompressedSize: uint32(len(message)),
		Payload:          payload,
	}.AppendTo(destination)

	return compressionType
}

// Decode validates the shape of values and returns the decompressed message
func Decode(values rpc.Values) ([]byte, error) {
	decodedEnvelope, err := FromValues(values)
	if err != nil {
		return nil, err
	}

	message, err := compression.Decompress(decodedEnvelope.Type,
		decodedEnvelope.UncompressedSize,
		decodedEnvelope.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to decompress envelope payload")
	}

	return message, nil
}

// FromValues extracts an envelope without decompressing it
func FromValues(values rpc.Values) (Envelope, error) {
	if typeString := values.TypeString(); typeString != TypeString {
		return Envelope{}, errors.Wrapf(ErrMalformedEnvelope,
			"Expected values of type %s, got %s",
			TypeString,
			typeString)
	}

	compressionType, err := values.GetInt8(0)
	if err != nil {
		return Envelope{}, errors.Wrap(ErrMalformedEnvelope, err.Error())
	}

	uncompressedSize, err := values.GetInt32(1)
	if err != nil {
		return Envelope{}, errors.Wrap(ErrMalformedEnvelope, err.Error())
	}

	payload, err := values.GetData(2)
	if err != nil {
		return Envelope{}, errors.Wrap(ErrMalformedEnvelope, err.Error())
	}

	return Envelope{
		Type:             compression.Type(compressionType),
		UncompressedSize: uncompressedSize,
		Payload:          payload,
	}, nil
}

// AppendTo adds the three envelope values to destination, in wire order
func (e Envelope) AppendTo(destination *rpc.Values) {
	destination.AddInt8(uint8(e.Type))
	destination.AddInt32(e.UncompressedSize)
	destination.AddData(e.Payload)
}
