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
	"google.golang.org/protobuf/encoding/protowire"
)

type DocsumRequest struct {
	Timeout          int32
	SessionKey       string
	DocumentType     string
	SummaryClass     string
	CacheQuery       bool
	DumpFeatures     bool
	RankProfile      string
	FeatureOverrides []*StringProperty
	RankProperties   []*StringProperty
	GeoLocation      string
	QueryTreeBlob    []byte
	GlobalIDs        [][]byte
	TraceLevel       int32
}

func (dr *DocsumRequest) Marshal() []byte {
	var buffer []byte

	buffer = appendInt32(buffer, 1, dr.Timeout)
	buffer = appendString(buffer, 2, dr.SessionKey)
	buffer = appendString(buffer, 3, dr.DocumentType)
	buffer = appendString(buffer, 4, dr.SummaryClass)
	buffer = appendBool(buffer, 5, dr.CacheQuery)
	buffer = appendBool(buffer, 6, dr.DumpFeatures)
	buffer = appendString(buffer, 7, dr.RankProfile)
	for _, property := range dr.FeatureOverrides {
		buffer = appendMessage(buffer, 8, property)
	}
	for _, property := range dr.RankProperties {
		buffer = appendMessage(buffer, 10, property)
	}
	buffer = appendString(buffer, 12, dr.GeoLocation)
	buffer = appendBytes(buffer, 13, dr.QueryTreeBlob)
	for _, globalID := range dr.GlobalIDs {
		buffer = appendRepeatedBytes(buffer, 14, globalID)
	}
	buffer = appendInt32(buffer, 15, dr.TraceLevel)

	return buffer
}

func (dr *DocsumRequest) Unmarshal(data []byte) error {
	*dr = DocsumRequest{}

	return consumeFields(data, func(number protowire.Number, wireType protowire.Type, data []byte) (int, error) {
		var err error
		var length int

		switch number {
		case 1:
			return consumeInt32(wireType, data, &dr.Timeout)
		case 2:
			return consumeString(wireType, data, &dr.SessionKey)
		case 3:
			return consumeString(wireType, data, &dr.DocumentType)
		case 4:
			return consumeString(wireType, data, &dr.SummaryClass)
		case 5:
			return consumeBool(wireType, data, &dr.CacheQuery)
		case 6:
			return consumeBool(wireType, data, &dr.DumpFeatures)
		case 7:
			return consumeString(wireType, data, &dr.RankProfile)
		case 8:
			property := &StringProperty{}
			length, err = consumeMessage(wireType, data, property)
			dr.FeatureOverrides = append(dr.FeatureOverrides, property)
		case 10:
			property := &StringProperty{}
			length, err = consumeMessage(wireType, data, property)
			dr.RankProperties = append(dr.RankProperties, property)
		case 12:
			return consumeString(wireType, data, &dr.GeoLocation)
		case 13:
			dr.QueryTreeBlob, length, err = consumeBytes(wireType, data)
		case 14:
			var globalID []byte
			globalID, length, err = consumeBytes(wireType, data)
			dr.GlobalIDs = append(dr.GlobalIDs, globalID)
		case 15:
			return consumeInt32(wireType, data, &dr.TraceLevel)
		}

		return length, err
	})
}

type DocsumReply struct {
	SlimeSummaries []byte
	Errors         []*Error
	SlimeTrace     []byte
}

func (dr *DocsumReply) Marshal() []byte {
	var buffer []byte

	buffer = appendBytes(buffer, 1, dr.SlimeSummaries)
	for _, replyError := range dr.Errors {
		buffer = appendMessage(buffer, 2, replyError)
	}
	buffer = appendBytes(buffer, 3, dr.SlimeTrace)

	return buffer
}

func (dr *DocsumReply) Unmarshal(data []byte) error {
	*dr = DocsumReply{}

	return consumeFields(data, func(number protowire.Number, wireType protowire.Type, data []byte) (int, error) {
		var err error
		var length int

		switch number {
		case 1:
			dr.SlimeSummaries, length, err = consumeBytes(wireType, data)
		case 2:
			replyError := &Error{}
			length, err = consumeMessage(wireType, data, replyError)
			dr.Errors = append(dr.Errors, replyError)
		case 3:
			dr.SlimeTrace, length, err = consumeBytes(wireType, data)
		}

		return length, err
	})
}
