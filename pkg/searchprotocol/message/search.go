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

type SortField struct {
	Ascending bool
	Field     string
}

func (sf *SortField) Marshal() []byte {
	var buffer []byte

	buffer = appendBool(buffer, 1, sf.Ascending)
	buffer = appendString(buffer, 2, sf.Field)

	return buffer
}

func (sf *SortField) Unmarshal(data []byte) error {
	*sf = SortField{}

	return consumeFields(data, func(number protowire.Number, wireType protowire.Type, data []byte) (int, error) {
		switch number {
		case 1:
			return consumeBool(wireType, data, &sf.Ascending)
		case 2:
			return consumeString(wireType, data, &sf.Field)
		}

		return 0, nil
	})
}

// StringProperty is a named multi-value property, e.g. a rank property
type StringProperty struct {
	Name   string
	Values []string
}

func (sp *StringProperty) Marshal() []byte {
	var buffer []byte

	buffer = appendString(buffer, 1, sp.Name)
	for _, value := range sp.Values {
		buffer = appendRepeatedBytes(buffer, 2, []byte(value))
	}

	return buffer
}

func (sp *StringProperty) Unmarshal(data []byte) error {
	*sp = StringProperty{}

	return consumeFields(data, func(number protowire.Number, wireType protowire.Type, data []byte) (int, error) {
		switch number {
		case 1:
			return consumeString(wireType, data, &sp.Name)
		case 2:
			var value string
			length, err := consumeString(wireType, data, &value)
			sp.Values = append(sp.Values, value)
			return length, err
		}

		return 0, nil
	})
}

type SearchRequest struct {
	Offset           int32
	Hits             int32
	Timeout          int32
	TraceLevel       int32
	Sorting          []*SortField
	SessionKey       string
	DocumentType     string
	CacheGrouping    bool
	CacheQuery       bool
	RankProfile      string
	FeatureOverrides []*StringProperty
	RankProperties   []*StringProperty
	GroupingBlob     []byte
	GeoLocation      string
	QueryTreeBlob    []byte
}

func (sr *SearchRequest) Marshal() []byte {
	var buffer []byte

	buffer = appendInt32(buffer, 1, sr.Offset)
	buffer = appendInt32(buffer, 2, sr.Hits)
	buffer = appendInt32(buffer, 3, sr.Timeout)
	buffer = appendInt32(buffer, 4, sr.TraceLevel)
	for _, sortField := range sr.Sorting {
		buffer = appendMessage(buffer, 5, sortField)
	}
	buffer = appendString(buffer, 6, sr.SessionKey)
	buffer = appendString(buffer, 7, sr.DocumentType)
	buffer = appendBool(buffer, 8, sr.CacheGrouping)
	buffer = appendBool(buffer, 9, sr.CacheQuery)
	buffer = appendString(buffer, 10, sr.RankProfile)
	for _, property := range sr.FeatureOverrides {
		buffer = appendMessage(buffer, 11, property)
	}
	for _, property := range sr.RankProperties {
		buffer = appendMessage(buffer, 13, property)
	}
	buffer = appendBytes(buffer, 15, sr.GroupingBlob)
	buffer = appendString(buffer, 16, sr.GeoLocation)
	buffer = appendBytes(buffer, 17, sr.QueryTreeBlob)

	return buffer
}

func (sr *SearchRequest) Unmarshal(data []byte) error {
	*sr = SearchRequest{}

	return consumeFields(data, func(number protowire.Number, wireType protowire.Type, data []byte) (int, error) {
		var err error
		var length int

		switch number {
		case 1:
			return consumeInt32(wireType, data, &sr.Offset)
		case 2:
			return consumeInt32(wireType, data, &sr.Hits)
		case 3:
			return consumeInt32(wireType, data, &sr.Timeout)
		case 4:
			return consumeInt32(wireType, data, &sr.TraceLevel)
		case 5:
			sortField := &SortField{}
			length, err = consumeMessage(wireType, data, sortField)
			sr.Sorting = append(sr.Sorting, sortField)
		case 6:
			return consumeString(wireType, data, &sr.SessionKey)
		case 7:
			return consumeString(wireType, data, &sr.DocumentType)
		case 8:
			return consumeBool(wireType, data, &sr.CacheGrouping)
		case 9:
			return consumeBool(wireType, data, &sr.CacheQuery)
		case 10:
			return consumeString(wireType, data, &sr.RankProfile)
		case 11:
			property := &StringProperty{}
			length, err = consumeMessage(wireType, data, property)
			sr.FeatureOverrides = append(sr.FeatureOverrides, property)
		case 13:
			property := &StringProperty{}
			length, err = consumeMessage(wireType, data, property)
			sr.RankProperties = append(sr.RankProperties, property)
		case 15:
			sr.GroupingBlob, length, err = consumeBytes(wireType, data)
		case 16:
			return consumeString(wireType, data, &sr.GeoLocation)
		case 17:
			sr.QueryTreeBlob, length, err = consumeBytes(wireType, data)
		}

		return length, err
	})
}

type Hit struct {
	GlobalID  []byte
	Relevance float64
	SortData  []byte
}

func (h *Hit) Marshal() []byte {
	var buffer []byte

	buffer = appendBytes(buffer, 1, h.GlobalID)
	buffer = appendDouble(buffer, 2, h.Relevance)
	buffer = appendBytes(buffer, 3, h.SortData)

	return buffer
}

func (h *Hit) Unmarshal(data []byte) error {
	*h = Hit{}

	return consumeFields(data, func(number protowire.Number, wireType protowire.Type, data []byte) (int, error) {
		var err error
		var length int

		switch number {
		case 1:
			h.GlobalID, length, err = consumeBytes(wireType, data)
		case 2:
			return consumeDouble(wireType, data, &h.Relevance)
		case 3:
			h.SortData, length, err = consumeBytes(wireType, data)
		}

		return length, err
	})
}

type Error struct {
	Message string
}

func (e *Error) Marshal() []byte {
	return appendString(nil, 1, e.Message)
}

func (e *Error) Unmarshal(data []byte) error {
	*e = Error{}

	return consumeFields(data, func(number protowire.Number, wireType protowire.Type, data []byte) (int, error) {
		if number == 1 {
			return consumeString(wireType, data, &e.Message)
		}

		return 0, nil
	})
}

type SearchReply struct {
	TotalHitCount         int64
	CoverageDocs          int64
	ActiveDocs            int64
	SoonActiveDocs        int64
	DegradedByMatchPhase  bool
	DegradedBySoftTimeout bool
	Hits                  []*Hit
	GroupingBlob          []byte
	Errors                []*Error
	SlimeTrace            []byte
}

func (sr *SearchReply) Marshal() []byte {
	var buffer []byte

	buffer = appendInt64(buffer, 1, sr.TotalHitCount)
	buffer = appendInt64(buffer, 2, sr.CoverageDocs)
	buffer = appendInt64(buffer, 3, sr.ActiveDocs)
	buffer = appendInt64(buffer, 4, sr.SoonActiveDocs)
	buffer = appendBool(buffer, 5, sr.DegradedByMatchPhase)
	buffer = appendBool(buffer, 6, sr.DegradedBySoftTimeout)
	for _, hit := range sr.Hits {
		buffer = appendMessage(buffer, 7, hit)
	}
	buffer = appendBytes(buffer, 8, sr.GroupingBlob)
	for _, replyError := range sr.Errors {
		buffer = appendMessage(buffer, 9, replyError)
	}
	buffer = appendBytes(buffer, 10, sr.SlimeTrace)

	return buffer
}

func (sr *SearchReply) Unmarshal(data []byte) error {
	*sr = SearchReply{}

	return consumeFields(data, func(number protowire.Number, wireType protowire.Type, data []byte) (int, error) {
		var err error
		var length int

		switch number {
		case 1:
			return consumeInt64(wireType, data, &sr.TotalHitCount)
		case 2:
			return consumeInt64(wireType, data, &sr.CoverageDocs)
		case 3:
			return consumeInt64(wireType, data, &sr.ActiveDocs)
		case 4:
			return consumeInt64(wireType, data, &sr.SoonActiveDocs)
		case 5:
			return consumeBool(wireType, data, &sr.DegradedByMatchPhase)
		case 6:
			return consumeBool(wireType, data, &sr.DegradedBySoftTimeout)
		case 7:
			hit := &Hit{}
			length, err = consumeMessage(wireType, data, hit)
			sr.Hits = append(sr.Hits, hit)
		case 8:
			sr.GroupingBlob, length, err = consumeBytes(wireType, data)
		case 9:
			replyError := &Error{}
			length, err = consumeMessage(wireType, data, replyError)
			sr.Errors = append(sr.Errors, replyError)
		case 10:
			sr.SlimeTrace, length, err = consumeBytes(wireType, data)
		}

		return length, err
	})
}
