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

package converter

import (
	"strings"
	"time"

	"github.com/nuclio/searchnode/pkg/engine"
	"github.com/nuclio/searchnode/pkg/searchprotocol/message"
)

func SearchRequestFromMessage(searchRequest *message.SearchRequest, relativeTime *engine.RelativeTime) *engine.SearchRequest {
	relativeTime.SetTimeout(millisecondsToDuration(searchRequest.Timeout))

	return &engine.SearchRequest{
		Request: engine.Request{
			RelativeTime:  relativeTime,
			TraceLevel:    int(searchRequest.TraceLevel),
			SessionID:     []byte(searchRequest.SessionKey),
			DocumentType:  searchRequest.DocumentType,
			RankProfile:   searchRequest.RankProfile,
			Location:      searchRequest.GeoLocation,
			StackDump:     searchRequest.QueryTreeBlob,
			PropertiesMap: propertiesMapFromMessage(searchRequest.RankProperties, searchRequest.FeatureOverrides),
		},
		Offset:        nonNegative(searchRequest.Offset),
		MaxHits:       nonNegative(searchRequest.Hits),
		SortSpec:      sortSpecFromMessage(searchRequest.Sorting),
		GroupSpec:     searchRequest.GroupingBlob,
		CacheGrouping: searchRequest.CacheGrouping,
		CacheQuery:    searchRequest.CacheQuery,
	}
}

func SearchReplyToMessage(searchReply *engine.SearchReply) *message.SearchReply {
	searchReplyMessage := &message.SearchReply{
		TotalHitCount:         int64(searchReply.TotalHitCount),
		CoverageDocs:          int64(searchReply.Coverage.Covered),
		ActiveDocs:            int64(searchReply.Coverage.Active),
		SoonActiveDocs:        int64(searchReply.Coverage.SoonActive),
		DegradedByMatchPhase:  searchReply.Coverage.WasDegradedByMatchPhase(),
		DegradedBySoftTimeout: searchReply.Coverage.WasDegradedByTimeout(),
		GroupingBlob:          searchReply.GroupResult,
		SlimeTrace:            searchReply.Trace,
	}

	hasSortData := len(searchReply.SortIndex) == len(searchReply.Hits)+1

	for hitIndex, hit := range searchReply.Hits {
		globalID := hit.GlobalID
		hitMessage := &message.Hit{
			GlobalID:  globalID[:],
			Relevance: hit.Metric,
		}

		if hasSortData {
			start, end := searchReply.SortIndex[hitIndex], searchReply.SortIndex[hitIndex+1]
			if start <= end && int(end) <= len(searchReply.SortData) {
				hitMessage.SortData = searchReply.SortData[start:end]
			}
		}

		searchReplyMessage.Hits = append(searchReplyMessage.Hits, hitMessage)
	}

	if searchReply.HasError() {
		searchReplyMessage.Errors = append(searchReplyMessage.Errors, &message.Error{
			Message: searchReply.ErrorMessage,
		})
	}

	return searchReplyMessage
}

func DocsumRequestFromMessage(docsumRequest *message.DocsumRequest, relativeTime *engine.RelativeTime) *engine.DocsumRequest {
	relativeTime.SetTimeout(millisecondsToDuration(docsumRequest.Timeout))

	nativeRequest := &engine.DocsumRequest{
		Request: engine.Request{
			RelativeTime:  relativeTime,
			TraceLevel:    int(docsumRequest.TraceLevel),
			SessionID:     []byte(docsumRequest.SessionKey),
			DocumentType:  docsumRequest.DocumentType,
			RankProfile:   docsumRequest.RankProfile,
			Location:      docsumRequest.GeoLocation,
			StackDump:     docsumRequest.QueryTreeBlob,
			PropertiesMap: propertiesMapFromMessage(docsumRequest.RankProperties, docsumRequest.FeatureOverrides),
		},
		ResultClassName: docsumRequest.SummaryClass,
		DumpFeatures:    docsumRequest.DumpFeatures,
		CacheQuery:      docsumRequest.CacheQuery,
	}

	// ids of the wrong length cannot name a document
	for _, globalIDBytes := range docsumRequest.GlobalIDs {
		if len(globalIDBytes) != engine.GlobalIDLength {
			continue
		}

		docsumHit := engine.DocsumHit{}
		copy(docsumHit.GlobalID[:], globalIDBytes)
		nativeRequest.Hits = append(nativeRequest.Hits, docsumHit)
	}

	return nativeRequest
}

func DocsumReplyToMessage(docsumReply *engine.DocsumReply) *message.DocsumReply {
	docsumReplyMessage := &message.DocsumReply{
		SlimeSummaries: docsumReply.Summaries,
		SlimeTrace:     docsumReply.Trace,
	}

	for _, issue := range docsumReply.Issues {
		docsumReplyMessage.Errors = append(docsumReplyMessage.Errors, &message.Error{
			Message: issue,
		})
	}

	return docsumReplyMessage
}

func MonitorRequestFromMessage(*message.MonitorRequest) *engine.MonitorRequest {
	return &engine.MonitorRequest{
		ReportActiveDocs: true,
	}
}

func MonitorReplyToMessage(monitorReply *engine.MonitorReply) *message.MonitorReply {
	return &message.MonitorReply{
		Online:           monitorReply.Online,
		ActiveDocs:       int64(monitorReply.ActiveDocs),
		DistributionKey:  monitorReply.DistributionKey,
		IsBlockingWrites: monitorReply.IsBlockingWrites,
	}
}

// sortSpecFromMessage renders sort fields as "+ascending -descending"
func sortSpecFromMessage(sortFields []*message.SortField) string {
	var sortSpec strings.Builder

	for _, sortField := range sortFields {
		if sortSpec.Len() > 0 {
			sortSpec.WriteByte(' ')
		}

		if sortField.Ascending {
			sortSpec.WriteByte('+')
		} else {
			sortSpec.WriteByte('-')
		}

		sortSpec.WriteString(sortField.Field)
	}

	return sortSpec.String()
}

func propertiesMapFromMessage(rankProperties []*message.StringProperty,
	featureOverrides []*message.StringProperty) engine.PropertiesMap {

	return engine.PropertiesMap{
		RankProperties:   propertiesFromMessage(rankProperties),
		FeatureOverrides: propertiesFromMessage(featureOverrides),
	}
}

func propertiesFromMessage(stringProperties []*message.StringProperty) engine.Properties {
	if len(stringProperties) == 0 {
		return nil
	}

	properties := engine.Properties{}
	for _, stringProperty := range stringProperties {
		properties[stringProperty.Name] = append(properties[stringProperty.Name], stringProperty.Values...)
	}

	return properties
}

func millisecondsToDuration(milliseconds int32) time.Duration {
	if milliseconds < 0 {
		return 0
	}

	return time.Duration(milliseconds) * time.Millisecond
}

func nonNegative(value int32) uint32 {
	if value < 0 {
		return 0
	}

	return uint32(value)
}
