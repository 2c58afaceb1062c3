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
	"testing"
	"time"

	"github.com/nuclio/searchnode/pkg/engine"
	"github.com/nuclio/searchnode/pkg/searchprotocol/message"

	"github.com/stretchr/testify/suite"
)

type ConverterTestSuite struct {
	suite.Suite
	relativeTime *engine.RelativeTime
}

func (suite *ConverterTestSuite) SetupTest() {
	suite.relativeTime = engine.NewRelativeTime(time.Now(), nil)
}

func (suite *ConverterTestSuite) TestSearchRequestFromMessage() {
	searchRequest := SearchRequestFromMessage(&message.SearchRequest{
		Offset:     3,
		Hits:       -1,
		Timeout:    2500,
		TraceLevel: 2,
		Sorting: []*message.SortField{
			{Ascending: true, Field: "price"},
			{Field: "[rank]"},
		},
		SessionKey:   "session",
		DocumentType: "music",
		RankProfile:  "fast",
		RankProperties: []*message.StringProperty{
			{Name: "a", Values: []string{"1"}},
			{Name: "a", Values: []string{"2"}},
		},
		GroupingBlob:  []byte{1},
		GeoLocation:   "geo",
		QueryTreeBlob: []byte{2},
		CacheQuery:    true,
	}, suite.relativeTime)

	suite.Require().Equal(uint32(3), searchRequest.Offset)
	suite.Require().Equal(uint32(0), searchRequest.MaxHits)
	suite.Require().Equal(2500*time.Millisecond, searchRequest.GetTimeout())
	suite.Require().Equal(2, searchRequest.TraceLevel)
	suite.Require().Equal("+price -[rank]", searchRequest.SortSpec)
	suite.Require().Equal([]byte("session"), searchRequest.SessionID)
	suite.Require().Equal("fast", searchRequest.RankProfile)
	suite.Require().Equal([]string{"1", "2"}, searchRequest.PropertiesMap.RankProperties["a"])
	suite.Require().Nil(searchRequest.PropertiesMap.FeatureOverrides)
	suite.Require().Equal([]byte{1}, searchRequest.GroupSpec)
	suite.Require().Equal([]byte{2}, searchRequest.StackDump)
	suite.Require().Equal("geo", searchRequest.Location)
	suite.Require().True(searchRequest.CacheQuery)
}

func (suite *ConverterTestSuite) TestSearchReplyToMessage() {
	var firstGlobalID, secondGlobalID engine.GlobalID
	copy(firstGlobalID[:], "aaaaaaaaaaaa")
	copy(secondGlobalID[:], "bbbbbbbbbbbb")

	searchReplyMessage := SearchReplyToMessage(&engine.SearchReply{
		TotalHitCount: 17,
		Hits: []engine.Hit{
			{GlobalID: firstGlobalID, Metric: 2.5},
			{GlobalID: secondGlobalID, Metric: 1.5},
		},
		SortIndex:   []uint32{0, 2, 5},
		SortData:    []byte("xxyyy"),
		GroupResult: []byte{9},
		Coverage: engine.Coverage{
			Covered:       10,
			Active:        20,
			SoonActive:    30,
			DegradeReason: engine.DegradeMatchPhase | engine.DegradeTimeout,
		},
		ErrorCode:    4,
		ErrorMessage: "partial",
		Trace:        []byte("trace"),
	})

	suite.Require().Equal(int64(17), searchReplyMessage.TotalHitCount)
	suite.Require().Equal(int64(10), searchReplyMessage.CoverageDocs)
	suite.Require().Equal(int64(20), searchReplyMessage.ActiveDocs)
	suite.Require().Equal(int64(30), searchReplyMessage.SoonActiveDocs)
	suite.Require().True(searchReplyMessage.DegradedByMatchPhase)
	suite.Require().True(searchReplyMessage.DegradedBySoftTimeout)
	suite.Require().Len(searchReplyMessage.Hits, 2)
	suite.Require().Equal([]byte("aaaaaaaaaaaa"), searchReplyMessage.Hits[0].GlobalID)
	suite.Require().Equal([]byte("xx"), searchReplyMessage.Hits[0].SortData)
	suite.Require().Equal([]byte("yyy"), searchReplyMessage.Hits[1].SortData)
	suite.Require().Equal(1.5, searchReplyMessage.Hits[1].Relevance)
	suite.Require().Equal([]byte{9}, searchReplyMessage.GroupingBlob)
	suite.Require().Len(searchReplyMessage.Errors, 1)
	suite.Require().Equal("partial", searchReplyMessage.Errors[0].Message)
	suite.Require().Equal([]byte("trace"), searchReplyMessage.SlimeTrace)
}

func (suite *ConverterTestSuite) TestSearchReplyWithoutSortData() {
	searchReplyMessage := SearchReplyToMessage(&engine.SearchReply{
		Hits:      []engine.Hit{{Metric: 1}},
		SortIndex: []uint32{0},
	})

	suite.Require().Nil(searchReplyMessage.Hits[0].SortData)
	suite.Require().Empty(searchReplyMessage.Errors)
}

func (suite *ConverterTestSuite) TestDocsumRequestFromMessage() {
	docsumRequest := DocsumRequestFromMessage(&message.DocsumRequest{
		Timeout:      -5,
		SessionKey:   "session",
		SummaryClass: "short",
		DumpFeatures: true,
		FeatureOverrides: []*message.StringProperty{
			{Name: "f", Values: []string{"x"}},
		},
		GlobalIDs: [][]byte{
			[]byte("aaaaaaaaaaaa"),
			[]byte("short"),
			[]byte("bbbbbbbbbbbb"),
		},
	}, suite.relativeTime)

	suite.Require().Equal(time.Duration(0), docsumRequest.GetTimeout())
	suite.Require().Equal("short", docsumRequest.ResultClassName)
	suite.Require().True(docsumRequest.DumpFeatures)
	suite.Require().Equal([]string{"x"}, docsumRequest.PropertiesMap.FeatureOverrides["f"])
	suite.Require().Len(docsumRequest.Hits, 2)
	suite.Require().Equal(byte('b'), docsumRequest.Hits[1].GlobalID[0])
}

func (suite *ConverterTestSuite) TestDocsumReplyToMessage() {
	docsumReplyMessage := DocsumReplyToMessage(&engine.DocsumReply{
		Summaries: []byte("summaries"),
		Issues:    []string{"first", "second"},
	})

	suite.Require().Equal([]byte("summaries"), docsumReplyMessage.SlimeSummaries)
	suite.Require().Len(docsumReplyMessage.Errors, 2)
	suite.Require().Equal("second", docsumReplyMessage.Errors[1].Message)
}

func (suite *ConverterTestSuite) TestMonitor() {
	suite.Require().True(MonitorRequestFromMessage(&message.MonitorRequest{}).ReportActiveDocs)

	monitorReplyMessage := MonitorReplyToMessage(&engine.MonitorReply{
		Online:           true,
		ActiveDocs:       99,
		DistributionKey:  4,
		IsBlockingWrites: true,
	})

	suite.Require().Equal(message.MonitorReply{
		Online:           true,
		ActiveDocs:       99,
		DistributionKey:  4,
		IsBlockingWrites: true,
	}, *monitorReplyMessage)
}

func TestConverterTestSuite(t *testing.T) {
	suite.Run(t, new(ConverterTestSuite))
}
