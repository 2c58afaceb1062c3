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

package engine

import (
	"time"
)

// GlobalIDLength is the size in bytes of a document global id
const GlobalIDLength = 12

// GlobalID identifies a document across the cluster
type GlobalID [GlobalIDLength]byte

// Degrade reasons reported in Coverage.DegradeReason
const (
	DegradeMatchPhase      uint32 = 0x01
	DegradeTimeout         uint32 = 0x02
	DegradeAdaptiveTimeout uint32 = 0x04
)

// Properties maps a property name to its values
type Properties map[string][]string

// PropertiesMap groups the property sets a query may carry
type PropertiesMap struct {
	RankProperties   Properties
	FeatureOverrides Properties
}

// Request holds what search and docsum requests have in common
type Request struct {
	RelativeTime  *RelativeTime
	TraceLevel    int
	SessionID     []byte
	DocumentType  string
	RankProfile   string
	Location      string
	StackDump     []byte
	PropertiesMap PropertiesMap
}

// GetTimeout returns the time budget the caller gave the request
func (r *Request) GetTimeout() time.Duration {
	return r.RelativeTime.GetTimeout()
}

// GetTimeLeft returns the budget remaining, never negative
func (r *Request) GetTimeLeft() time.Duration {
	return r.RelativeTime.GetTimeLeft()
}

// Expired returns true once the budget is used up
func (r *Request) Expired() bool {
	return r.RelativeTime.Expired()
}

type SearchRequest struct {
	Request
	Offset        uint32
	MaxHits       uint32
	SortSpec      string
	GroupSpec     []byte
	CacheGrouping bool
	CacheQuery    bool
}

type Hit struct {
	GlobalID        GlobalID
	Metric          float64
	DistributionKey uint32
}

type Coverage struct {
	Covered       uint64
	Active        uint64
	SoonActive    uint64
	DegradeReason uint32
	NodesQueried  uint16
	NodesReplied  uint16
}

func (c *Coverage) WasDegradedByMatchPhase() bool {
	return c.DegradeReason&DegradeMatchPhase != 0
}

func (c *Coverage) WasDegradedByTimeout() bool {
	return c.DegradeReason&(DegradeTimeout|DegradeAdaptiveTimeout) != 0
}

type SearchReply struct {
	Offset        uint32
	TotalHitCount uint64
	MaxRank       float64
	Hits          []Hit

	// SortIndex has one more entry than Hits. Hit i sorts by SortData[SortIndex[i]:SortIndex[i+1]]
	SortIndex   []uint32
	SortData    []byte
	GroupResult []byte
	Coverage    Coverage

	// a non zero error code fails the whole reply
	ErrorCode    uint32
	ErrorMessage string

	// serialized slime trace, attached when the request asked for tracing
	Trace []byte
}

// HasError returns true if the reply carries a query level error
func (sr *SearchReply) HasError() bool {
	return sr.ErrorCode != 0
}

type DocsumHit struct {
	GlobalID GlobalID
}

type DocsumRequest struct {
	Request
	ResultClassName string
	DumpFeatures    bool
	CacheQuery      bool
	Hits            []DocsumHit
}

type DocsumReply struct {

	// serialized slime structure holding one summary per requested hit
	Summaries []byte
	Issues    []string
	Trace     []byte
}

type MonitorRequest struct {
	ReportActiveDocs bool
}

type MonitorReply struct {
	Online           bool
	ActiveDocs       uint64
	DistributionKey  int32
	IsBlockingWrites bool
	Timestamp        time.Time
}
