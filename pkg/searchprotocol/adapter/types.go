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

package adapter

import (
	"github.com/nuclio/errors"
)

var (
	ErrDoubleCompletion = errors.New("Call completed more than once")
	ErrCallFailed       = errors.New("Call failed")
)

// Kind is one of the three request kinds the protocol carries
type Kind int

const (
	KindSearch Kind = iota
	KindDocsum
	KindMonitor

	numKinds
)

// Kinds lists every request kind
var Kinds = []Kind{KindSearch, KindDocsum, KindMonitor}

const (
	SearchMethodName  = "vespa.searchprotocol.search"
	DocsumMethodName  = "vespa.searchprotocol.getDocsums"
	MonitorMethodName = "vespa.searchprotocol.ping"
)

func (k Kind) String() string {
	switch k {
	case KindSearch:
		return "search"
	case KindDocsum:
		return "docsum"
	case KindMonitor:
		return "monitor"
	default:
		return "unknown"
	}
}

// MethodName returns the transport method serving the kind
func (k Kind) MethodName() string {
	switch k {
	case KindSearch:
		return SearchMethodName
	case KindDocsum:
		return DocsumMethodName
	case KindMonitor:
		return MonitorMethodName
	default:
		return ""
	}
}

func (k Kind) description() string {
	switch k {
	case KindSearch:
		return "Run a query against the local index"
	case KindDocsum:
		return "Fetch document summaries for a list of hits"
	case KindMonitor:
		return "Report whether the node is online and how many documents it serves"
	default:
		return ""
	}
}

// Statistics holds per kind counters. Fields are updated atomically
type Statistics struct {
	RequestsReceived                  uint64
	RequestsRejected                  uint64
	RepliesSent                       uint64
	RepliesCompressed                 uint64
	ReplyBytesUncompressed            uint64
	ReplyBytesSent                    uint64
	CompletionDurationMilliSecondsSum uint64
}

// DiffFrom returns the counters accumulated since prev
func (s *Statistics) DiffFrom(prev *Statistics) Statistics {
	return Statistics{
		RequestsReceived:                  s.RequestsReceived - prev.RequestsReceived,
		RequestsRejected:                  s.RequestsRejected - prev.RequestsRejected,
		RepliesSent:                       s.RepliesSent - prev.RepliesSent,
		RepliesCompressed:                 s.RepliesCompressed - prev.RepliesCompressed,
		ReplyBytesUncompressed:            s.ReplyBytesUncompressed - prev.ReplyBytesUncompressed,
		ReplyBytesSent:                    s.ReplyBytesSent - prev.ReplyBytesSent,
		CompletionDurationMilliSecondsSum: s.CompletionDurationMilliSecondsSum - prev.CompletionDurationMilliSecondsSum,
	}
}
