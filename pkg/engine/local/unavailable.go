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


package local

import (
	"github.com/nuclio/searchnode/pkg/engine"

	"github.com/nuclio/logger"
)

// ErrorCodeNoBackend is reported in search replies when no index is attached to the node
const ErrorCodeNoBackend uint32 = 1

// UnavailableSearchServer fails every query. It serves nodes that carry no index
type UnavailableSearchServer struct {
	logger logger.Logger
}

func NewUnavailableSearchServer(parentLogger logger.Logger) *UnavailableSearchServer {
	return &UnavailableSearchServer{
		logger: parentLogger.GetChild("search"),
	}
}

func (uss *UnavailableSearchServer) Search(source *engine.SearchRequestSource, client engine.SearchClient) *engine.SearchReply {
	reply := &engine.SearchReply{
		ErrorCode:    ErrorCodeNoBackend,
		ErrorMessage: "no search backend attached",
	}

	if searchRequest := source.Get(); searchRequest != nil {
		uss.logger.DebugWith("Rejecting query",
			"rankProfile", searchRequest.RankProfile,
			"sessionID", string(searchRequest.SessionID))

		reply.Offset = searchRequest.Offset
	}

	return reply
}

// UnavailableDocsumServer reports an issue for every docsum request
type UnavailableDocsumServer struct {
	logger logger.Logger
}

func NewUnavailableDocsumServer(parentLogger logger.Logger) *UnavailableDocsumServer {
	return &UnavailableDocsumServer{
		logger: parentLogger.GetChild("docsum"),
	}
}

func (uds *UnavailableDocsumServer) GetDocsums(source *engine.DocsumRequestSource, client engine.DocsumClient) *engine.DocsumReply {
	if docsumRequest := source.Get(); docsumRequest != nil {
		uds.logger.DebugWith("Rejecting docsum request",
			"resultClass", docsumRequest.ResultClassName,
			"numHits", len(docsumRequest.Hits))
	}

	return &engine.DocsumReply{
		Issues: []string{"no docsum backend attached"},
	}
}
