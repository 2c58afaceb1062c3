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

// Backends answer a request either by returning the reply right away, or by
// returning nil and later handing the reply to the client exactly once.
// Handing a reply to the client twice panics

type SearchClient interface {
	SearchDone(reply *SearchReply)
}

type SearchServer interface {
	Search(source *SearchRequestSource, client SearchClient) *SearchReply
}

type DocsumClient interface {
	GetDocsumsDone(reply *DocsumReply)
}

type DocsumServer interface {
	GetDocsums(source *DocsumRequestSource, client DocsumClient) *DocsumReply
}

type MonitorClient interface {
	PingDone(reply *MonitorReply)
}

type MonitorServer interface {
	Ping(request *MonitorRequest, client MonitorClient) *MonitorReply
}
