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
	"github.com/nuclio/searchnode/pkg/engine"

	"github.com/stretchr/testify/mock"
)

type mockSearchServer struct {
	mock.Mock
}

func (mss *mockSearchServer) Search(source *engine.SearchRequestSource, client engine.SearchClient) *engine.SearchReply {
	args := mss.Called(source, client)

	if reply := args.Get(0); reply != nil {
		return reply.(*engine.SearchReply)
	}

	return nil
}

type mockDocsumServer struct {
	mock.Mock
}

func (mds *mockDocsumServer) GetDocsums(source *engine.DocsumRequestSource, client engine.DocsumClient) *engine.DocsumReply {
	args := mds.Called(source, client)

	if reply := args.Get(0); reply != nil {
		return reply.(*engine.DocsumReply)
	}

	return nil
}

type mockMonitorServer struct {
	mock.Mock
}

func (mms *mockMonitorServer) Ping(request *engine.MonitorRequest, client engine.MonitorClient) *engine.MonitorReply {
	args := mms.Called(request, client)

	if reply := args.Get(0); reply != nil {
		return reply.(*engine.MonitorReply)
	}

	return nil
}
