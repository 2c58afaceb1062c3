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
	"sync/atomic"

	"github.com/nuclio/searchnode/pkg/engine"
	"github.com/nuclio/searchnode/pkg/rpc"
	"github.com/nuclio/searchnode/pkg/searchprotocol/converter"
	"github.com/nuclio/searchnode/pkg/searchprotocol/message"

	"github.com/nuclio/errors"
)

// translator turns a parsed request message into its native form when the backend
// first asks for it. It holds no reference to the transport request
type translator[M any, N any] struct {
	requestMessage M
	relativeTime   *engine.RelativeTime
	convert        func(M, *engine.RelativeTime) *N
}

func (t *translator[M, N]) Decode() *N {
	return t.convert(t.requestMessage, t.relativeTime)
}

func newSearchTranslator(searchRequest *message.SearchRequest,
	relativeTime *engine.RelativeTime) *translator[*message.SearchRequest, engine.SearchRequest] {

	return &translator[*message.SearchRequest, engine.SearchRequest]{
		requestMessage: searchRequest,
		relativeTime:   relativeTime,
		convert:        converter.SearchRequestFromMessage,
	}
}

func newDocsumTranslator(docsumRequest *message.DocsumRequest,
	relativeTime *engine.RelativeTime) *translator[*message.DocsumRequest, engine.DocsumRequest] {

	return &translator[*message.DocsumRequest, engine.DocsumRequest]{
		requestMessage: docsumRequest,
		relativeTime:   relativeTime,
		convert:        converter.DocsumRequestFromMessage,
	}
}

// call tracks a dispatched request until its reply is sent
type call struct {
	adapter   *Adapter
	kind      Kind
	request   *rpc.Request
	completed atomic.Bool
}

// claim marks the call as completed. A second claim is a programming error in the
// backend and panics, before anything reaches the transport
func (c *call) claim() {
	if !c.completed.CompareAndSwap(false, true) {
		panic(errors.Wrapf(ErrDoubleCompletion, "Kind %s", c.kind))
	}
}

type searchCompletionHandle struct {
	call *call
}

func (h *searchCompletionHandle) SearchDone(reply *engine.SearchReply) {
	h.call.claim()

	if reply == nil {
		h.call.adapter.failCall(h.call, "empty search reply")
		return
	}

	h.call.adapter.sendReply(h.call, converter.SearchReplyToMessage(reply))
}

type docsumCompletionHandle struct {
	call *call
}

func (h *docsumCompletionHandle) GetDocsumsDone(reply *engine.DocsumReply) {
	h.call.claim()

	if reply == nil {
		h.call.adapter.failCall(h.call, "empty docsum reply")
		return
	}

	h.call.adapter.sendReply(h.call, converter.DocsumReplyToMessage(reply))
}

type monitorCompletionHandle struct {
	call *call
}

func (h *monitorCompletionHandle) PingDone(reply *engine.MonitorReply) {
	h.call.claim()

	if reply == nil {
		h.call.adapter.failCall(h.call, "empty monitor reply")
		return
	}

	h.call.adapter.sendReply(h.call, converter.MonitorReplyToMessage(reply))
}
