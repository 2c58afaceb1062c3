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
	"time"

	"github.com/nuclio/searchnode/pkg/engine"
	"github.com/nuclio/searchnode/pkg/rpc"
	"github.com/nuclio/searchnode/pkg/searchprotocol/compression"
	"github.com/nuclio/searchnode/pkg/searchprotocol/converter"
	"github.com/nuclio/searchnode/pkg/searchprotocol/envelope"
	"github.com/nuclio/searchnode/pkg/searchprotocol/message"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// Adapter bridges the three transport methods to the search, docsum and monitor backends
type Adapter struct {

	// accessed atomically, keep as first field for alignment
	statistics [numKinds]Statistics

	logger            logger.Logger
	searchServer      engine.SearchServer
	docsumServer      engine.DocsumServer
	monitorServer     engine.MonitorServer
	compressionPolicy *compression.Policy
	clock             engine.Clock
}

func NewAdapter(parentLogger logger.Logger,
	searchServer engine.SearchServer,
	docsumServer engine.DocsumServer,
	monitorServer engine.MonitorServer,
	compressionPolicy *compression.Policy) (*Adapter, error) {

	if searchServer == nil || docsumServer == nil || monitorServer == nil {
		return nil, errors.New("Adapter requires search, docsum and monitor servers")
	}

	if compressionPolicy == nil {
		return nil, errors.New("Adapter requires a compression policy")
	}

	return &Adapter{
		logger:            parentLogger.GetChild("adapter"),
		searchServer:      searchServer,
		docsumServer:      docsumServer,
		monitorServer:     monitorServer,
		compressionPolicy: compressionPolicy,
		clock:             time.Now,
	}, nil
}

// Register adds the search, getDocsums and ping methods to the supervisor
func (a *Adapter) Register(supervisor *rpc.Supervisor) error {
	for _, kind := range Kinds {
		kind := kind

		if err := supervisor.AddMethod(&rpc.Method{
			Name:        kind.MethodName(),
			ParamSpec:   envelope.TypeString,
			ReturnSpec:  envelope.TypeString,
			Description: kind.description(),
			Params:      envelopeDescriptions(kind.String() + " request"),
			Returns:     envelopeDescriptions(kind.String() + " reply"),
			Handler: func(request *rpc.Request) {
				a.Handle(kind, request)
			},
		}); err != nil {
			return errors.Wrapf(err, "Failed to register %s method", kind)
		}
	}

	return nil
}

// Handle serves one inbound call of the given kind. The request is always detached;
// it is completed here when it is rejected, or later through a completion handle
func (a *Adapter) Handle(kind Kind, request *rpc.Request) {
	request.Detach()

	if kind < 0 || kind >= numKinds {
		request.SetError(rpc.ErrorCodeGeneral, "unknown request kind")
		request.Complete()
		return
	}

	atomic.AddUint64(&a.GetStatistics(kind).RequestsReceived, 1)

	// the time budget runs from when the call arrived, not from when it was decoded
	relativeTime := engine.NewRelativeTime(request.GetArrivalTime(), a.clock)

	switch kind {
	case KindSearch:
		searchRequest := &message.SearchRequest{}
		if err := a.decodeRequest(kind, request, searchRequest); err != nil {
			return
		}

		completionHandle := &searchCompletionHandle{call: a.newCall(kind, request)}
		requestSource := engine.NewRequestSource[engine.SearchRequest](newSearchTranslator(searchRequest, relativeTime))

		if reply := a.searchServer.Search(requestSource, completionHandle); reply != nil {
			completionHandle.SearchDone(reply)
		}

	case KindDocsum:
		docsumRequest := &message.DocsumRequest{}
		if err := a.decodeRequest(kind, request, docsumRequest); err != nil {
			return
		}

		completionHandle := &docsumCompletionHandle{call: a.newCall(kind, request)}
		requestSource := engine.NewRequestSource[engine.DocsumRequest](newDocsumTranslator(docsumRequest, relativeTime))

		if reply := a.docsumServer.GetDocsums(requestSource, completionHandle); reply != nil {
			completionHandle.GetDocsumsDone(reply)
		}

	case KindMonitor:
		monitorRequest := &message.MonitorRequest{}
		if err := a.decodeRequest(kind, request, monitorRequest); err != nil {
			return
		}

		completionHandle := &monitorCompletionHandle{call: a.newCall(kind, request)}

		if reply := a.monitorServer.Ping(converter.MonitorRequestFromMessage(monitorRequest), completionHandle); reply != nil {
			completionHandle.PingDone(reply)
		}
	}
}

// GetStatistics returns the counters of a kind
func (a *Adapter) GetStatistics(kind Kind) *Statistics {
	return &a.statistics[kind]
}

// decodeRequest unwraps the envelope and parses the message. On failure the call is
// answered with a method failure and an error is returned
func (a *Adapter) decodeRequest(kind Kind, request *rpc.Request, requestMessage message.Message) error {
	payload, err := envelope.Decode(*request.GetParams())
	if err == nil {
		err = requestMessage.Unmarshal(payload)
	}

	if err != nil {
		a.logger.WarnWith("Rejecting malformed request",
			"kind", kind.String(),
			"err", errors.RootCause(err).Error(),
			"details", err.Error())

		a.reject(kind, request, rpc.ErrorCodeMethodFailed, "malformed "+kind.String()+" request")
		return err
	}

	return nil
}

func (a *Adapter) reject(kind Kind, request *rpc.Request, errorCode rpc.ErrorCode, errorMessage string) {
	atomic.AddUint64(&a.GetStatistics(kind).RequestsRejected, 1)

	request.SetError(errorCode, errorMessage)
	request.Complete()
}

func (a *Adapter) newCall(kind Kind, request *rpc.Request) *call {
	return &call{
		adapter: a,
		kind:    kind,
		request: request,
	}
}

func (a *Adapter) sendReply(completedCall *call, replyMessage message.Message) {
	statistics := a.GetStatistics(completedCall.kind)
	request := completedCall.request

	serializedReply := replyMessage.Marshal()
	compressionType := envelope.Encode(a.compressionPolicy.EncodeConfig(), serializedReply, request.GetReturn())

	payload, _ := request.GetReturn().GetData(2)

	atomic.AddUint64(&statistics.RepliesSent, 1)
	atomic.AddUint64(&statistics.ReplyBytesUncompressed, uint64(len(serializedReply)))
	atomic.AddUint64(&statistics.ReplyBytesSent, uint64(len(payload)))
	atomic.AddUint64(&statistics.CompletionDurationMilliSecondsSum,
		uint64(a.clock().Sub(request.GetArrivalTime()).Milliseconds()))

	if compressionType != compression.TypeNone {
		atomic.AddUint64(&statistics.RepliesCompressed, 1)
	}

	request.Complete()
}

func (a *Adapter) failCall(failedCall *call, errorMessage string) {
	a.logger.WarnWith("Backend completed call without a reply", "kind", failedCall.kind.String())

	a.reject(failedCall.kind, failedCall.request, rpc.ErrorCodeMethodFailed, errorMessage)
}

func envelopeDescriptions(what string) []rpc.ValueDescription {
	return []rpc.ValueDescription{
		{Name: "compressionType", Description: "Codec of the " + what + " payload"},
		{Name: "uncompressedSize", Description: "Size of the " + what + " payload once decompressed"},
		{Name: "payload", Description: "Serialized " + what},
	}
}
