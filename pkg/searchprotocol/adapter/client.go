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
	"context"

	"github.com/nuclio/searchnode/pkg/rpc"
	"github.com/nuclio/searchnode/pkg/searchprotocol/compression"
	"github.com/nuclio/searchnode/pkg/searchprotocol/envelope"
	"github.com/nuclio/searchnode/pkg/searchprotocol/message"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// EncodeRequest creates an outgoing call of the given kind carrying requestMessage
func EncodeRequest(config compression.Config, kind Kind, requestMessage message.Message) *rpc.Request {
	request := rpc.NewRequest(kind.MethodName())
	envelope.Encode(config, requestMessage.Marshal(), request.GetParams())

	return request
}

// DecodeReply parses the reply of a completed outgoing call into replyMessage
func DecodeReply(request *rpc.Request, replyMessage message.Message) error {
	if request.IsError() || !request.CheckReturnTypes(envelope.TypeString) {
		return errors.Wrapf(ErrCallFailed,
			"%s failed with code %d (%s): %s",
			request.GetMethodName(),
			request.GetErrorCode(),
			request.GetErrorCode().String(),
			request.GetErrorMessage())
	}

	payload, err := envelope.Decode(*request.GetReturn())
	if err != nil {
		return errors.Wrap(err, "Failed to decode reply envelope")
	}

	if err := replyMessage.Unmarshal(payload); err != nil {
		return errors.Wrap(err, "Failed to parse reply")
	}

	return nil
}

// Client issues search protocol calls to a remote node
type Client struct {
	logger            logger.Logger
	target            *rpc.Target
	compressionConfig compression.Config
}

func NewClient(ctx context.Context,
	parentLogger logger.Logger,
	address string,
	compressionConfig compression.Config) (*Client, error) {

	clientLogger := parentLogger.GetChild("client")

	target, err := rpc.NewTarget(ctx, clientLogger, address, 0)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create target")
	}

	return &Client{
		logger:            clientLogger,
		target:            target,
		compressionConfig: compressionConfig,
	}, nil
}

func (c *Client) Search(ctx context.Context, searchRequest *message.SearchRequest) (*message.SearchReply, error) {
	searchReply := &message.SearchReply{}
	if err := c.invoke(ctx, KindSearch, searchRequest, searchReply); err != nil {
		return nil, err
	}

	return searchReply, nil
}

func (c *Client) GetDocsums(ctx context.Context, docsumRequest *message.DocsumRequest) (*message.DocsumReply, error) {
	docsumReply := &message.DocsumReply{}
	if err := c.invoke(ctx, KindDocsum, docsumRequest, docsumReply); err != nil {
		return nil, err
	}

	return docsumReply, nil
}

func (c *Client) Ping(ctx context.Context) (*message.MonitorReply, error) {
	monitorReply := &message.MonitorReply{}
	if err := c.invoke(ctx, KindMonitor, &message.MonitorRequest{}, monitorReply); err != nil {
		return nil, err
	}

	return monitorReply, nil
}

func (c *Client) Close() error {
	return c.target.Close()
}

func (c *Client) invoke(ctx context.Context, kind Kind, requestMessage message.Message, replyMessage message.Message) error {
	request := EncodeRequest(c.compressionConfig, kind, requestMessage)

	if err := c.target.InvokeSync(ctx, request); err != nil {
		return errors.Wrapf(err, "Failed to invoke %s", kind)
	}

	return DecodeReply(request, replyMessage)
}
