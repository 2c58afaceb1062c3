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

package rpc

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/rs/xid"
)

// Target is a client connection to a server. Requests are multiplexed over a
// single connection and may complete out of order
type Target struct {
	logger      logger.Logger
	address     string
	framer      *framer
	nextID      uint32
	pendingLock sync.Mutex
	pending     map[uint32]chan *packet
	closed      chan struct{}
	closeOnce   sync.Once
	closeErr    error
}

// NewTarget connects to address
func NewTarget(ctx context.Context, parentLogger logger.Logger, address string, maxFrameSize int) (*Target, error) {
	dialer := net.Dialer{}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to connect to %s", address)
	}

	newTarget := &Target{
		logger:  parentLogger.GetChild("target").GetChild(xid.New().String()),
		address: address,
		framer:  newFramer(conn, maxFrameSize, 0),
		pending: map[uint32]chan *packet{},
		closed:  make(chan struct{}),
	}

	go newTarget.readLoop()

	newTarget.logger.DebugWith("Connected", "address", address)

	return newTarget, nil
}

// InvokeSync sends the request and waits for its reply. Method-level failures are
// reported through the request error code. Transport failures set a timeout or
// connection error code on the request and are also returned
func (t *Target) InvokeSync(ctx context.Context, request *Request) error {
	requestID := atomic.AddUint32(&t.nextID, 1)
	replyChan := make(chan *packet, 1)

	t.pendingLock.Lock()
	t.pending[requestID] = replyChan
	t.pendingLock.Unlock()

	defer func() {
		t.pendingLock.Lock()
		delete(t.pending, requestID)
		t.pendingLock.Unlock()
	}()

	if err := t.framer.writePacket(&packet{
		Type:   packetTypeRequest,
		ID:     requestID,
		Method: request.GetMethodName(),
		Values: *request.GetParams(),
	}); err != nil {
		request.SetError(ErrorCodeConnection, err.Error())
		return errors.Wrapf(err, "Failed to send request to %s", t.address)
	}

	select {
	case reply := <-replyChan:
		if reply.ErrorCode != ErrorCodeNone {
			request.SetError(reply.ErrorCode, reply.ErrorMessage)
		} else {
			request.returnValues = reply.Values
		}

		return nil

	case <-ctx.Done():
		request.SetError(ErrorCodeTimeout, "request timed out")
		return errors.Wrapf(ctx.Err(), "Request %s to %s", request.GetMethodName(), t.address)

	case <-t.closed:
		request.SetError(ErrorCodeConnection, "connection closed")
		return errors.Wrapf(ErrConnectionClosed, "Request %s to %s", request.GetMethodName(), t.address)
	}
}

// Close closes the connection. Requests in flight fail with a connection error
func (t *Target) Close() error {
	t.shutdown()

	return t.closeErr
}

func (t *Target) readLoop() {
	defer t.shutdown()

	for {
		reply, err := t.framer.readPacket()
		if err != nil {
			select {
			case <-t.closed:
			default:
				t.logger.DebugWith("Connection read failed", "err", err.Error())
			}

			return
		}

		if reply.Type != packetTypeReply {
			t.logger.WarnWith("Ignoring unexpected packet", "type", reply.Type)
			continue
		}

		t.pendingLock.Lock()
		replyChan, found := t.pending[reply.ID]
		t.pendingLock.Unlock()

		if !found {
			t.logger.DebugWith("Dropping reply for unknown request", "requestID", reply.ID)
			continue
		}

		// a duplicate reply for the same id is dropped
		select {
		case replyChan <- reply:
		default:
		}
	}
}

func (t *Target) shutdown() {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.closeErr = t.framer.close()
	})
}
