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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nuclio/searchnode/pkg/rpc/worker"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type ValuesTestSuite struct {
	suite.Suite
}

func (suite *ValuesTestSuite) TestAddAndGet() {
	values := Values{}
	values.AddInt8(6)
	values.AddInt32(1 << 20)
	values.AddData([]byte("payload"))
	values.AddString("name")
	values.AddInt16(7)
	values.AddInt64(1 << 40)

	suite.Require().Equal("bixshl", values.TypeString())

	int8Value, err := values.GetInt8(0)
	suite.Require().NoError(err)
	suite.Require().Equal(uint8(6), int8Value)

	int32Value, err := values.GetInt32(1)
	suite.Require().NoError(err)
	suite.Require().Equal(uint32(1<<20), int32Value)

	dataValue, err := values.GetData(2)
	suite.Require().NoError(err)
	suite.Require().Equal([]byte("payload"), dataValue)

	stringValue, err := values.GetString(3)
	suite.Require().NoError(err)
	suite.Require().Equal("name", stringValue)

	int16Value, err := values.GetInt16(4)
	suite.Require().NoError(err)
	suite.Require().Equal(uint16(7), int16Value)

	int64Value, err := values.GetInt64(5)
	suite.Require().NoError(err)
	suite.Require().Equal(uint64(1<<40), int64Value)
}

func (suite *ValuesTestSuite) TestGetErrors() {
	values := Values{}
	values.AddInt8(1)

	_, err := values.GetInt32(0)
	suite.Require().Equal(ErrValueType, errors.RootCause(err))

	_, err = values.GetInt8(1)
	suite.Require().Equal(ErrValueIndex, errors.RootCause(err))

	_, err = values.GetData(-1)
	suite.Require().Equal(ErrValueIndex, errors.RootCause(err))
}

func (suite *ValuesTestSuite) TestGetOutOfRangeInts() {
	values := Values{
		{Type: ValueTypeInt8, Int: 256},
		{Type: ValueTypeInt16, Int: 1 << 16},
		{Type: ValueTypeInt32, Int: 1<<32 + 3},
		{Type: ValueTypeInt32, Int: 1<<32 - 1},
	}

	_, err := values.GetInt8(0)
	suite.Require().Equal(ErrValueType, errors.RootCause(err))

	_, err = values.GetInt16(1)
	suite.Require().Equal(ErrValueType, errors.RootCause(err))

	_, err = values.GetInt32(2)
	suite.Require().Equal(ErrValueType, errors.RootCause(err))

	maxValue, err := values.GetInt32(3)
	suite.Require().NoError(err)
	suite.Require().Equal(uint32(1<<32-1), maxValue)
}

type RequestTestSuite struct {
	suite.Suite
}

func (suite *RequestTestSuite) TestCompleteTwicePanics() {
	completions := 0

	request := NewRequest("test")
	request.SetCompletionHandler(func(*Request) {
		completions++
	})

	request.Complete()
	suite.Require().True(request.IsCompleted())
	suite.Require().Panics(request.Complete)
	suite.Require().Equal(1, completions)
}

func (suite *RequestTestSuite) TestSetErrorDropsReturnValues() {
	request := NewRequest("test")
	request.GetReturn().AddInt8(1)

	request.SetError(ErrorCodeMethodFailed, "failed")
	suite.Require().True(request.IsError())
	suite.Require().Equal(ErrorCodeMethodFailed, request.GetErrorCode())
	suite.Require().Equal("failed", request.GetErrorMessage())
	suite.Require().Empty(*request.GetReturn())
}

func (suite *RequestTestSuite) TestCheckReturnTypes() {
	request := NewRequest("test")
	request.GetReturn().AddInt8(1)
	request.GetReturn().AddInt32(2)
	request.GetReturn().AddData(nil)
	suite.Require().True(request.CheckReturnTypes("bix"))

	request = NewRequest("test")
	request.GetReturn().AddString("unexpected")
	suite.Require().False(request.CheckReturnTypes("bix"))
	suite.Require().Equal(ErrorCodeWrongReturn, request.GetErrorCode())
}

type SupervisorTestSuite struct {
	suite.Suite
	logger     logger.Logger
	supervisor *Supervisor
}

func (suite *SupervisorTestSuite) SetupTest() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
	suite.supervisor = createSupervisor(suite.T(), suite.logger, 4)
}

func (suite *SupervisorTestSuite) TestNoSuchMethod() {
	completed := suite.invoke(NewRequest("missing"))

	suite.Require().Equal(ErrorCodeNoSuchMethod, completed.GetErrorCode())
}

func (suite *SupervisorTestSuite) TestWrongParams() {
	suite.Require().NoError(suite.supervisor.AddMethod(&Method{
		Name:       "echo",
		ParamSpec:  "x",
		ReturnSpec: "x",
		Handler:    func(request *Request) {},
	}))

	request := NewRequest("echo")
	request.GetParams().AddString("not data")

	completed := suite.invoke(request)
	suite.Require().Equal(ErrorCodeWrongParams, completed.GetErrorCode())
	suite.Require().Equal(uint64(1), suite.supervisor.GetStatistics().RequestsRejected)
}

func (suite *SupervisorTestSuite) TestHandlerAutoCompleted() {
	suite.Require().NoError(suite.supervisor.AddMethod(&Method{
		Name:       "echo",
		ParamSpec:  "x",
		ReturnSpec: "x",
		Handler: func(request *Request) {
			data, _ := request.GetParams().GetData(0)
			request.GetReturn().AddData(data)
		},
	}))

	request := NewRequest("echo")
	request.GetParams().AddData([]byte("hello"))

	completed := suite.invoke(request)
	suite.Require().False(completed.IsError())

	data, err := completed.GetReturn().GetData(0)
	suite.Require().NoError(err)
	suite.Require().Equal([]byte("hello"), data)
}

func (suite *SupervisorTestSuite) TestDetachedHandlerCompletesLater() {
	release := make(chan struct{})

	suite.Require().NoError(suite.supervisor.AddMethod(&Method{
		Name:       "later",
		ReturnSpec: "b",
		Handler: func(request *Request) {
			request.Detach()

			go func() {
				<-release
				request.GetReturn().AddInt8(1)
				request.Complete()
			}()
		},
	}))

	completedChan := make(chan *Request, 1)
	suite.supervisor.Invoke(NewRequest("later"), func(request *Request) {
		completedChan <- request
	})

	select {
	case <-completedChan:
		suite.Require().Fail("Detached request completed before release")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case completed := <-completedChan:
		suite.Require().Equal("b", completed.GetReturn().TypeString())
	case <-time.After(5 * time.Second):
		suite.Require().Fail("Detached request never completed")
	}
}

func (suite *SupervisorTestSuite) TestOverload() {
	allocator := createAllocator(suite.T(), suite.logger, 1)
	supervisor, err := NewSupervisor(suite.logger, allocator, 0)
	suite.Require().NoError(err)

	blocked := make(chan struct{})
	defer close(blocked)

	suite.Require().NoError(supervisor.AddMethod(&Method{
		Name:    "block",
		Handler: func(request *Request) { <-blocked },
	}))

	supervisor.Invoke(NewRequest("block"), func(*Request) {})

	completedChan := make(chan *Request, 1)
	supervisor.Invoke(NewRequest("block"), func(request *Request) {
		completedChan <- request
	})

	completed := <-completedChan
	suite.Require().Equal(ErrorCodeOverload, completed.GetErrorCode())
}

func (suite *SupervisorTestSuite) TestAddMethodValidation() {
	handler := func(request *Request) {}

	suite.Require().NoError(suite.supervisor.AddMethod(&Method{Name: "b", ParamSpec: "bix", Handler: handler}))
	suite.Require().NoError(suite.supervisor.AddMethod(&Method{Name: "a", Handler: handler}))

	err := suite.supervisor.AddMethod(&Method{Name: "a", Handler: handler})
	suite.Require().Equal(ErrMethodExists, errors.RootCause(err))

	suite.Require().Error(suite.supervisor.AddMethod(&Method{Name: "c", ParamSpec: "q", Handler: handler}))
	suite.Require().Error(suite.supervisor.AddMethod(&Method{Name: "d"}))

	methods := suite.supervisor.GetMethods()
	suite.Require().Len(methods, 2)
	suite.Require().Equal("a", methods[0].Name)
	suite.Require().Equal("b", methods[1].Name)
}

func (suite *SupervisorTestSuite) invoke(request *Request) *Request {
	completedChan := make(chan *Request, 1)

	suite.supervisor.Invoke(request, func(completedRequest *Request) {
		completedChan <- completedRequest
	})

	select {
	case completedRequest := <-completedChan:
		return completedRequest
	case <-time.After(5 * time.Second):
		suite.Require().Fail("Request never completed")
	}

	return nil
}

type TransportTestSuite struct {
	suite.Suite
	logger     logger.Logger
	supervisor *Supervisor
	server     *Server
	target     *Target
}

func (suite *TransportTestSuite) SetupTest() {
	var err error

	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
	suite.supervisor = createSupervisor(suite.T(), suite.logger, 8)

	suite.Require().NoError(suite.supervisor.AddMethod(&Method{
		Name:       "delayedEcho",
		ParamSpec:  "xi",
		ReturnSpec: "x",
		Handler: func(request *Request) {
			data, _ := request.GetParams().GetData(0)
			delayMilliseconds, _ := request.GetParams().GetInt32(1)

			request.Detach()

			go func() {
				time.Sleep(time.Duration(delayMilliseconds) * time.Millisecond)
				request.GetReturn().AddData(data)
				request.Complete()
			}()
		},
	}))

	suite.Require().NoError(suite.supervisor.AddMethod(&Method{
		Name: "fail",
		Handler: func(request *Request) {
			request.SetError(ErrorCodeMethodFailed, "always fails")
		},
	}))

	suite.server, err = NewServer(suite.logger, suite.supervisor, ServerConfiguration{})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.server.Listen("127.0.0.1:0"))

	go suite.server.Serve() // nolint: errcheck

	suite.target, err = NewTarget(context.Background(), suite.logger, suite.server.GetAddress(), 0)
	suite.Require().NoError(err)
}

func (suite *TransportTestSuite) TearDownTest() {
	suite.target.Close() // nolint: errcheck
	suite.Require().NoError(suite.server.Close())
}

func (suite *TransportTestSuite) TestOutOfOrderReplies() {
	var waitGroup sync.WaitGroup

	for requestIndex := 0; requestIndex < 32; requestIndex++ {
		waitGroup.Add(1)

		go func(requestIndex int) {
			defer waitGroup.Done()

			payload := []byte(fmt.Sprintf("request-%d", requestIndex))

			// later requests finish first
			request := NewRequest("delayedEcho")
			request.GetParams().AddData(payload)
			request.GetParams().AddInt32(uint32(64 - requestIndex*2))

			suite.NoError(suite.target.InvokeSync(context.Background(), request))
			suite.True(request.CheckReturnTypes("x"))

			echoed, err := request.GetReturn().GetData(0)
			suite.NoError(err)
			suite.Equal(payload, echoed)
		}(requestIndex)
	}

	waitGroup.Wait()
}

func (suite *TransportTestSuite) TestMethodErrorPropagates() {
	request := NewRequest("fail")

	suite.Require().NoError(suite.target.InvokeSync(context.Background(), request))
	suite.Require().Equal(ErrorCodeMethodFailed, request.GetErrorCode())
	suite.Require().Equal("always fails", request.GetErrorMessage())
}

func (suite *TransportTestSuite) TestTimeout() {
	request := NewRequest("delayedEcho")
	request.GetParams().AddData([]byte("slow"))
	request.GetParams().AddInt32(500)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	suite.Require().Error(suite.target.InvokeSync(ctx, request))
	suite.Require().Equal(ErrorCodeTimeout, request.GetErrorCode())
}

func (suite *TransportTestSuite) TestOversizedReplyFailsExplicitly() {
	suite.Require().NoError(suite.supervisor.AddMethod(&Method{
		Name:       "bigReply",
		ReturnSpec: "x",
		Handler: func(request *Request) {
			request.GetReturn().AddData(make([]byte, 4096))
		},
	}))

	smallFrameServer, err := NewServer(suite.logger, suite.supervisor, ServerConfiguration{MaxFrameSize: 1024})
	suite.Require().NoError(err)
	suite.Require().NoError(smallFrameServer.Listen("127.0.0.1:0"))

	go smallFrameServer.Serve() // nolint: errcheck
	defer smallFrameServer.Close() // nolint: errcheck

	target, err := NewTarget(context.Background(), suite.logger, smallFrameServer.GetAddress(), 0)
	suite.Require().NoError(err)
	defer target.Close() // nolint: errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	request := NewRequest("bigReply")
	suite.Require().NoError(target.InvokeSync(ctx, request))
	suite.Require().Equal(ErrorCodeBadReply, request.GetErrorCode())

	// the connection stays usable
	request = NewRequest("fail")
	suite.Require().NoError(target.InvokeSync(ctx, request))
	suite.Require().Equal(ErrorCodeMethodFailed, request.GetErrorCode())
}

func (suite *TransportTestSuite) TestClosedTarget() {
	suite.Require().NoError(suite.target.Close())

	request := NewRequest("fail")
	err := suite.target.InvokeSync(context.Background(), request)
	suite.Require().Error(err)
	suite.Require().Equal(ErrorCodeConnection, request.GetErrorCode())
}

func createAllocator(t *testing.T, loggerInstance logger.Logger, numWorkers int) worker.Allocator {
	workers, err := worker.NewWorkers(loggerInstance, numWorkers)
	if err != nil {
		t.Fatal(err)
	}

	allocator, err := worker.NewFixedPoolWorkerAllocator(loggerInstance, workers)
	if err != nil {
		t.Fatal(err)
	}

	return allocator
}

func createSupervisor(t *testing.T, loggerInstance logger.Logger, numWorkers int) *Supervisor {
	supervisor, err := NewSupervisor(loggerInstance, createAllocator(t, loggerInstance, numWorkers), time.Second)
	if err != nil {
		t.Fatal(err)
	}

	return supervisor
}

func TestRPCTestSuite(t *testing.T) {
	suite.Run(t, new(ValuesTestSuite))
	suite.Run(t, new(RequestTestSuite))
	suite.Run(t, new(SupervisorTestSuite))
	suite.Run(t, new(TransportTestSuite))
}
