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
	"testing"
	"time"

	"github.com/nuclio/searchnode/pkg/common/status"
	"github.com/nuclio/searchnode/pkg/engine"

	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type monitorClientFunc func(reply *engine.MonitorReply)

func (f monitorClientFunc) PingDone(reply *engine.MonitorReply) {
	f(reply)
}

type LocalTestSuite struct {
	suite.Suite
	logger       logger.Logger
	statusHolder *status.Holder
}

func (suite *LocalTestSuite) SetupTest() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
	suite.statusHolder = status.NewHolder(status.Initializing)
}

func (suite *LocalTestSuite) TestSynchronousPing() {
	monitorServer, err := NewMonitorServer(suite.logger, suite.statusHolder, MonitorConfiguration{
		DistributionKey: 3,
		ActiveDocs:      100,
	})
	suite.Require().NoError(err)

	unusedClient := monitorClientFunc(func(*engine.MonitorReply) {
		suite.Fail("Synchronous ping completed through the client")
	})

	reply := monitorServer.Ping(&engine.MonitorRequest{ReportActiveDocs: true}, unusedClient)
	suite.Require().NotNil(reply)
	suite.Require().False(reply.Online)
	suite.Require().Equal(int32(3), reply.DistributionKey)
	suite.Require().Equal(uint64(100), reply.ActiveDocs)

	suite.statusHolder.SetStatus(status.Ready)
	monitorServer.SetActiveDocs(250)

	reply = monitorServer.Ping(&engine.MonitorRequest{ReportActiveDocs: true}, unusedClient)
	suite.Require().True(reply.Online)
	suite.Require().Equal(uint64(250), reply.ActiveDocs)

	// active docs are only reported when asked for
	reply = monitorServer.Ping(&engine.MonitorRequest{}, unusedClient)
	suite.Require().Zero(reply.ActiveDocs)

	suite.statusHolder.SetStatus(status.Draining)
	suite.Require().False(monitorServer.Ping(&engine.MonitorRequest{}, unusedClient).Online)
}

func (suite *LocalTestSuite) TestAsynchronousPing() {
	suite.statusHolder.SetStatus(status.Ready)

	monitorServer, err := NewMonitorServer(suite.logger, suite.statusHolder, MonitorConfiguration{Async: true})
	suite.Require().NoError(err)

	replies := make(chan *engine.MonitorReply, 1)

	reply := monitorServer.Ping(&engine.MonitorRequest{}, monitorClientFunc(func(reply *engine.MonitorReply) {
		replies <- reply
	}))
	suite.Require().Nil(reply)

	select {
	case reply = <-replies:
		suite.Require().True(reply.Online)
	case <-time.After(5 * time.Second):
		suite.Fail("Ping never completed")
	}
}

func (suite *LocalTestSuite) TestMonitorRequiresStatusProvider() {
	_, err := NewMonitorServer(suite.logger, nil, MonitorConfiguration{})
	suite.Require().Error(err)
}

func (suite *LocalTestSuite) TestUnavailableSearch() {
	searchServer := NewUnavailableSearchServer(suite.logger)

	reply := searchServer.Search(engine.NewDecodedRequestSource(&engine.SearchRequest{Offset: 20}), nil)
	suite.Require().True(reply.HasError())
	suite.Require().Equal(ErrorCodeNoBackend, reply.ErrorCode)
	suite.Require().Equal(uint32(20), reply.Offset)

	// a request that failed to decode still gets an error reply
	reply = searchServer.Search(engine.NewDecodedRequestSource[engine.SearchRequest](nil), nil)
	suite.Require().True(reply.HasError())
}

func (suite *LocalTestSuite) TestUnavailableDocsums() {
	docsumServer := NewUnavailableDocsumServer(suite.logger)

	reply := docsumServer.GetDocsums(engine.NewDecodedRequestSource(&engine.DocsumRequest{
		Hits: []engine.DocsumHit{{}},
	}), nil)

	suite.Require().Equal([]string{"no docsum backend attached"}, reply.Issues)
	suite.Require().Nil(reply.Summaries)
}

func TestLocalTestSuite(t *testing.T) {
	suite.Run(t, new(LocalTestSuite))
}
