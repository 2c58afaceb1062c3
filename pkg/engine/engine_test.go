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

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type countingDecoder struct {
	calls   int
	request *SearchRequest
}

func (cd *countingDecoder) Decode() *SearchRequest {
	cd.calls++
	return cd.request
}

type EngineTestSuite struct {
	suite.Suite
}

func (suite *EngineTestSuite) TestSourceDecodesOnce() {
	decoder := &countingDecoder{request: &SearchRequest{Offset: 5}}
	source := NewRequestSource[SearchRequest](decoder)

	suite.Require().Equal(0, decoder.calls)

	var waitGroup sync.WaitGroup
	for goroutineIndex := 0; goroutineIndex < 8; goroutineIndex++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			suite.Equal(uint32(5), source.Get().Offset)
		}()
	}
	waitGroup.Wait()

	suite.Require().Equal(1, decoder.calls)
}

func (suite *EngineTestSuite) TestSourceMemoizesFailure() {
	decoder := &countingDecoder{}
	source := NewRequestSource[SearchRequest](decoder)

	suite.Require().Nil(source.Get())
	suite.Require().Nil(source.Get())
	suite.Require().Equal(1, decoder.calls)
}

func (suite *EngineTestSuite) TestDecodedSource() {
	request := &DocsumRequest{ResultClassName: "short"}
	source := NewDecodedRequestSource(request)

	suite.Require().Same(request, source.Get())
}

func (suite *EngineTestSuite) TestRelativeTime() {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	relativeTime := NewRelativeTime(now, clock)
	relativeTime.SetTimeout(100 * time.Millisecond)

	suite.Require().Equal(100*time.Millisecond, relativeTime.GetTimeLeft())
	suite.Require().Equal(now.Add(100*time.Millisecond), relativeTime.GetDeadline())
	suite.Require().False(relativeTime.Expired())

	now = now.Add(60 * time.Millisecond)
	suite.Require().Equal(60*time.Millisecond, relativeTime.GetElapsed())
	suite.Require().Equal(40*time.Millisecond, relativeTime.GetTimeLeft())

	now = now.Add(time.Second)
	suite.Require().Equal(time.Duration(0), relativeTime.GetTimeLeft())
	suite.Require().True(relativeTime.Expired())

	request := Request{RelativeTime: relativeTime}
	suite.Require().True(request.Expired())
	suite.Require().Equal(100*time.Millisecond, request.GetTimeout())
}

func (suite *EngineTestSuite) TestCoverageDegradeReasons() {
	coverage := Coverage{DegradeReason: DegradeMatchPhase}
	suite.Require().True(coverage.WasDegradedByMatchPhase())
	suite.Require().False(coverage.WasDegradedByTimeout())

	coverage.DegradeReason = DegradeAdaptiveTimeout
	suite.Require().False(coverage.WasDegradedByMatchPhase())
	suite.Require().True(coverage.WasDegradedByTimeout())
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
