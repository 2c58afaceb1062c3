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

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type AllocatorTestSuite struct {
	suite.Suite
	logger logger.Logger
}

func (suite *AllocatorTestSuite) SetupSuite() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
}

func (suite *AllocatorTestSuite) TestFixedPoolAllocator() {
	workers, err := NewWorkers(suite.logger, 2)
	suite.Require().NoError(err)

	fpa, err := NewFixedPoolWorkerAllocator(suite.logger, workers)
	suite.Require().NoError(err)
	suite.Require().Equal(2, fpa.GetNumWorkersAvailable())

	// allocate once - should allocate
	firstAllocatedWorker, err := fpa.Allocate(time.Hour)
	suite.Require().NoError(err)
	suite.Require().Contains(workers, firstAllocatedWorker)

	// allocate again - should allocate other worker
	secondAllocatedWorker, err := fpa.Allocate(time.Hour)
	suite.Require().NoError(err)
	suite.Require().Contains(workers, secondAllocatedWorker)
	suite.Require().NotEqual(firstAllocatedWorker, secondAllocatedWorker)

	// allocate yet again - should time out
	failedAllocationWorker, err := fpa.Allocate(50 * time.Millisecond)
	suite.Require().Equal(ErrNoAvailableWorkers, errors.RootCause(err))
	suite.Require().Nil(failedAllocationWorker)

	// no timeout fails immediately
	_, err = fpa.Allocate(0)
	suite.Require().Error(err)

	// release the second worker
	fpa.Release(secondAllocatedWorker)

	thirdAllocatedWorker, err := fpa.Allocate(time.Hour)
	suite.Require().NoError(err)
	suite.Require().Equal(secondAllocatedWorker, thirdAllocatedWorker)

	statistics := fpa.GetStatistics()
	suite.Require().Equal(uint64(5), statistics.WorkerAllocationCount)
	suite.Require().Equal(uint64(3), statistics.WorkerAllocationSuccessImmediateTotal)
	suite.Require().Equal(uint64(2), statistics.WorkerAllocationTimeoutTotal)
}

func (suite *AllocatorTestSuite) TestAllocateWaitsForRelease() {
	workers, err := NewWorkers(suite.logger, 1)
	suite.Require().NoError(err)

	fpa, err := NewFixedPoolWorkerAllocator(suite.logger, workers)
	suite.Require().NoError(err)

	allocatedWorker, err := fpa.Allocate(0)
	suite.Require().NoError(err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		fpa.Release(allocatedWorker)
	}()

	reallocatedWorker, err := fpa.Allocate(5 * time.Second)
	suite.Require().NoError(err)
	suite.Require().Equal(allocatedWorker, reallocatedWorker)
	suite.Require().Equal(uint64(1), fpa.GetStatistics().WorkerAllocationSuccessAfterWaitTotal)
}

func (suite *AllocatorTestSuite) TestDrain() {
	workers, err := NewWorkers(suite.logger, 3)
	suite.Require().NoError(err)

	fpa, err := NewFixedPoolWorkerAllocator(suite.logger, workers)
	suite.Require().NoError(err)

	busyWorker, err := fpa.Allocate(0)
	suite.Require().NoError(err)

	// a busy worker keeps the drain from completing
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	suite.Require().Error(fpa.Drain(ctx))
	suite.Require().Equal(2, fpa.GetNumWorkersAvailable())

	go func() {
		time.Sleep(20 * time.Millisecond)
		fpa.Release(busyWorker)
	}()

	suite.Require().NoError(fpa.Drain(context.Background()))
	suite.Require().Equal(3, fpa.GetNumWorkersAvailable())
}

func (suite *AllocatorTestSuite) TestWorkerRun() {
	workerInstance, err := NewWorker(suite.logger, 7)
	suite.Require().NoError(err)

	ran := false
	workerInstance.Run(func() { ran = true })

	suite.Require().True(ran)
	suite.Require().Equal(7, workerInstance.GetIndex())
	suite.Require().Equal(uint64(1), workerInstance.GetStatistics().JobsHandled)

	previous := *workerInstance.GetStatistics()
	workerInstance.Run(func() {})
	suite.Require().Equal(uint64(1), workerInstance.GetStatistics().DiffFrom(&previous).JobsHandled)
}

func (suite *AllocatorTestSuite) TestEmptyPoolRejected() {
	_, err := NewFixedPoolWorkerAllocator(suite.logger, nil)
	suite.Require().Error(err)
}

func TestAllocatorTestSuite(t *testing.T) {
	suite.Run(t, new(AllocatorTestSuite))
}
