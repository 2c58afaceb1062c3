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
	"sync/atomic"
	"time"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// errors
var ErrNoAvailableWorkers = errors.New("No available workers")

type Allocator interface {

	// allocate a worker
	Allocate(timeout time.Duration) (*Worker, error)

	// release a worker
	Release(worker *Worker)

	// get direct access to all workers for things like management / housekeeping
	GetWorkers() []*Worker

	// get number of workers available in the allocator
	GetNumWorkersAvailable() int

	// GetStatistics returns worker allocator statistics
	GetStatistics() *AllocatorStatistics

	// Drain blocks until no worker is busy
	Drain(ctx context.Context) error
}

//
// Fixed pool of workers
// Holds a fixed number of workers. When a worker is unavailable, caller is blocked
//

type fixedPool struct {

	// accessed atomically, keep as first field for alignment
	statistics AllocatorStatistics

	logger     logger.Logger
	workerChan chan *Worker
	workers    []*Worker
}

func NewFixedPoolWorkerAllocator(parentLogger logger.Logger, workers []*Worker) (Allocator, error) {
	if len(workers) == 0 {
		return nil, errors.New("Fixed pool requires at least one worker")
	}

	newFixedPool := fixedPool{
		logger:     parentLogger.GetChild("fixed_pool_allocator"),
		workerChan: make(chan *Worker, len(workers)),
		workers:    workers,
	}

	// iterate over workers, shove to pool
	for _, workerInstance := range workers {
		newFixedPool.workerChan <- workerInstance
	}

	return &newFixedPool, nil
}

func (fp *fixedPool) Allocate(timeout time.Duration) (*Worker, error) {
	atomic.AddUint64(&fp.statistics.WorkerAllocationCount, 1)

	// measure how many workers are available in the queue while we're allocating
	percentageOfAvailableWorkers := len(fp.workerChan) * 100 / len(fp.workers)
	atomic.AddUint64(&fp.statistics.WorkerAllocationWorkersAvailablePercentage, uint64(percentageOfAvailableWorkers))

	select {
	case workerInstance := <-fp.workerChan:
		atomic.AddUint64(&fp.statistics.WorkerAllocationSuccessImmediateTotal, 1)

		return workerInstance, nil
	default:

		// if there's no timeout, return now
		if timeout == 0 {
			atomic.AddUint64(&fp.statistics.WorkerAllocationTimeoutTotal, 1)
			return nil, ErrNoAvailableWorkers
		}

		waitStartAt := time.Now()
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case workerInstance := <-fp.workerChan:
			atomic.AddUint64(&fp.statistics.WorkerAllocationSuccessAfterWaitTotal, 1)
			atomic.AddUint64(&fp.statistics.WorkerAllocationWaitDurationMilliSecondsSum,
				uint64(time.Since(waitStartAt).Milliseconds()))
			return workerInstance, nil
		case <-timer.C:
			atomic.AddUint64(&fp.statistics.WorkerAllocationTimeoutTotal, 1)
			return nil, ErrNoAvailableWorkers
		}
	}
}

func (fp *fixedPool) Release(worker *Worker) {
	fp.workerChan <- worker
}

func (fp *fixedPool) GetWorkers() []*Worker {
	return fp.workers
}

func (fp *fixedPool) GetNumWorkersAvailable() int {
	return len(fp.workerChan)
}

func (fp *fixedPool) GetStatistics() *AllocatorStatistics {
	return &fp.statistics
}

func (fp *fixedPool) Drain(ctx context.Context) error {
	var drainedWorkers []*Worker

	// hand everything back once we're done, drained or not
	defer func() {
		for _, workerInstance := range drainedWorkers {
			fp.workerChan <- workerInstance
		}
	}()

	for len(drainedWorkers) < len(fp.workers) {
		select {
		case workerInstance := <-fp.workerChan:
			drainedWorkers = append(drainedWorkers, workerInstance)
		case <-ctx.Done():
			busyWorkers := len(fp.workers) - len(drainedWorkers)

			fp.logger.WarnWith("Workers still busy after drain deadline", "busyWorkers", busyWorkers)
			return errors.Wrapf(ctx.Err(), "%d workers still busy", busyWorkers)
		}
	}

	fp.logger.DebugWith("All workers drained", "numWorkers", len(fp.workers))

	return nil
}
