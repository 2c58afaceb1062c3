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
	"sync/atomic"
	"time"

	"github.com/nuclio/logger"
)

// Worker runs method handlers. A worker runs one job at a time
type Worker struct {

	// accessed atomically, keep as first field for alignment
	statistics Statistics

	logger logger.Logger
	index  int
}

// NewWorker creates a new worker
func NewWorker(parentLogger logger.Logger, index int) (*Worker, error) {
	return &Worker{
		logger: parentLogger,
		index:  index,
	}, nil
}

// NewWorkers creates numWorkers workers, indexed from zero
func NewWorkers(parentLogger logger.Logger, numWorkers int) ([]*Worker, error) {
	var workers []*Worker

	for workerIndex := 0; workerIndex < numWorkers; workerIndex++ {
		workerInstance, err := NewWorker(parentLogger, workerIndex)
		if err != nil {
			return nil, err
		}

		workers = append(workers, workerInstance)
	}

	return workers, nil
}

// Run executes the job on the calling goroutine and accounts for it
func (w *Worker) Run(job func()) {
	startedAt := time.Now()

	job()

	atomic.AddUint64(&w.statistics.JobsHandled, 1)
	atomic.AddUint64(&w.statistics.JobDurationMilliSecondsSum, uint64(time.Since(startedAt).Milliseconds()))
}

// GetStatistics returns a pointer to the statistics object. This must not be modified by the reader
func (w *Worker) GetStatistics() *Statistics {
	return &w.statistics
}

// GetIndex returns the index of the worker, as specified during creation
func (w *Worker) GetIndex() int {
	return w.index
}
