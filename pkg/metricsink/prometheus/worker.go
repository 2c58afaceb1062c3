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


package prometheus

import (
	"strconv"
	"sync/atomic"

	"github.com/nuclio/searchnode/pkg/rpc/worker"

	"github.com/nuclio/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type WorkerGatherer struct {
	worker                               *worker.Worker
	prevStatistics                       worker.Statistics
	handledJobsDurationMilliSecondsSum   prometheus.Counter
	handledJobsDurationMilliSecondsCount prometheus.Counter
}

func NewWorkerGatherer(instanceName string,
	worker *worker.Worker,
	metricRegistry *prometheus.Registry) (*WorkerGatherer, error) {

	newWorkerGatherer := &WorkerGatherer{
		worker: worker,
	}

	labels := prometheus.Labels{
		"instance":     instanceName,
		"worker_index": strconv.Itoa(worker.GetIndex()),
	}

	newWorkerGatherer.handledJobsDurationMilliSecondsSum = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "searchnode_rpc_handled_jobs_duration_milliseconds_sum",
		Help:        "Total sum of milliseconds workers spent running method handlers",
		ConstLabels: labels,
	})

	if err := metricRegistry.Register(newWorkerGatherer.handledJobsDurationMilliSecondsSum); err != nil {
		return nil, errors.Wrap(err, "Failed to register handledJobsDurationMilliSecondsSum")
	}

	newWorkerGatherer.handledJobsDurationMilliSecondsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "searchnode_rpc_handled_jobs_duration_milliseconds_count",
		Help:        "Number of measurements taken for searchnode_rpc_handled_jobs_duration_milliseconds_sum",
		ConstLabels: labels,
	})

	if err := metricRegistry.Register(newWorkerGatherer.handledJobsDurationMilliSecondsCount); err != nil {
		return nil, errors.Wrap(err, "Failed to register handledJobsDurationMilliSecondsCount")
	}

	return newWorkerGatherer, nil
}

func (wg *WorkerGatherer) Gather() error {
	statistics := wg.worker.GetStatistics()

	// read current stats
	currentStatistics := worker.Statistics{
		JobsHandled:                atomic.LoadUint64(&statistics.JobsHandled),
		JobDurationMilliSecondsSum: atomic.LoadUint64(&statistics.JobDurationMilliSecondsSum),
	}

	// diff from previous to get this period
	diffStatistics := currentStatistics.DiffFrom(&wg.prevStatistics)

	wg.handledJobsDurationMilliSecondsSum.Add(float64(diffStatistics.JobDurationMilliSecondsSum))
	wg.handledJobsDurationMilliSecondsCount.Add(float64(diffStatistics.JobsHandled))

	// save previous
	wg.prevStatistics = currentStatistics

	return nil
}
