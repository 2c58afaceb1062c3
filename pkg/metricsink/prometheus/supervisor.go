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
	"sync/atomic"

	"github.com/nuclio/searchnode/pkg/rpc"
	"github.com/nuclio/searchnode/pkg/rpc/worker"

	"github.com/nuclio/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type SupervisorGatherer struct {
	getStatistics           func() *rpc.SupervisorStatistics
	allocator               worker.Allocator
	prevStatistics          rpc.SupervisorStatistics
	prevAllocatorStatistics worker.AllocatorStatistics
	requestsTotal           *prometheus.CounterVec
	workerAllocationsTotal  *prometheus.CounterVec
	workerAllocationWaitSum prometheus.Counter
	workersAvailable        prometheus.Gauge
}

func NewSupervisorGatherer(instanceName string,
	getStatistics func() *rpc.SupervisorStatistics,
	allocator worker.Allocator,
	metricRegistry *prometheus.Registry) (*SupervisorGatherer, error) {

	newSupervisorGatherer := &SupervisorGatherer{
		getStatistics: getStatistics,
		allocator:     allocator,
	}

	labels := prometheus.Labels{
		"instance": instanceName,
	}

	newSupervisorGatherer.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "searchnode_rpc_requests_total",
		Help:        "Total number of transport calls by dispatch result",
		ConstLabels: labels,
	}, []string{"result"})

	newSupervisorGatherer.workerAllocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "searchnode_rpc_worker_allocations_total",
		Help:        "Total number of worker allocations by result",
		ConstLabels: labels,
	}, []string{"result"})

	newSupervisorGatherer.workerAllocationWaitSum = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "searchnode_rpc_worker_allocation_wait_duration_milliseconds_sum",
		Help:        "Total sum of milliseconds spent waiting for a worker",
		ConstLabels: labels,
	})

	newSupervisorGatherer.workersAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "searchnode_rpc_workers_available",
		Help:        "Number of idle workers",
		ConstLabels: labels,
	})

	for _, collector := range []prometheus.Collector{
		newSupervisorGatherer.requestsTotal,
		newSupervisorGatherer.workerAllocationsTotal,
		newSupervisorGatherer.workerAllocationWaitSum,
		newSupervisorGatherer.workersAvailable,
	} {
		if err := metricRegistry.Register(collector); err != nil {
			return nil, errors.Wrap(err, "Failed to register supervisor metric")
		}
	}

	return newSupervisorGatherer, nil
}

func (sg *SupervisorGatherer) Gather() error {
	statistics := sg.getStatistics()

	currentStatistics := rpc.SupervisorStatistics{
		RequestsReceived: atomic.LoadUint64(&statistics.RequestsReceived),
		RequestsRejected: atomic.LoadUint64(&statistics.RequestsRejected),
		RequestsHandled:  atomic.LoadUint64(&statistics.RequestsHandled),
	}

	diffStatistics := currentStatistics.DiffFrom(&sg.prevStatistics)

	sg.requestsTotal.With(prometheus.Labels{"result": "received"}).Add(float64(diffStatistics.RequestsReceived))
	sg.requestsTotal.With(prometheus.Labels{"result": "rejected"}).Add(float64(diffStatistics.RequestsRejected))
	sg.requestsTotal.With(prometheus.Labels{"result": "handled"}).Add(float64(diffStatistics.RequestsHandled))

	sg.prevStatistics = currentStatistics

	allocatorStatistics := sg.allocator.GetStatistics()

	currentAllocatorStatistics := worker.AllocatorStatistics{
		WorkerAllocationSuccessImmediateTotal:       atomic.LoadUint64(&allocatorStatistics.WorkerAllocationSuccessImmediateTotal),
		WorkerAllocationSuccessAfterWaitTotal:       atomic.LoadUint64(&allocatorStatistics.WorkerAllocationSuccessAfterWaitTotal),
		WorkerAllocationTimeoutTotal:                atomic.LoadUint64(&allocatorStatistics.WorkerAllocationTimeoutTotal),
		WorkerAllocationWaitDurationMilliSecondsSum: atomic.LoadUint64(&allocatorStatistics.WorkerAllocationWaitDurationMilliSecondsSum),
	}

	diffAllocatorStatistics := currentAllocatorStatistics.DiffFrom(&sg.prevAllocatorStatistics)

	sg.workerAllocationsTotal.With(prometheus.Labels{"result": "immediate"}).
		Add(float64(diffAllocatorStatistics.WorkerAllocationSuccessImmediateTotal))
	sg.workerAllocationsTotal.With(prometheus.Labels{"result": "after_wait"}).
		Add(float64(diffAllocatorStatistics.WorkerAllocationSuccessAfterWaitTotal))
	sg.workerAllocationsTotal.With(prometheus.Labels{"result": "timeout"}).
		Add(float64(diffAllocatorStatistics.WorkerAllocationTimeoutTotal))
	sg.workerAllocationWaitSum.Add(float64(diffAllocatorStatistics.WorkerAllocationWaitDurationMilliSecondsSum))

	sg.workersAvailable.Set(float64(sg.allocator.GetNumWorkersAvailable()))

	sg.prevAllocatorStatistics = currentAllocatorStatistics

	return nil
}
