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
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nuclio/searchnode/pkg/metricsink"
	"github.com/nuclio/searchnode/pkg/searchprotocol/adapter"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Kind = "prometheusPull"

type Configuration struct {
	Enabled       bool
	ListenAddress string
	InstanceName  string
}

// MetricSink serves the node's counters on /metrics. Counters are gathered on every scrape
type MetricSink struct {
	*metricsink.AbstractMetricSink
	configuration  *Configuration
	metricRegistry *prometheus.Registry
	gatherers      []Gatherer
	gatherLock     sync.Mutex
	listener       net.Listener
	httpServer     *http.Server
}

func NewMetricSink(parentLogger logger.Logger,
	configuration *Configuration,
	metricProvider metricsink.MetricProvider) (*MetricSink, error) {
	loggerInstance := parentLogger.GetChild("metrics")

	newAbstractMetricSink, err := metricsink.NewAbstractMetricSink(loggerInstance,
		Kind,
		configuration.InstanceName,
		metricProvider)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create abstract metric sink")
	}

	newMetricSink := &MetricSink{
		AbstractMetricSink: newAbstractMetricSink,
		configuration:      configuration,
		metricRegistry:     prometheus.NewRegistry(),
	}

	if err := newMetricSink.createGatherers(metricProvider); err != nil {
		return nil, errors.Wrap(err, "Failed to create gatherers")
	}

	newMetricSink.Logger.InfoWith("Created",
		"instanceName", configuration.InstanceName,
		"listenAddress", configuration.ListenAddress,
		"numGatherers", len(newMetricSink.gatherers))

	return newMetricSink, nil
}

// Start listens on the configured address and serves scrapes in the background
func (ms *MetricSink) Start() error {
	if !ms.configuration.Enabled {
		ms.Logger.DebugWith("Disabled, not starting")
		close(ms.StoppedChannel)

		return nil
	}

	listener, err := net.Listen("tcp", ms.configuration.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "Failed to listen on %s", ms.configuration.ListenAddress)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", ms.Handler())

	ms.listener = listener
	ms.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := ms.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			ms.Logger.WarnWith("Metrics server stopped", "err", err.Error())
		}
	}()

	go ms.waitForStop()

	ms.Logger.InfoWith("Listening", "listenAddress", listener.Addr().String())

	return nil
}

// Handler gathers all counters and then serves the registry
func (ms *MetricSink) Handler() http.Handler {
	registryHandler := promhttp.HandlerFor(ms.metricRegistry, promhttp.HandlerOpts{})

	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if err := ms.gather(); err != nil {
			http.Error(responseWriter, err.Error(), http.StatusInternalServerError)
			return
		}

		registryHandler.ServeHTTP(responseWriter, request)
	})
}

// GetAddress returns the address the sink listens on, once started
func (ms *MetricSink) GetAddress() string {
	if ms.listener == nil {
		return ""
	}

	return ms.listener.Addr().String()
}

func (ms *MetricSink) waitForStop() {
	<-ms.StopChannel

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ms.httpServer.Shutdown(ctx); err != nil {
		ms.Logger.WarnWith("Failed to shut down metrics server", "err", err.Error())
	}

	close(ms.StoppedChannel)
}

func (ms *MetricSink) createGatherers(metricProvider metricsink.MetricProvider) error {
	for _, kind := range adapter.Kinds {
		kind := kind

		protocolGatherer, err := NewProtocolGatherer(ms.configuration.InstanceName,
			kind,
			func() *adapter.Statistics {
				return metricProvider.GetProtocolStatistics(kind)
			},
			ms.metricRegistry)
		if err != nil {
			return errors.Wrap(err, "Failed to create protocol gatherer")
		}

		ms.gatherers = append(ms.gatherers, protocolGatherer)
	}

	allocator := metricProvider.GetWorkerAllocator()

	supervisorGatherer, err := NewSupervisorGatherer(ms.configuration.InstanceName,
		metricProvider.GetSupervisorStatistics,
		allocator,
		ms.metricRegistry)
	if err != nil {
		return errors.Wrap(err, "Failed to create supervisor gatherer")
	}

	ms.gatherers = append(ms.gatherers, supervisorGatherer)

	// now add workers
	for _, worker := range allocator.GetWorkers() {
		workerGatherer, err := NewWorkerGatherer(ms.configuration.InstanceName, worker, ms.metricRegistry)
		if err != nil {
			return errors.Wrap(err, "Failed to create worker gatherer")
		}

		ms.gatherers = append(ms.gatherers, workerGatherer)
	}

	return nil
}

func (ms *MetricSink) gather() error {
	ms.gatherLock.Lock()
	defer ms.gatherLock.Unlock()

	for _, gatherer := range ms.gatherers {
		if err := gatherer.Gather(); err != nil {
			return err
		}
	}

	return nil
}
