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


package node

import (
	"context"
	"time"

	"github.com/nuclio/searchnode/pkg/common/status"
	"github.com/nuclio/searchnode/pkg/engine/local"
	"github.com/nuclio/searchnode/pkg/errgroup"
	"github.com/nuclio/searchnode/pkg/healthcheck"
	"github.com/nuclio/searchnode/pkg/metricsink/prometheus"
	"github.com/nuclio/searchnode/pkg/nodeconfig"
	"github.com/nuclio/searchnode/pkg/rpc"
	"github.com/nuclio/searchnode/pkg/rpc/worker"
	"github.com/nuclio/searchnode/pkg/searchprotocol/adapter"
	"github.com/nuclio/searchnode/pkg/searchprotocol/compression"
	"github.com/nuclio/searchnode/pkg/version"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// Node serves the search protocol over rpc, alongside its metrics and health endpoints
type Node struct {
	logger            logger.Logger
	configuration     *nodeconfig.Config
	status            *status.Holder
	supervisor        *rpc.Supervisor
	adapter           *adapter.Adapter
	monitorServer     *local.MonitorServer
	rpcServer         *rpc.Server
	metricSink        *prometheus.MetricSink
	healthCheckServer *healthcheck.Server
}

func NewNode(parentLogger logger.Logger, configuration *nodeconfig.Config) (*Node, error) {
	var err error

	if err = configuration.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid configuration")
	}

	newNode := &Node{
		logger:        parentLogger.GetChild("node"),
		configuration: configuration,
		status:        status.NewHolder(status.Initializing),
	}

	if newNode.supervisor, err = newNode.createSupervisor(); err != nil {
		return nil, errors.Wrap(err, "Failed to create supervisor")
	}

	if newNode.adapter, err = newNode.createAdapter(); err != nil {
		return nil, errors.Wrap(err, "Failed to create adapter")
	}

	if err = newNode.adapter.Register(newNode.supervisor); err != nil {
		return nil, errors.Wrap(err, "Failed to register protocol methods")
	}

	newNode.rpcServer, err = rpc.NewServer(newNode.logger, newNode.supervisor, rpc.ServerConfiguration{
		MaxFrameSize: configuration.RPC.MaxFrameSize,
		WriteTimeout: configuration.GetWriteTimeout(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create rpc server")
	}

	newNode.metricSink, err = prometheus.NewMetricSink(newNode.logger, &prometheus.Configuration{
		Enabled:       configuration.Metrics.IsEnabled(),
		ListenAddress: configuration.Metrics.ListenAddress,
		InstanceName:  configuration.Metrics.InstanceName,
	}, newNode)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create metric sink")
	}

	newNode.healthCheckServer, err = healthcheck.NewServer(newNode.logger, newNode.status, &healthcheck.Configuration{
		Enabled:       configuration.HealthCheck.IsEnabled(),
		ListenAddress: configuration.HealthCheck.ListenAddress,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create health check server")
	}

	return newNode, nil
}

// Run serves until ctx is cancelled, then drains in-flight calls and stops
func (n *Node) Run(ctx context.Context) error {
	version.Log(n.logger)

	if err := n.rpcServer.Listen(n.configuration.RPC.ListenAddress); err != nil {
		n.status.SetStatus(status.Error)
		return errors.Wrap(err, "Failed to listen")
	}

	if err := n.healthCheckServer.Start(); err != nil {
		n.abortStart(false)
		return errors.Wrap(err, "Failed to start health check server")
	}

	if err := n.metricSink.Start(); err != nil {
		n.abortStart(true)
		return errors.Wrap(err, "Failed to start metric sink")
	}

	group, groupCtx := errgroup.WithContext(ctx, n.logger)

	group.Go("rpc server", n.rpcServer.Serve)
	group.Go("shutdown", func() error {
		<-groupCtx.Done()

		return n.shutdown()
	})

	n.status.SetStatus(status.Ready)

	n.logger.InfoWith("Node is ready",
		"rpcAddress", n.rpcServer.GetAddress(),
		"numWorkers", n.configuration.RPC.NumWorkers)

	if err := group.Wait(); err != nil {
		n.status.SetStatus(status.Error)
		return err
	}

	return nil
}

func (n *Node) GetStatus() status.Status {
	return n.status.GetStatus()
}

// GetAddress returns the rpc address, once listening
func (n *Node) GetAddress() string {
	return n.rpcServer.GetAddress()
}

func (n *Node) GetMetricsAddress() string {
	return n.metricSink.GetAddress()
}

func (n *Node) GetHealthCheckAddress() string {
	return n.healthCheckServer.GetAddress()
}

// GetMonitorServer returns the backend answering pings, e.g. to update active docs
func (n *Node) GetMonitorServer() *local.MonitorServer {
	return n.monitorServer
}

func (n *Node) GetProtocolStatistics(kind adapter.Kind) *adapter.Statistics {
	return n.adapter.GetStatistics(kind)
}

func (n *Node) GetSupervisorStatistics() *rpc.SupervisorStatistics {
	return n.supervisor.GetStatistics()
}

func (n *Node) GetWorkerAllocator() worker.Allocator {
	return n.supervisor.GetAllocator()
}

func (n *Node) createSupervisor() (*rpc.Supervisor, error) {
	workers, err := worker.NewWorkers(n.logger, n.configuration.RPC.NumWorkers)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create workers")
	}

	allocator, err := worker.NewFixedPoolWorkerAllocator(n.logger, workers)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create worker allocator")
	}

	return rpc.NewSupervisor(n.logger, allocator, n.configuration.GetAllocationTimeout())
}

func (n *Node) createAdapter() (*adapter.Adapter, error) {
	var err error

	compressionConfig, err := n.configuration.GetCompressionConfig()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get compression configuration")
	}

	compressionPolicy, err := compression.NewPolicy(compressionConfig)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create compression policy")
	}

	n.monitorServer, err = local.NewMonitorServer(n.logger, n.status, local.MonitorConfiguration{
		DistributionKey:  n.configuration.Monitor.DistributionKey,
		ActiveDocs:       n.configuration.Monitor.ActiveDocs,
		IsBlockingWrites: n.configuration.Monitor.IsBlockingWrites,
		Async:            n.configuration.Monitor.Async,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create monitor server")
	}

	return adapter.NewAdapter(n.logger,
		local.NewUnavailableSearchServer(n.logger),
		local.NewUnavailableDocsumServer(n.logger),
		n.monitorServer,
		compressionPolicy)
}

// abortStart releases what Run bound before a later start step failed
func (n *Node) abortStart(healthCheckStarted bool) {
	n.status.SetStatus(status.Error)

	if healthCheckStarted {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := n.healthCheckServer.Stop(stopCtx); err != nil {
			n.logger.WarnWith("Failed to stop health check server", "err", err.Error())
		}
	}

	if err := n.rpcServer.Close(); err != nil {
		n.logger.WarnWith("Failed to close rpc server", "err", err.Error())
	}
}

func (n *Node) shutdown() error {
	n.logger.InfoWith("Shutting down", "drainTimeout", n.configuration.GetDrainTimeout())

	// pings report the node offline from here on
	n.status.SetStatus(status.Draining)

	drainCtx, cancel := context.WithTimeout(context.Background(), n.configuration.GetDrainTimeout())
	defer cancel()

	if err := n.supervisor.Drain(drainCtx); err != nil {
		n.logger.WarnWith("Failed to drain workers", "err", err.Error())
	}

	closeErr := n.rpcServer.Close()

	select {
	case <-n.metricSink.Stop():
	case <-time.After(10 * time.Second):
		n.logger.Warn("Timed out waiting for metric sink to stop")
	}

	if err := n.healthCheckServer.Stop(drainCtx); err != nil {
		n.logger.WarnWith("Failed to stop health check server", "err", err.Error())
	}

	n.status.SetStatus(status.Stopped)

	if closeErr != nil {
		return errors.Wrap(closeErr, "Failed to close rpc server")
	}

	return nil
}
