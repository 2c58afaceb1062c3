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
	"sync/atomic"
	"time"

	"github.com/nuclio/searchnode/pkg/common/status"
	"github.com/nuclio/searchnode/pkg/engine"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

type MonitorConfiguration struct {
	DistributionKey  int32
	ActiveDocs       uint64
	IsBlockingWrites bool

	// answer pings from a separate goroutine through the completion handle
	Async bool
}

// MonitorServer answers pings with the node's status
type MonitorServer struct {

	// accessed atomically, keep as first field for alignment
	activeDocs uint64

	logger         logger.Logger
	statusProvider status.Provider
	configuration  MonitorConfiguration
	clock          engine.Clock
}

func NewMonitorServer(parentLogger logger.Logger,
	statusProvider status.Provider,
	configuration MonitorConfiguration) (*MonitorServer, error) {

	if statusProvider == nil {
		return nil, errors.New("Monitor server requires a status provider")
	}

	newMonitorServer := &MonitorServer{
		activeDocs:     configuration.ActiveDocs,
		logger:         parentLogger.GetChild("monitor"),
		statusProvider: statusProvider,
		configuration:  configuration,
		clock:          time.Now,
	}

	newMonitorServer.logger.DebugWith("Created",
		"distributionKey", configuration.DistributionKey,
		"async", configuration.Async)

	return newMonitorServer, nil
}

func (ms *MonitorServer) Ping(request *engine.MonitorRequest, client engine.MonitorClient) *engine.MonitorReply {
	if !ms.configuration.Async {
		return ms.createReply(request)
	}

	go client.PingDone(ms.createReply(request))

	return nil
}

// SetActiveDocs updates the number of documents reported to pings
func (ms *MonitorServer) SetActiveDocs(activeDocs uint64) {
	atomic.StoreUint64(&ms.activeDocs, activeDocs)
}

func (ms *MonitorServer) createReply(request *engine.MonitorRequest) *engine.MonitorReply {
	reply := &engine.MonitorReply{
		Online:           ms.statusProvider.GetStatus() == status.Ready,
		DistributionKey:  ms.configuration.DistributionKey,
		IsBlockingWrites: ms.configuration.IsBlockingWrites,
		Timestamp:        ms.clock(),
	}

	if request.ReportActiveDocs {
		reply.ActiveDocs = atomic.LoadUint64(&ms.activeDocs)
	}

	return reply
}
