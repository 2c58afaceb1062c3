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

	"github.com/nuclio/searchnode/pkg/searchprotocol/adapter"

	"github.com/nuclio/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer moves the counters accumulated since its last call into prometheus metrics
type Gatherer interface {
	Gather() error
}

type ProtocolGatherer struct {
	getStatistics                       func() *adapter.Statistics
	prevStatistics                      adapter.Statistics
	requestsReceivedTotal               prometheus.Counter
	requestsRejectedTotal               prometheus.Counter
	repliesTotal                        prometheus.Counter
	repliesCompressedTotal              prometheus.Counter
	replyBytesTotal                     *prometheus.CounterVec
	completionDurationMilliSecondsSum   prometheus.Counter
	completionDurationMilliSecondsCount prometheus.Counter
}

func NewProtocolGatherer(instanceName string,
	kind adapter.Kind,
	getStatistics func() *adapter.Statistics,
	metricRegistry *prometheus.Registry) (*ProtocolGatherer, error) {

	newProtocolGatherer := &ProtocolGatherer{
		getStatistics: getStatistics,
	}

	labels := prometheus.Labels{
		"instance": instanceName,
		"kind":     kind.String(),
	}

	newProtocolGatherer.requestsReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "searchnode_protocol_requests_received_total",
		Help:        "Total number of protocol requests received",
		ConstLabels: labels,
	})

	newProtocolGatherer.requestsRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "searchnode_protocol_requests_rejected_total",
		Help:        "Total number of protocol requests rejected without reaching a backend",
		ConstLabels: labels,
	})

	newProtocolGatherer.repliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "searchnode_protocol_replies_total",
		Help:        "Total number of protocol replies sent",
		ConstLabels: labels,
	})

	newProtocolGatherer.repliesCompressedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "searchnode_protocol_replies_compressed_total",
		Help:        "Total number of protocol replies sent with a compressed payload",
		ConstLabels: labels,
	})

	newProtocolGatherer.replyBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "searchnode_protocol_reply_bytes_total",
		Help:        "Total number of reply payload bytes before and after compression",
		ConstLabels: labels,
	}, []string{"stage"})

	newProtocolGatherer.completionDurationMilliSecondsSum = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "searchnode_protocol_completion_duration_milliseconds_sum",
		Help:        "Total sum of milliseconds from request arrival to reply",
		ConstLabels: labels,
	})

	newProtocolGatherer.completionDurationMilliSecondsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "searchnode_protocol_completion_duration_milliseconds_count",
		Help:        "Number of measurements taken for searchnode_protocol_completion_duration_milliseconds_sum",
		ConstLabels: labels,
	})

	for _, collector := range []prometheus.Collector{
		newProtocolGatherer.requestsReceivedTotal,
		newProtocolGatherer.requestsRejectedTotal,
		newProtocolGatherer.repliesTotal,
		newProtocolGatherer.repliesCompressedTotal,
		newProtocolGatherer.replyBytesTotal,
		newProtocolGatherer.completionDurationMilliSecondsSum,
		newProtocolGatherer.completionDurationMilliSecondsCount,
	} {
		if err := metricRegistry.Register(collector); err != nil {
			return nil, errors.Wrapf(err, "Failed to register %s protocol metric", kind)
		}
	}

	return newProtocolGatherer, nil
}

func (pg *ProtocolGatherer) Gather() error {
	statistics := pg.getStatistics()

	// read current stats
	currentStatistics := adapter.Statistics{
		RequestsReceived:                  atomic.LoadUint64(&statistics.RequestsReceived),
		RequestsRejected:                  atomic.LoadUint64(&statistics.RequestsRejected),
		RepliesSent:                       atomic.LoadUint64(&statistics.RepliesSent),
		RepliesCompressed:                 atomic.LoadUint64(&statistics.RepliesCompressed),
		ReplyBytesUncompressed:            atomic.LoadUint64(&statistics.ReplyBytesUncompressed),
		ReplyBytesSent:                    atomic.LoadUint64(&statistics.ReplyBytesSent),
		CompletionDurationMilliSecondsSum: atomic.LoadUint64(&statistics.CompletionDurationMilliSecondsSum),
	}

	// diff from previous to get this period
	diffStatistics := currentStatistics.DiffFrom(&pg.prevStatistics)

	pg.requestsReceivedTotal.Add(float64(diffStatistics.RequestsReceived))
	pg.requestsRejectedTotal.Add(float64(diffStatistics.RequestsRejected))
	pg.repliesTotal.Add(float64(diffStatistics.RepliesSent))
	pg.repliesCompressedTotal.Add(float64(diffStatistics.RepliesCompressed))

	pg.replyBytesTotal.With(prometheus.Labels{"stage": "uncompressed"}).
		Add(float64(diffStatistics.ReplyBytesUncompressed))
	pg.replyBytesTotal.With(prometheus.Labels{"stage": "sent"}).
		Add(float64(diffStatistics.ReplyBytesSent))

	pg.completionDurationMilliSecondsSum.Add(float64(diffStatistics.CompletionDurationMilliSecondsSum))
	pg.completionDurationMilliSecondsCount.Add(float64(diffStatistics.RepliesSent))

	pg.prevStatistics = currentStatistics

	return nil
}
