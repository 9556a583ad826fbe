// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wrapped

import (
	m "github.com/ethersphere/lottery/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	TotalRPCCalls  prometheus.Counter
	TotalRPCErrors prometheus.Counter
	Calls          *prometheus.CounterVec
	CallDuration   *prometheus.HistogramVec
}

func newMetrics() metrics {
	subsystem := "eth_backend"

	return metrics{
		TotalRPCCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "total_rpc_calls",
			Help:      "Count of rpc calls",
		}),
		TotalRPCErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "total_rpc_errors",
			Help:      "Count of rpc errors",
		}),
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls",
			Help:      "Count of rpc calls by method",
		}, []string{"method"}),
		CallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "call_duration_seconds",
			Help:      "Duration of rpc calls by method",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method"}),
	}
}

func (b *wrappedBackend) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(b.metrics)
}
