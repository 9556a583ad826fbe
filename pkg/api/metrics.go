// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"github.com/ethersphere/lottery"
	m "github.com/ethersphere/lottery/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	// all metrics fields must be exported
	// to be able to return them by Metrics()
	// using reflection
	RequestCount       prometheus.Counter
	ResponseDuration   prometheus.Histogram
	ResponseCodeCounts *prometheus.CounterVec

	StatusFeedConnections prometheus.Gauge
	StatusFeedMessages    prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "api"

	return metrics{
		RequestCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "request_count",
			Help:      "Number of API requests.",
		}),
		ResponseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "response_duration_seconds",
			Help:      "Histogram of API response durations.",
			Buckets:   []float64{0.01, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ResponseCodeCounts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: m.Namespace,
				Subsystem: subsystem,
				Name:      "response_code_count",
				Help:      "Response count grouped by status code",
			},
			[]string{"code", "method"},
		),
		StatusFeedConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "status_feed_connections",
			Help:      "Number of open lottery status websocket connections.",
		}),
		StatusFeedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "status_feed_messages_count",
			Help:      "Number of lottery status updates pushed over websockets.",
		}),
	}
}

func (s *Service) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(s.metrics)
}

func newMetricsRegistry() *prometheus.Registry {
	r := m.NewRegistry()
	r.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.Namespace,
		Name:      "info",
		Help:      "Lottery node information.",
		ConstLabels: prometheus.Labels{
			"version": lottery.Version,
		},
	}))
	return r
}
