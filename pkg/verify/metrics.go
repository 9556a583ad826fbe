// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify

import (
	m "github.com/ethersphere/lottery/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	Submissions prometheus.Counter
	Verified    prometheus.Counter
	Failures    prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "verify"

	return metrics{
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "submissions_total",
			Help:      "Number of verification submissions.",
		}),
		Verified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "verified_total",
			Help:      "Number of verified contracts.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "failures_total",
			Help:      "Number of failed verifications.",
		}),
	}
}

func (c *Client) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(c.metrics)
}
