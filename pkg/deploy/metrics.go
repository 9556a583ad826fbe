// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	m "github.com/ethersphere/lottery/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	Deployments       prometheus.Counter
	ReusedDeployments prometheus.Counter
	FailedDeployments prometheus.Counter
	DeploymentGasUsed prometheus.Counter
	ScriptDuration    *prometheus.HistogramVec
}

func newMetrics() metrics {
	subsystem := "deploy"

	return metrics{
		Deployments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "deployments_total",
			Help:      "Number of contracts deployed.",
		}),
		ReusedDeployments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "reused_deployments_total",
			Help:      "Number of deployments skipped because an identical contract was already deployed.",
		}),
		FailedDeployments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "failed_deployments_total",
			Help:      "Number of failed deployments.",
		}),
		DeploymentGasUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "gas_used_total",
			Help:      "Gas used by deployment transactions.",
		}),
		ScriptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "script_duration_seconds",
			Help:      "Duration of deploy scripts.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		}, []string{"script"}),
	}
}

func (d *Deployments) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(d.metrics)
}
