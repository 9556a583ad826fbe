// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keeper

import (
	m "github.com/ethersphere/lottery/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type keeperMetrics struct {
	Checks       prometheus.Counter
	CheckErrors  prometheus.Counter
	Upkeeps      prometheus.Counter
	UpkeepErrors prometheus.Counter
}

func newKeeperMetrics() keeperMetrics {
	subsystem := "keeper"

	return keeperMetrics{
		Checks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "checks_total",
			Help:      "Number of upkeep checks.",
		}),
		CheckErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "check_errors_total",
			Help:      "Number of failed upkeep checks.",
		}),
		Upkeeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "upkeeps_total",
			Help:      "Number of performed upkeeps.",
		}),
		UpkeepErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "upkeep_errors_total",
			Help:      "Number of failed upkeeps.",
		}),
	}
}

func (k *Keeper) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(k.metrics)
}

type fulfillerMetrics struct {
	Requests      prometheus.Counter
	Fulfilled     prometheus.Counter
	FulfillErrors prometheus.Counter
	TopUps        prometheus.Counter
	LastBlock     prometheus.Gauge
}

func newFulfillerMetrics() fulfillerMetrics {
	subsystem := "fulfiller"

	return fulfillerMetrics{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Number of randomness requests seen.",
		}),
		Fulfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "fulfilled_total",
			Help:      "Number of randomness requests fulfilled.",
		}),
		FulfillErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "fulfill_errors_total",
			Help:      "Number of failed fulfillments.",
		}),
		TopUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "subscription_top_ups_total",
			Help:      "Number of subscription top ups.",
		}),
		LastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "last_block",
			Help:      "Last block scanned for requests.",
		}),
	}
}

func (f *Fulfiller) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(f.metrics)
}
