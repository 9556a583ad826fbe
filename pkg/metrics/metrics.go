// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is prefixed before every metric. If it is changed, it must be done
// before any metrics collector is registered.
const Namespace = "lottery"

// Collector is implemented by every service that exposes prometheus metrics.
type Collector interface {
	Metrics() []prometheus.Collector
}

// PrometheusCollectorsFromFields returns all exported struct fields of the
// given value that implement prometheus.Collector. Nil fields are skipped.
func PrometheusCollectorsFromFields(i interface{}) (cs []prometheus.Collector) {
	v := reflect.Indirect(reflect.ValueOf(i))
	if v.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).CanInterface() {
			continue
		}
		if u, ok := v.Field(i).Interface().(prometheus.Collector); ok {
			if reflect.ValueOf(u).IsNil() {
				continue
			}
			cs = append(cs, u)
		}
	}
	return cs
}

// NewRegistry returns a registry with the go and process collectors already
// registered, followed by the provided service collectors.
func NewRegistry(services ...Collector) *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: Namespace}),
	)
	for _, s := range services {
		r.MustRegister(s.Metrics()...)
	}
	return r
}
