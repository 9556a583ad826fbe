// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api exposes the lottery state, the recorded deployments and the
// node metrics over HTTP.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/ethersphere/lottery/pkg/deploy"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/lottery"
	"github.com/prometheus/client_golang/prometheus"
	"resenje.org/singleflight"
)

const loggerName = "api"

// DeploymentReader returns recorded deployments.
type DeploymentReader interface {
	Get(name string) (*deploy.Deployment, error)
	All() ([]deploy.Deployment, error)
}

type Options struct {
	Network            string
	CORSAllowedOrigins []string
	// StatusFeedInterval defaults to DefaultStatusFeedInterval.
	StatusFeedInterval time.Duration
}

// Service implements http.Handler interface to be used in HTTP server.
type Service struct {
	logger          log.Logger
	network         string
	lottery         lottery.Interface
	deployments     DeploymentReader
	metrics         metrics
	metricsRegistry *prometheus.Registry
	corsOrigins     []string

	statusFlight       singleflight.Group
	statusFeedInterval time.Duration

	wsWg      sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once

	// handler is changed in the Configure method
	handler   http.Handler
	handlerMu sync.RWMutex
}

// New creates a Service with the health and metrics endpoints. The lottery
// routes are added by Configure once the contracts are deployed.
func New(logger log.Logger, o Options) *Service {
	if o.StatusFeedInterval <= 0 {
		o.StatusFeedInterval = DefaultStatusFeedInterval
	}
	s := &Service{
		logger:             logger.WithName(loggerName).Register(),
		network:            o.Network,
		metrics:            newMetrics(),
		metricsRegistry:    newMetricsRegistry(),
		corsOrigins:        o.CORSAllowedOrigins,
		statusFeedInterval: o.StatusFeedInterval,
		quit:               make(chan struct{}),
	}
	s.metricsRegistry.MustRegister(s.Metrics()...)
	s.setRouter(s.newBasicRouter())
	return s
}

// Configure injects the lottery and deployments and mounts their routes.
func (s *Service) Configure(l lottery.Interface, deployments DeploymentReader) {
	s.lottery = l
	s.deployments = deployments
	s.setRouter(s.newRouter())
}

// MustRegisterMetrics registers the collectors of other services.
func (s *Service) MustRegisterMetrics(cs ...prometheus.Collector) {
	s.metricsRegistry.MustRegister(cs...)
}

// ServeHTTP implements http.Handler interface.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// protect handler as it is changed by the Configure method
	s.handlerMu.RLock()
	h := s.handler
	s.handlerMu.RUnlock()

	h.ServeHTTP(w, r)
}

// Close terminates the open status feed connections. The HTTP server
// shutdown does not wait for them as they are hijacked.
func (s *Service) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	s.wsWg.Wait()
	return nil
}
