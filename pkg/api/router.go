// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethersphere/lottery/pkg/jsonhttp"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"resenje.org/web"
)

// newBasicRouter constructs the routes that do not depend on the injected
// dependencies:
// - /health
// - /metrics
func (s *Service) newBasicRouter() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(jsonhttp.NotFoundHandler)

	router.Path("/metrics").Handler(promhttp.InstrumentMetricHandler(
		s.metricsRegistry,
		promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}),
	))

	router.Handle("/health", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.healthHandler),
	})

	return router
}

// newRouter adds the lottery and deployment routes to the basic ones.
func (s *Service) newRouter() *mux.Router {
	router := s.newBasicRouter()

	router.Handle("/lottery", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.lotteryStatusHandler),
	})
	router.Handle("/lottery/ws", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.lotteryWsHandler),
	})
	router.Handle("/lottery/players/{index}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.lotteryPlayerHandler),
	})

	router.Handle("/deployments", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.deploymentsHandler),
	})
	router.Handle("/deployments/{name}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.deploymentHandler),
	})

	return router
}

// setRouter sets the base handler with common middlewares.
func (s *Service) setRouter(router http.Handler) {
	h := http.NewServeMux()
	h.Handle("/", web.ChainHandlers(
		s.accessLogHandler,
		handlers.CompressHandler,
		s.corsHandler,
		web.NoCacheHeadersHandler,
		web.FinalHandler(router),
	))

	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()

	s.handler = h
}

// accessLogHandler logs every request and records the request metrics.
func (s *Service) accessLogHandler(h http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, h, func(_ io.Writer, p handlers.LogFormatterParams) {
		duration := time.Since(p.TimeStamp)
		s.metrics.RequestCount.Inc()
		s.metrics.ResponseDuration.Observe(duration.Seconds())
		s.metrics.ResponseCodeCounts.WithLabelValues(strconv.Itoa(p.StatusCode), p.Request.Method).Inc()

		// metrics scrapes are too frequent to log
		if p.URL.Path == "/metrics" {
			return
		}
		s.logger.Debug("api access",
			"ip", p.Request.RemoteAddr,
			"method", p.Request.Method,
			"uri", p.URL.RequestURI(),
			"status", p.StatusCode,
			"size", p.Size,
			"duration", duration,
		)
	})
}

func (s *Service) corsHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o := r.Header.Get("Origin"); o != "" && s.checkOrigin(o) {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Origin", o)
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}
		h.ServeHTTP(w, r)
	})
}

// checkOrigin allows every origin when no origins are configured.
func (s *Service) checkOrigin(origin string) bool {
	if len(s.corsOrigins) == 0 {
		return true
	}
	for _, o := range s.corsOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
