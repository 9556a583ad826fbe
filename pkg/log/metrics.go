// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	m "github.com/ethersphere/lottery/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// metrics is a logrus hook counting written messages by verbosity name.
type metrics struct {
	messages *prometheus.CounterVec
}

func newLogMetrics() *metrics {
	return &metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: "log",
			Name:      "messages_count",
			Help:      "Number of log messages by level.",
		}, []string{"level"}),
	}
}

func (*metrics) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (m *metrics) Fire(e *logrus.Entry) error {
	m.messages.WithLabelValues(levelLabel(e.Level)).Inc()
	return nil
}

// levelLabel maps logrus levels onto the verbosity names of this package.
func levelLabel(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return VerbosityError.String()
	case logrus.WarnLevel:
		return VerbosityWarning.String()
	case logrus.InfoLevel:
		return VerbosityInfo.String()
	default:
		return VerbosityDebug.String()
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.messages}
}
