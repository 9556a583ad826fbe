// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ethersphere/lottery/pkg/log"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestParseVerbosityLevel(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want log.Level
	}{
		{in: "none", want: log.VerbosityNone},
		{in: "0", want: log.VerbosityNone},
		{in: "error", want: log.VerbosityError},
		{in: "2", want: log.VerbosityWarning},
		{in: "info", want: log.VerbosityInfo},
		{in: "4", want: log.VerbosityDebug},
		{in: "trace", want: log.VerbosityAll},
	} {
		got, err := log.ParseVerbosityLevel(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := log.ParseVerbosityLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoggerVerbosity(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogger("root", log.WithSink(&buf), log.WithVerbosity(log.VerbosityWarning), log.WithJSONOutput())

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warning("shown", "key", "value")
	logger.Error(errors.New("boom"), "failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}

	var got map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatal(err)
	}
	delete(got, "time")
	want := map[string]interface{}{
		"level":  "warning",
		"msg":    "shown",
		"logger": "root",
		"key":    "value",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("warning line mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(lines[1], `"error":"boom"`) {
		t.Errorf("error line %q does not contain the error", lines[1])
	}
}

func TestLoggerNamesAndValues(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogger("node", log.WithSink(&buf), log.WithVerbosity(log.VerbosityDebug), log.WithJSONOutput())

	logger.WithName("keeper").WithValues("round", 1).Debug("checking")

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["logger"] != "node/keeper" {
		t.Errorf("got logger name %v, want node/keeper", got["logger"])
	}
	if got["round"] != float64(1) {
		t.Errorf("got round %v, want 1", got["round"])
	}

	buf.Reset()
	logger.V(1).Debug("verbose")
	if buf.Len() != 0 {
		t.Errorf("V(1) debug message printed at debug verbosity: %q", buf.String())
	}
}

func TestSetVerbosityByExp(t *testing.T) {
	var buf bytes.Buffer
	root := log.NewLogger("exp", log.WithSink(&buf), log.WithVerbosity(log.VerbosityInfo))
	l := root.WithName("verify").Register()

	if err := log.SetVerbosityByExp("^exp/verify$", log.VerbosityNone); err != nil {
		t.Fatal(err)
	}
	l.Error(nil, "silenced")
	if buf.Len() != 0 {
		t.Fatalf("logger was not silenced: %q", buf.String())
	}
	if l.Verbosity() != log.VerbosityNone {
		t.Fatalf("got verbosity %v, want none", l.Verbosity())
	}
}

func TestLoggerMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogger("metrics", log.WithSink(&buf), log.WithMetrics())

	logger.Info("one")
	logger.Info("two")
	logger.Warning("three")

	collectors := log.Metrics(logger)
	if len(collectors) != 1 {
		t.Fatalf("got %d collectors, want 1", len(collectors))
	}
	messages := collectors[0].(*prometheus.CounterVec)

	if got := counterValue(t, messages.WithLabelValues("info")); got != 2 {
		t.Errorf("got %v info messages, want 2", got)
	}
	if got := counterValue(t, messages.WithLabelValues("warning")); got != 1 {
		t.Errorf("got %v warning messages, want 1", got)
	}
	if got := counterValue(t, messages.WithLabelValues("error")); got != 0 {
		t.Errorf("got %v error messages, want 0", got)
	}

	if log.Metrics(log.Noop) != nil {
		t.Error("noop logger should not expose metrics")
	}
}

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()

	var m dto.Metric
	if err := c.(prometheus.Metric).Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}
