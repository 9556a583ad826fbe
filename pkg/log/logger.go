// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var _ Logger = (*logger)(nil)

// Noop is a logger that discards everything.
var Noop Logger = NewLogger("noop", WithSink(io.Discard), WithVerbosity(VerbosityNone))

// registry of named loggers.
var registry = struct {
	sync.Mutex
	loggers map[string]*logger
}{loggers: make(map[string]*logger)}

// Options specifies parameters that affect logger behavior.
type Options struct {
	sink       io.Writer
	verbosity  Level
	jsonOutput bool
	metrics    bool
}

// Option represent Options parameters modifier.
type Option func(*Options)

// WithSink tells the logger to log to the given writer.
func WithSink(sink io.Writer) Option {
	return func(opts *Options) { opts.sink = sink }
}

// WithVerbosity tells the logger which verbosity level should be logged by default.
func WithVerbosity(verbosity Level) Option {
	return func(opts *Options) { opts.verbosity = verbosity }
}

// WithJSONOutput tells the logger if the output should be formatted as JSON.
func WithJSONOutput() Option {
	return func(opts *Options) { opts.jsonOutput = true }
}

// WithMetrics enables counting of log messages per level.
func WithMetrics() Option {
	return func(opts *Options) { opts.metrics = true }
}

// sink is shared by all loggers derived from the same root.
type sink struct {
	out     *logrus.Logger
	metrics *metrics
}

type logger struct {
	sink      *sink
	names     []string
	values    []interface{}
	v         uint
	verbosity *Level
}

// NewLogger returns a new root logger with the given name.
func NewLogger(name string, opts ...Option) Logger {
	o := &Options{
		sink:      os.Stderr,
		verbosity: VerbosityInfo,
	}
	for _, opt := range opts {
		opt(o)
	}

	out := logrus.New()
	out.SetOutput(o.sink)
	out.SetLevel(logrus.TraceLevel)
	if o.jsonOutput {
		out.Formatter = &logrus.JSONFormatter{}
	} else {
		out.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	s := &sink{out: out}
	if o.metrics {
		s.metrics = newLogMetrics()
		out.AddHook(s.metrics)
	}

	verbosity := o.verbosity
	l := &logger{
		sink:      s,
		verbosity: &verbosity,
	}
	if name != "" {
		l.names = []string{name}
	}
	return l
}

func (l *logger) clone() *logger {
	c := *l
	c.names = append([]string(nil), l.names...)
	c.values = append([]interface{}(nil), l.values...)
	verbosity := l.verbosity.get()
	c.verbosity = &verbosity
	return &c
}

func (l *logger) V(v uint) Logger {
	c := l.clone()
	c.v += v
	return c
}

func (l *logger) WithName(name string) Logger {
	c := l.clone()
	c.names = append(c.names, name)
	return c
}

func (l *logger) WithValues(keysAndValues ...interface{}) Logger {
	c := l.clone()
	c.values = append(c.values, keysAndValues...)
	return c
}

func (l *logger) Register() Logger {
	registry.Lock()
	defer registry.Unlock()

	id := l.id()
	if r, ok := registry.loggers[id]; ok {
		return r
	}
	registry.loggers[id] = l
	return l
}

func (l *logger) Verbosity() Level {
	return l.verbosity.get()
}

func (l *logger) id() string {
	return fmt.Sprintf("%s[%d]%v", strings.Join(l.names, "/"), l.v, l.values)
}

func (l *logger) enabled(level Level) bool {
	return l.verbosity.get() >= level
}

func (l *logger) Debug(msg string, keysAndValues ...interface{}) {
	if !l.enabled(VerbosityDebug + Level(l.v)) {
		return
	}
	e := l.entry(keysAndValues)
	if l.v > 0 {
		e.WithField("v", l.v).Trace(msg)
		return
	}
	e.Debug(msg)
}

func (l *logger) Info(msg string, keysAndValues ...interface{}) {
	if l.enabled(VerbosityInfo) {
		l.entry(keysAndValues).Info(msg)
	}
}

func (l *logger) Warning(msg string, keysAndValues ...interface{}) {
	if l.enabled(VerbosityWarning) {
		l.entry(keysAndValues).Warn(msg)
	}
}

func (l *logger) Error(err error, msg string, keysAndValues ...interface{}) {
	if !l.enabled(VerbosityError) {
		return
	}
	e := l.entry(keysAndValues)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(msg)
}

func (l *logger) entry(keysAndValues []interface{}) *logrus.Entry {
	fields := make(logrus.Fields, (len(l.values)+len(keysAndValues))/2+1)
	if len(l.names) > 0 {
		fields["logger"] = strings.Join(l.names, "/")
	}
	addFields(fields, l.values)
	addFields(fields, keysAndValues)
	return l.sink.out.WithFields(fields)
}

func addFields(fields logrus.Fields, kv []interface{}) {
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 == len(kv) {
			fields[key] = "<missing>"
			break
		}
		fields[key] = kv[i+1]
	}
}

// SetVerbosity sets the level of verbosity of the given logger.
func SetVerbosity(l Logger, v Level) error {
	lg, ok := l.(*logger)
	if !ok {
		return fmt.Errorf("unsupported logger type %T", l)
	}
	lg.verbosity.set(v)
	return nil
}

// SetVerbosityByExp sets the level of verbosity of all registered loggers
// whose name path matches the given regular expression.
func SetVerbosityByExp(e string, v Level) error {
	rex, err := regexp.Compile(e)
	if err != nil {
		return err
	}

	registry.Lock()
	defer registry.Unlock()

	for _, l := range registry.loggers {
		if rex.MatchString(strings.Join(l.names, "/")) {
			l.verbosity.set(v)
		}
	}
	return nil
}

// Metrics returns the log level counters of the logger when it was created
// with the WithMetrics option.
func Metrics(l Logger) []prometheus.Collector {
	lg, ok := l.(*logger)
	if !ok || lg.sink.metrics == nil {
		return nil
	}
	return lg.sink.metrics.collectors()
}
