// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log provides the structured logger used across the lottery
// tooling. Messages carry alternating key/value pairs and are written
// through logrus; names form a tree ("node/keeper") whose verbosity can
// be changed at runtime for registered loggers.
package log

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Level specifies a level of verbosity for logger.
// Level is treated as a sync/atomic int32.
type Level int32

func (l *Level) get() Level {
	return Level(atomic.LoadInt32((*int32)(l)))
}

func (l *Level) set(v Level) {
	atomic.StoreInt32((*int32)(l), int32(v))
}

// String implements the fmt.Stringer interface.
func (l Level) String() string {
	switch l {
	case VerbosityNone:
		return "none"
	case VerbosityError:
		return "error"
	case VerbosityWarning:
		return "warning"
	case VerbosityInfo:
		return "info"
	case VerbosityDebug:
		return "debug"
	case VerbosityAll:
		return "all"
	}
	return strconv.FormatInt(int64(l), 10) // Covers all in the range [VerbosityDebug ... VerbosityAll>.
}

// ParseVerbosityLevel returns a verbosity Level parsed from the given s.
// Both the names and the numeric shortcuts 0 (silent) to 5 (trace) used
// by the command line are accepted.
func ParseVerbosityLevel(s string) (Level, error) {
	switch s {
	case "none", "0", "silent":
		return VerbosityNone, nil
	case "error", "1":
		return VerbosityError, nil
	case "warning", "warn", "2":
		return VerbosityWarning, nil
	case "info", "3":
		return VerbosityInfo, nil
	case "debug", "4":
		return VerbosityDebug, nil
	case "all", "trace", "5":
		return VerbosityAll, nil
	}
	return 0, fmt.Errorf("unknown verbosity level %q", s)
}

const (
	// VerbosityNone will silence the logger.
	VerbosityNone = Level(iota - 4)
	// VerbosityError allows only error messages to be printed.
	VerbosityError
	// VerbosityWarning allows only error and warning messages to be printed.
	VerbosityWarning
	// VerbosityInfo allows only error, warning and info messages to be printed.
	VerbosityInfo
	// VerbosityDebug allows only error, warning, info and debug messages to be printed.
	VerbosityDebug
	// VerbosityAll allows to print all messages up to and including level V.
	VerbosityAll = Level(1<<31 - 1)
)

// Logger provides a set of methods that define the behavior of the logger.
type Logger interface {
	// V returns a logger whose Debug messages are emitted only when the
	// verbosity is at least VerbosityDebug+v. V-levels are additive.
	V(v uint) Logger

	// WithName returns a logger with name appended to its name path.
	// Name segments should not contain '/'.
	WithName(name string) Logger

	// WithValues returns a logger that adds the key/value pairs to every
	// log line.
	WithValues(keysAndValues ...interface{}) Logger

	// Register puts the logger into the registry so its verbosity can be
	// changed with SetVerbosity and SetVerbosityByExp.
	Register() Logger

	// Verbosity returns the current verbosity level.
	Verbosity() Level

	// Debug logs a debug message with the given key/value pairs as context.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with the given key/value pairs as context.
	Info(msg string, keysAndValues ...interface{})

	// Warning logs a warning message with the given key/value pairs as context.
	Warning(msg string, keysAndValues ...interface{})

	// Error logs an error, with the given message and key/value pairs as
	// context. The err parameter is optional and nil may be passed.
	Error(err error, msg string, keysAndValues ...interface{})
}
