/*
Copyright 2026 The CSE-Core Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging provides a logger that satisfies https://github.com/go-logr/logr.
// Every CSE core component takes a logging.Logger rather than reaching for
// a global, but main wires one default logger for the whole process via
// SetLogger.
package logging

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// Logging levels. logr treats higher numbers as more verbose; 0 is Info.
const (
	Debug = 1
)

// A Logger is a thin alias for logr.Logger so call sites don't need to
// import go-logr directly.
type Logger = logr.Logger

var (
	current atomic.Value // stores logr.Logger
	once    sync.Once
)

func init() {
	current.Store(logr.Discard())
}

// SetLogger sets the logger returned by NewLogger for the remainder of the
// process's life. Components that were constructed with an earlier
// NewLogger() result keep logging to whatever was current when they asked;
// call SetLogger before wiring components if you want it to take effect
// everywhere.
func SetLogger(l Logger) {
	once.Do(func() {}) // reserved for future startup-once side effects
	current.Store(l)
}

// NewLogger returns the process's current logger, named for the supplied
// component.
func NewLogger(name string) Logger {
	//nolint:forcetypeassert // current only ever holds a logr.Logger.
	return current.Load().(Logger).WithName(name)
}

// ZapLogger returns a Logger implementation backed by go.uber.org/zap. If
// development is true a Zap development config is used (stacktraces on
// warnings, no sampling); otherwise a Zap production config is used
// (stacktraces on errors, sampling). disableStacktrace suppresses
// stacktraces entirely except on fatal log lines.
func ZapLogger(development, disableStacktrace bool) Logger {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	opts := []zap.Option{zap.AddCallerSkip(1)}
	if disableStacktrace {
		opts = append(opts, zap.AddStacktrace(zap.FatalLevel))
	}

	zl, err := cfg.Build(opts...)
	if err != nil {
		// Building the configured zap logger should never fail for the
		// stderr-only configs above; fall back to zap's example logger
		// rather than panicking the whole process over a logging detail.
		zl = zap.NewExample()
	}

	return zapr.NewLogger(zl)
}

// NopLogger returns a Logger that discards everything, useful in tests.
func NopLogger() Logger { return logr.Discard() }

// Fprint is a convenience used by the CLI entrypoint to report a fatal
// startup error before any Logger is wired.
func Fprint(msg string) {
	os.Stderr.WriteString(msg + "\n") //nolint:errcheck // best effort.
}
