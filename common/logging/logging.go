// Copyright 2015 The LUCI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging defines a Logger interface and a Context-bound singleton
// that allows libraries to log through whatever backend the host process
// has installed, without importing that backend directly.
package logging

import (
	"context"
)

// Level is a logging severity, ordered from least to most severe.
type Level int

// Severities, in increasing order.
const (
	Debug Level = iota
	Info
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ErrorKey is the Fields key under which SetError stores an error.
const ErrorKey = "error"

// Logger is the interface that logging backends implement.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)

	// LogCall is the low-level entry point used by the package-level Debugf,
	// Infof, Warningf, Errorf and Logf functions. calldepth is the number of
	// stack frames between the original caller and this method, for backends
	// that report a file:line.
	LogCall(l Level, calldepth int, format string, args []any)
}

// Fields is a set of structured key-value pairs attached to a Context for
// the duration of one or more log calls.
type Fields map[string]any

// contextKey is an unexported type to avoid collisions with context keys
// from other packages.
type contextKey int

const (
	loggerKey contextKey = iota
	levelKey
	fieldsKey
)

// Factory produces a Logger bound to the given Context; it's invoked fresh
// on every Get call so that it can reflect the Context's current Level and
// Fields.
type Factory func(context.Context) Logger

// SetFactory installs a Logger factory into ctx.
func SetFactory(ctx context.Context, f Factory) context.Context {
	return context.WithValue(ctx, loggerKey, f)
}

// Set installs a fixed Logger into ctx.
func Set(ctx context.Context, l Logger) context.Context {
	return SetFactory(ctx, func(context.Context) Logger { return l })
}

// Get returns the Logger installed in ctx, or a no-op Logger if none was
// installed.
func Get(ctx context.Context) Logger {
	if v := ctx.Value(loggerKey); v != nil {
		if f, ok := v.(Factory); ok {
			if l := f(ctx); l != nil {
				return l
			}
		}
	}
	return nullLogger{}
}

// SetLevel installs the minimum Level that should be logged.
func SetLevel(ctx context.Context, l Level) context.Context {
	return context.WithValue(ctx, levelKey, l)
}

// GetLevel returns the Level installed in ctx, defaulting to Debug (log
// everything) if none was set.
func GetLevel(ctx context.Context) Level {
	if v := ctx.Value(levelKey); v != nil {
		if l, ok := v.(Level); ok {
			return l
		}
	}
	return Debug
}

// SetField returns a Context with a single field merged into its Fields.
func SetField(ctx context.Context, key string, value any) context.Context {
	return SetFields(ctx, Fields{key: value})
}

// SetFields returns a Context with f merged into its existing Fields. Keys
// in f override identically-named keys already present.
func SetFields(ctx context.Context, f Fields) context.Context {
	merged := make(Fields, len(f))
	for k, v := range GetFields(ctx) {
		merged[k] = v
	}
	for k, v := range f {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey, merged)
}

// GetFields returns the Fields installed in ctx, or nil if none were set.
func GetFields(ctx context.Context) Fields {
	if v := ctx.Value(fieldsKey); v != nil {
		if f, ok := v.(Fields); ok {
			return f
		}
	}
	return nil
}

// SetError returns a context with its error field set.
func SetError(ctx context.Context, err error) context.Context {
	return SetField(ctx, ErrorKey, err)
}

// IsLogging tests whether the context is configured to log at the specified
// level.
//
// Individual Logger implementations are supposed to call this function when
// deciding whether to log the message.
func IsLogging(ctx context.Context, l Level) bool {
	return l >= GetLevel(ctx)
}

// Debugf is a shorthand method to call the current logger's Debugf method.
func Debugf(ctx context.Context, fmt string, args ...any) {
	Get(ctx).LogCall(Debug, 1, fmt, args)
}

// Infof is a shorthand method to call the current logger's Infof method.
func Infof(ctx context.Context, fmt string, args ...any) {
	Get(ctx).LogCall(Info, 1, fmt, args)
}

// Warningf is a shorthand method to call the current logger's Warningf method.
func Warningf(ctx context.Context, fmt string, args ...any) {
	Get(ctx).LogCall(Warning, 1, fmt, args)
}

// Errorf is a shorthand method to call the current logger's Errorf method.
func Errorf(ctx context.Context, fmt string, args ...any) {
	Get(ctx).LogCall(Error, 1, fmt, args)
}

// Logf is a shorthand method to call the current logger's logging method which
// corresponds to the supplied log level.
func Logf(ctx context.Context, l Level, fmt string, args ...any) {
	Get(ctx).LogCall(l, 1, fmt, args)
}

// Debugf logs at Debug level, merging f into ctx's Fields for this call only.
func (f Fields) Debugf(ctx context.Context, format string, args ...any) {
	Get(SetFields(ctx, f)).LogCall(Debug, 1, format, args)
}

// Infof logs at Info level, merging f into ctx's Fields for this call only.
func (f Fields) Infof(ctx context.Context, format string, args ...any) {
	Get(SetFields(ctx, f)).LogCall(Info, 1, format, args)
}

// Warningf logs at Warning level, merging f into ctx's Fields for this call only.
func (f Fields) Warningf(ctx context.Context, format string, args ...any) {
	Get(SetFields(ctx, f)).LogCall(Warning, 1, format, args)
}

// Errorf logs at Error level, merging f into ctx's Fields for this call only.
func (f Fields) Errorf(ctx context.Context, format string, args ...any) {
	Get(SetFields(ctx, f)).LogCall(Error, 1, format, args)
}

type nullLogger struct{}

func (nullLogger) Debugf(string, ...any)                  {}
func (nullLogger) Infof(string, ...any)                   {}
func (nullLogger) Warningf(string, ...any)                {}
func (nullLogger) Errorf(string, ...any)                  {}
func (nullLogger) LogCall(Level, int, string, []any) {}
