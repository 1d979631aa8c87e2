// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package gologger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/timely-go/timely/common/logging"

	gol "github.com/op/go-logging"
)

// StdConfig is the LoggerConfig instance used by the package-level New/Get
// convenience functions.
var StdConfig = LoggerConfig{
	Format: StandardFormat,
	Out:    os.Stderr,
	Level:  gol.DEBUG,
}

// LoggerConfig carries the parameters needed to build an op/go-logging
// backed logging.Logger.
type LoggerConfig struct {
	Format string
	Out    io.Writer
	// Level is the lowest level the backend passes through. The zero value
	// (gol.CRITICAL) is treated as gol.DEBUG.
	Level gol.Level
}

// NewLogger builds a logging.Logger from this config, pre-seeded with the
// supplied base Fields (nil is fine).
func (lc *LoggerConfig) NewLogger(base logging.Fields) logging.Logger {
	return lc.newLoggerAt(base, logging.Debug)
}

func (lc *LoggerConfig) newLoggerAt(base logging.Fields, minLevel logging.Level) logging.Logger {
	return &loggerImpl{&goLoggerWrapper{l: lc.newGoLogger()}, base, minLevel}
}

// newGoLogger constructs the underlying op/go-logging Logger plumbed through
// this config's Format, Out and Level, each defaulted when zero.
func (lc *LoggerConfig) newGoLogger() *gol.Logger {
	format := lc.Format
	if format == "" {
		format = StandardFormat
	}
	out := lc.Out
	if out == nil {
		out = os.Stderr
	}
	level := lc.Level
	if level == 0 {
		level = gol.DEBUG
	}

	backend := gol.NewLogBackend(out, "", 0)
	formatter := gol.MustStringFormatter(format)
	formatted := gol.NewBackendFormatter(backend, formatter)
	leveled := gol.AddModuleLevel(formatted)
	leveled.SetLevel(level, "")

	log := gol.MustGetLogger("timely")
	log.SetBackend(leveled)
	return log
}

// getImpl builds a new logging.Logger for this config on every call.
func (lc *LoggerConfig) getImpl() logging.Logger {
	return lc.NewLogger(nil)
}

// Use installs a Logger factory into ctx that builds a logging.Logger from
// this config, merging in the Context's current Fields and Level on each
// call.
func (lc *LoggerConfig) Use(ctx context.Context) context.Context {
	return logging.SetFactory(ctx, func(ctx context.Context) logging.Logger {
		return lc.newLoggerAt(logging.GetFields(ctx), logging.GetLevel(ctx))
	})
}

// goLoggerWrapper adapts *gol.Logger to the small subset this package needs.
type goLoggerWrapper struct {
	l *gol.Logger
}

func (w *goLoggerWrapper) log(level gol.Level, calldepth int, format string, args []any) {
	switch level {
	case gol.DEBUG:
		w.l.Debug(fmt.Sprintf(format, args...))
	case gol.INFO:
		w.l.Info(fmt.Sprintf(format, args...))
	case gol.WARNING:
		w.l.Warning(fmt.Sprintf(format, args...))
	default:
		w.l.Error(fmt.Sprintf(format, args...))
	}
}

// loggerImpl implements logging.Logger on top of a goLoggerWrapper, rendering
// any attached Fields as a trailing JSON-ish blob.
type loggerImpl struct {
	goLogger *goLoggerWrapper
	fields   logging.Fields
	minLevel logging.Level
}

var _ logging.Logger = (*loggerImpl)(nil)

func (l *loggerImpl) Debugf(format string, args ...any)   { l.LogCall(logging.Debug, 1, format, args) }
func (l *loggerImpl) Infof(format string, args ...any)    { l.LogCall(logging.Info, 1, format, args) }
func (l *loggerImpl) Warningf(format string, args ...any) { l.LogCall(logging.Warning, 1, format, args) }
func (l *loggerImpl) Errorf(format string, args ...any)   { l.LogCall(logging.Error, 1, format, args) }

func (l *loggerImpl) LogCall(level logging.Level, calldepth int, format string, args []any) {
	if level < l.minLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if len(l.fields) > 0 {
		msg = fmt.Sprintf("%-45s%s", msg, renderFields(l.fields))
	}
	l.goLogger.log(toGoLevel(level), calldepth+1, "%s", []any{msg})
}

func renderFields(f logging.Fields) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sortStrings(keys)

	out := "{"
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%q:%q", k, fmt.Sprint(f[k]))
	}
	return out + "}"
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func toGoLevel(l logging.Level) gol.Level {
	switch l {
	case logging.Debug:
		return gol.DEBUG
	case logging.Info:
		return gol.INFO
	case logging.Warning:
		return gol.WARNING
	default:
		return gol.ERROR
	}
}
