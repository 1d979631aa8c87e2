// Copyright 2025 The LUCI Authors.
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

package logging

import "context"

// StackTrace holds a preformatted stack trace, as produced by
// runtime/debug.Stack, to be attached to a log entry.
type StackTrace string

// LogContext carries auxiliary data about the logging site that a Context
// can accumulate incrementally (currently just an optional stack trace).
type LogContext struct {
	StackTrace StackTrace
}

type logContextKey struct{}

func modifyCtx(ctx context.Context, fn func(*LogContext)) context.Context {
	lc := LogContext{}
	if v, ok := ctx.Value(logContextKey{}).(LogContext); ok {
		lc = v
	}
	fn(&lc)
	return context.WithValue(ctx, logContextKey{}, lc)
}

// GetStackTrace returns the StackTrace previously attached via
// SetStackTrace, if any.
func GetStackTrace(ctx context.Context) StackTrace {
	if v, ok := ctx.Value(logContextKey{}).(LogContext); ok {
		return v.StackTrace
	}
	return ""
}
