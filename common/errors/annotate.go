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

package errors

import (
	"context"
	"fmt"

	"github.com/timely-go/timely/common/logging"
)

// stackContext carries the tag values and textual reason attached to an
// error by an Annotator. It's intentionally small: this package does not
// capture or render goroutine stack traces.
type stackContext struct {
	reason string
	tags   map[TagKey]any
}

// stackContexter is implemented by errors produced by this package, allowing
// Walk-based helpers (like TagValueIn) to retrieve tag data without a type
// switch on the concrete annotatedError type.
type stackContexter interface {
	stackContext() stackContext
}

// Wrapped is implemented by errors that wrap exactly one other error,
// distinct from a MultiError which wraps many.
type Wrapped interface {
	error

	InnerError() error
}

// annotatedError is the error implementation produced by Annotator.Err().
type annotatedError struct {
	inner error
	ctx   stackContext
}

var _ Wrapped = (*annotatedError)(nil)
var _ stackContexter = (*annotatedError)(nil)

func (e *annotatedError) Error() string {
	if e.ctx.reason == "" {
		return e.inner.Error()
	}
	return fmt.Sprintf("%s: %s", e.ctx.reason, e.inner.Error())
}

func (e *annotatedError) InnerError() error { return e.inner }

func (e *annotatedError) Unwrap() error { return e.inner }

func (e *annotatedError) stackContext() stackContext { return e.ctx }

// Annotator accumulates reason text and tag values for a single error before
// producing a final wrapped error via Err().
type Annotator struct {
	err error
	ctx stackContext
}

// Annotate begins building an annotated wrapper around err. If err is nil,
// every Annotator method is a no-op and Err() returns nil; this lets callers
// write:
//
//	return errors.Annotate(err, "reading %s", path).Err()
//
// unconditionally, even when err may be nil.
func Annotate(err error, reason string, args ...any) *Annotator {
	if err == nil {
		return &Annotator{}
	}
	a := &Annotator{err: err}
	if reason != "" {
		a.ctx.reason = fmt.Sprintf(reason, args...)
	}
	return a
}

// Reason begins building a fresh error from a format string, with no
// wrapped cause.
func Reason(reason string, args ...any) *Annotator {
	return Annotate(New(""), reason, args...)
}

// Tag attaches one or more tag values to the error under construction.
func (a *Annotator) Tag(tags ...TagValue) *Annotator {
	if a == nil || a.err == nil {
		return a
	}
	if a.ctx.tags == nil {
		a.ctx.tags = make(map[TagKey]any, len(tags))
	}
	for _, t := range tags {
		a.ctx.tags[t.Key] = t.Value
	}
	return a
}

// InternalReason appends additional reason text that is folded into the
// final error message; kept for API parity with nested Annotate chains.
func (a *Annotator) InternalReason(reason string, args ...any) *Annotator {
	if a == nil || a.err == nil {
		return a
	}
	msg := fmt.Sprintf(reason, args...)
	if a.ctx.reason == "" {
		a.ctx.reason = msg
	} else {
		a.ctx.reason = a.ctx.reason + ": " + msg
	}
	return a
}

// Log writes the fully annotated error to the Logger installed in ctx at
// Error level, then returns the Annotator unmodified so calls can be
// chained: errors.Annotate(err, "...").Log(ctx).Err().
func (a *Annotator) Log(ctx context.Context) *Annotator {
	if a == nil || a.err == nil {
		return a
	}
	logging.Errorf(ctx, "%s", a.Err())
	return a
}

// Err returns the final annotated error, or nil if the Annotator was built
// from a nil error.
func (a *Annotator) Err() error {
	if a == nil || a.err == nil {
		return nil
	}
	return &annotatedError{inner: a.err, ctx: a.ctx}
}
