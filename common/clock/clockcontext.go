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

package clock

import (
	"context"
	"sync/atomic"
	"time"
)

// clockContext wraps a parent Context and overrides its Deadline reporting,
// since the deadline is evaluated against the Context's Clock rather than
// wall-clock time.
type clockContext struct {
	context.Context

	deadline time.Time
	hasDeadline bool
	expired     atomic.Bool
}

func (c *clockContext) Deadline() (time.Time, bool) {
	return c.deadline, c.hasDeadline
}

func (c *clockContext) Err() error {
	if c.expired.Load() {
		return context.DeadlineExceeded
	}
	return c.Context.Err()
}

// WithTimeout returns a Context, and a cancellation function, that will be
// cancelled after the supplied duration elapses on the Context's Clock.
//
// Unlike context.WithTimeout, this respects a Clock installed in the Context
// via Set or SetFactory, so tests using a testclock.TestClock can control
// when the deadline actually fires.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return WithDeadline(ctx, Now(ctx).Add(timeout))
}

// WithDeadline returns a Context, and a cancellation function, that will be
// cancelled at or after the supplied deadline, measured by the Context's
// Clock.
func WithDeadline(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithCancel(ctx)

	c := &clockContext{
		Context:     cctx,
		deadline:    deadline,
		hasDeadline: true,
	}

	stop := make(chan struct{})
	go func() {
		select {
		case tr := <-After(cctx, deadline.Sub(Now(ctx))):
			c.expired.Store(!tr.Incomplete())
		case <-stop:
		}
		cancel()
	}()

	return c, func() {
		close(stop)
		cancel()
	}
}
