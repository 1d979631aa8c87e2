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

// Package retry implements retry loops for operations that can fail
// transiently, such as dialing a transport connection.
package retry

import (
	"context"
	"time"

	"github.com/timely-go/timely/common/clock"
)

// Stop, returned from an Iterator, indicates that no more retries should be
// attempted.
const Stop time.Duration = -1

// Iterator controls the retry delay sequence for a Retry loop.
//
// Next is called after a failed attempt and returns the delay to wait before
// the next attempt, or Stop to give up.
type Iterator interface {
	Next(ctx context.Context, err error) time.Duration
}

// Factory generates a new Iterator. A Factory is called once per Retry
// invocation so that retry state isn't shared across unrelated calls.
type Factory func(context.Context) Iterator

// Limited is an Iterator that yields a fixed Delay for up to Retries
// attempts, or until MaxTotal has elapsed on the Context's clock since the
// first call to Next, whichever comes first.
type Limited struct {
	Delay    time.Duration
	Retries  int
	MaxTotal time.Duration

	startTime time.Time
}

// Next implements Iterator.
func (i *Limited) Next(ctx context.Context, err error) time.Duration {
	if i.Retries == 0 {
		return Stop
	}
	if i.MaxTotal > 0 {
		now := clock.Now(ctx)
		if i.startTime.IsZero() {
			i.startTime = now
		} else if now.Sub(i.startTime) >= i.MaxTotal {
			return Stop
		}
	}

	if i.Retries > 0 {
		i.Retries--
	}
	return i.Delay
}

// ExponentialBackoff is an Iterator that doubles (or scales by Multiplier)
// its delay on each call, bounded by MaxDelay.
type ExponentialBackoff struct {
	Limited

	MaxDelay   time.Duration
	Multiplier float64
}

// Next implements Iterator.
func (i *ExponentialBackoff) Next(ctx context.Context, err error) time.Duration {
	delay := i.Limited.Next(ctx, err)
	if delay == Stop {
		return Stop
	}

	mult := i.Multiplier
	if mult <= 1 {
		mult = 2
	}
	next := time.Duration(float64(i.Delay) * mult)
	if i.MaxDelay > 0 && next > i.MaxDelay {
		next = i.MaxDelay
	}
	i.Delay = next

	return delay
}

// Callback is invoked between retries, reporting the error that triggered
// the retry and the delay that will be waited before the next attempt.
type Callback func(err error, delay time.Duration)

// Retry executes fn, retrying according to the Iterator produced by f each
// time fn returns a non-nil error, until fn succeeds, the Iterator returns
// Stop, or ctx is canceled.
func Retry(ctx context.Context, f Factory, fn func() error, callback Callback) error {
	it := f(ctx)

	for {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := it.Next(ctx, err)
		if delay == Stop {
			return err
		}

		if callback != nil {
			callback(err, delay)
		}

		if delay > 0 {
			if res := clock.Sleep(ctx, delay); res.Incomplete() {
				return err
			}
		}
	}
}
