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

package testclock

import (
	"context"
	"sync"
	"time"

	"github.com/timely-go/timely/common/clock"
)

// testTimer is a Timer implementation bound to a testClock. It fires only
// when the owning clock's time advances at or past its threshold, never on
// its own.
type testTimer struct {
	sync.Mutex

	ctx    context.Context
	clock  *testClock
	afterC chan clock.TimerResult

	active bool
	cancel func()
}

func newTimer(ctx context.Context, c *testClock) *testTimer {
	return &testTimer{
		ctx:    ctx,
		clock:  c,
		afterC: make(chan clock.TimerResult, 1),
	}
}

func (t *testTimer) GetC() <-chan clock.TimerResult {
	return t.afterC
}

func (t *testTimer) Reset(d time.Duration) bool {
	t.Lock()
	active := t.stopLocked()

	threshold := t.clock.Now().Add(d)

	stopC := make(chan struct{})
	t.cancel = func() { close(stopC) }
	t.active = true
	t.Unlock()

	t.clock.signalTimerSet(d, t)

	go func() {
		done := make(chan struct{})
		var result clock.TimerResult
		t.clock.invokeAt(t.ctx, threshold, func(r clock.TimerResult) {
			result = r
			close(done)
		})

		select {
		case <-done:
			t.Lock()
			fire := t.active
			t.active = false
			t.Unlock()
			if fire {
				t.afterC <- result
			}

		case <-stopC:
			return
		}
	}()

	return active
}

func (t *testTimer) Stop() bool {
	t.Lock()
	defer t.Unlock()

	return t.stopLocked()
}

func (t *testTimer) stopLocked() bool {
	active := t.active
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.active = false
	return active
}
