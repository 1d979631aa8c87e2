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
	"sync"
	"time"
)

// systemTimer is a Timer implementation backed by a stdlib time.Timer, aware
// of Context cancellation.
type systemTimer struct {
	sync.Mutex

	ctx     context.Context
	timer   *time.Timer
	afterC  chan TimerResult
	stopped bool

	cancelMonitor context.CancelFunc
}

func newSystemTimer(ctx context.Context) Timer {
	t := &systemTimer{
		ctx:    ctx,
		afterC: make(chan TimerResult, 1),
	}
	return t
}

func (t *systemTimer) GetC() <-chan TimerResult {
	return t.afterC
}

func (t *systemTimer) Reset(d time.Duration) bool {
	t.Lock()
	defer t.Unlock()

	active := t.stopTimerLocked()

	monitorCtx, cancel := context.WithCancel(t.ctx)
	t.cancelMonitor = cancel
	t.stopped = false

	timer := time.NewTimer(d)
	t.timer = timer

	go func() {
		select {
		case now := <-timer.C:
			t.afterC <- TimerResult{Time: now}

		case <-monitorCtx.Done():
			if t.ctx.Err() == nil {
				// The timer's own Context is still live, so either Stop() was called
				// or a later Reset() superseded us; in the Stop() case the timer has
				// already been stopped by the caller and nothing should be sent.
				return
			}
			timer.Stop()
			t.afterC <- TimerResult{Time: time.Now(), Err: t.ctx.Err()}
		}
	}()

	return active
}

func (t *systemTimer) Stop() bool {
	t.Lock()
	defer t.Unlock()

	return t.stopTimerLocked()
}

// stopTimerLocked stops any running timer and monitor goroutine. Caller must
// hold the lock.
func (t *systemTimer) stopTimerLocked() bool {
	active := false
	if t.timer != nil {
		active = t.timer.Stop()
		t.timer = nil
	}
	if t.cancelMonitor != nil {
		t.cancelMonitor()
		t.cancelMonitor = nil
	}
	t.stopped = true
	return active
}
