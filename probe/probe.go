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

// Package probe gives a caller read-only visibility into a dataflow's
// progress without participating in it: a Handle never holds a
// capability and never influences what timestamps remain possible, it
// only reports them.
package probe

import (
	"sync"

	"github.com/timely-go/timely/antichain"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
)

// Handle observes the progress frontier at one input location. Construct
// one with New, wiring frontierFunc to the hosting dataflow's
// reachability.Tracker; call Invalidate when that dataflow is torn down
// so the Handle stops reaching into it.
type Handle struct {
	mu           sync.Mutex
	loc          pointstamp.Location
	frontierFunc func() *antichain.Antichain[order.Timestamp]
}

// New returns a Handle for loc, backed by frontierFunc.
func New(loc pointstamp.Location, frontierFunc func() *antichain.Antichain[order.Timestamp]) *Handle {
	return &Handle{loc: loc, frontierFunc: frontierFunc}
}

// Location returns the location this handle observes.
func (h *Handle) Location() pointstamp.Location { return h.loc }

// Frontier returns the current progress frontier at the probed location:
// the minimal antichain of timestamps a future message there might still
// carry. An invalidated or never-wired Handle reports the empty
// frontier, the same as a fully drained one.
func (h *Handle) Frontier() *antichain.Antichain[order.Timestamp] {
	h.mu.Lock()
	f := h.frontierFunc
	h.mu.Unlock()
	if f == nil {
		return antichain.New[order.Timestamp]()
	}
	return f()
}

// LessThan reports whether the frontier has advanced strictly past t:
// no future message at the probed location can carry a timestamp that
// still permits t, so any work gated on "everything up to t has arrived"
// may proceed.
func (h *Handle) LessThan(t order.Timestamp) bool {
	return !h.Frontier().LessEqualAny(t)
}

// Done reports whether the probed location has no further possible
// timestamps at all — the dataflow (or this part of it) has finished.
func (h *Handle) Done() bool {
	return h.Frontier().IsEmpty()
}

// Invalidate detaches the Handle from its backing dataflow. A caller
// that holds onto a Handle after the dataflow it watches is torn down
// gets Done()==true from then on rather than a dangling reference into
// a discarded reachability.Tracker.
func (h *Handle) Invalidate() {
	h.mu.Lock()
	h.frontierFunc = nil
	h.mu.Unlock()
}
