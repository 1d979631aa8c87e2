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

// Package input provides the zero-input, single-output operator that
// feeds external data into a dataflow: it holds exactly one capability,
// downgraded forward by AdvanceTo and finally released by Close, so the
// progress it reports is ordinary capability traffic from the reachability
// engine's point of view.
package input

import (
	"context"
	"fmt"

	"github.com/timely-go/timely/capability"
	"github.com/timely-go/timely/changebatch"
	"github.com/timely-go/timely/operator"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
	"github.com/timely-go/timely/reachability"
)

// Handle is an Input operator's externally visible control surface. It
// has a single output port (port 0) and holds exactly one capability,
// created at t's minimum by New.
//
// In a multi-worker process group, every worker must call AdvanceTo with
// the same sequence of timestamps — the reachability engine only
// produces a globally meaningful frontier if every worker's Input agrees
// on what epoch is in flight.
type Handle struct {
	*operator.Shell
	cap    *capability.Capability
	closed bool
}

var _ operator.Operator = (*Handle)(nil)

// New returns an Input operator at index, holding an initial capability
// at min (the timestamp type's minimum value, e.g. epoch.Min).
func New(index operator.Index, min order.Timestamp) *Handle {
	sh := operator.NewShell(index, 1)
	return &Handle{Shell: sh, cap: sh.Pool(0).Create(min)}
}

// Descriptor implements operator.Operator: zero inputs, one output, no
// internal summary (an Input never consumes).
func (h *Handle) Descriptor() *reachability.Descriptor {
	return reachability.NewDescriptor(0, 1)
}

// Schedule implements operator.Operator: an Input never has unfinished
// work of its own, it only ever reports the capability changes AdvanceTo
// and Close accumulate.
func (h *Handle) Schedule(ctx context.Context) (*changebatch.ChangeBatch[pointstamp.Pointstamp], bool) {
	return h.Drain(), false
}

// Send records that a message was produced at the input's current
// timestamp, destined for to — typically the target location of an edge
// leaving this Input's output port. The worker's step loop is
// responsible for actually routing the message payload; Send only
// contributes the progress-tracking side effect.
func (h *Handle) Send(to pointstamp.Location) error {
	if h.closed {
		return fmt.Errorf("input: send after close")
	}
	h.Produce(h.cap.Timestamp(), to)
	return nil
}

// AdvanceTo downgrades the input's held capability to t, retiring every
// earlier timestamp: no further Send call may use a timestamp that t
// does not dominate. t must be greater than or equal to the current
// timestamp.
func (h *Handle) AdvanceTo(t order.Timestamp) error {
	if h.closed {
		return fmt.Errorf("input: advance after close")
	}
	return h.cap.DowngradeTo(t)
}

// Close drops the input's capability permanently. Once closed, the
// input contributes nothing further to the dataflow's progress and
// downstream frontiers are free to advance past every timestamp it ever
// held.
func (h *Handle) Close() error {
	if h.closed {
		return fmt.Errorf("input: double close")
	}
	if err := h.cap.Drop(); err != nil {
		return err
	}
	h.closed = true
	return nil
}

// Closed reports whether Close has already been called.
func (h *Handle) Closed() bool { return h.closed }
