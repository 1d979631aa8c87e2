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

// Package feedback provides the operator that closes a cycle in a
// dataflow graph. Its defining obligation is spec.md's cycle rule: the
// summary it declares from its input to its output must strictly
// advance the timestamp (or be inapplicable past some point), or the
// reachability engine it's wired into will refuse to compile — see
// reachability.Builder's non-advancing-cycle check.
package feedback

import (
	"context"
	"fmt"

	"github.com/timely-go/timely/antichain"
	"github.com/timely-go/timely/changebatch"
	"github.com/timely-go/timely/operator"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
	"github.com/timely-go/timely/reachability"
)

// Handle is a one-input, one-output operator whose declared internal
// summary is advancing: every message it forwards leaves at a strictly
// later (or otherwise non-repeating) timestamp than it arrived.
type Handle struct {
	*operator.Shell
	advancing order.Summary
}

var _ operator.Operator = (*Handle)(nil)

// New returns a Feedback operator at index, advancing timestamps that
// cross it by summary advancing (e.g. epoch.Summary(1) for a loop that
// counts iterations in the epoch itself).
func New(index operator.Index, advancing order.Summary) *Handle {
	return &Handle{Shell: operator.NewShell(index, 1), advancing: advancing}
}

// Descriptor implements operator.Operator: one input, one output, with
// advancing as the sole internal summary from input 0 to output 0.
func (h *Handle) Descriptor() *reachability.Descriptor {
	d := reachability.NewDescriptor(1, 1)
	d.Set(0, 0, antichain.FromElem(h.advancing))
	return d
}

// Schedule implements operator.Operator.
func (h *Handle) Schedule(ctx context.Context) (*changebatch.ChangeBatch[pointstamp.Pointstamp], bool) {
	return h.Drain(), false
}

// Forward consumes a message at t from input 0 and re-emits it to to,
// holding the new capability at the timestamp advancing produces — never
// at t itself, since forwarding at an unadvanced timestamp would let the
// cycle spin without the frontier ever moving.
func (h *Handle) Forward(t order.Timestamp, to pointstamp.Location) error {
	result, ok := h.advancing.ResultsIn(t)
	if !ok {
		return fmt.Errorf("feedback: summary %v does not apply to %v", h.advancing, t)
	}
	h.ConsumeAt(0, t, 0, result)
	h.Produce(result, to)
	return nil
}
