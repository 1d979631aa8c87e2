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

// Package operator defines the Operator contract every graph node
// implements: declare its port counts and internal summaries once, then
// respond to scheduling invocations by consuming input, mutating its
// capabilities, sending output, and reporting exactly one change-batch.
package operator

import (
	"context"

	"github.com/timely-go/timely/capability"
	"github.com/timely-go/timely/changebatch"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
	"github.com/timely-go/timely/reachability"
)

// Index identifies an operator's position within one dataflow's
// operator table, assigned densely from zero at construction.
type Index int

// Operator is implemented by every graph node a worker hosts.
type Operator interface {
	// Descriptor returns this operator's static port counts and internal
	// summary table, consumed once by the hosting dataflow's
	// reachability.Builder.
	Descriptor() *reachability.Descriptor

	// Schedule is invoked by the worker's step loop at most once per
	// activation. It returns the accumulated change-batch for this
	// invocation — message-count-consumed per target, message-count-
	// produced per source, and capability-count-changes per source — and
	// reports whether it still has unfinished work and must be
	// re-activated (the liveness rule: an operator with nothing left to do
	// must not re-activate itself).
	Schedule(ctx context.Context) (changes *changebatch.ChangeBatch[pointstamp.Pointstamp], again bool)
}

// Shell is embedded (or held) by concrete operators to get capability
// pools per output port, and the Consume/Produce bookkeeping that the
// reporting contract in spec.md §4.5 requires, for free.
type Shell struct {
	index Index
	pools []*capability.Pool
	batch *changebatch.ChangeBatch[pointstamp.Pointstamp]
}

// NewShell returns a Shell for an operator at index with numOutputs
// output ports, each with its own capability.Pool.
func NewShell(index Index, numOutputs int) *Shell {
	pools := make([]*capability.Pool, numOutputs)
	for o := range pools {
		pools[o] = capability.NewPool(pointstamp.SourceLocation(int(index), o))
	}
	return &Shell{index: index, pools: pools, batch: changebatch.New[pointstamp.Pointstamp]()}
}

// Index returns the operator's own dataflow index.
func (s *Shell) Index() Index { return s.index }

// Pool returns the capability pool for output port o.
func (s *Shell) Pool(output int) *capability.Pool { return s.pools[output] }

// Consume records that one message at t was consumed on input port
// `input`, decrementing the target's count and incrementing the
// capability count on output port `sourceOutput` at the same timestamp —
// the message's timestamp becomes a local capability, per spec.md §3's
// Lifecycle paragraph.
func (s *Shell) Consume(input int, t order.Timestamp, sourceOutput int) {
	s.ConsumeAt(input, t, sourceOutput, t)
}

// ConsumeAt generalizes Consume for an operator whose output capability
// is not held at the same timestamp as the message it consumed — a
// feedback operator advancing the loop timestamp, or a subgraph crossing
// its own timestamp refinement, are both this case.
func (s *Shell) ConsumeAt(input int, t order.Timestamp, sourceOutput int, capabilityAt order.Timestamp) {
	target := pointstamp.TargetLocation(int(s.index), input)
	s.batch.Update(pointstamp.Pointstamp{Location: target, Timestamp: t}, -1)
	s.pools[sourceOutput].Create(capabilityAt)
}

// Produce records that a message was sent at t to destination location
// to, incrementing its count. It does not itself decrement any
// capability: this runtime uses the capability-preserving variant from
// spec.md §4.5, where capabilities persist across sends and are only
// released by an explicit Clone/DowngradeTo/Drop on the capability.Pool.
func (s *Shell) Produce(t order.Timestamp, to pointstamp.Location) {
	s.batch.Update(pointstamp.Pointstamp{Location: to, Timestamp: t}, 1)
}

// Drain merges every output pool's pending capability deltas with the
// Consume/Produce deltas accumulated since the last Drain into the
// single change-batch Schedule must return, and resets the Shell for the
// next invocation.
func (s *Shell) Drain() *changebatch.ChangeBatch[pointstamp.Pointstamp] {
	out := s.batch
	s.batch = changebatch.New[pointstamp.Pointstamp]()
	for _, p := range s.pools {
		p.Drain().DrainInto(out)
	}
	return out
}
