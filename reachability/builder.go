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

// Package reachability compiles a dataflow graph's per-operator internal
// summaries and edge list into, for every ordered pair of locations, a
// minimal antichain of path summaries — and then runs that compiled table
// forward as pointstamp deltas arrive, maintaining each location's
// implication (the set of timestamps a future message there might still
// carry).
package reachability

import (
	"github.com/timely-go/timely/antichain"
	"github.com/timely-go/timely/common/errors"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
)

// NonAdvancingCycleTag marks errors reporting a dataflow cycle with no
// strictly advancing summary anywhere on it. Such a dataflow is rejected
// at compile time rather than risk the progress engine never observing a
// frontier advance.
var NonAdvancingCycleTag = errors.NewTagKey("reachability: non-advancing cycle")

// Builder accumulates a dataflow's operators and edges, then compiles
// them into a Tracker. The zero value is not usable; construct with
// NewBuilder.
type Builder struct {
	identity    order.Summary
	descriptors map[int]*Descriptor
	edges       []pointstamp.Edge
	seq         int64
}

// NewBuilder returns an empty Builder for a dataflow whose timestamp type
// has the given identity path summary (the summary that leaves every
// timestamp unchanged — e.g. epoch.Identity()). Every edge in the
// dataflow carries this summary as its base case.
func NewBuilder(identity order.Summary) *Builder {
	return &Builder{identity: identity, descriptors: map[int]*Descriptor{}}
}

// AddOperator registers operator index's Descriptor. Every operator
// referenced by an edge or port query must be registered before Compile.
func (b *Builder) AddOperator(index int, d *Descriptor) {
	b.descriptors[index] = d
}

// AddEdge registers a wire from e.From (a Source location) to e.To (a
// Target location). Edges with no operator logic along them participate
// as the identity summary, per the dataflow's definition of "wire
// preserves timestamp".
func (b *Builder) AddEdge(e pointstamp.Edge) {
	b.edges = append(b.edges, e)
}

// table is the in-progress compiled reachability relation: for every
// (from, to) pair seen so far, the minimal antichain of summaries
// describing how a timestamp at from bounds what's reachable at to.
type table map[pointstamp.Location]map[pointstamp.Location]*antichain.Antichain[order.Summary]

func (t table) get(from, to pointstamp.Location) *antichain.Antichain[order.Summary] {
	m := t[from]
	if m == nil {
		m = map[pointstamp.Location]*antichain.Antichain[order.Summary]{}
		t[from] = m
	}
	a := m[to]
	if a == nil {
		a = antichain.New[order.Summary]()
		m[to] = a
	}
	return a
}

// Compile runs the fixed-point closure described in the package doc and
// returns a Tracker ready to accept runtime pointstamp updates. It
// rejects (without panicking) any dataflow in which some non-trivial
// cycle carries no strictly advancing summary.
func (b *Builder) Compile() (*Tracker, error) {
	compiled := table{}
	var wl relaxationHeap

	relax := func(from, to pointstamp.Location, s order.Summary) {
		a := compiled.get(from, to)
		if a.Insert(s) {
			b.seq++
			wl.push(&relaxation{from: from, to: to, summary: s, seq: b.seq})
		}
	}

	// Base case: every edge carries the identity relation (messages cross
	// wires unchanged).
	for _, e := range b.edges {
		relax(e.From, e.To, b.identity)
	}

	// Base case: every operator's declared internal summaries, from each
	// input port to each output port.
	for opIdx, d := range b.descriptors {
		for i := 0; i < d.NumInputs; i++ {
			for o := 0; o < d.NumOutputs; o++ {
				a := d.InternalSummary[i][o]
				if a == nil {
					continue
				}
				from := pointstamp.TargetLocation(opIdx, i)
				to := pointstamp.SourceLocation(opIdx, o)
				for _, s := range a.Elements() {
					relax(from, to, s)
				}
			}
		}
	}

	// Fixed-point closure: every time (from, mid) gains a new minimal
	// summary, try composing it with everything already known to leave
	// mid, and everything already known to arrive at from.
	for wl.Len() > 0 {
		r := wl.pop()

		if outs := compiled[r.to]; outs != nil {
			for to2, a := range outs {
				for _, s2 := range a.Elements() {
					if composed, ok := r.summary.FollowedBy(s2); ok {
						relax(r.from, to2, composed)
					}
				}
			}
		}
		for from2, m := range compiled {
			if a, ok := m[r.from]; ok {
				for _, s1 := range a.Elements() {
					if composed, ok := s1.FollowedBy(r.summary); ok {
						relax(from2, r.to, composed)
					}
				}
			}
		}
	}

	// Cycle check: a genuine (non-trivial) cycle through L shows up as a
	// non-empty compiled[L][L] built purely from real edges/operators
	// (the closure above never seeds a trivial self-entry — relax is only
	// ever called with an edge's or operator's real (from, to), and a
	// self-loop from==to only arises through actual composition around a
	// cycle). Reject if every minimal summary found there is a fixed
	// point under self-composition, i.e. never strictly advances.
	for loc, m := range compiled {
		self, ok := m[loc]
		if !ok || self.IsEmpty() {
			continue
		}
		anyAdvancing := false
		for _, s := range self.Elements() {
			if advances(s) {
				anyAdvancing = true
				break
			}
		}
		if !anyAdvancing {
			return nil, errors.Reason("non-advancing cycle through %s", loc).
				Tag(errors.TagValue{Key: NonAdvancingCycleTag, Value: loc}).Err()
		}
	}

	return newTracker(compiled), nil
}

// advances reports whether composing s with itself strictly moves past s
// (as opposed to reaching a fixed point, which signals a non-advancing
// cycle). A summary for which self-composition is never legal (ok ==
// false, e.g. a bounded feedback loop whose iteration count is already
// exhausted after one pass) also counts as advancing: it cannot be taken
// indefinitely, so it cannot sustain a live non-advancing cycle either.
func advances(s order.Summary) bool {
	s2, ok := s.FollowedBy(s)
	if !ok {
		return true
	}
	return !(s.LessEqual(s2) && s2.LessEqual(s))
}
