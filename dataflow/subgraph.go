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

package dataflow

import (
	"context"

	"github.com/timely-go/timely/antichain"
	"github.com/timely-go/timely/changebatch"
	"github.com/timely-go/timely/operator"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
	"github.com/timely-go/timely/reachability"
)

// boundaryIndex is the reserved operator index standing in for the
// subgraph's own external ports inside its hosted reachability engine: a
// message entering external input i appears internally at
// Source(boundaryIndex, i), and a message destined for external output o
// leaves from Target(boundaryIndex, o). It carries no internal summary of
// its own — the path from ingress to egress is entirely the real inner
// edges and operators a caller wires up.
const boundaryIndex = -1

// Subgraph is an operator that contains its own operator table, its own
// reachability engine, and its own two-way timestamp translation via a
// order.Refiner. It presents to its host graph as an ordinary operator:
// external callers see only its Descriptor and Schedule, never its inner
// structure.
type Subgraph struct {
	graph   *graph
	index   operator.Index
	refiner order.Refiner

	numInputs, numOutputs int

	// outputFrontiers holds, per external output port, the projected
	// external frontier derived from the egress implication. Only its net
	// change is ever reported to the parent, per the subtle rule that a
	// subgraph speaks to its parent in frontiers, not raw counts.
	outputFrontiers []*antichain.Tracker
}

var _ operator.Operator = (*Subgraph)(nil)

// NewSubgraph returns an empty Subgraph at index within its host graph,
// translating timestamps across its boundary with refiner.
func NewSubgraph(index operator.Index, refiner order.Refiner, numInputs, numOutputs int) *Subgraph {
	return &Subgraph{
		graph:      newGraph(),
		index:      index,
		refiner:    refiner,
		numInputs:  numInputs,
		numOutputs: numOutputs,
	}
}

// Index returns the subgraph's own index within its host graph.
func (sg *Subgraph) Index() operator.Index { return sg.index }

// AddOperator appends a nested operator to the subgraph's own table.
func (sg *Subgraph) AddOperator(op operator.Operator) operator.Index {
	return sg.graph.addOperator(op)
}

// AddEdge wires two locations within the subgraph's own table. Either
// endpoint may be IngressLocation/EgressLocation to tie into the
// subgraph's external ports.
func (sg *Subgraph) AddEdge(e pointstamp.Edge) {
	sg.graph.addEdge(e)
}

// IngressLocation is where external input i surfaces inside the
// subgraph, as a Source location a nested operator's input edge can
// target.
func (sg *Subgraph) IngressLocation(i int) pointstamp.Location {
	return pointstamp.SourceLocation(boundaryIndex, i)
}

// EgressLocation is where a nested operator must send to reach external
// output o.
func (sg *Subgraph) EgressLocation(o int) pointstamp.Location {
	return pointstamp.TargetLocation(boundaryIndex, o)
}

// Seal compiles the subgraph's inner reachability engine from its
// operator table, edges, and boundary ports. identity is the inner
// timestamp type's identity summary.
func (sg *Subgraph) Seal(identity order.Summary) error {
	boundary := reachability.NewDescriptor(sg.numOutputs, sg.numInputs)
	tr, err := sg.graph.compile(identity, map[int]*reachability.Descriptor{boundaryIndex: boundary}, nil)
	if err != nil {
		return err
	}
	sg.graph.tracker = tr
	sg.outputFrontiers = make([]*antichain.Tracker, sg.numOutputs)
	for o := range sg.outputFrontiers {
		sg.outputFrontiers[o] = antichain.NewTracker()
	}
	return nil
}

// Descriptor implements operator.Operator: the subgraph's own
// internal_summary, as its parent sees it, is the inner engine's compiled
// ingress-to-egress summaries, each wrapped to translate through refiner.
func (sg *Subgraph) Descriptor() *reachability.Descriptor {
	d := reachability.NewDescriptor(sg.numInputs, sg.numOutputs)
	if sg.graph.tracker == nil {
		return d
	}
	for i := 0; i < sg.numInputs; i++ {
		for o := 0; o < sg.numOutputs; o++ {
			inner := sg.graph.tracker.CompiledSummary(sg.IngressLocation(i), sg.EgressLocation(o))
			if inner.IsEmpty() {
				continue
			}
			wrapped := antichain.New[order.Summary]()
			for _, s := range inner.Elements() {
				wrapped.Insert(projectedSummary{refiner: sg.refiner, inner: s})
			}
			d.Set(i, o, wrapped)
		}
	}
	return d
}

// Ingest credits or debits a capability at external input i, translating
// it to the subgraph's own inner timestamp space before feeding it to the
// inner reachability engine. Its effect on the subgraph's reported
// external frontiers surfaces the next time Schedule is invoked.
func (sg *Subgraph) Ingest(i int, t order.Timestamp, delta int64) {
	inner := sg.refiner.ToInner(t)
	cb := changebatch.New[pointstamp.Pointstamp]()
	cb.Update(pointstamp.Pointstamp{Location: sg.IngressLocation(i), Timestamp: inner}, delta)
	sg.projectLocationChanges(sg.graph.tracker.Update(cb))
}

// Schedule implements operator.Operator: it runs every nested operator
// once, feeds each one's reported changes into the subgraph's own
// reachability engine, projects any resulting change at an egress
// location out to the matching external output's frontier, and reports
// the net external frontier change (if any) as the subgraph's own
// change-batch. It reports again=true if any nested operator does.
func (sg *Subgraph) Schedule(ctx context.Context) (*changebatch.ChangeBatch[pointstamp.Pointstamp], bool) {
	again := false
	for _, op := range sg.graph.ops {
		changes, more := op.Schedule(ctx)
		if more {
			again = true
		}
		if changes == nil || changes.IsEmpty() {
			continue
		}
		sg.projectLocationChanges(sg.graph.tracker.Update(changes))
	}

	out := changebatch.New[pointstamp.Pointstamp]()
	for o, ft := range sg.outputFrontiers {
		cb := ft.Rebuild()
		if cb.IsEmpty() {
			continue
		}
		loc := pointstamp.SourceLocation(int(sg.index), o)
		for _, u := range cb.Updates() {
			out.Update(pointstamp.Pointstamp{Location: loc, Timestamp: u.Key}, u.Delta)
		}
	}
	return out, again
}

func (sg *Subgraph) projectLocationChanges(changes []reachability.LocationChange) {
	for _, lc := range changes {
		if lc.Location.Operator != boundaryIndex || lc.Location.Kind != pointstamp.Target {
			continue
		}
		o := lc.Location.Port
		for _, u := range lc.Changes.Updates() {
			outer := sg.refiner.ToOuter(u.Key)
			sg.outputFrontiers[o].Update(outer, u.Delta)
		}
	}
}

// projectedSummary wraps an inner path summary so it can stand in as the
// subgraph's own internal_summary from the parent's point of view: it
// translates the parent's outer timestamp into the subgraph's inner
// space, applies the inner summary, and translates the result back out.
type projectedSummary struct {
	refiner order.Refiner
	inner   order.Summary
}

var _ order.Summary = projectedSummary{}

func (p projectedSummary) ResultsIn(t order.Timestamp) (order.Timestamp, bool) {
	innerResult, ok := p.inner.ResultsIn(p.refiner.ToInner(t))
	if !ok {
		return nil, false
	}
	return p.refiner.ToOuter(innerResult), true
}

func (p projectedSummary) FollowedBy(other order.Summary) (order.Summary, bool) {
	o, ok := other.(projectedSummary)
	if !ok {
		return nil, false
	}
	composed, ok2 := p.inner.FollowedBy(o.inner)
	if !ok2 {
		return nil, false
	}
	return projectedSummary{refiner: p.refiner, inner: composed}, true
}

func (p projectedSummary) LessEqual(other order.Summary) bool {
	o, ok := other.(projectedSummary)
	if !ok {
		return false
	}
	return p.inner.LessEqual(o.inner)
}
