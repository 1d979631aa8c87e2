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

// Package dataflow hosts an operator table and the reachability engine
// compiled from it: Dataflow is the top-level graph a worker runs, and
// Subgraph is the nested variant any operator (including another
// Subgraph) can embed to introduce a refined, private timestamp space.
package dataflow

import (
	"github.com/timely-go/timely/operator"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
	"github.com/timely-go/timely/reachability"
)

// graph is the operator table and edge list shared by Dataflow and
// Subgraph, compiled into a reachability.Tracker once sealed.
type graph struct {
	ops     []operator.Operator
	edges   []pointstamp.Edge
	tracker *reachability.Tracker
}

func newGraph() *graph {
	return &graph{}
}

// addOperator appends op to the table and returns its newly assigned,
// densely allocated index.
func (g *graph) addOperator(op operator.Operator) operator.Index {
	idx := operator.Index(len(g.ops))
	g.ops = append(g.ops, op)
	return idx
}

func (g *graph) addEdge(e pointstamp.Edge) {
	g.edges = append(g.edges, e)
}

// compile builds a reachability.Builder from every registered operator's
// Descriptor and every registered edge, plus any extra operators/edges a
// caller (Subgraph, to add its boundary pseudo-operator) wants folded in.
func (g *graph) compile(identity order.Summary, extraOps map[int]*reachability.Descriptor, extraEdges []pointstamp.Edge) (*reachability.Tracker, error) {
	b := reachability.NewBuilder(identity)
	for i, op := range g.ops {
		b.AddOperator(i, op.Descriptor())
	}
	for idx, d := range extraOps {
		b.AddOperator(idx, d)
	}
	for _, e := range g.edges {
		b.AddEdge(e)
	}
	for _, e := range extraEdges {
		b.AddEdge(e)
	}
	return b.Compile()
}

// Operators returns the graph's operator table in index order.
func (g *graph) Operators() []operator.Operator {
	return g.ops
}

// Tracker returns the compiled reachability engine. It is nil until
// Seal/seal has succeeded.
func (g *graph) Tracker() *reachability.Tracker {
	return g.tracker
}
