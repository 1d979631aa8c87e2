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
	"github.com/timely-go/timely/operator"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
)

// Dataflow is the top-level graph a worker runs: an operator table, an
// edge list, and the reachability engine compiled from them. Every
// worker in a process group builds an identical Dataflow (same
// operators, same edges, same index assignment) so that progress
// broadcasts from one worker are meaningful to every other.
type Dataflow struct {
	*graph
	id int
}

// New returns an empty Dataflow identified by id. id demultiplexes
// progress broadcasts on the wire when a worker hosts more than one
// dataflow concurrently.
func New(id int) *Dataflow {
	return &Dataflow{graph: newGraph(), id: id}
}

// ID returns the dataflow's identifier.
func (d *Dataflow) ID() int { return d.id }

// AddOperator appends op to the dataflow's operator table.
func (d *Dataflow) AddOperator(op operator.Operator) operator.Index {
	return d.addOperator(op)
}

// AddEdge wires a Source location to a Target location.
func (d *Dataflow) AddEdge(e pointstamp.Edge) {
	d.addEdge(e)
}

// Seal compiles the reachability engine from every operator and edge
// registered so far. identity is the base timestamp type's identity
// summary (e.g. epoch.Identity()). No further AddOperator/AddEdge calls
// are permitted after Seal.
func (d *Dataflow) Seal(identity order.Summary) error {
	tr, err := d.compile(identity, nil, nil)
	if err != nil {
		return err
	}
	d.tracker = tr
	return nil
}
