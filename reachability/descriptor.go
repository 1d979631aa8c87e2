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

package reachability

import (
	"github.com/timely-go/timely/antichain"
	"github.com/timely-go/timely/order"
)

// Descriptor is an operator's static contribution to reachability
// compilation, declared once at graph construction: how many input and
// output ports it has, and for each (input, output) pair the minimal
// antichain of path summaries a message entering at that input may carry
// to that output. A nil or empty antichain at (i, o) means there is no
// path from i to o through this operator — the enabler of selective
// non-blocking scheduling.
type Descriptor struct {
	NumInputs  int
	NumOutputs int

	// InternalSummary[i][o] is the antichain of summaries from input port i
	// to output port o. Indexed InternalSummary[i][o]; entries may be nil.
	InternalSummary [][]*antichain.Antichain[order.Summary]
}

// NewDescriptor allocates a Descriptor with an empty InternalSummary
// table sized for the given port counts. Callers fill in entries with
// Set.
func NewDescriptor(numInputs, numOutputs int) *Descriptor {
	tbl := make([][]*antichain.Antichain[order.Summary], numInputs)
	for i := range tbl {
		tbl[i] = make([]*antichain.Antichain[order.Summary], numOutputs)
	}
	return &Descriptor{NumInputs: numInputs, NumOutputs: numOutputs, InternalSummary: tbl}
}

// Set declares that a message consumed at input i may be produced at
// output o having advanced by at least one summary in summaries.
func (d *Descriptor) Set(i, o int, summaries *antichain.Antichain[order.Summary]) {
	d.InternalSummary[i][o] = summaries
}
