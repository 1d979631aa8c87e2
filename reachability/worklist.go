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
	"container/heap"

	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
)

// relaxation is one pending "a message at from may reach to via summary"
// candidate for the fixed-point compilation sweep.
type relaxation struct {
	from, to pointstamp.Location
	summary  order.Summary
	seq      int64
}

// relaxationHeap orders pending relaxations by operator index, so that in
// an acyclic region of the graph they are processed in roughly
// topological order; ties fall back to insertion order, which is what
// actually handles back-edges correctly (every back-edge relaxation is
// simply revisited once its source changes, however long that takes).
type relaxationHeap []*relaxation

var _ heap.Interface = &relaxationHeap{}

func (h relaxationHeap) Len() int { return len(h) }
func (h relaxationHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h relaxationHeap) Less(i, j int) bool {
	if h[i].from.Operator != h[j].from.Operator {
		return h[i].from.Operator < h[j].from.Operator
	}
	return h[i].seq < h[j].seq
}

func (h *relaxationHeap) Push(itm any) { *h = append(*h, itm.(*relaxation)) }
func (h *relaxationHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func (h *relaxationHeap) push(r *relaxation) { heap.Push(h, r) }
func (h *relaxationHeap) pop() *relaxation    { return heap.Pop(h).(*relaxation) }
