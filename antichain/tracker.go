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

package antichain

import (
	"github.com/timely-go/timely/changebatch"
	"github.com/timely-go/timely/order"
)

// Tracker is the counted variant of Antichain (MutableAntichain in the
// original): it holds a per-timestamp reference count and derives a
// minimal frontier from the timestamps with a strictly positive count. It
// is what the reachability engine's per-port bookkeeping and probe.Handle
// actually observe.
type Tracker struct {
	counts   map[order.Timestamp]int64
	frontier *Antichain[order.Timestamp]
	dirty    bool
}

// NewTracker returns an empty Tracker (frontier is the empty antichain,
// meaning the location has no possible future timestamps until capability
// counts are added).
func NewTracker() *Tracker {
	return &Tracker{
		counts:   map[order.Timestamp]int64{},
		frontier: New[order.Timestamp](),
	}
}

// NewTrackerAt returns a Tracker seeded with a single unit of count at
// bottom, the usual state of a freshly constructed output port holding one
// initial capability.
func NewTrackerAt(bottom order.Timestamp) *Tracker {
	t := NewTracker()
	t.Update(bottom, 1)
	t.rebuild()
	return t
}

// Update accumulates delta at t. The frontier is not recomputed until
// Frontier, LessEqual, or Rebuild is called; callers that apply many
// updates in a row should defer those calls until the batch is complete.
func (m *Tracker) Update(t order.Timestamp, delta int64) {
	if delta == 0 {
		return
	}
	m.counts[t] += delta
	if m.counts[t] == 0 {
		delete(m.counts, t)
	}
	m.dirty = true
}

// UpdateIterAndDrain applies every update in batch and returns the net
// frontier change as its own ChangeBatch of (-1 for departed, +1 for
// arrived) frontier elements, ready to push further through the
// reachability engine's worklist.
func (m *Tracker) UpdateIterAndDrain(batch []changebatch.Update[order.Timestamp]) *changebatch.ChangeBatch[order.Timestamp] {
	for _, u := range batch {
		m.Update(u.Key, u.Delta)
	}
	return m.rebuild()
}

// Frontier returns the current minimal frontier, rebuilding it first if
// stale.
func (m *Tracker) Frontier() *Antichain[order.Timestamp] {
	m.rebuild()
	return m.frontier
}

// IsEmpty reports whether the tracked location has no positive-count
// timestamps: the implication at this location is empty, i.e. it is
// finished.
func (m *Tracker) IsEmpty() bool {
	return m.Frontier().IsEmpty()
}

// LessEqual reports whether t is still possible at this location: some
// element of the frontier is <= t.
func (m *Tracker) LessEqual(t order.Timestamp) bool {
	return m.Frontier().LessEqualAny(t)
}

// CountAt returns the current accumulated count for exactly t (not the
// frontier — the raw count, as source_counts/target_counts expose).
func (m *Tracker) CountAt(t order.Timestamp) int64 {
	return m.counts[t]
}

// Counts returns every timestamp with non-zero count, paired with that
// count, in unspecified order. Used to implement source_counts/
// target_counts.
func (m *Tracker) Counts() []changebatch.Update[order.Timestamp] {
	out := make([]changebatch.Update[order.Timestamp], 0, len(m.counts))
	for t, c := range m.counts {
		out = append(out, changebatch.Update[order.Timestamp]{Key: t, Delta: c})
	}
	return out
}

// Rebuild forces a recomputation of the frontier and returns the net
// frontier delta (as in UpdateIterAndDrain) even if Update was never
// called since the last rebuild (in which case the result is empty).
func (m *Tracker) Rebuild() *changebatch.ChangeBatch[order.Timestamp] {
	return m.rebuild()
}

func (m *Tracker) rebuild() *changebatch.ChangeBatch[order.Timestamp] {
	out := changebatch.New[order.Timestamp]()
	if !m.dirty {
		return out
	}
	m.dirty = false

	next := New[order.Timestamp]()
	for t, c := range m.counts {
		if c > 0 {
			next.Insert(t)
		}
	}

	old := m.frontier.Elements()
	for _, t := range old {
		if !tsFrontierContains(next, t) {
			out.Update(t, -1)
		}
	}
	for _, t := range next.Elements() {
		if !tsFrontierContains(m.frontier, t) {
			out.Update(t, 1)
		}
	}

	m.frontier = next
	return out
}

// tsFrontierContains reports whether x is already an element of the
// timestamp frontier antichain a. Frontier elements are pairwise
// incomparable, so equality (rather than domination) is the right test
// here. It is a free function rather than a method because Go does not
// allow specializing a generic type's method set to one instantiation.
func tsFrontierContains(a *Antichain[order.Timestamp], x order.Timestamp) bool {
	for _, e := range a.elems {
		if e.Eq(x) {
			return true
		}
	}
	return false
}
