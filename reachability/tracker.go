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
	"github.com/timely-go/timely/changebatch"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
)

// LocationChange is one entry of Update's return value: the net change
// to the implication at Location, expressed as a ChangeBatch over
// Timestamp.
type LocationChange struct {
	Location pointstamp.Location
	Changes  *changebatch.ChangeBatch[order.Timestamp]
}

// Tracker is the compiled, running reachability engine for one dataflow.
// Construct it via Builder.Compile; the zero value is not usable.
type Tracker struct {
	compiled table

	// raw holds, per location, the counts exactly as reported by Update —
	// what source_counts/target_counts expose.
	raw map[pointstamp.Location]*antichain.Tracker

	// implication holds, per location, the push-forward accumulation used
	// to answer IsPortActive and to feed probes and downstream operators.
	implication map[pointstamp.Location]*antichain.Tracker
}

func newTracker(compiled table) *Tracker {
	return &Tracker{
		compiled:    compiled,
		raw:         map[pointstamp.Location]*antichain.Tracker{},
		implication: map[pointstamp.Location]*antichain.Tracker{},
	}
}

func (t *Tracker) rawFor(loc pointstamp.Location) *antichain.Tracker {
	a := t.raw[loc]
	if a == nil {
		a = antichain.NewTracker()
		t.raw[loc] = a
	}
	return a
}

func (t *Tracker) implicationFor(loc pointstamp.Location) *antichain.Tracker {
	a := t.implication[loc]
	if a == nil {
		a = antichain.NewTracker()
		t.implication[loc] = a
	}
	return a
}

// Update accepts a batch of pointstamp deltas, records them at their
// origin location, propagates each forward along every compiled summary
// reachable from that location, and returns the net change to the
// implication at every location that changed. A location's own raw delta
// is also always pushed forward at the identity (zero-length path) to
// itself, since a capability or message held at a location trivially
// implies its own timestamp is still possible there.
func (t *Tracker) Update(changes *changebatch.ChangeBatch[pointstamp.Pointstamp]) []LocationChange {
	touched := map[pointstamp.Location]bool{}

	for _, u := range changes.Updates() {
		loc, ts, delta := u.Key.Location, u.Key.Timestamp, u.Delta

		t.rawFor(loc).Update(ts, delta)

		seen := map[pointstamp.Location]map[order.Timestamp]bool{}
		apply := func(to pointstamp.Location, result order.Timestamp) {
			byTo := seen[to]
			if byTo == nil {
				byTo = map[order.Timestamp]bool{}
				seen[to] = byTo
			}
			if byTo[result] {
				return
			}
			byTo[result] = true
			t.implicationFor(to).Update(result, delta)
			touched[to] = true
		}

		apply(loc, ts) // trivial zero-length path
		for to, summaries := range t.compiled[loc] {
			for _, s := range summaries.Elements() {
				if result, ok := s.ResultsIn(ts); ok {
					apply(to, result)
				}
			}
		}
	}

	var out []LocationChange
	for loc := range touched {
		cb := t.implicationFor(loc).Rebuild()
		if cb.IsEmpty() {
			continue
		}
		out = append(out, LocationChange{Location: loc, Changes: cb})
	}
	return out
}

// SourceCounts returns the raw accumulated (timestamp, count) pairs
// reported directly at loc (an output port), unfiltered by propagation.
func (t *Tracker) SourceCounts(loc pointstamp.Location) []changebatch.Update[order.Timestamp] {
	return t.rawFor(loc).Counts()
}

// TargetCounts returns the raw accumulated (timestamp, count) pairs
// reported directly at loc (an input port), unfiltered by propagation.
func (t *Tracker) TargetCounts(loc pointstamp.Location) []changebatch.Update[order.Timestamp] {
	return t.rawFor(loc).Counts()
}

// IsPortActive reports whether loc's implication is non-empty: some
// future message is still possible there.
func (t *Tracker) IsPortActive(loc pointstamp.Location) bool {
	return !t.implicationFor(loc).IsEmpty()
}

// Frontier returns loc's current implication frontier.
func (t *Tracker) Frontier(loc pointstamp.Location) *antichain.Antichain[order.Timestamp] {
	return t.implicationFor(loc).Frontier()
}

// CompiledSummary returns the minimal antichain of path summaries the
// compiler found from from to to (empty if unreachable). A Subgraph uses
// this to project its own external internal_summary: the compiled
// from-input-to-output summaries of its hosted reachability engine,
// wrapped to translate across the scope boundary.
func (t *Tracker) CompiledSummary(from, to pointstamp.Location) *antichain.Antichain[order.Summary] {
	return t.compiled.get(from, to)
}
