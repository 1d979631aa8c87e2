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

// Package order defines the timestamp and path-summary algebra that the
// progress-tracking core is built on: a user-chosen partially ordered
// timestamp type with a minimum element, and a path-summary type describing
// how a timestamp advances as a message travels along a graph edge.
//
// Concrete Timestamp and Summary implementations must be comparable Go
// values (no slices, maps, or funcs as fields) since the reachability
// engine and antichain trackers use them directly as map keys.
package order

// Timestamp is an element of a partially ordered set with a distinguished
// minimum. Concrete implementations (see package epoch and package pair)
// must be comparable.
type Timestamp interface {
	// LessEqual reports whether this timestamp precedes or equals other in
	// the partial order.
	LessEqual(other Timestamp) bool

	// Eq reports timestamp equality. For most implementations this is
	// LessEqual(other) && other.LessEqual(this), but concrete types may
	// implement it more directly.
	Eq(other Timestamp) bool
}

// Summary is a partial function Timestamp -> Timestamp describing the
// minimum advancement a message undergoes traveling along some path.
// Summaries are themselves partially ordered: s1 <= s2 iff
// s1.ResultsIn(t) <= s2.ResultsIn(t) for every t on which both are defined.
type Summary interface {
	// ResultsIn applies this summary to t. ok is false if the path cannot
	// be taken from t (for example, a bounded loop summary exceeded its
	// iteration count); in that case the returned Timestamp is undefined.
	ResultsIn(t Timestamp) (result Timestamp, ok bool)

	// FollowedBy composes this summary with other, describing "apply this,
	// then other". ok is false if the composition can never apply.
	FollowedBy(other Summary) (composed Summary, ok bool)

	// LessEqual reports whether this summary is pointwise less than or
	// equal to other.
	LessEqual(other Summary) bool
}

// Refiner translates between an outer timestamp type and a refined inner
// timestamp type used inside a nested Subgraph. See package dataflow.
type Refiner interface {
	// ToInner embeds an outer timestamp as the least inner timestamp that
	// refines it.
	ToInner(outer Timestamp) Timestamp

	// ToOuter projects an inner timestamp back onto the outer timestamp
	// type it refines.
	ToOuter(inner Timestamp) Timestamp
}
