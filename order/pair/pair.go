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

// Package pair provides Product, the refined timestamp a nested Subgraph
// uses internally: an (outer, inner) pair ordered componentwise, plus a
// matching Summary and Refiner.
package pair

import (
	"fmt"

	"github.com/timely-go/timely/order"
)

// Product is a timestamp pair: an outer timestamp from the enclosing
// scope and an inner timestamp private to the nested scope. Product[O, I]
// is comparable (and thus a valid order.Timestamp implementation)
// whenever O and I are.
type Product[O order.Timestamp, I order.Timestamp] struct {
	Outer O
	Inner I
}

var _ order.Timestamp = Product[fakeTimestamp, fakeTimestamp]{}

// LessEqual implements order.Timestamp: the product order, true iff both
// components are pointwise less-equal.
func (p Product[O, I]) LessEqual(other order.Timestamp) bool {
	o := other.(Product[O, I])
	var outer order.Timestamp = p.Outer
	var inner order.Timestamp = p.Inner
	return outer.LessEqual(o.Outer) && inner.LessEqual(o.Inner)
}

// Eq implements order.Timestamp.
func (p Product[O, I]) Eq(other order.Timestamp) bool {
	o := other.(Product[O, I])
	var outer order.Timestamp = p.Outer
	var inner order.Timestamp = p.Inner
	return outer.Eq(o.Outer) && inner.Eq(o.Inner)
}

func (p Product[O, I]) String() string {
	return fmt.Sprintf("(%v, %v)", p.Outer, p.Inner)
}

// Summary is the path summary over a Product timestamp. It either
// advances the inner timestamp while leaving the outer one fixed (the
// common case, a summary internal to the nested scope), or advances the
// outer timestamp and resets the inner one to InnerReset (the case for a
// summary that crosses back out of a loop iteration and re-enters at the
// scope's starting inner time) — the two variants the original
// implementation represents as a Local/Outer enum, flattened here to one
// struct with a ResetInner flag since Go has no tagged union.
type Summary[O order.Timestamp, I order.Timestamp] struct {
	OuterSummary order.Summary
	InnerSummary order.Summary
	ResetInner   bool
	InnerReset   I
}

var _ order.Summary = Summary[fakeTimestamp, fakeTimestamp]{}

// ResultsIn implements order.Summary.
func (s Summary[O, I]) ResultsIn(t order.Timestamp) (order.Timestamp, bool) {
	p := t.(Product[O, I])
	newOuter, ok := s.OuterSummary.ResultsIn(p.Outer)
	if !ok {
		return nil, false
	}
	var newInner I
	if s.ResetInner {
		newInner = s.InnerReset
	} else {
		var innerTS order.Timestamp = p.Inner
		ni, ok2 := s.InnerSummary.ResultsIn(innerTS)
		if !ok2 {
			return nil, false
		}
		newInner = ni.(I)
	}
	return Product[O, I]{Outer: newOuter.(O), Inner: newInner}, true
}

// FollowedBy implements order.Summary: composes "apply s, then other".
func (s Summary[O, I]) FollowedBy(other order.Summary) (order.Summary, bool) {
	o := other.(Summary[O, I])
	outerComposed, ok := s.OuterSummary.FollowedBy(o.OuterSummary)
	if !ok {
		return nil, false
	}
	switch {
	case o.ResetInner:
		return Summary[O, I]{OuterSummary: outerComposed, ResetInner: true, InnerReset: o.InnerReset}, true
	case s.ResetInner:
		var resetTS order.Timestamp = s.InnerReset
		ni, ok2 := o.InnerSummary.ResultsIn(resetTS)
		if !ok2 {
			return nil, false
		}
		return Summary[O, I]{OuterSummary: outerComposed, ResetInner: true, InnerReset: ni.(I)}, true
	default:
		innerComposed, ok3 := s.InnerSummary.FollowedBy(o.InnerSummary)
		if !ok3 {
			return nil, false
		}
		return Summary[O, I]{OuterSummary: outerComposed, InnerSummary: innerComposed}, true
	}
}

// LessEqual implements order.Summary. Comparing a reset-inner summary
// against a non-reset one is not generally meaningful (they advance
// timestamps through structurally different means); this implementation
// only orders two summaries of the same variant.
func (s Summary[O, I]) LessEqual(other order.Summary) bool {
	o := other.(Summary[O, I])
	if !s.OuterSummary.LessEqual(o.OuterSummary) {
		return false
	}
	switch {
	case s.ResetInner && o.ResetInner:
		var a order.Timestamp = s.InnerReset
		return a.LessEqual(o.InnerReset)
	case !s.ResetInner && !o.ResetInner:
		return s.InnerSummary.LessEqual(o.InnerSummary)
	default:
		return false
	}
}

// Refiner translates between an outer timestamp and the Product that
// refines it, entering a nested scope at innerMin and leaving by
// dropping the inner component.
type Refiner[O order.Timestamp, I order.Timestamp] struct {
	InnerMin I
}

var _ order.Refiner = Refiner[fakeTimestamp, fakeTimestamp]{}

// ToInner implements order.Refiner.
func (r Refiner[O, I]) ToInner(outer order.Timestamp) order.Timestamp {
	return Product[O, I]{Outer: outer.(O), Inner: r.InnerMin}
}

// ToOuter implements order.Refiner.
func (r Refiner[O, I]) ToOuter(inner order.Timestamp) order.Timestamp {
	return inner.(Product[O, I]).Outer
}

// fakeTimestamp only exists to let the var _ assertions above name a
// concrete instantiation of the generic types without requiring a real
// Timestamp package import here.
type fakeTimestamp struct{}

func (fakeTimestamp) LessEqual(order.Timestamp) bool { return true }
func (fakeTimestamp) Eq(order.Timestamp) bool        { return true }
