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

// Package epoch provides the simplest non-trivial order.Timestamp: a
// totally ordered 64-bit counter, the instantiation used for top-level
// dataflow inputs (each Input advances through a sequence of epochs).
package epoch

import (
	"fmt"
	"math"

	"github.com/timely-go/timely/order"
)

// Time is a totally ordered timestamp. The zero value is the minimum.
type Time int64

// Min is the minimum Time, held by every freshly-constructed capability.
const Min Time = 0

// Frontier is the timestamp beyond the end of time: no further epoch will
// ever be produced. An Input reports this as its final advance_to.
const Frontier Time = math.MaxInt64

var _ order.Timestamp = Time(0)

// LessEqual implements order.Timestamp.
func (t Time) LessEqual(other order.Timestamp) bool {
	return t <= other.(Time)
}

// Eq implements order.Timestamp.
func (t Time) Eq(other order.Timestamp) bool {
	return t == other.(Time)
}

func (t Time) String() string {
	if t == Frontier {
		return "∞"
	}
	return fmt.Sprintf("%d", int64(t))
}

// Summary advances a Time by a fixed, non-negative increment. A Summary of
// 0 is the identity; Identity() is an alias for it.
type Summary int64

var _ order.Summary = Summary(0)

// Identity is the identity path summary: it leaves a timestamp unchanged.
func Identity() Summary { return Summary(0) }

// ResultsIn implements order.Summary.
func (s Summary) ResultsIn(t order.Timestamp) (order.Timestamp, bool) {
	tt := t.(Time)
	if tt == Frontier {
		return Frontier, true
	}
	sum := int64(tt) + int64(s)
	if sum < int64(tt) { // overflow
		return Frontier, true
	}
	return Time(sum), true
}

// FollowedBy implements order.Summary: composing two fixed increments adds
// them.
func (s Summary) FollowedBy(other order.Summary) (order.Summary, bool) {
	return s + other.(Summary), true
}

// LessEqual implements order.Summary.
func (s Summary) LessEqual(other order.Summary) bool {
	return s <= other.(Summary)
}

func (s Summary) String() string {
	return fmt.Sprintf("+%d", int64(s))
}
