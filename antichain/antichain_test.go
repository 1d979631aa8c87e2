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
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/order/epoch"
)

// et wraps a plain epoch.Time as an order.Timestamp, since Antichain is
// instantiated over the interface type, not over concrete Timestamp
// implementations (see antichain.go's doc comment on lessEqualer).
func et(n int64) order.Timestamp { return epoch.Time(n) }

func TestAntichain(t *testing.T) {
	Convey(`An Antichain of order.Timestamp`, t, func() {
		a := New[order.Timestamp]()

		Convey(`starts empty`, func() {
			So(a.IsEmpty(), ShouldBeTrue)
			So(a.Elements(), ShouldBeEmpty)
		})

		Convey(`Insert adds a new incomparable element`, func() {
			So(a.Insert(et(5)), ShouldBeTrue)
			So(a.Elements(), ShouldHaveLength, 1)
		})

		Convey(`Insert of a dominated element is a no-op`, func() {
			a.Insert(et(5))
			So(a.Insert(et(7)), ShouldBeFalse)
			So(a.Elements(), ShouldHaveLength, 1)
		})

		Convey(`Insert of a dominating element evicts the old one`, func() {
			a.Insert(et(7))
			So(a.Insert(et(5)), ShouldBeTrue)
			So(a.Elements(), ShouldResemble, []order.Timestamp{et(5)})
		})

		Convey(`LessEqualAny reflects reachability through the frontier`, func() {
			a.Insert(et(5))
			So(a.LessEqualAny(et(5)), ShouldBeTrue)
			So(a.LessEqualAny(et(10)), ShouldBeTrue)
			So(a.LessEqualAny(et(4)), ShouldBeFalse)
		})

		Convey(`Dominates compares two frontiers`, func() {
			older := FromElem(et(3))
			newer := FromElem(et(5))
			So(newer.Dominates(older), ShouldBeTrue)
			So(older.Dominates(newer), ShouldBeFalse)
		})

		Convey(`Clone is independent of the original`, func() {
			a.Insert(et(5))
			clone := a.Clone()
			a.Insert(et(1))
			So(clone.Elements(), ShouldResemble, []order.Timestamp{et(5)})
		})

		Convey(`Clear empties the antichain in place`, func() {
			a.Insert(et(5))
			a.Clear()
			So(a.IsEmpty(), ShouldBeTrue)
		})
	})
}

func TestTracker(t *testing.T) {
	Convey(`A Tracker`, t, func() {
		tr := NewTracker()

		Convey(`starts with an empty frontier`, func() {
			So(tr.IsEmpty(), ShouldBeTrue)
		})

		Convey(`one capability at the minimum produces a singleton frontier`, func() {
			tr.Update(et(0), 1)
			changes := tr.Rebuild()
			So(changes.Canonicalize(), ShouldHaveLength, 1)
			So(tr.Frontier().Elements(), ShouldResemble, []order.Timestamp{et(0)})
		})

		Convey(`dropping the last capability empties the frontier`, func() {
			tr.Update(et(0), 1)
			tr.Rebuild()
			tr.Update(et(0), -1)
			changes := tr.Rebuild()
			So(tr.IsEmpty(), ShouldBeTrue)
			found := false
			for _, u := range changes.Canonicalize() {
				if u.Key == et(0) && u.Delta == -1 {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey(`advancing from t0 to t1 emits both a departure and an arrival`, func() {
			tr.Update(et(0), 1)
			tr.Rebuild()

			tr.Update(et(0), -1)
			tr.Update(et(1), 1)
			changes := tr.UpdateIterAndDrain(nil)

			byKey := map[order.Timestamp]int64{}
			for _, u := range changes.Canonicalize() {
				byKey[u.Key] = u.Delta
			}
			So(byKey[et(0)], ShouldEqual, -1)
			So(byKey[et(1)], ShouldEqual, 1)
			So(tr.Frontier().Elements(), ShouldResemble, []order.Timestamp{et(1)})
		})

		Convey(`two capabilities at the same timestamp collapse to one frontier element`, func() {
			tr.Update(et(3), 1)
			tr.Update(et(3), 1)
			tr.Rebuild()
			So(tr.Frontier().Elements(), ShouldHaveLength, 1)
			So(tr.CountAt(et(3)), ShouldEqual, 2)
		})

		Convey(`NewTrackerAt seeds a singleton frontier`, func() {
			seeded := NewTrackerAt(et(0))
			So(seeded.Frontier().Elements(), ShouldResemble, []order.Timestamp{et(0)})
		})
	})
}
