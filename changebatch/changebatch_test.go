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

package changebatch

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestChangeBatch(t *testing.T) {
	Convey(`A ChangeBatch`, t, func() {
		cb := New[int]()

		Convey(`starts empty`, func() {
			So(cb.IsEmpty(), ShouldBeTrue)
		})

		Convey(`merges duplicate keys on compaction`, func() {
			cb.Update(5, 1)
			cb.Update(5, 2)
			cb.Update(7, -1)

			updates := cb.Updates()
			So(updates, ShouldHaveLength, 2)

			byKey := map[int]int64{}
			for _, u := range updates {
				byKey[u.Key] = u.Delta
			}
			So(byKey[5], ShouldEqual, 3)
			So(byKey[7], ShouldEqual, -1)
		})

		Convey(`drops entries that net to zero`, func() {
			cb.Update(1, 3)
			cb.Update(1, -3)
			So(cb.IsEmpty(), ShouldBeTrue)
			So(cb.Len(), ShouldEqual, 0)
		})

		Convey(`allows transient negative totals before settling`, func() {
			cb.Update(1, -5)
			cb.Update(1, 5)
			So(cb.IsEmpty(), ShouldBeTrue)
		})

		Convey(`DrainInto moves updates and empties the source`, func() {
			cb.Update(1, 2)
			cb.Update(2, 4)

			other := New[int]()
			cb.DrainInto(other)

			So(cb.IsEmpty(), ShouldBeTrue)
			So(other.Len(), ShouldEqual, 2)
		})

		Convey(`DrainInto accumulates into a non-empty destination`, func() {
			cb.Update(1, 2)
			other := New[int]()
			other.Update(1, 3)
			other.Update(9, 1)

			cb.DrainInto(other)

			updates := other.Canonicalize()
			var total int64
			for _, u := range updates {
				if u.Key == 1 {
					total = u.Delta
				}
			}
			So(total, ShouldEqual, 5)
		})

		Convey(`Canonicalize is deterministic regardless of insertion order`, func() {
			a := New[int]()
			a.Update(3, 1)
			a.Update(1, 1)
			a.Update(2, 1)

			b := New[int]()
			b.Update(1, 1)
			b.Update(2, 1)
			b.Update(3, 1)

			So(a.Canonicalize(), ShouldResemble, b.Canonicalize())
		})
	})
}
