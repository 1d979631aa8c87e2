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

package pair

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/order/epoch"
)

type pt = Product[epoch.Time, epoch.Time]

func TestProduct(t *testing.T) {
	Convey(`A Product timestamp`, t, func() {
		a := pt{Outer: epoch.Time(1), Inner: epoch.Time(2)}
		b := pt{Outer: epoch.Time(1), Inner: epoch.Time(3)}
		c := pt{Outer: epoch.Time(2), Inner: epoch.Time(0)}

		Convey(`orders componentwise`, func() {
			var at, bt, ct order.Timestamp = a, b, c
			So(at.LessEqual(bt), ShouldBeTrue)
			So(bt.LessEqual(at), ShouldBeFalse)
			// a and c are incomparable: a's inner is greater, c's outer is greater.
			So(at.LessEqual(ct), ShouldBeFalse)
			So(ct.LessEqual(at), ShouldBeFalse)
		})

		Convey(`Eq requires both components equal`, func() {
			var at, at2 order.Timestamp = a, pt{Outer: epoch.Time(1), Inner: epoch.Time(2)}
			So(at.Eq(at2), ShouldBeTrue)
		})
	})
}

func TestSummary(t *testing.T) {
	Convey(`A local Summary (inner advances, outer fixed)`, t, func() {
		local := Summary[epoch.Time, epoch.Time]{
			OuterSummary: epoch.Identity(),
			InnerSummary: epoch.Summary(1),
		}
		start := pt{Outer: epoch.Time(5), Inner: epoch.Time(0)}
		var startTS order.Timestamp = start

		Convey(`ResultsIn advances only the inner component`, func() {
			result, ok := local.ResultsIn(startTS)
			So(ok, ShouldBeTrue)
			So(result, ShouldResemble, pt{Outer: epoch.Time(5), Inner: epoch.Time(1)})
		})

		Convey(`composes with another local summary`, func() {
			composed, ok := local.FollowedBy(local)
			So(ok, ShouldBeTrue)
			result, ok2 := composed.ResultsIn(startTS)
			So(ok2, ShouldBeTrue)
			So(result, ShouldResemble, pt{Outer: epoch.Time(5), Inner: epoch.Time(2)})
		})

		Convey(`a local summary is LessEqual another iff its inner part is`, func() {
			bigger := Summary[epoch.Time, epoch.Time]{OuterSummary: epoch.Identity(), InnerSummary: epoch.Summary(2)}
			So(local.LessEqual(bigger), ShouldBeTrue)
			So(bigger.LessEqual(local), ShouldBeFalse)
		})
	})

	Convey(`An outer-resetting Summary (loop iteration closes)`, t, func() {
		reset := Summary[epoch.Time, epoch.Time]{
			OuterSummary: epoch.Summary(1),
			ResetInner:   true,
			InnerReset:   epoch.Time(0),
		}
		start := pt{Outer: epoch.Time(5), Inner: epoch.Time(9)}
		var startTS order.Timestamp = start

		Convey(`ResultsIn advances the outer component and resets the inner`, func() {
			result, ok := reset.ResultsIn(startTS)
			So(ok, ShouldBeTrue)
			So(result, ShouldResemble, pt{Outer: epoch.Time(6), Inner: epoch.Time(0)})
		})

		Convey(`composing a local summary after a reset one keeps the reset variant`, func() {
			local := Summary[epoch.Time, epoch.Time]{OuterSummary: epoch.Identity(), InnerSummary: epoch.Summary(3)}
			composed, ok := reset.FollowedBy(local)
			So(ok, ShouldBeTrue)
			result, ok2 := composed.ResultsIn(startTS)
			So(ok2, ShouldBeTrue)
			// reset brings inner to 0, then local's +3 advances it to 3.
			So(result, ShouldResemble, pt{Outer: epoch.Time(6), Inner: epoch.Time(3)})
		})
	})
}

func TestRefiner(t *testing.T) {
	Convey(`A Refiner`, t, func() {
		r := Refiner[epoch.Time, epoch.Time]{InnerMin: epoch.Time(0)}

		Convey(`ToInner enters at InnerMin`, func() {
			inner := r.ToInner(epoch.Time(7))
			So(inner, ShouldResemble, pt{Outer: epoch.Time(7), Inner: epoch.Time(0)})
		})

		Convey(`ToOuter drops the inner component`, func() {
			outer := r.ToOuter(pt{Outer: epoch.Time(7), Inner: epoch.Time(4)})
			So(outer, ShouldEqual, epoch.Time(7))
		})
	})
}
