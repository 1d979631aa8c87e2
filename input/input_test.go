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

package input

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/timely-go/timely/order/epoch"
	"github.com/timely-go/timely/pointstamp"
)

func TestHandle(t *testing.T) {
	Convey(`An Input Handle`, t, func() {
		h := New(0, epoch.Min)

		Convey(`starts holding a capability at min`, func() {
			cb := h.Drain()
			updates := cb.Updates()
			So(updates, ShouldHaveLength, 1)
			So(updates[0].Key.Timestamp, ShouldEqual, epoch.Min)
			So(updates[0].Delta, ShouldEqual, int64(1))
		})

		Convey(`Send reports a message at the current timestamp`, func() {
			h.Drain()
			to := pointstamp.TargetLocation(1, 0)
			So(h.Send(to), ShouldBeNil)
			cb := h.Drain()

			found := false
			for _, u := range cb.Updates() {
				if u.Key.Location == to && u.Key.Timestamp == epoch.Min && u.Delta == 1 {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey(`AdvanceTo moves the capability forward`, func() {
			h.Drain()
			So(h.AdvanceTo(epoch.Time(5)), ShouldBeNil)
			cb := h.Drain()

			byTS := map[epoch.Time]int64{}
			for _, u := range cb.Updates() {
				byTS[u.Key.Timestamp.(epoch.Time)] += u.Delta
			}
			So(byTS[epoch.Min], ShouldEqual, int64(-1))
			So(byTS[epoch.Time(5)], ShouldEqual, int64(1))
		})

		Convey(`Close drops the capability and rejects further use`, func() {
			h.Drain()
			So(h.Close(), ShouldBeNil)
			cb := h.Drain()
			updates := cb.Updates()
			So(updates, ShouldHaveLength, 1)
			So(updates[0].Delta, ShouldEqual, int64(-1))

			So(h.Send(pointstamp.TargetLocation(1, 0)), ShouldNotBeNil)
			So(h.AdvanceTo(epoch.Time(9)), ShouldNotBeNil)
			So(h.Close(), ShouldNotBeNil)
		})
	})
}
