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

package capability

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/timely-go/timely/order/epoch"
	"github.com/timely-go/timely/pointstamp"
)

func TestPool(t *testing.T) {
	Convey(`A capability Pool`, t, func() {
		loc := pointstamp.SourceLocation(0, 0)
		p := NewPool(loc)

		Convey(`Create records a +1 delta at t`, func() {
			p.Create(epoch.Time(0))
			cb := p.Drain()
			updates := cb.Updates()
			So(updates, ShouldHaveLength, 1)
			So(updates[0].Key.Timestamp, ShouldEqual, epoch.Time(0))
			So(updates[0].Delta, ShouldEqual, int64(1))
		})

		Convey(`Clone increments the count at the same timestamp`, func() {
			cap1 := p.Create(epoch.Time(3))
			_, err := cap1.Clone()
			So(err, ShouldBeNil)

			cb := p.Drain()
			updates := cb.Updates()
			So(updates, ShouldHaveLength, 1)
			So(updates[0].Delta, ShouldEqual, int64(2))
		})

		Convey(`Cloning a dropped capability is misuse`, func() {
			cap1 := p.Create(epoch.Time(3))
			So(cap1.Drop(), ShouldBeNil)
			_, err := cap1.Clone()
			So(err, ShouldNotBeNil)
		})

		Convey(`DowngradeTo moves the count from the old to the new timestamp`, func() {
			cap1 := p.Create(epoch.Time(0))
			p.Drain()

			So(cap1.DowngradeTo(epoch.Time(5)), ShouldBeNil)
			cb := p.Drain()

			byKey := map[epoch.Time]int64{}
			for _, u := range cb.Updates() {
				byKey[u.Key.Timestamp.(epoch.Time)] = u.Delta
			}
			So(byKey[epoch.Time(0)], ShouldEqual, int64(-1))
			So(byKey[epoch.Time(5)], ShouldEqual, int64(1))
			So(cap1.Timestamp(), ShouldEqual, epoch.Time(5))
		})

		Convey(`DowngradeTo a non-dominating timestamp is rejected`, func() {
			cap1 := p.Create(epoch.Time(5))
			err := cap1.DowngradeTo(epoch.Time(3))
			So(err, ShouldNotBeNil)
		})

		Convey(`Drop is idempotent-checked: a second Drop is misuse`, func() {
			cap1 := p.Create(epoch.Time(0))
			So(cap1.Drop(), ShouldBeNil)
			So(cap1.Drop(), ShouldNotBeNil)
		})
	})
}
