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

package operator

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/timely-go/timely/order/epoch"
	"github.com/timely-go/timely/pointstamp"
)

func TestShell(t *testing.T) {
	Convey(`A Shell`, t, func() {
		s := NewShell(1, 1)

		Convey(`Consume decrements the target and credits the output capability`, func() {
			s.Consume(0, epoch.Time(2), 0)
			cb := s.Drain()

			byLoc := map[pointstamp.Location]int64{}
			for _, u := range cb.Updates() {
				byLoc[u.Key.Location] += u.Delta
			}

			target := pointstamp.TargetLocation(1, 0)
			source := pointstamp.SourceLocation(1, 0)
			So(byLoc[target], ShouldEqual, int64(-1))
			So(byLoc[source], ShouldEqual, int64(1))
		})

		Convey(`Produce credits the destination location`, func() {
			downstream := pointstamp.TargetLocation(2, 0)
			s.Produce(epoch.Time(3), downstream)
			cb := s.Drain()

			updates := cb.Updates()
			So(updates, ShouldHaveLength, 1)
			So(updates[0].Key.Location, ShouldEqual, downstream)
			So(updates[0].Delta, ShouldEqual, int64(1))
		})

		Convey(`Drain resets accumulated state`, func() {
			s.Consume(0, epoch.Time(0), 0)
			s.Drain()
			cb := s.Drain()
			So(cb.IsEmpty(), ShouldBeTrue)
		})
	})
}
