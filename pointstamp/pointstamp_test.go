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

package pointstamp

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/timely-go/timely/order/epoch"
)

func TestLocation(t *testing.T) {
	Convey(`TargetLocation and SourceLocation tag the port kind`, t, func() {
		in := TargetLocation(2, 0)
		out := SourceLocation(2, 0)
		So(in.Kind, ShouldEqual, Target)
		So(out.Kind, ShouldEqual, Source)
		So(in, ShouldNotEqual, out)
	})

	Convey(`Location is comparable and usable as a map key`, t, func() {
		m := map[Location]int{}
		m[TargetLocation(1, 0)] = 5
		So(m[TargetLocation(1, 0)], ShouldEqual, 5)
		So(m[TargetLocation(1, 1)], ShouldEqual, 0)
	})
}

func TestPointstamp(t *testing.T) {
	Convey(`Pointstamp.Eq compares location and timestamp`, t, func() {
		a := Pointstamp{Location: SourceLocation(0, 0), Timestamp: epoch.Time(3)}
		b := Pointstamp{Location: SourceLocation(0, 0), Timestamp: epoch.Time(3)}
		c := Pointstamp{Location: SourceLocation(0, 0), Timestamp: epoch.Time(4)}

		So(a.Eq(b), ShouldBeTrue)
		So(a.Eq(c), ShouldBeFalse)
	})

	Convey(`Pointstamp is a valid, comparable map key`, t, func() {
		m := map[Pointstamp]int64{}
		p := Pointstamp{Location: TargetLocation(0, 0), Timestamp: epoch.Time(0)}
		m[p] += 1
		m[p] += 2
		So(m[p], ShouldEqual, 3)
	})
}
