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

package epoch

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTime(t *testing.T) {
	Convey(`Time is totally ordered`, t, func() {
		So(Time(3).LessEqual(Time(5)), ShouldBeTrue)
		So(Time(5).LessEqual(Time(3)), ShouldBeFalse)
		So(Time(3).LessEqual(Time(3)), ShouldBeTrue)
		So(Time(3).Eq(Time(3)), ShouldBeTrue)
		So(Time(3).Eq(Time(4)), ShouldBeFalse)
	})

	Convey(`Frontier prints as the infinity symbol`, t, func() {
		So(Frontier.String(), ShouldEqual, "∞")
		So(Min.String(), ShouldEqual, "0")
	})
}

func TestSummary(t *testing.T) {
	Convey(`Identity leaves a timestamp unchanged`, t, func() {
		result, ok := Identity().ResultsIn(Time(7))
		So(ok, ShouldBeTrue)
		So(result, ShouldEqual, Time(7))
	})

	Convey(`A positive summary advances a timestamp`, t, func() {
		result, ok := Summary(2).ResultsIn(Time(7))
		So(ok, ShouldBeTrue)
		So(result, ShouldEqual, Time(9))
	})

	Convey(`Applying a summary to Frontier stays at Frontier`, t, func() {
		result, ok := Summary(2).ResultsIn(Frontier)
		So(ok, ShouldBeTrue)
		So(result, ShouldEqual, Frontier)
	})

	Convey(`An overflowing advance saturates to Frontier`, t, func() {
		result, ok := Summary(math.MaxInt64).ResultsIn(Time(1))
		So(ok, ShouldBeTrue)
		So(result, ShouldEqual, Frontier)
	})

	Convey(`FollowedBy composes two summaries by addition`, t, func() {
		composed, ok := Summary(2).FollowedBy(Summary(3))
		So(ok, ShouldBeTrue)
		So(composed, ShouldEqual, Summary(5))
	})

	Convey(`Summary is ordered by increment size`, t, func() {
		So(Summary(2).LessEqual(Summary(3)), ShouldBeTrue)
		So(Summary(3).LessEqual(Summary(2)), ShouldBeFalse)
	})
}
