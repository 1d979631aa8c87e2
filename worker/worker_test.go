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

package worker

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/timely-go/timely/antichain"
	"github.com/timely-go/timely/dataflow"
	"github.com/timely-go/timely/feedback"
	"github.com/timely-go/timely/input"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/order/epoch"
	"github.com/timely-go/timely/pointstamp"
	"github.com/timely-go/timely/probe"
	"github.com/timely-go/timely/progress"
	"github.com/timely-go/timely/transport"
)

func TestWorkerSingleInputDataflow(t *testing.T) {
	Convey(`A Worker hosting a dataflow with a single Input`, t, func() {
		df := dataflow.New(0)
		in := input.New(0, epoch.Min)
		So(df.AddOperator(in), ShouldEqual, 0)
		So(df.Seal(epoch.Identity()), ShouldBeNil)

		tr := transport.NewLocal()
		w := New(tr, 0, 1)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		So(w.AddDataflow(ctx, df, progress.Eager, nil), ShouldBeNil)

		loc := pointstamp.SourceLocation(0, 0)
		pr := probe.New(loc, func() *antichain.Antichain[order.Timestamp] {
			return df.Tracker().Frontier(loc)
		})

		Convey(`stepping reports the Input's initial capability to the tracker`, func() {
			active, err := w.Step(ctx)
			So(err, ShouldBeNil)
			So(active, ShouldBeTrue)
			So(df.Tracker().IsPortActive(loc), ShouldBeTrue)
			So(pr.Done(), ShouldBeFalse)
		})

		Convey(`advancing to the frontier and closing drains the capability`, func() {
			w.Step(ctx)
			So(in.AdvanceTo(epoch.Frontier), ShouldBeNil)
			So(in.Close(), ShouldBeNil)
			w.Activate(Address{DataflowID: 0, Op: 0})
			active, err := w.Step(ctx)
			So(err, ShouldBeNil)
			So(active, ShouldBeTrue)
			So(df.Tracker().IsPortActive(loc), ShouldBeFalse)
			So(pr.Done(), ShouldBeTrue)
		})

		Convey(`a second Step with nothing queued reports inactive`, func() {
			w.Step(ctx)
			active, err := w.Step(ctx)
			So(err, ShouldBeNil)
			So(active, ShouldBeFalse)
		})
	})
}

func TestWorkerStepOrPark(t *testing.T) {
	Convey(`StepOrPark with a zero timeout never sleeps`, t, func() {
		tr := transport.NewLocal()
		w := New(tr, 0, 1)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		active, err := w.StepOrPark(ctx, 0)
		So(err, ShouldBeNil)
		So(active, ShouldBeFalse)
	})
}

func TestWorkerConfig(t *testing.T) {
	Convey(`SetConfig/GetConfig round-trip`, t, func() {
		w := New(transport.NewLocal(), 0, 1)
		_, ok := w.GetConfig("missing")
		So(ok, ShouldBeFalse)

		w.SetConfig("k", 42)
		v, ok := w.GetConfig("k")
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, 42)
	})
}

// TestWorkerFeedbackLoopDataflow hosts a lone Feedback operator whose own
// output loops back onto its own input, advancing the epoch by one on
// every pass — the cycle scenario spec.md §8 calls E3, minus the
// loop-body operator that would ordinarily sit between the two edges an
// input port is limited to (one real upstream source, one from the
// cycle): with no body in scope, the loop's first message is seeded
// directly via the embedded Shell's Produce, the same bookkeeping a real
// upstream edge would perform.
func TestWorkerFeedbackLoopDataflow(t *testing.T) {
	Convey(`A Worker hosting a Feedback operator wired into a self-loop`, t, func() {
		df := dataflow.New(0)
		fb := feedback.New(0, epoch.Summary(1))
		So(df.AddOperator(fb), ShouldEqual, 0)

		fbIn := pointstamp.TargetLocation(0, 0)
		fbOut := pointstamp.SourceLocation(0, 0)
		df.AddEdge(pointstamp.Edge{From: fbOut, To: fbIn})

		// Seal accepts the self-loop because Feedback's own descriptor
		// declares an advancing internal summary from input to output;
		// the reachability builder would refuse a cycle that didn't.
		So(df.Seal(epoch.Identity()), ShouldBeNil)

		tr := transport.NewLocal()
		w := New(tr, 0, 1)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		So(w.AddDataflow(ctx, df, progress.Eager, nil), ShouldBeNil)

		pr := probe.New(fbOut, func() *antichain.Antichain[order.Timestamp] {
			return df.Tracker().Frontier(fbOut)
		})

		Convey(`three trips around the loop all succeed and leave it active`, func() {
			fb.Produce(epoch.Min, fbIn)
			w.Activate(Address{DataflowID: 0, Op: 0})
			w.Step(ctx)

			tm := epoch.Min
			for i := 0; i < 3; i++ {
				So(fb.Forward(tm, fbIn), ShouldBeNil)
				w.Activate(Address{DataflowID: 0, Op: 0})
				w.Step(ctx)
				tm = epoch.Time(int64(tm) + 1)
			}

			// The loop body that would eventually consume these forwarded
			// messages is out of scope, so something is always still
			// possible at fbOut: the cycle never fully drains here.
			So(df.Tracker().IsPortActive(fbOut), ShouldBeTrue)
			So(pr.Done(), ShouldBeFalse)
		})
	})
}
