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

package main

import (
	"github.com/timely-go/timely/antichain"
	"github.com/timely-go/timely/dataflow"
	"github.com/timely-go/timely/input"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/order/epoch"
	"github.com/timely-go/timely/pointstamp"
	"github.com/timely-go/timely/probe"
)

// localWorker bundles everything one worker thread needs to drive its
// own copy of the demo dataflow: a single Input, closed after one
// epoch, and a Probe watching it drain to nothing — the linear-pipeline
// scenario spec.md §8 calls E1, minus the map-like operator (the
// data-plane operator zoo is out of this module's scope).
type localWorker struct {
	df    *dataflow.Dataflow
	in    *input.Handle
	probe *probe.Handle
}

// buildDemoDataflow constructs one worker thread's copy of the shared
// dataflow graph. Every worker in the group builds an identical graph
// (same dataflow id, same operator count) independently; only the
// per-worker Input instance differs.
func buildDemoDataflow(dataflowID int) (*localWorker, error) {
	df := dataflow.New(dataflowID)
	in := input.New(0, epoch.Min)
	if idx := df.AddOperator(in); idx != 0 {
		return nil, configErr("demo dataflow: Input must be operator 0, got %d", idx)
	}
	if err := df.Seal(epoch.Identity()); err != nil {
		return nil, err
	}

	loc := pointstamp.SourceLocation(0, 0)
	pr := probe.New(loc, func() *antichain.Antichain[order.Timestamp] {
		return df.Tracker().Frontier(loc)
	})
	return &localWorker{df: df, in: in, probe: pr}, nil
}

// finish advances the worker's Input through its one epoch and closes
// it, so the dataflow has a natural end: frontier reaches the empty
// antichain once every worker's progress has been exchanged.
func (lw *localWorker) finish() error {
	if err := lw.in.AdvanceTo(epoch.Frontier); err != nil {
		return err
	}
	return lw.in.Close()
}

func (lw *localWorker) done() bool {
	return lw.probe.Done()
}
