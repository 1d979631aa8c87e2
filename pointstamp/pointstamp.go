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

// Package pointstamp defines the addressing scheme the progress-tracking
// core is built on: Location (a port on an operator), Edge (a wire
// between two ports), and Pointstamp (a location paired with a
// timestamp, the universe progress counts live over).
package pointstamp

import (
	"fmt"

	"github.com/timely-go/timely/order"
)

// Port distinguishes an operator's input ports (Target, the destination
// of messages) from its output ports (Source, the origin of messages).
type Port bool

const (
	// Target marks an input port.
	Target Port = false
	// Source marks an output port.
	Source Port = true
)

func (p Port) String() string {
	if p == Source {
		return "out"
	}
	return "in"
}

// Location identifies a single port on a single operator within one
// dataflow. Operator indices are assigned densely from zero at graph
// construction.
type Location struct {
	Operator int
	Port     int
	Kind     Port
}

// TargetLocation returns the Location of operator op's i'th input port.
func TargetLocation(op, i int) Location { return Location{Operator: op, Port: i, Kind: Target} }

// SourceLocation returns the Location of operator op's i'th output port.
func SourceLocation(op, i int) Location { return Location{Operator: op, Port: i, Kind: Source} }

func (l Location) String() string {
	return fmt.Sprintf("%s.%d.%d", l.Kind, l.Operator, l.Port)
}

// Edge is a directed wire from one output port to one input port. An
// output port may appear in many edges (fan-out); an input port appears
// in exactly one.
type Edge struct {
	From Location // a Source location
	To   Location // a Target location
}

// Pointstamp is a (Location, Timestamp) pair: the unit of progress
// accounting. Reachability counts, capabilities, and in-flight messages
// are all expressed as signed deltas at a Pointstamp.
type Pointstamp struct {
	Location  Location
	Timestamp order.Timestamp
}

func (p Pointstamp) String() string {
	return fmt.Sprintf("%s@%v", p.Location, p.Timestamp)
}

// Eq reports whether two pointstamps name the same location and an
// equal timestamp.
func (p Pointstamp) Eq(other Pointstamp) bool {
	return p.Location == other.Location && p.Timestamp.Eq(other.Timestamp)
}
