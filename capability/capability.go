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

// Package capability implements the capability pool an operator uses to
// hold the right to emit messages at a timestamp on one of its output
// ports, and the clone/downgrade/drop operations that keep the
// reachability engine's pointstamp counts consistent with what the
// operator actually does.
package capability

import (
	"github.com/timely-go/timely/changebatch"
	"github.com/timely-go/timely/common/errors"
	"github.com/timely-go/timely/order"
	"github.com/timely-go/timely/pointstamp"
)

// MisuseTag marks errors describing a capability used incorrectly:
// downgrading to a timestamp that does not dominate the held one,
// operating on an already-dropped capability, or double-dropping.
var MisuseTag = errors.NewTagKey("capability: misuse")

// Pool is the local bookkeeping an operator keeps for all capabilities
// it holds on a single output port. Every Clone, DowngradeTo, and Drop
// on a Capability sourced from this Pool accumulates a pointstamp delta
// into Pending, which the operator's scheduling step drains and reports
// to the hosting reachability engine exactly once per invocation.
type Pool struct {
	loc     pointstamp.Location
	pending *changebatch.ChangeBatch[pointstamp.Pointstamp]
}

// NewPool returns an empty Pool bound to an operator's output location.
func NewPool(loc pointstamp.Location) *Pool {
	return &Pool{loc: loc, pending: changebatch.New[pointstamp.Pointstamp]()}
}

// Location returns the output port this pool issues capabilities for.
func (p *Pool) Location() pointstamp.Location { return p.loc }

// Create mints a brand new capability at t with count 1, as happens
// when initial capabilities are declared at graph construction or when
// a consumed message's timestamp becomes a local capability.
func (p *Pool) Create(t order.Timestamp) *Capability {
	p.record(t, 1)
	return &Capability{pool: p, t: t}
}

// Drain returns every pointstamp delta accumulated since the last Drain
// and resets the pool to report nothing further until new operations
// occur. Operators call this exactly once per scheduling invocation, per
// the operator reporting contract.
func (p *Pool) Drain() *changebatch.ChangeBatch[pointstamp.Pointstamp] {
	out := p.pending
	p.pending = changebatch.New[pointstamp.Pointstamp]()
	return out
}

func (p *Pool) record(t order.Timestamp, delta int64) {
	p.pending.Update(pointstamp.Pointstamp{Location: p.loc, Timestamp: t}, delta)
}

// Capability is a (location, timestamp) handle held by an operator,
// granting the right to emit messages at any timestamp >= t on the
// bound output port. It must not be copied by value after first use;
// callers hold and pass *Capability.
type Capability struct {
	pool    *Pool
	t       order.Timestamp
	dropped bool
}

// Timestamp returns the timestamp this capability is held at.
func (c *Capability) Timestamp() order.Timestamp { return c.t }

// Location returns the output port this capability is bound to.
func (c *Capability) Location() pointstamp.Location { return c.pool.loc }

// Clone returns a new capability at the same timestamp, incrementing
// the pool's count there. Cloning a dropped capability is misuse.
func (c *Capability) Clone() (*Capability, error) {
	if c.dropped {
		return nil, misuseErr("cloned a dropped capability at %v", c.t)
	}
	c.pool.record(c.t, 1)
	return &Capability{pool: c.pool, t: c.t}, nil
}

// DowngradeTo replaces this capability with one at t2, which must
// dominate (be >= ) the currently held timestamp. The old count is
// decremented and the new one incremented as a single logical step; the
// capability's identity is preserved (this same *Capability now refers
// to t2).
func (c *Capability) DowngradeTo(t2 order.Timestamp) error {
	if c.dropped {
		return misuseErr("downgraded an already-dropped capability at %v", c.t)
	}
	if !c.t.LessEqual(t2) {
		return misuseErr("downgrade to %v does not dominate held timestamp %v", t2, c.t)
	}
	c.pool.record(c.t, -1)
	c.pool.record(t2, 1)
	c.t = t2
	return nil
}

// Drop releases this capability, decrementing the pool's count at its
// timestamp. Dropping an already-dropped capability is misuse.
func (c *Capability) Drop() error {
	if c.dropped {
		return misuseErr("double-dropped a capability at %v", c.t)
	}
	c.pool.record(c.t, -1)
	c.dropped = true
	return nil
}

func misuseErr(reason string, args ...any) error {
	return errors.Reason(reason, args...).
		Tag(errors.TagValue{Key: MisuseTag, Value: true}).Err()
}
