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

// Package mesh composes one transport.Transport per process out of
// several wsconn.Transport connections, one per peer process, routed by
// the directional channel ids worker.Worker allocates
// ("progress-<dataflow>-<from>-to-<to>", from/to being global worker
// indices): Allocate parses the id's two endpoints, maps each to its
// owning process with ProcessOf, picks whichever process isn't this
// one, and forwards the call to that process' wsconn.Transport. A
// single-process run never needs this package; it exists for the
// -n/-p/-h hostfile case, where more than one worker thread may also
// share a process (see cmd/timelyworker's hybrid transport, which
// routes same-process worker pairs to an in-process transport.Local
// instead of through here).
package mesh

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/timely-go/timely/transport"
	"github.com/timely-go/timely/transport/wsconn"
)

// ProcessOf maps a global worker index to the index of the process
// hosting it.
type ProcessOf func(workerIndex int) int

// Transport routes Allocate calls to the right peer process by parsing
// the channel id's endpoints and mapping them to process indices.
type Transport struct {
	self      int
	processOf ProcessOf
	peers     map[int]*wsconn.Transport
}

var _ transport.Transport = (*Transport)(nil)

// New returns a Transport for process self, with one wsconn.Transport
// per other process in peers (keyed by that process' index).
func New(self int, processOf ProcessOf, peers map[int]*wsconn.Transport) *Transport {
	return &Transport{self: self, processOf: processOf, peers: peers}
}

// Allocate implements transport.Transport. id must be one of this
// process' own directional channel ids — the only caller is
// worker.Worker.AddDataflow, which always names both of its own
// dataflow's endpoints, one of which always maps to self.
func (t *Transport) Allocate(channelID string) (transport.Sender, transport.Receiver) {
	from, to, err := Endpoints(channelID)
	if err != nil {
		panic(fmt.Sprintf("mesh: %v", err))
	}
	peer := t.processOf(to)
	if peer == t.self {
		peer = t.processOf(from)
	}
	conn, ok := t.peers[peer]
	if !ok {
		panic(fmt.Sprintf("mesh: no connection to process %d for channel %q", peer, channelID))
	}
	return conn.Allocate(channelID)
}

// Endpoints parses the two global worker indices out of a
// worker.Worker-style directional channel id
// ("progress-<dataflow>-<from>-to-<to>").
func Endpoints(id string) (from, to int, err error) {
	parts := strings.Split(id, "-to-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed channel id %q", id)
	}
	to, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed channel id %q: %w", id, err)
	}
	idx := strings.LastIndex(parts[0], "-")
	if idx < 0 {
		return 0, 0, fmt.Errorf("malformed channel id %q", id)
	}
	from, err = strconv.Atoi(parts[0][idx+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed channel id %q: %w", id, err)
	}
	return from, to, nil
}
