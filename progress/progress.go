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

// Package progress broadcasts a dataflow's pointstamp deltas to every
// peer worker and demultiplexes theirs back in, in one of two modes: an
// Eager Broadcaster wires every change straight onto the transport as
// soon as it's reported; a Demand-driven one (the default) coalesces
// several dataflows' changes through a Buffer before paying for a wire
// round trip. Either way, one outgoing Buffer batch becomes exactly one
// wire frame — a batch is never split across more than one write, so a
// peer either sees every update in it or none.
package progress

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/timely-go/timely/changebatch"
	"github.com/timely-go/timely/pointstamp"
	"github.com/timely-go/timely/transport"
	"github.com/timely-go/timely/wire"
)

// Mode selects how a Broadcaster schedules outgoing frames.
type Mode int

const (
	// Demand coalesces changes into Buffer batches, cut by size or by
	// BufferOptions.BatchWindow, whichever comes first. The default: most
	// workloads produce many small progress updates in quick succession,
	// and coalescing amortizes the wire round trip across them.
	Demand Mode = iota
	// Eager sends every non-empty change-batch as its own frame,
	// immediately. Lower latency per update, higher per-update overhead.
	Eager
)

// Broadcaster publishes one dataflow's progress over a transport.Sender
// and receives peers' over a transport.Receiver.
type Broadcaster struct {
	mode       Mode
	dataflowID int
	sender     transport.Sender
	receiver   transport.Receiver
	buf        *Buffer
}

// NewBroadcaster returns a Broadcaster for dataflowID. opts configures
// the coalescing Buffer and is ignored in Eager mode.
func NewBroadcaster(mode Mode, dataflowID int, sender transport.Sender, receiver transport.Receiver, opts *BufferOptions) (*Broadcaster, error) {
	b := &Broadcaster{mode: mode, dataflowID: dataflowID, sender: sender, receiver: receiver}
	if mode == Demand {
		buf, err := NewBuffer(opts)
		if err != nil {
			return nil, fmt.Errorf("progress: %w", err)
		}
		b.buf = buf
	}
	return b, nil
}

// Publish reports cb, the dataflow's pointstamp deltas since the last
// call. An empty batch is a no-op: there is nothing worth a wire frame.
func (b *Broadcaster) Publish(ctx context.Context, cb *changebatch.ChangeBatch[pointstamp.Pointstamp]) error {
	if cb.IsEmpty() {
		return nil
	}
	msg, err := wire.FromChangeBatch(b.dataflowID, cb)
	if err != nil {
		return err
	}
	raw, err := msg.IntoBytes()
	if err != nil {
		return err
	}

	if b.mode == Eager {
		frame, err := encodeFrame([]Item{{DataflowID: b.dataflowID, Delta: raw}})
		if err != nil {
			return err
		}
		return b.sender.Send(ctx, frame)
	}

	b.buf.Add(ctx, Item{DataflowID: b.dataflowID, Delta: raw})
	return nil
}

// NextSendTime reports when the next Demand-mode batch becomes eligible
// to send (the zero time in Eager mode, or if nothing is pending).
func (b *Broadcaster) NextSendTime() time.Time {
	if b.buf == nil {
		return time.Time{}
	}
	return b.buf.NextSendTime()
}

// Flush sends every currently eligible Demand-mode batch, retrying a
// failed send by NACKing its batch back into the Buffer. It is a no-op
// in Eager mode, which never holds anything back.
func (b *Broadcaster) Flush(ctx context.Context) error {
	if b.buf == nil {
		return nil
	}
	for {
		batch := b.buf.LeaseOne(ctx)
		if batch == nil {
			return nil
		}
		frame, err := encodeFrame(batch.Items)
		if err != nil {
			batch.NACK(ctx, err)
			continue
		}
		if err := b.sender.Send(ctx, frame); err != nil {
			batch.NACK(ctx, err)
			continue
		}
		batch.ACK()
	}
}

// Receive blocks for the next incoming frame and decodes it back into
// the ProgressMessage(s) it carries — more than one if the sender
// coalesced several dataflows' updates into one batch.
func (b *Broadcaster) Receive(ctx context.Context) ([]wire.ProgressMessage, error) {
	frame, ok := b.receiver.Recv(ctx)
	if !ok {
		return nil, io.EOF
	}
	payload, _, err := wire.DecodeFrame(frame)
	if err != nil {
		return nil, err
	}
	items, err := decodeItems(payload)
	if err != nil {
		return nil, err
	}
	msgs := make([]wire.ProgressMessage, 0, len(items))
	for _, it := range items {
		msg, err := wire.DecodeProgressMessage(it)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// TryReceive is Receive's non-blocking form, used by a Worker's step loop
// to drain transport without ever parking outside step_or_park. ok is
// false if no frame is currently queued.
func (b *Broadcaster) TryReceive() (msgs []wire.ProgressMessage, ok bool, err error) {
	frame, ok := b.receiver.TryRecv()
	if !ok {
		return nil, false, nil
	}
	payload, _, err := wire.DecodeFrame(frame)
	if err != nil {
		return nil, true, err
	}
	items, err := decodeItems(payload)
	if err != nil {
		return nil, true, err
	}
	out := make([]wire.ProgressMessage, 0, len(items))
	for _, it := range items {
		msg, err := wire.DecodeProgressMessage(it)
		if err != nil {
			return nil, true, err
		}
		out = append(out, msg)
	}
	return out, true, nil
}

// encodeFrame serializes items (each already-encoded ProgressMessage
// bytes) as one length-prefixed sequence and wraps the whole thing in a
// single wire frame — the atomicity guarantee: every item in items
// crosses the wire together or not at all.
func encodeFrame(items []Item) ([]byte, error) {
	var buf []byte
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(items)))
	buf = append(buf, tmp[:]...)
	for _, item := range items {
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(item.Delta)))
		buf = append(buf, tmp[:]...)
		buf = append(buf, item.Delta...)
	}
	return wire.EncodeFrame(wire.Bytes(buf))
}

func decodeItems(payload []byte) ([][]byte, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("progress: short batch header")
	}
	n := binary.LittleEndian.Uint32(payload[0:4])
	pos := 4
	out := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		if pos+4 > len(payload) {
			return nil, fmt.Errorf("progress: truncated batch at item %d", i)
		}
		l := int(binary.LittleEndian.Uint32(payload[pos : pos+4]))
		pos += 4
		if pos+l > len(payload) {
			return nil, fmt.Errorf("progress: truncated item %d", i)
		}
		out = append(out, payload[pos:pos+l])
		pos += l
	}
	return out, nil
}
