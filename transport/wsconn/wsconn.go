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

// Package wsconn is the transport.Transport implementation a worker uses
// to reach a peer in a different process: channels are multiplexed over
// a single *websocket.Conn, each frame tagged with the channel id it
// belongs to.
package wsconn

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/timely-go/timely/transport"
)

// Transport multiplexes transport.Sender/Receiver channels over one
// websocket connection. Construct with New once the connection is
// established (by a client Dialer or a server's Upgrader); call Run in
// its own goroutine to start demultiplexing inbound frames.
type Transport struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	channels map[string]*wsChannel
}

var _ transport.Transport = (*Transport)(nil)

// New wraps an established websocket connection.
func New(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn, channels: map[string]*wsChannel{}}
}

// Run reads frames off the connection until it errs or ctx is canceled,
// dispatching each to the wsChannel its id names, creating one on first
// sight. It returns the read error (io.EOF-wrapping included) once the
// connection closes.
func (t *Transport) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			t.closeAll()
			return fmt.Errorf("wsconn: read: %w", err)
		}
		id, frame, err := splitEnvelope(data)
		if err != nil {
			t.closeAll()
			return err
		}
		c := t.channel(id)
		if frame == nil {
			c.closeInbound()
			continue
		}
		c.deliver(frame)
	}
}

func (t *Transport) channel(id string) *wsChannel {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.channels[id]
	if c == nil {
		c = newWSChannel(t, id)
		t.channels[id] = c
	}
	return c
}

func (t *Transport) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.channels {
		c.closeInbound()
	}
}

// Allocate implements transport.Transport.
func (t *Transport) Allocate(channelID string) (transport.Sender, transport.Receiver) {
	c := t.channel(channelID)
	return c, c
}

// writeEnvelope writes a channel id, its length-prefix, and frame (nil
// meaning this channel's sender has closed) as one websocket binary
// message, so the write is atomic from the peer's point of view.
func (t *Transport) writeEnvelope(id string, frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.BinaryMessage, buildEnvelope(id, frame))
}

func buildEnvelope(id string, frame []byte) []byte {
	out := make([]byte, 2+len(id)+len(frame))
	binary.LittleEndian.PutUint16(out[0:2], uint16(len(id)))
	copy(out[2:], id)
	copy(out[2+len(id):], frame)
	return out
}

func splitEnvelope(data []byte) (id string, frame []byte, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("wsconn: short envelope")
	}
	idLen := int(binary.LittleEndian.Uint16(data[0:2]))
	if len(data) < 2+idLen {
		return "", nil, fmt.Errorf("wsconn: truncated channel id")
	}
	id = string(data[2 : 2+idLen])
	rest := data[2+idLen:]
	if len(rest) == 0 {
		return id, nil, nil
	}
	return id, rest, nil
}

// wsChannel is one multiplexed channel's Sender and Receiver.
type wsChannel struct {
	t  *Transport
	id string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
}

func newWSChannel(t *Transport, id string) *wsChannel {
	c := &wsChannel{t: t, id: id}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *wsChannel) deliver(frame []byte) {
	c.mu.Lock()
	c.queue = append(c.queue, frame)
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *wsChannel) closeInbound() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Send implements transport.Sender.
func (c *wsChannel) Send(ctx context.Context, frame []byte) error {
	return c.t.writeEnvelope(c.id, frame)
}

// Close implements transport.Sender: it signals end-of-channel to the
// peer with a zero-length frame.
func (c *wsChannel) Close() error {
	return c.t.writeEnvelope(c.id, nil)
}

// Recv implements transport.Receiver.
func (c *wsChannel) Recv(ctx context.Context) ([]byte, bool) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.cond.Broadcast()
		case <-done:
		}
	}()
	defer close(done)

	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.queue) == 0 && !c.closed && ctx.Err() == nil {
		c.cond.Wait()
	}
	if len(c.queue) > 0 {
		frame := c.queue[0]
		c.queue = c.queue[1:]
		return frame, true
	}
	return nil, false
}

// TryRecv implements transport.Receiver.
func (c *wsChannel) TryRecv() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil, false
	}
	frame := c.queue[0]
	c.queue = c.queue[1:]
	return frame, true
}
