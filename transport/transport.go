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

// Package transport defines the contract a worker uses to exchange
// bytes with its peers, independent of what carries them: an in-process
// implementation for workers sharing a process, and transport/wsconn for
// workers split across a network.
package transport

import (
	"context"
	"fmt"
	"sync"
)

// Transport allocates independent channels identified by a caller-chosen
// id. Every peer in a worker group must allocate the same channel ids in
// the same order, exactly as timely's own allocator contract requires.
type Transport interface {
	Allocate(channelID string) (Sender, Receiver)
}

// Sender pushes frames into a channel. A nil frame is never sent;
// end-of-channel is signaled by Close, mirroring the Option<T>::None the
// original allocator contract uses for the same purpose.
type Sender interface {
	Send(ctx context.Context, frame []byte) error
	Close() error
}

// Receiver pulls frames from a channel. Recv's ok return is false once
// the sender has Closed and every already-sent frame has been drained.
type Receiver interface {
	Recv(ctx context.Context) (frame []byte, ok bool)

	// TryRecv is Recv's non-blocking form: it returns immediately with
	// ok=false if no frame is queued, rather than waiting on ctx. A
	// Worker's step loop drains transport this way, never blocking the
	// worker thread outside step_or_park's explicit parking.
	TryRecv() (frame []byte, ok bool)
}

// Local is an in-process Transport: every Sender/Receiver pair sharing a
// channel id talks over a buffered Go channel. It is the allocator a
// single-process, multi-worker run uses.
type Local struct {
	mu       sync.Mutex
	channels map[string]*localChannel
}

var _ Transport = (*Local)(nil)

// NewLocal returns an empty in-process Transport.
func NewLocal() *Local {
	return &Local{channels: map[string]*localChannel{}}
}

type localChannel struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// Allocate implements Transport.
func (l *Local) Allocate(channelID string) (Sender, Receiver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.channels[channelID]
	if c == nil {
		c = &localChannel{ch: make(chan []byte, 64)}
		l.channels[channelID] = c
	}
	return &localSender{c: c}, &localReceiver{c: c}
}

type localSender struct{ c *localChannel }

func (s *localSender) Send(ctx context.Context, frame []byte) error {
	s.c.mu.Lock()
	if s.c.closed {
		s.c.mu.Unlock()
		return fmt.Errorf("transport: send on closed channel")
	}
	s.c.mu.Unlock()

	select {
	case s.c.ch <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *localSender) Close() error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if !s.c.closed {
		close(s.c.ch)
		s.c.closed = true
	}
	return nil
}

type localReceiver struct{ c *localChannel }

func (r *localReceiver) Recv(ctx context.Context) ([]byte, bool) {
	select {
	case frame, ok := <-r.c.ch:
		return frame, ok
	case <-ctx.Done():
		return nil, false
	}
}

func (r *localReceiver) TryRecv() ([]byte, bool) {
	select {
	case frame, ok := <-r.c.ch:
		return frame, ok
	default:
		return nil, false
	}
}
