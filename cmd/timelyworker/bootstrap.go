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
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/timely-go/timely/common/errors"
	"github.com/timely-go/timely/common/logging"
	"github.com/timely-go/timely/common/retry"
	"github.com/timely-go/timely/transport"
	"github.com/timely-go/timely/transport/mesh"
	"github.com/timely-go/timely/transport/wsconn"
)

const (
	dialInitialDelay = 25 * time.Millisecond
	dialMaxDelay     = 2 * time.Second
	dialMaxTotal     = 30 * time.Second
)

// TransportFailureTag marks an unrecoverable connection loss while
// establishing the process mesh — spec.md §7's TransportFailure kind.
// The process unwinds without starting any dataflow.
var TransportFailureTag = errors.NewTagKey("timelyworker: transport failure")

// buildTransport returns the transport.Transport every worker thread in
// this process shares, and a cleanup func to run at shutdown. Channel
// ids name global worker indices; processOf maps one to the process
// that hosts it, so a channel between two local threads is routed
// through an in-process transport.Local, and one crossing a process
// boundary through the wsconn mesh.
func buildTransport(ctx context.Context, c *config) (transport.Transport, func(), error) {
	local := transport.NewLocal()
	processOf := func(worker int) int { return worker / c.workers }

	if c.processes == 1 {
		return local, func() {}, nil
	}

	b := &meshBootstrap{
		self:  c.processIndex,
		hosts: c.hosts,
		conns: map[int]*wsconn.Transport{},
	}
	if err := b.run(ctx); err != nil {
		return nil, func() {}, err
	}
	meshTransport := mesh.New(b.self, processOf, b.conns)
	return &hybridTransport{self: c.processIndex, processOf: processOf, local: local, remote: meshTransport}, b.close, nil
}

// hybridTransport routes a channel id between two worker threads in the
// same process through local, and one crossing a process boundary
// through remote — so intra-process progress traffic never pays for a
// wire round trip.
type hybridTransport struct {
	self      int
	processOf mesh.ProcessOf
	local     transport.Transport
	remote    transport.Transport
}

var _ transport.Transport = (*hybridTransport)(nil)

func (h *hybridTransport) Allocate(channelID string) (transport.Sender, transport.Receiver) {
	from, to, err := mesh.Endpoints(channelID)
	if err != nil {
		panic(fmt.Sprintf("timelyworker: %v", err))
	}
	if h.processOf(from) == h.processOf(to) {
		return h.local.Allocate(channelID)
	}
	return h.remote.Allocate(channelID)
}

// meshBootstrap establishes one websocket connection per peer process
// and hands the result to transport/mesh, which routes channel ids onto
// the right one.
type meshBootstrap struct {
	self  int
	hosts []string

	mu       sync.Mutex
	conns    map[int]*wsconn.Transport
	listener net.Listener
}

func (b *meshBootstrap) run(ctx context.Context) error {
	addr := b.hosts[b.self]
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Annotate(err, "timelyworker: listening on %s", addr).Tag(errors.TagValue{Key: ConfigurationErrorTag, Value: true}).Err()
	}
	b.listener = ln

	type accepted struct {
		peer int
		conn *websocket.Conn
	}
	incoming := make(chan accepted, len(b.hosts))

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		peer, err := readHandshake(conn)
		if err != nil {
			conn.Close()
			return
		}
		incoming <- accepted{peer, conn}
	})
	server := &http.Server{Handler: mux}
	go server.Serve(ln)

	var wg sync.WaitGroup
	errs := make(chan error, b.self)
	for peer := 0; peer < b.self; peer++ {
		peer := peer
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := dialPeer(ctx, b.hosts[peer], b.self)
			if err != nil {
				errs <- err
				return
			}
			t := wsconn.New(conn)
			b.mu.Lock()
			b.conns[peer] = t
			b.mu.Unlock()
			go t.Run(ctx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			server.Close()
			return err
		}
	}

	want := len(b.hosts) - b.self - 1
	for i := 0; i < want; i++ {
		select {
		case got := <-incoming:
			t := wsconn.New(got.conn)
			b.mu.Lock()
			b.conns[got.peer] = t
			b.mu.Unlock()
			go t.Run(ctx)
		case <-ctx.Done():
			server.Close()
			return ctx.Err()
		}
	}

	logging.Infof(ctx, "timelyworker: process %d connected to %d peers", b.self, len(b.conns))
	return nil
}

func (b *meshBootstrap) close() {
	if b.listener != nil {
		b.listener.Close()
	}
}

// dialPeer connects to a lower-indexed peer's listener, retrying with
// backoff since this process' own startup races against that peer's.
func dialPeer(ctx context.Context, host string, self int) (conn *websocket.Conn, err error) {
	url := "ws://" + host + "/"
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, uint32(self))

	factory := func(context.Context) retry.Iterator {
		return &retry.ExponentialBackoff{
			Limited:    retry.Limited{Delay: dialInitialDelay, Retries: 20, MaxTotal: dialMaxTotal},
			MaxDelay:   dialMaxDelay,
			Multiplier: 2,
		}
	}
	dialErr := retry.Retry(ctx, factory, func() error {
		c, _, derr := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if derr != nil {
			return derr
		}
		conn = c
		return nil
	}, func(err error, delay time.Duration) {
		logging.Warningf(ctx, "timelyworker: dialing %s: %v, retrying in %s", host, err, delay)
	})
	if dialErr != nil {
		return nil, errors.Annotate(dialErr, "timelyworker: dialing peer at %s", host).Tag(errors.TagValue{Key: TransportFailureTag, Value: true}).Err()
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, body); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func readHandshake(conn *websocket.Conn) (peer int, err error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("timelyworker: short handshake")
	}
	return int(binary.LittleEndian.Uint32(data)), nil
}
