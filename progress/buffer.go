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

package progress

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/timely-go/timely/common/clock"
	"github.com/timely-go/timely/common/retry"
)

// Item is one pending unit of progress to broadcast: a single dataflow's
// worth of pointstamp deltas, demultiplexed by DataflowID.
type Item struct {
	DataflowID int
	Delta      []byte // wire-encoded *changebatch.ChangeBatch[pointstamp.Pointstamp]
}

// BufferOptions configures a Buffer's coalescing window.
type BufferOptions struct {
	// BatchSize caps how many Items a single outgoing batch coalesces
	// before it is eligible to send regardless of BatchWindow.
	BatchSize int
	// BatchWindow is how long a batch accumulates Items before it becomes
	// eligible to send, counted from its first Item.
	BatchWindow time.Duration
	// Retry builds the backoff sequence used when a leased batch is NACKed.
	// A nil Retry means a NACKed batch is requeued with no limit.
	Retry retry.Factory
}

var bufferDefaults = BufferOptions{BatchSize: 64, BatchWindow: 10 * time.Millisecond}

func (o *BufferOptions) normalize() error {
	if o.BatchSize < 0 {
		return fmt.Errorf("progress: negative BatchSize")
	}
	if o.BatchSize == 0 {
		o.BatchSize = bufferDefaults.BatchSize
	}
	if o.BatchWindow == 0 {
		o.BatchWindow = bufferDefaults.BatchWindow
	}
	return nil
}

// Batch is a coalesced group of Items, leased for sending and either
// ACKed (sent successfully) or NACKed (retry, or drop past the retry
// limit) by the caller.
type Batch struct {
	id       int64
	Items    []Item
	nextSend time.Time

	buf   *Buffer
	retry retry.Iterator
	acked bool
}

// Less orders batches by (nextSend, id) for the heap: earliest-eligible
// first, ties broken by insertion order.
func (b *Batch) Less(o *Batch) bool {
	if !b.nextSend.Equal(o.nextSend) {
		return b.nextSend.Before(o.nextSend)
	}
	return b.id < o.id
}

// ACK marks the batch as durably sent, permanently removing it from the
// Buffer's pending count.
func (b *Batch) ACK() {
	b.buf.mu.Lock()
	defer b.buf.mu.Unlock()
	if b.acked {
		panic("progress: double ACK of a Batch")
	}
	b.acked = true
	b.buf.leased--
}

// NACK requeues the batch for a later retry, unless its Retry iterator
// (if any) reports Stop, in which case the batch's Items are dropped.
func (b *Batch) NACK(ctx context.Context, err error) {
	b.buf.mu.Lock()
	defer b.buf.mu.Unlock()
	if b.acked {
		panic("progress: NACK of an already-ACKed Batch")
	}
	b.acked = true
	b.buf.leased--

	delay := time.Duration(0)
	if b.retry != nil {
		delay = b.retry.Next(ctx, err)
		if delay == retry.Stop {
			return
		}
	}
	b.nextSend = clock.Now(ctx).Add(delay)
	b.acked = false
	heap.Push(&b.buf.heap, b)
}

// batchHeap maintains Batches in (nextSend, id) order. Adapted from the
// teacher's dispatcher/buffer package, which used exactly this shape to
// decide which of several in-flight batches is next eligible to send.
type batchHeap []*Batch

var _ heap.Interface = (*batchHeap)(nil)

func (h batchHeap) Len() int           { return len(h) }
func (h batchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h batchHeap) Less(i, j int) bool { return h[i].Less(h[j]) }
func (h *batchHeap) Push(x any)        { *h = append(*h, x.(*Batch)) }
func (h *batchHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Buffer coalesces Items into Batches, a batch becoming eligible to send
// once it holds BatchSize items or BatchWindow has elapsed since its
// first item, whichever comes first. It backs the progress broadcaster's
// Demand-driven mode, where a worker withholds a progress update hoping
// a few more accumulate before it pays the cost of a wire round trip.
type Buffer struct {
	opts BufferOptions

	mu      sync.Mutex
	seq     int64
	current *Batch
	heap    batchHeap
	leased  int
}

// NewBuffer returns a Buffer configured by opts (nil for defaults).
func NewBuffer(opts *BufferOptions) (*Buffer, error) {
	o := bufferDefaults
	if opts != nil {
		o = *opts
	}
	if err := o.normalize(); err != nil {
		return nil, err
	}
	return &Buffer{opts: o}, nil
}

// Add appends item to the current batch, cutting it (pushing it onto the
// send-eligibility heap) if it just reached BatchSize.
func (b *Buffer) Add(ctx context.Context, item Item) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		b.seq++
		b.current = &Batch{id: b.seq, buf: b, nextSend: clock.Now(ctx).Add(b.opts.BatchWindow)}
		if b.opts.Retry != nil {
			b.current.retry = b.opts.Retry(ctx)
		}
	}
	b.current.Items = append(b.current.Items, item)
	if len(b.current.Items) >= b.opts.BatchSize {
		heap.Push(&b.heap, b.current)
		b.current = nil
	}
}

// NextSendTime reports when the oldest pending batch becomes eligible to
// send. It is the zero time if nothing is pending.
func (b *Buffer) NextSendTime() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		return b.current.nextSend
	}
	if len(b.heap) == 0 {
		return time.Time{}
	}
	return b.heap[0].nextSend
}

// LeaseOne pops and returns the oldest eligible batch, cutting the
// in-progress batch first if its window has elapsed. Returns nil if no
// batch is yet eligible.
func (b *Buffer) LeaseOne(ctx context.Context) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := clock.Now(ctx)
	if b.current != nil && !now.Before(b.current.nextSend) {
		heap.Push(&b.heap, b.current)
		b.current = nil
	}
	if len(b.heap) == 0 || now.Before(b.heap[0].nextSend) {
		return nil
	}
	batch := heap.Pop(&b.heap).(*Batch)
	b.leased++
	return batch
}

// Len reports the number of Items held across the current batch and the
// pending heap. A batch popped by LeaseOne stops counting until it is
// NACKed back in; ACK removes it for good.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	if b.current != nil {
		n += len(b.current.Items)
	}
	for _, batch := range b.heap {
		n += len(batch.Items)
	}
	return n
}
