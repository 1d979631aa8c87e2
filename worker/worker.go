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

// Package worker runs the step loop: drain transport, schedule ready
// operators, feed their reported change-batches to the local reachability
// engine and out to peers, park when there is nothing left to do.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/timely-go/timely/capability"
	"github.com/timely-go/timely/common/clock"
	"github.com/timely-go/timely/common/errors"
	"github.com/timely-go/timely/common/logging"
	"github.com/timely-go/timely/dataflow"
	"github.com/timely-go/timely/operator"
	"github.com/timely-go/timely/progress"
	"github.com/timely-go/timely/transport"
)

// PanicTag marks an error recovered from an operator invocation panicking
// for a reason other than capability misuse (which keeps
// capability.MisuseTag instead, so callers can tell the two apart).
// The offending dataflow is dropped; the worker continues, surfacing the
// error to its own caller rather than swallowing it.
var PanicTag = errors.NewTagKey("worker: operator panic")

// Address names one operator within one hosted dataflow — the unit the
// activations queue holds.
type Address struct {
	DataflowID int
	Op         operator.Index
}

type dataflowEntry struct {
	df *dataflow.Dataflow
	// bcasts holds one Broadcaster per peer worker, never one pointed at
	// this worker itself: each channel id is directional
	// ("progress-<dataflow>-<from>-to-<to>"), so a worker sends on peers' inbound
	// ids and receives on its own, and with one peer (peers==1) there is
	// nothing to allocate at all — a lone worker never re-ingests its own
	// progress broadcast.
	bcasts []*progress.Broadcaster
}

// Worker owns a transport allocator, a set of dataflows, an activations
// queue, and a Config store shared with the operators it hosts. One
// Worker runs on one OS thread; per spec.md's scheduling model, operators
// within it run single-threaded and cooperatively, never preempted.
type Worker struct {
	index int
	peers int

	transport transport.Transport
	start     time.Time

	mu          sync.Mutex
	dataflows   map[int]*dataflowEntry
	order       []int
	activations []Address
	queued      map[Address]bool
	config      map[string]any
	panics      int
}

// New returns a Worker at position index among peers peer workers,
// allocating channels through tr.
func New(tr transport.Transport, index, peers int) *Worker {
	return &Worker{
		index:     index,
		peers:     peers,
		transport: tr,
		start:     time.Now(),
		dataflows: map[int]*dataflowEntry{},
		queued:    map[Address]bool{},
		config:    map[string]any{},
	}
}

// Index returns the worker's position among its peers.
func (w *Worker) Index() int { return w.index }

// Peers returns the total number of peer workers in the process group.
func (w *Worker) Peers() int { return w.peers }

// SetConfig stores value under key in the Config store shared with every
// operator this worker hosts.
func (w *Worker) SetConfig(key string, value any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.config[key] = value
}

// GetConfig retrieves a value previously stored with SetConfig.
func (w *Worker) GetConfig(key string) (any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.config[key]
	return v, ok
}

// PanicCount reports how many operator invocations have panicked over
// this Worker's lifetime, each one dropping its hosting dataflow. A
// driver's exit code is non-zero whenever this is nonzero, per spec.md
// §6's "non-zero if any worker panics".
func (w *Worker) PanicCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.panics
}

// AddDataflow registers df, allocates its progress channel, and schedules
// every one of its operators once so the dataflow's initial capabilities
// and summaries are reported. df must already be Sealed.
func (w *Worker) AddDataflow(ctx context.Context, df *dataflow.Dataflow, mode progress.Mode, opts *progress.BufferOptions) error {
	if df.Tracker() == nil {
		return errors.New("worker: dataflow must be Sealed before AddDataflow")
	}

	var bcasts []*progress.Broadcaster
	for peer := 0; peer < w.peers; peer++ {
		if peer == w.index {
			continue
		}
		outID := fmt.Sprintf("progress-%d-%d-to-%d", df.ID(), w.index, peer)
		inID := fmt.Sprintf("progress-%d-%d-to-%d", df.ID(), peer, w.index)
		sender, _ := w.transport.Allocate(outID)
		_, receiver := w.transport.Allocate(inID)
		bcast, err := progress.NewBroadcaster(mode, df.ID(), sender, receiver, opts)
		if err != nil {
			return errors.Annotate(err, "worker: allocating broadcaster for dataflow %d, peer %d", df.ID(), peer).Err()
		}
		bcasts = append(bcasts, bcast)
	}

	w.mu.Lock()
	w.dataflows[df.ID()] = &dataflowEntry{df: df, bcasts: bcasts}
	w.order = append(w.order, df.ID())
	for i := range df.Operators() {
		w.activate(Address{DataflowID: df.ID(), Op: operator.Index(i)})
	}
	w.mu.Unlock()

	logging.Debugf(ctx, "worker %d: added dataflow %d with %d operators, %d peer channels", w.index, df.ID(), len(df.Operators()), len(bcasts))
	return nil
}

// Activate enqueues addr for scheduling if it is not already queued. An
// operator that returns again=true from Schedule re-activates itself this
// way — the liveness rule spec.md requires of unfinished work.
func (w *Worker) Activate(addr Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.activate(addr)
}

func (w *Worker) activate(addr Address) {
	if w.queued[addr] {
		return
	}
	w.queued[addr] = true
	w.activations = append(w.activations, addr)
}

func (w *Worker) popActivation() (Address, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.activations) == 0 {
		return Address{}, false
	}
	addr := w.activations[0]
	w.activations = w.activations[1:]
	delete(w.queued, addr)
	return addr, true
}

func (w *Worker) pendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.activations)
}

func (w *Worker) entry(id int) *dataflowEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dataflows[id]
}

func (w *Worker) dropDataflow(id int, cause error) {
	w.mu.Lock()
	delete(w.dataflows, id)
	filtered := w.activations[:0]
	for _, a := range w.activations {
		if a.DataflowID == id {
			delete(w.queued, a)
			continue
		}
		filtered = append(filtered, a)
	}
	w.activations = filtered
	w.mu.Unlock()
	_ = cause
}

// Step performs one iteration of the step loop described in spec.md
// §4.7: drain transport into activations, schedule everything queued at
// the start of this call exactly once, feed every reported change-batch
// to the owning dataflow's reachability engine and broadcast layer. It
// returns whether any work was actually done.
func (w *Worker) Step(ctx context.Context) (active bool, err error) {
	drained := w.drainTransport(ctx)

	batchSize := w.pendingCount()
	scheduled := 0
	for i := 0; i < batchSize; i++ {
		addr, ok := w.popActivation()
		if !ok {
			break
		}
		if w.stepOne(ctx, addr) {
			scheduled++
		}
	}

	flushed := w.flushAll(ctx)

	return drained || scheduled > 0 || flushed, nil
}

// drainTransport polls every dataflow's broadcaster for inbound progress
// batches, folds each into the dataflow's reachability engine, and
// reactivates every operator in a dataflow whose implication changed —
// a coarser wake-up than a real per-operator subscription would give,
// but sufficient for the liveness guarantee spec.md §4.7 actually
// requires ("eventual scheduling of every activated operator"), since
// flow control and precise activation targeting are explicit non-goals.
func (w *Worker) drainTransport(ctx context.Context) bool {
	drained := false
	for _, id := range w.snapshotOrder() {
		entry := w.entry(id)
		if entry == nil {
			continue
		}
		for _, bcast := range entry.bcasts {
			for {
				msgs, ok, err := bcast.TryReceive()
				if err != nil {
					logging.Warningf(ctx, "worker %d: dataflow %d: decoding inbound progress: %v", w.index, id, err)
					break
				}
				if !ok {
					break
				}
				drained = true
				for _, msg := range msgs {
					cb := msg.ToChangeBatch()
					changes := entry.df.Tracker().Update(cb)
					if len(changes) == 0 {
						continue
					}
					for i := range entry.df.Operators() {
						w.activate(Address{DataflowID: id, Op: operator.Index(i)})
					}
				}
			}
		}
	}
	return drained
}

func (w *Worker) snapshotOrder() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]int, len(w.order))
	copy(out, w.order)
	return out
}

// stepOne invokes addr's operator exactly once, recovering a panic into a
// PanicTag-ed error that drops the hosting dataflow rather than taking
// down the worker, per spec.md §7's Panic policy.
func (w *Worker) stepOne(ctx context.Context, addr Address) (ran bool) {
	entry := w.entry(addr.DataflowID)
	if entry == nil {
		return false
	}
	ops := entry.df.Operators()
	if int(addr.Op) >= len(ops) {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			tag := errors.TagValue{Key: PanicTag, Value: true}
			if _, misuse := errors.TagValueIn(capability.MisuseTag, cause); misuse {
				tag = errors.TagValue{Key: capability.MisuseTag, Value: true}
			}
			err := errors.Annotate(cause, "worker: operator %d of dataflow %d", addr.Op, addr.DataflowID).Tag(tag).Err()
			logging.Errorf(ctx, "%s", err)
			w.mu.Lock()
			w.panics++
			w.mu.Unlock()
			w.dropDataflow(addr.DataflowID, err)
		}
	}()

	changes, again := ops[addr.Op].Schedule(ctx)
	if again {
		w.Activate(addr)
	}
	if changes != nil && !changes.IsEmpty() {
		entry.df.Tracker().Update(changes)
		for _, bcast := range entry.bcasts {
			if err := bcast.Publish(ctx, changes); err != nil {
				logging.Warningf(ctx, "worker %d: publishing dataflow %d progress: %v", w.index, addr.DataflowID, err)
			}
		}
	}
	return true
}

func (w *Worker) flushAll(ctx context.Context) bool {
	flushed := false
	for _, id := range w.snapshotOrder() {
		entry := w.entry(id)
		if entry == nil {
			continue
		}
		for _, bcast := range entry.bcasts {
			if !bcast.NextSendTime().IsZero() {
				flushed = true
			}
			if err := bcast.Flush(ctx); err != nil {
				logging.Warningf(ctx, "worker %d: flushing dataflow %d: %v", w.index, id, err)
			}
		}
	}
	return flushed
}

// StepOrPark calls Step once; if it did no work, it sleeps for at most
// timeout (zero meaning never park, a negative duration meaning at most
// 24 hours). The sleep is additionally capped by the earliest
// Demand-mode batch deadline across every hosted dataflow, so a pending
// coalesced batch is never held past its own window just because the
// worker parked. Only ctx ending cuts the sleep short: nothing else wakes
// a parked worker, including newly delivered transport frames.
func (w *Worker) StepOrPark(ctx context.Context, timeout time.Duration) (active bool, err error) {
	active, err = w.Step(ctx)
	if err != nil || active || timeout == 0 {
		return active, err
	}

	sleep := timeout
	if timeout < 0 {
		sleep = 24 * time.Hour
	}
	now := clock.Now(ctx)
	for _, id := range w.snapshotOrder() {
		entry := w.entry(id)
		if entry == nil {
			continue
		}
		for _, bcast := range entry.bcasts {
			if next := bcast.NextSendTime(); !next.IsZero() {
				if d := next.Sub(now); d < sleep {
					sleep = d
				}
			}
		}
	}
	if sleep < 0 {
		sleep = 0
	}
	clock.Sleep(ctx, sleep)
	return false, nil
}

// Run calls StepOrPark in a loop until ctx is canceled, logging a
// humanized uptime figure on every parked step — the epoch timer spec.md
// §4.7 names as one of a Worker's owned resources.
func (w *Worker) Run(ctx context.Context, timeout time.Duration) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		active, err := w.StepOrPark(ctx, timeout)
		if err != nil {
			return err
		}
		if !active {
			logging.Debugf(ctx, "worker %d: idle after %s uptime", w.index, humanize.Time(w.start))
		}
	}
}
