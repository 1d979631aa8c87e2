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

// Package changebatch implements ChangeBatch, the compact multiset of
// (key, delta) updates that is the universal currency of progress: key is
// usually a (Location, Timestamp) pointstamp or a bare Timestamp, and delta
// is a signed count of capabilities or in-flight messages.
//
// ChangeBatch defers compaction (merging duplicate keys, dropping
// zero-deltas) until it is actually needed, following the lazy-compaction
// design of timely dataflow's change_batch.rs: Update is O(1) amortized,
// and a batch that is drained without ever being queried never pays the
// sort.
package changebatch

import "sort"

// Update is one (key, delta) entry. In a fully compacted batch, keys are
// unique.
type Update[K comparable] struct {
	Key   K
	Delta int64
}

// ChangeBatch accumulates (key, delta) updates, compacting them lazily.
// The zero value is an empty batch.
type ChangeBatch[K comparable] struct {
	updates []Update[K]
	clean   int // prefix of updates already known to be compacted
}

// New returns an empty ChangeBatch.
func New[K comparable]() *ChangeBatch[K] {
	return &ChangeBatch[K]{}
}

// Update accumulates delta at key. Temporarily negative running totals are
// legal; only the settled accumulation, once compacted, is expected to be
// non-negative for keys that represent real capability counts.
func (c *ChangeBatch[K]) Update(key K, delta int64) {
	if delta == 0 {
		return
	}
	c.updates = append(c.updates, Update[K]{Key: key, Delta: delta})
}

// IsEmpty reports whether the batch's net effect is empty. It avoids a
// full compaction when the dirty suffix is small relative to the clean
// prefix, mirroring the Rust implementation's heuristic.
func (c *ChangeBatch[K]) IsEmpty() bool {
	if len(c.updates) == 0 {
		return true
	}
	if c.clean*2 <= len(c.updates) {
		c.compact()
	}
	return len(c.updates) == 0
}

// Len returns the number of compacted (key, delta) entries.
func (c *ChangeBatch[K]) Len() int {
	c.compact()
	return len(c.updates)
}

// Updates returns the compacted updates. The returned slice must not be
// mutated or retained across further calls to Update.
func (c *ChangeBatch[K]) Updates() []Update[K] {
	c.compact()
	return c.updates
}

// compact sorts and merges duplicate keys, dropping entries that net to
// zero, and marks the whole batch clean.
func (c *ChangeBatch[K]) compact() {
	if c.clean == len(c.updates) {
		return
	}

	sort.Slice(c.updates, func(i, j int) bool {
		return lessKey(c.updates[i].Key, c.updates[j].Key)
	})

	out := c.updates[:0]
	for i := 0; i < len(c.updates); {
		j := i + 1
		sum := c.updates[i].Delta
		for j < len(c.updates) && c.updates[j].Key == c.updates[i].Key {
			sum += c.updates[j].Delta
			j++
		}
		if sum != 0 {
			out = append(out, Update[K]{Key: c.updates[i].Key, Delta: sum})
		}
		i = j
	}
	c.updates = out
	c.clean = len(c.updates)
}

// DrainInto moves every compacted update from c into other, leaving c
// empty.
func (c *ChangeBatch[K]) DrainInto(other *ChangeBatch[K]) {
	c.compact()
	if len(other.updates) == 0 {
		other.updates, c.updates = c.updates, other.updates
		other.clean = len(other.updates)
	} else {
		for _, u := range c.updates {
			other.Update(u.Key, u.Delta)
		}
		c.updates = c.updates[:0]
	}
	c.clean = 0
}

// Canonicalize returns the compacted updates sorted by key, suitable for
// deterministic comparison in tests and for demand-driven broadcast
// coalescing.
func (c *ChangeBatch[K]) Canonicalize() []Update[K] {
	c.compact()
	out := make([]Update[K], len(c.updates))
	copy(out, c.updates)
	sort.Slice(out, func(i, j int) bool { return lessKey(out[i].Key, out[j].Key) })
	return out
}

// lessKey provides a total, deterministic order over keys for sorting
// purposes only; it has no semantic meaning beyond grouping duplicates and
// making Canonicalize's output stable. It orders by the key's %#v
// formatting (see sprint), which is adequate for the struct/interface key
// types used throughout this module (never on the hot path — compact() and
// Canonicalize are its only callers).
func lessKey[K comparable](a, b K) bool {
	return sprint(a) < sprint(b)
}
