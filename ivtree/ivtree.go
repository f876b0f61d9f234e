// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ivtree implements the interval index container used for the
// aln, node and path indexes: append-only construction (Add), one-shot
// finalization (Index), and read-only overlap/point lookups afterward.
// It follows the sorted-endpoint technique of interval.EndpointIndex,
// generalized to carry an arbitrary payload per interval instead of
// only tracking a union of coordinates.
package ivtree

import "sort"

// Entry is one stored interval [Start, End) with its payload.
type Entry[T any] struct {
	Start, End int64
	Payload    T
}

// Tree is an interval index over half-open integer intervals. The zero
// value is ready for Add calls; call Index once before Overlap/Get.
type Tree[T any] struct {
	entries  []Entry[T]
	order    []int32 // entries indices, sorted by Start
	maxEnd   []int64 // maxEnd[i] = max(End) over order[0:i+1], i.e. a running max
	indexed  bool
}

// Add appends an interval to the tree. Valid only before Index is
// called; Add after Index panics — append once, finalize once.
func (t *Tree[T]) Add(start, end int64, payload T) {
	if t.indexed {
		panic("ivtree: Add called after Index")
	}
	t.entries = append(t.entries, Entry[T]{Start: start, End: end, Payload: payload})
}

// Len returns the number of stored intervals.
func (t *Tree[T]) Len() int { return len(t.entries) }

// Index finalizes the tree for Overlap/Get queries. Idempotent.
func (t *Tree[T]) Index() {
	if t.indexed {
		return
	}
	t.order = make([]int32, len(t.entries))
	for i := range t.order {
		t.order[i] = int32(i)
	}
	sort.Slice(t.order, func(i, j int) bool {
		return t.entries[t.order[i]].Start < t.entries[t.order[j]].Start
	})
	t.maxEnd = make([]int64, len(t.order))
	var running int64 = -1
	for i, idx := range t.order {
		if e := t.entries[idx].End; e > running {
			running = e
		}
		t.maxEnd[i] = running
	}
	t.indexed = true
}

// Get returns the interval stored at id (an index returned by Overlap
// or a raw index in [0, Len())).
func (t *Tree[T]) Get(id int) (start, end int64, payload T) {
	e := t.entries[id]
	return e.Start, e.End, e.Payload
}

// Overlap returns the ids (suitable for Get) of every interval whose
// [Start,End) overlaps the half-open query range [a, b).
func (t *Tree[T]) Overlap(a, b int64) []int {
	if !t.indexed {
		panic("ivtree: Overlap called before Index")
	}
	if len(t.order) == 0 || a >= b {
		return nil
	}
	// Every interval that could overlap [a,b) has Start < b. Binary
	// search for the first position whose running maxEnd exceeds a:
	// positions before that can't reach into [a,b) no matter their
	// Start, since maxEnd is monotone non-decreasing.
	lo := sort.Search(len(t.order), func(i int) bool { return t.maxEnd[i] > a })
	var out []int
	for i := lo; i < len(t.order); i++ {
		idx := t.order[i]
		e := t.entries[idx]
		if e.Start >= b {
			break
		}
		if e.End > a {
			out = append(out, int(idx))
		}
	}
	return out
}
