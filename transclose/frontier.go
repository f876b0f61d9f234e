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

package transclose

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/transclose/bitvec"
	"github.com/grailbio/transclose/gpos"
)

// ovlpEntry is one claimed, fresh sub-range discovered during frontier
// expansion: [start, end) of Q is known to correspond to pos (and its
// onward walk) in the counterpart coordinate system.
type ovlpEntry struct {
	start, end uint64
	pos        gpos.Pos
}

// frontierItem is one unit of exploration work: walk length bases from
// pos (in pos's own orientation) and look up every alignment overlapping
// that range.
type frontierItem struct {
	pos    gpos.Pos
	length uint64
}

// forEachFreshRange splits [start, end) into maximal sub-ranges whose
// bits are unset in seen, and invokes fn once per sub-range with the
// position pos would have reached by the time it walked to that
// sub-range's start. Mirrors transclosure.cpp's eponymous helper.
func forEachFreshRange(seen *bitvec.Vec, start, end uint64, pos gpos.Pos, fn func(s, e uint64, p gpos.Pos)) {
	j := start
	for j < end {
		if seen.Get(j) {
			j++
			continue
		}
		s := j
		for j < end && !seen.Get(j) {
			j++
		}
		fn(s, j, gpos.Incr(pos, s-start))
	}
}

// rangeOf resolves a (pos, length) frontier item to the half-open
// forward-offset range it spans, accounting for pos's orientation.
func rangeOf(pos gpos.Pos, length uint64) (start, end uint64) {
	if gpos.IsRev(pos) {
		end = gpos.Offset(pos) + 1
		return end - length, end
	}
	start = gpos.Offset(pos)
	return start, start + length
}

// todoQueue is the bounded MPMC frontier-exploration queue: a
// fixed-capacity channel backs try-push/try-pop, and overflow spills
// into a caller-supplied thread-local vector instead of blocking.
// Mirrors the "todo" queue of transclosure.cpp's frontier loop: full
// queue -> local overflow, never a dropped item and never a blocked
// producer.
type todoQueue struct {
	ch chan frontierItem
}

// tryPush attempts a non-blocking send; on a full queue it appends to
// *overflow instead of blocking the caller.
func (q *todoQueue) tryPush(overflow *[]frontierItem, it frontierItem) {
	select {
	case q.ch <- it:
	default:
		*overflow = append(*overflow, it)
	}
}

// tryPop attempts a non-blocking receive, reporting ok=false (queue
// momentarily empty, possibly closed) rather than blocking.
func (q *todoQueue) tryPop() (it frontierItem, ok bool) {
	select {
	case it, ok = <-q.ch:
		return it, ok
	default:
		return frontierItem{}, false
	}
}

// expandFrontier runs the parallel frontier-expansion phase of one
// batch: seeds the chunk's own fresh sub-ranges, then fans out
// alignment-overlap lookups across opts.threads() goroutines until
// every reachable position has been claimed in q_curr. It returns the
// claimed bitvector and the (possibly duplicated) list of overlap
// entries collected along the way.
//
// Workers never block: the shared queue is polled with try-push/
// try-pop only, contention on q_curr's atomic bits and on the queue
// itself is the only inter-thread coupling, and a worker that finds
// both the queue and its own overflow momentarily empty sleeps ~1ms
// before polling again rather than spinning.
func (e *Engine) expandFrontier(chunkStart, chunkEnd uint64) (*bitvec.Vec, []ovlpEntry) {
	qCurr := bitvec.New(e.seqidx.Length() + 1)

	var ovlpMu sync.Mutex
	var ovlp []ovlpEntry

	todo := &todoQueue{ch: make(chan frontierItem, 4*(chunkEnd-chunkStart)+64)}
	var pending int64 // items pushed but not yet processed, wherever they currently live
	var claimed uint64
	var warnOnce sync.Once

	tryPush := func(overflow *[]frontierItem, pos gpos.Pos, length uint64) {
		if length == 0 {
			return
		}
		if e.opts.RepeatMax > 0 && atomic.LoadUint64(&claimed) > e.opts.RepeatMax {
			warnOnce.Do(func() {
				log.Printf("transclose: repeat_max %d exceeded in batch [%d,%d), truncating frontier expansion", e.opts.RepeatMax, chunkStart, chunkEnd)
			})
			return
		}
		atomic.AddInt64(&pending, 1)
		todo.tryPush(overflow, frontierItem{pos: pos, length: length})
	}

	claim := func(j uint64) bool {
		if !qCurr.TestAndSet(j) {
			atomic.AddUint64(&claimed, 1)
			return true
		}
		return false
	}

	handleRange := func(overflow *[]frontierItem, s, end uint64, pos gpos.Pos, windowStart, windowEnd uint64) (ovlpEntry, bool) {
		if s < windowStart {
			pos = gpos.Incr(pos, windowStart-s)
			s = windowStart
		}
		if end > windowEnd {
			end = windowEnd
		}
		if s >= end {
			return ovlpEntry{}, false
		}
		// Claim the counterpart positions that [s, end) maps onto; the
		// counterpart range is new work only if one of them was unclaimed.
		// Counterparts closed in an earlier batch are left unclaimed.
		anyNew := false
		p := pos
		for j := s; j < end; j++ {
			if off := gpos.Offset(p); !e.qSeen.Get(off) && claim(off) {
				anyNew = true
			}
			p = gpos.Incr1(p)
		}
		if anyNew {
			tryPush(overflow, pos, end-s)
		}
		return ovlpEntry{start: s, end: end, pos: pos}, true
	}

	process := func(overflow *[]frontierItem, it frontierItem) {
		rs, re := rangeOf(it.pos, it.length)
		for _, id := range e.aln.Overlap(rs, re) {
			mStart, mEnd, counterpart := e.aln.Get(id)
			forEachFreshRange(e.qSeen, mStart, mEnd, counterpart, func(s, en uint64, p gpos.Pos) {
				entry, ok := handleRange(overflow, s, en, p, rs, re)
				if !ok {
					return
				}
				ovlpMu.Lock()
				ovlp = append(ovlp, entry)
				ovlpMu.Unlock()
			})
		}
	}

	// Seed: every fresh position in the chunk is claimed up front (so it
	// gets a dense id during densification even if it matches nothing),
	// and its own alignment overlaps are queued for exploration exactly
	// like any other frontier item. This runs sequentially before any
	// worker starts, so the seed overflow needs no synchronization of
	// its own; worker 0 inherits it as its initial local backlog.
	var seedOverflow []frontierItem
	forEachFreshRange(e.qSeen, chunkStart, chunkEnd, gpos.Make(chunkStart, false), func(s, en uint64, p gpos.Pos) {
		for j := s; j < en; j++ {
			claim(j)
		}
		tryPush(&seedOverflow, p, en-s)
	})

	var workers sync.WaitGroup
	for w := 0; w < e.opts.threads(); w++ {
		var overflow []frontierItem
		if w == 0 {
			overflow = seedOverflow
		}
		workers.Add(1)
		go func(overflow []frontierItem) {
			defer workers.Done()
			for {
				// Re-enqueue one spilled item before polling, so
				// overflow drains back onto the shared queue whenever
				// room frees up instead of growing unbounded. tryPush
				// puts it right back on overflow if the queue is still
				// full, so this is a no-op rather than a loss.
				if n := len(overflow); n > 0 {
					it := overflow[n-1]
					overflow = overflow[:n-1]
					todo.tryPush(&overflow, it)
				}

				it, ok := todo.tryPop()
				if !ok {
					// Queue empty: fall back to this worker's own
					// overflow so progress never depends on another
					// worker draining the shared queue.
					if n := len(overflow); n > 0 {
						it, overflow = overflow[n-1], overflow[:n-1]
						ok = true
					}
				}

				if !ok {
					if atomic.LoadInt64(&pending) == 0 {
						return
					}
					time.Sleep(time.Millisecond)
					continue
				}

				process(&overflow, it)
				atomic.AddInt64(&pending, -1)
			}
		}(overflow)
	}
	workers.Wait()

	return qCurr, ovlp
}
