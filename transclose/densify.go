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
	"sort"
	"sync/atomic"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/transclose/bitvec"
	"github.com/grailbio/transclose/gpos"
	"github.com/grailbio/transclose/unionfind"
)

// densified is the union-find result for one batch: a dense id space of
// n = qCurr.Count() elements, one per claimed Q-offset, built by
// ranking q_curr's set bits. Orientation is not part of the dense id
// space — a base participates as one disjoint-set element regardless
// of which strand a given overlap reaches it from; the strand used to
// read it back out is chosen at emission time to match the
// component's representative base.
type densified struct {
	qCurr  *bitvec.Vec
	forest *unionfind.Forest
	n      uint64
}

func (d *densified) id(offset uint64) int { return int(d.qCurr.Rank1(offset)) }

// densifyAndUnite builds the dense id space over this batch's claimed
// offsets, then unites, for every collected overlap (q_range, t_pos),
// each offset in q_range with the corresponding offset of t_pos
// advanced along its orientation. Unite calls from distinct goroutines
// are safe — unionfind.Forest is lock-free — so the pass runs across
// opts.threads() shards via traverse.Each.
//
// entry.pos's own offset is not guaranteed to be claimed in qCurr:
// handleRange never claims a counterpart that an earlier batch already
// closed. That happens after RepeatMax truncated an earlier batch's
// frontier expansion (frontier.go's tryPush stops queueing once the
// claimed count exceeds the cap), so a position closed there never had
// its own overlaps explored. d.id calls bitvec.Vec.Rank1 regardless of
// whether the bit is set, so uniting against an unclaimed offset would
// silently rank it as whatever the next claimed offset happens to be
// and corrupt that component. Skip the union in that case instead: the
// pair is left unmerged rather than merged with the wrong node.
func (e *Engine) densifyAndUnite(qCurr *bitvec.Vec, ovlp []ovlpEntry) *densified {
	n := qCurr.Count()
	d := &densified{qCurr: qCurr, forest: unionfind.New(int(n)), n: n}

	parallelism := e.opts.threads()
	var skipped uint64
	_ = traverse.Each(parallelism, func(shard int) error {
		lo := (len(ovlp) * shard) / parallelism
		hi := (len(ovlp) * (shard + 1)) / parallelism
		for _, entry := range ovlp[lo:hi] {
			p := entry.pos
			for j := entry.start; j < entry.end; j++ {
				cOff := gpos.Offset(p)
				if !d.qCurr.Get(cOff) {
					atomic.AddUint64(&skipped, 1)
					p = gpos.Incr1(p)
					continue
				}
				d.forest.Unite(d.id(j), d.id(cOff))
				p = gpos.Incr1(p)
			}
		}
		return nil
	})
	if skipped > 0 {
		log.Printf("transclose: skipped %d union(s) whose counterpart was never claimed, likely repeat_max truncation", skipped)
	}

	return d
}

// dsetEntry is one (component, offset) pairing produced by component
// renaming.
type dsetEntry struct {
	component uint64
	offset    uint64
}

// renameComponents builds dsets = [(find(rank1(p)), p) for each p with
// q_curr=1], replaces raw union-find roots with compact ids ordered by
// ascending minimum Q-offset, and returns the result sorted by
// (component, offset) — the order the emission walk requires, and
// which makes S and both indexes deterministic regardless of
// goroutine scheduling.
func (e *Engine) renameComponents(d *densified) []dsetEntry {
	dsets := make([]dsetEntry, 0, d.n)
	d.qCurr.Each(func(off uint64) {
		root := d.forest.Find(d.id(off))
		dsets = append(dsets, dsetEntry{component: uint64(root), offset: off})
	})
	sort.Slice(dsets, func(i, j int) bool {
		if dsets[i].component != dsets[j].component {
			return dsets[i].component < dsets[j].component
		}
		return dsets[i].offset < dsets[j].offset
	})

	minOffset := make(map[uint64]uint64)
	var order []uint64
	for _, d := range dsets {
		if _, ok := minOffset[d.component]; !ok {
			order = append(order, d.component)
			minOffset[d.component] = d.offset
		} else if d.offset < minOffset[d.component] {
			minOffset[d.component] = d.offset
		}
	}
	sort.Slice(order, func(i, j int) bool { return minOffset[order[i]] < minOffset[order[j]] })
	renamed := make(map[uint64]uint64, len(order))
	for newID, oldID := range order {
		renamed[oldID] = uint64(newID)
	}
	for i := range dsets {
		dsets[i].component = renamed[dsets[i].component]
	}
	sort.Slice(dsets, func(i, j int) bool {
		if dsets[i].component != dsets[j].component {
			return dsets[i].component < dsets[j].component
		}
		return dsets[i].offset < dsets[j].offset
	})
	return dsets
}
