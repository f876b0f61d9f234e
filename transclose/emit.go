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

import "github.com/grailbio/transclose/gpos"

// rangeBufEntry is a single pending run awaiting extension or flush: it
// covers S[sStart, sStart+length) and whatever Q-range is currently
// keyed to it in Engine.rangeBuffer.
type rangeBufEntry struct {
	sStart uint64
	length uint64
}

// extendRange tries to grow the run ending just before qPos, or
// starts a new one.
func (e *Engine) extendRange(sPos uint64, qPos gpos.Pos) {
	qLast := gpos.Decr1(qPos)
	if entry, ok := e.rangeBuffer[qLast]; ok && entry.sStart+entry.length == sPos {
		delete(e.rangeBuffer, qLast)
		entry.length++
		e.rangeBuffer[qPos] = entry
		return
	}
	e.rangeBuffer[qPos] = rangeBufEntry{sStart: sPos, length: 1}
}

// flushRanges materialises every buffered run that did not survive to
// sPos (i.e. isn't still growing) into the node and path indexes.
func (e *Engine) flushRanges(sPos uint64) {
	for key, entry := range e.rangeBuffer {
		if entry.sStart+entry.length == sPos {
			continue
		}
		e.materialize(key, entry)
		delete(e.rangeBuffer, key)
	}
}

// materialize writes one completed run into both indexes. key is the
// Q-position of the run's last-visited base (forward: the highest
// offset; reverse: the lowest, since a reverse walk visits descending
// offsets).
func (e *Engine) materialize(key gpos.Pos, entry rangeBufEntry) {
	s0, l := entry.sStart, entry.length
	if !gpos.IsRev(key) {
		matchEndInQ := gpos.Offset(key) + 1
		matchStartInQ := matchEndInQ - l
		e.nodeIndex.Add(int64(s0), int64(s0+l), gpos.Make(matchStartInQ, false))
		e.pathIndex.Add(int64(matchStartInQ), int64(matchEndInQ), gpos.Make(s0, false))
		return
	}
	k := gpos.Offset(key)
	e.nodeIndex.Add(int64(s0), int64(s0+l), gpos.Make(k+l-1, true))
	e.pathIndex.Add(int64(k), int64(k+l), gpos.Make(s0+l-1, true))
}

// emitBatch walks one batch's renamed dsets in order, appending to S and
// feeding every (q_pos, s_pos) pairing through extendRange.
func (e *Engine) emitBatch(dsets []dsetEntry) {
	first := true
	var lastComponent uint64
	var currentBase byte

	for _, d := range dsets {
		if first || d.component != lastComponent {
			currentBase = e.seqidx.BaseAt(d.offset)
			e.seqBytes = append(e.seqBytes, currentBase)
			currSeqID := e.seqidx.SeqIDAt(d.offset)
			if currSeqID != e.lastSeqID {
				e.flushRanges(uint64(len(e.seqBytes)))
				e.lastSeqID = currSeqID
			} else {
				e.flushRanges(uint64(len(e.seqBytes)) - 1)
			}
			lastComponent = d.component
			first = false
		}

		qPos := gpos.Make(d.offset, false)
		if e.seqidx.BaseAtPos(qPos) != currentBase {
			qPos = gpos.Make(d.offset, true)
			if e.seqidx.BaseAtPos(qPos) != currentBase {
				panic("transclose: no orientation of offset matches its component's representative base")
			}
		}
		e.extendRange(uint64(len(e.seqBytes))-1, qPos)
	}
}
