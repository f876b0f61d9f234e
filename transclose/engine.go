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

// Package transclose implements the transitive-closure engine that
// builds a variation-graph sequence from pairwise alignments: it walks
// the concatenated input-sequence space Q in batches, expands each
// batch's alignment frontier in parallel, closes matched bases into
// disjoint-set components with a lock-free union-find, and emits a
// graph sequence S plus two interval indexes relating S back to Q and
// Q back to S. Grounded on original_source/src/transclosure.cpp,
// generalized from its single-process prototype into goroutine/channel
// based concurrency idiomatic of the rest of this module.
package transclose

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/transclose/alnindex"
	"github.com/grailbio/transclose/bitvec"
	"github.com/grailbio/transclose/gpos"
	"github.com/grailbio/transclose/ivtree"
	"github.com/grailbio/transclose/seqindex"
)

// Engine holds all state for one closure run. Unlike the global
// mutable state of the C++ prototype, every piece of shared state is
// an explicit field here.
type Engine struct {
	seqidx seqindex.Index
	aln    *alnindex.Index
	opts   Options

	qSeen *bitvec.Vec

	seqBytes    []byte
	rangeBuffer map[gpos.Pos]rangeBufEntry
	nodeIndex   ivtree.Tree[gpos.Pos]
	pathIndex   ivtree.Tree[gpos.Pos]
	lastSeqID   int
}

// Result is the engine's output: the graph sequence and the two
// interval indexes relating it to the input sequence space.
type Result struct {
	Seq       []byte
	NodeIndex *ivtree.Tree[gpos.Pos] // S-range -> Q position
	PathIndex *ivtree.Tree[gpos.Pos] // Q-range -> S position
}

// NewEngine constructs an Engine ready to Run a closure over seqidx
// using the already-indexed alignment index aln.
func NewEngine(seqidx seqindex.Index, aln *alnindex.Index, opts Options) *Engine {
	return &Engine{
		seqidx:      seqidx,
		aln:         aln,
		opts:        opts,
		qSeen:       bitvec.New(seqidx.Length() + 1),
		rangeBuffer: make(map[gpos.Pos]rangeBufEntry),
	}
}

// nextChunkEnd advances from chunkStart until the number of unseen
// bases scanned reaches opts.TransclosureBatchSize or Q ends, and
// returns the exclusive end of that range.
func (e *Engine) nextChunkEnd(chunkStart uint64) uint64 {
	L := e.seqidx.Length()
	var unseen uint64
	j := chunkStart
	for j <= L && unseen < e.opts.TransclosureBatchSize {
		if !e.qSeen.Get(j) {
			unseen++
		}
		j++
	}
	return j
}

// Run executes the full batch loop to completion and returns the
// closed graph sequence and its indexes.
func (e *Engine) Run() (*Result, error) {
	L := e.seqidx.Length()
	if L == 0 {
		return nil, errors.E("transclose: empty sequence index")
	}
	e.lastSeqID = e.seqidx.SeqIDAt(1)

	batches := 0
	i := uint64(1)
	for i <= L {
		for i <= L && e.qSeen.Get(i) {
			i++
		}
		if i > L {
			break
		}
		chunkStart := i
		chunkEnd := e.nextChunkEnd(chunkStart)

		qCurr, ovlp := e.expandFrontier(chunkStart, chunkEnd)
		d := e.densifyAndUnite(qCurr, ovlp)
		dsets := e.renameComponents(d)
		if len(dsets) == 0 {
			panic("transclose: batch claimed no positions")
		}
		e.emitBatch(dsets)

		qCurr.Each(func(off uint64) {
			if e.qSeen.TestAndSet(off) {
				panic("transclose: a Q-position was claimed in two batches")
			}
		})

		batches++
		log.Debug.Printf("transclose: closed batch [%d,%d) into %d components", chunkStart, chunkEnd, dsets[len(dsets)-1].component+1)
		i = chunkEnd
	}

	e.flushRanges(uint64(len(e.seqBytes)) + 1)
	if len(e.rangeBuffer) != 0 {
		panic("transclose: range buffer non-empty at termination")
	}
	e.nodeIndex.Index()
	e.pathIndex.Index()

	log.Printf("transclose: closed %d bases into %d graph positions across %d batches", L, len(e.seqBytes), batches)
	return &Result{Seq: e.seqBytes, NodeIndex: &e.nodeIndex, PathIndex: &e.pathIndex}, nil
}
