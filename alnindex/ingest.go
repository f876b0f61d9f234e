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

package alnindex

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/transclose/gpos"
	"github.com/grailbio/transclose/seqindex"
	"golang.org/x/sync/errgroup"
)

// IngestOpts controls alignment ingestion.
type IngestOpts struct {
	// MinMatchLen is the minimum base-identical run length to record;
	// shorter runs are discarded.
	MinMatchLen uint64
	// Workers is the number of concurrent line parsers. <= 0 means 1.
	Workers int
}

// Ingest reads every alignment record from r, walks each one's CIGAR
// operator string over seqidx, and builds an Index of their
// base-exact matched runs. One producer goroutine reads lines off r
// into a buffered channel; Opts.Workers goroutines drain it and parse
// + walk records concurrently, appending into the shared index under
// a mutex (parsing is parallel, the interval-tree append is
// serialized). The first parse or walk error aborts the whole
// ingestion.
func Ingest(r io.Reader, seqidx seqindex.Index, opts IngestOpts) (*Index, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	idx := &Index{}
	var mu sync.Mutex

	lines := make(chan string, 4*workers)
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<24)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return nil
			}
		}
		return scanner.Err()
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for line := range lines {
				rec, err := parseRecord(line)
				if err != nil {
					return err
				}
				if err := walkRecord(rec, seqidx, opts.MinMatchLen, idx, &mu); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debug.Printf("alnindex: ingested %d match entries", idx.Len())
	idx.Index()
	return idx, nil
}

// walkRecord performs the CIGAR walk for one alignment record,
// following alignments.cpp's unpack_paf_alignments: advance query and
// target positions together through M/I/D operators, collapsing
// consecutive base-identical, non-self-mapping M bases into runs, and
// recording each qualifying run symmetrically (query-side and
// target-side) into idx.
func walkRecord(r record, seqidx seqindex.Index, minMatchLen uint64, idx *Index, mu *sync.Mutex) error {
	qRank, ok := seqidx.RankOfName(r.qname)
	if !ok {
		return errors.E("unknown query sequence name:", r.qname)
	}
	tRank, ok := seqidx.RankOfName(r.tname)
	if !ok {
		return errors.E("unknown target sequence name:", r.tname)
	}
	if r.qend > seqidx.SeqLengthByRank(qRank) || r.tend > seqidx.SeqLengthByRank(tRank) {
		return errors.E("alignment coordinates out of range for", r.qname, r.tname)
	}

	qRev := !r.sameStrand
	var qPos gpos.Pos
	if qRev {
		qPos = gpos.Make(seqidx.PosInAllSeqs(qRank, r.qend, false)-1, true)
	} else {
		qPos = gpos.Make(seqidx.PosInAllSeqs(qRank, r.qstart, false), false)
	}
	tPos := gpos.Make(seqidx.PosInAllSeqs(tRank, r.tstart, false), false)

	var entries []pendingEntry

	for _, op := range r.cigar {
		switch op.op {
		case 'M':
			qMatchStart := qPos
			tMatchStart := tPos
			var matchLen uint64
			addMatch := func() {
				if matchLen == 0 || matchLen < minMatchLen {
					return
				}
				if gpos.IsRev(qPos) {
					xPos := gpos.Decr(qPos, 1)
					entries = append(entries,
						pendingEntry{start: gpos.Offset(xPos), end: gpos.Offset(qMatchStart) + 1,
							counterpart: gpos.Make(gpos.Offset(tPos)-1, true)},
						pendingEntry{start: gpos.Offset(tMatchStart), end: gpos.Offset(tPos),
							counterpart: gpos.Make(gpos.Offset(qMatchStart), true)},
					)
				} else {
					entries = append(entries,
						pendingEntry{start: gpos.Offset(qMatchStart), end: gpos.Offset(qPos), counterpart: tMatchStart},
						pendingEntry{start: gpos.Offset(tMatchStart), end: gpos.Offset(tPos), counterpart: qMatchStart},
					)
				}
			}
			for i := uint64(0); i < op.len; i++ {
				if seqidx.BaseAtPos(qPos) == seqidx.BaseAtPos(tPos) && gpos.Offset(qPos) != gpos.Offset(tPos) {
					if matchLen == 0 {
						qMatchStart = qPos
						tMatchStart = tPos
					}
					matchLen++
					qPos = gpos.Incr1(qPos)
					tPos = gpos.Incr1(tPos)
				} else {
					addMatch()
					qPos = gpos.Incr1(qPos)
					tPos = gpos.Incr1(tPos)
					matchLen = 0
				}
			}
			addMatch()
		case 'I':
			qPos = gpos.Incr(qPos, op.len)
		case 'D':
			tPos = gpos.Incr(tPos, op.len)
		}
	}

	if len(entries) == 0 {
		return nil
	}
	mu.Lock()
	for _, e := range entries {
		idx.add(e.start, e.end, e.counterpart)
	}
	mu.Unlock()
	return nil
}

type pendingEntry struct {
	start, end  uint64
	counterpart gpos.Pos
}
