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

package seqindex

import (
	"fmt"

	"github.com/grailbio/transclose/gpos"
)

// Named is one input sequence, as passed to FromSequences.
type Named struct {
	Name string
	Seq  string
}

type memIndex struct {
	names  []string
	ranks  map[string]int
	starts []uint64 // starts[r] = 1-based Q offset of the first base of sequence r
	lens   []uint64
	concat []byte // all sequences concatenated, index 0 == Q offset 1
}

// FromSequences builds an in-memory Index over seqs, concatenated in
// the given order. Intended for tests and small inputs; OpenIndexed is
// the production path for large FASTA files.
func FromSequences(seqs []Named) Index {
	m := &memIndex{ranks: make(map[string]int, len(seqs))}
	var total uint64
	for r, s := range seqs {
		m.names = append(m.names, s.Name)
		m.ranks[s.Name] = r
		m.starts = append(m.starts, total+1)
		m.lens = append(m.lens, uint64(len(s.Seq)))
		m.concat = append(m.concat, s.Seq...)
		total += uint64(len(s.Seq))
	}
	return m
}

func (m *memIndex) Length() uint64 { return uint64(len(m.concat)) }

func (m *memIndex) BaseAt(offset uint64) byte {
	if offset == 0 || offset > uint64(len(m.concat)) {
		panic(fmt.Sprintf("seqindex: offset %d out of range [1,%d]", offset, len(m.concat)))
	}
	return m.concat[offset-1]
}

func (m *memIndex) BaseAtPos(p gpos.Pos) byte {
	b := m.BaseAt(gpos.Offset(p))
	if gpos.IsRev(p) {
		return complement(b)
	}
	return b
}

func (m *memIndex) SeqIDAt(offset uint64) int {
	// starts is ascending; find the last rank whose start <= offset.
	lo, hi := 0, len(m.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func (m *memIndex) SeqLengthByRank(rank int) uint64 { return m.lens[rank] }

func (m *memIndex) RankOfName(name string) (int, bool) {
	r, ok := m.ranks[name]
	return r, ok
}

func (m *memIndex) PosInAllSeqs(rank int, offsetWithinSeq uint64, _ bool) uint64 {
	return m.starts[rank] + offsetWithinSeq
}
