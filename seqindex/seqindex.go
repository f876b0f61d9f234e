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

// Package seqindex implements the SequenceIndex contract: a view of a
// set of named input sequences concatenated into one 1-based offset
// space Q, with base-at-offset, sequence-id-at-offset, and
// name/rank/length lookups. The transclosure engine (package
// transclose) depends only on the Index interface; this package
// supplies the two concrete implementations the engine is run
// against: an in-memory one for tests and small inputs, and a
// FASTA-backed one for real workloads.
package seqindex

import "github.com/grailbio/transclose/gpos"

// Index is the external contract every input sequence source must
// satisfy. All offsets are 1-based positions into the concatenated
// space Q; offset 0 is never valid and is reserved as a sentinel by
// callers.
type Index interface {
	// Length returns len(Q), i.e. the total base count across all
	// sequences.
	Length() uint64

	// BaseAt returns the forward-strand base at the given 1-based Q
	// offset.
	BaseAt(offset uint64) byte

	// BaseAtPos returns the strand-appropriate base at p: BaseAt(p) if
	// p reads forward, or the complement of BaseAt(p) if p reads
	// reverse.
	BaseAtPos(p gpos.Pos) byte

	// SeqIDAt returns the rank of the sequence containing the given
	// 1-based Q offset.
	SeqIDAt(offset uint64) int

	// SeqLengthByRank returns the length in bases of the sequence with
	// the given rank.
	SeqLengthByRank(rank int) uint64

	// RankOfName returns the rank of the sequence with the given name,
	// and false if no such sequence exists.
	RankOfName(name string) (rank int, ok bool)

	// PosInAllSeqs maps a (rank, 0-based offset within that sequence,
	// reverse?) triple to a 1-based Q-offset.
	PosInAllSeqs(rank int, offsetWithinSeq uint64, isRev bool) uint64
}

// complement maps A/C/G/T (upper or lower case) to their complement
// base; any other byte (e.g. 'N') maps to itself.
func complement(b byte) byte {
	switch b {
	case 'A':
		return 'T'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	case 'T':
		return 'A'
	case 'a':
		return 't'
	case 'c':
		return 'g'
	case 'g':
		return 'c'
	case 't':
		return 'a'
	default:
		return b
	}
}
