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

// Package alnindex ingests pairwise alignments and exposes them as a
// queryable interval index keyed by Q-offset. Each base-exact match of
// length >= minMatchLen is stored symmetrically: once keyed by the
// query's Q-range, once keyed by the target's Q-range (both ranges
// live in the same concatenated Q space — "target" is just another
// input sequence).
package alnindex

import (
	"github.com/grailbio/transclose/gpos"
	"github.com/grailbio/transclose/ivtree"
)

// Index is the aln index: an interval tree over Q-offsets whose
// payload is the aligned counterpart Pos (with strand).
type Index struct {
	tree ivtree.Tree[gpos.Pos]
}

// Index finalizes the index for Overlap queries. Must be called once,
// after all Ingest calls complete.
func (a *Index) Index() { a.tree.Index() }

// Overlap returns the ids (for Get) of every entry whose Q-range
// overlaps the half-open range [start, end).
func (a *Index) Overlap(start, end uint64) []int {
	return a.tree.Overlap(int64(start), int64(end))
}

// Get returns the stored (start, end, counterpart) triple for id.
func (a *Index) Get(id int) (start, end uint64, counterpart gpos.Pos) {
	s, e, p := a.tree.Get(id)
	return uint64(s), uint64(e), p
}

// Len returns the number of stored entries (after both halves of every
// match have been added).
func (a *Index) Len() int { return a.tree.Len() }

// add stores one entry: Q-range [start,end) maps to counterpart.
func (a *Index) add(start, end uint64, counterpart gpos.Pos) {
	a.tree.Add(int64(start), int64(end), counterpart)
}
