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

// Package gpos defines the strand-tagged position type used throughout
// the transclosure engine to address bases in the concatenated input
// sequence space Q.
package gpos

import "fmt"

// Pos is an (offset, orientation) pair addressing one base of Q.
// Offset is always the forward-strand 1-based index into Q; Rev
// records which strand a walk through this position is reading.
// Two Pos values compare equal only when both offset and strand match,
// so a base's forward and reverse readings are distinct positions.
type Pos struct {
	offset uint64
	rev    bool
}

// Make returns the position at offset on the given strand.
func Make(offset uint64, rev bool) Pos {
	return Pos{offset: offset, rev: rev}
}

// Offset returns the forward-strand offset of p.
func Offset(p Pos) uint64 { return p.offset }

// IsRev reports whether p reads the reverse strand.
func IsRev(p Pos) bool { return p.rev }

// Flip returns p with its strand inverted, same offset.
func Flip(p Pos) Pos { return Pos{offset: p.offset, rev: !p.rev} }

// Incr advances p by k bases along its own orientation: forward
// positions move to higher offsets, reverse positions move to lower
// offsets.
func Incr(p Pos, k uint64) Pos {
	if p.rev {
		return Pos{offset: p.offset - k, rev: true}
	}
	return Pos{offset: p.offset + k, rev: false}
}

// Incr1 is Incr(p, 1).
func Incr1(p Pos) Pos { return Incr(p, 1) }

// Decr retreats p by k bases along its own orientation; the inverse of
// Incr.
func Decr(p Pos, k uint64) Pos {
	if p.rev {
		return Pos{offset: p.offset + k, rev: true}
	}
	return Pos{offset: p.offset - k, rev: false}
}

// Decr1 is Decr(p, 1).
func Decr1(p Pos) Pos { return Decr(p, 1) }

// Less gives Pos a total order: by offset, then forward before reverse.
func Less(a, b Pos) bool {
	if a.offset != b.offset {
		return a.offset < b.offset
	}
	return !a.rev && b.rev
}

func (p Pos) String() string {
	strand := "+"
	if p.rev {
		strand = "-"
	}
	return fmt.Sprintf("%d%s", p.offset, strand)
}
