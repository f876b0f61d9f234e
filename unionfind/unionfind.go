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

// Package unionfind implements a lock-free disjoint-set forest over a
// dense id space [0, n), suitable for concurrent unite/find calls from
// many goroutines. Each element's parent and rank are packed into one
// atomic word so union-by-rank with path compression never takes a
// lock; contending unites retry with compare-and-swap.
package unionfind

import "sync/atomic"

// rankBits is the number of low bits of each packed word reserved for
// rank. 8 bits caps tracked rank at 255, which a disjoint-set over any
// realistic number of elements will never reach (rank grows
// logarithmically with set size).
const rankBits = 8
const rankMask = uint64(1)<<rankBits - 1

// Forest is a disjoint-set structure over ids [0, n). The zero value is
// not usable; construct with New.
type Forest struct {
	data []uint64 // data[i] = parent<<rankBits | rank
}

// New returns a Forest with n singleton sets, one per id in [0, n).
func New(n int) *Forest {
	f := &Forest{data: make([]uint64, n)}
	for i := range f.data {
		f.data[i] = uint64(i) << rankBits
	}
	return f
}

func (f *Forest) parentOf(word uint64) int { return int(word >> rankBits) }
func (f *Forest) rankOf(word uint64) uint64 { return word & rankMask }

// Find returns the representative id of the set containing x, path
// compressing along the way.
func (f *Forest) Find(x int) int {
	for {
		word := atomic.LoadUint64(&f.data[x])
		parent := f.parentOf(word)
		if parent == x {
			return x
		}
		grandparent := f.parentOf(atomic.LoadUint64(&f.data[parent]))
		if grandparent != parent {
			// Best-effort path halving: skip x to its grandparent. A lost
			// race here just means a future Find compresses further; it
			// never corrupts the structure since parent pointers only ever
			// move toward the true root.
			rank := f.rankOf(word)
			atomic.CompareAndSwapUint64(&f.data[x], word, uint64(grandparent)<<rankBits|rank)
		}
		x = parent
	}
}

// Unite merges the sets containing x and y. Safe for concurrent callers.
// Every CAS failure means some other goroutine moved the root we were
// about to repoint, so we recompute both roots and retry rather than
// ever returning on a failed attach — a silent no-op here would leave
// x and y unmerged under a race.
func (f *Forest) Unite(x, y int) {
	for {
		rx := f.Find(x)
		ry := f.Find(y)
		if rx == ry {
			return
		}
		wx := atomic.LoadUint64(&f.data[rx])
		wy := atomic.LoadUint64(&f.data[ry])
		if f.parentOf(wx) != rx || f.parentOf(wy) != ry {
			// A root was attached elsewhere after Find returned it;
			// repointing it now would undo that other union.
			continue
		}
		rankX := f.rankOf(wx)
		rankY := f.rankOf(wy)
		switch {
		case rankX < rankY:
			atomic.CompareAndSwapUint64(&f.data[rx], wx, uint64(ry)<<rankBits|rankX)
		case rankX > rankY:
			atomic.CompareAndSwapUint64(&f.data[ry], wy, uint64(rx)<<rankBits|rankY)
		default:
			// Equal ranks: the surviving root's rank grows by one. A lost
			// race on the second CAS only leaves that rank too low.
			if atomic.CompareAndSwapUint64(&f.data[ry], wy, uint64(rx)<<rankBits|rankY) {
				atomic.CompareAndSwapUint64(&f.data[rx], wx, wx+1)
			}
		}
		// Whether or not the CAS above won the race, re-check: either it
		// succeeded and Find will now see rx==ry, or it lost to a
		// concurrent mutation and the retry picks up the new roots.
	}
}

// Len returns the number of elements the forest was constructed with.
func (f *Forest) Len() int { return len(f.data) }
