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

// Options carries the tunables for one closure run.
type Options struct {
	// MinMatchLen is the minimum identity run length alignments must
	// meet to be recorded; applied at alnindex.Ingest time, not here,
	// but carried on Options so a caller can configure both ingestion
	// and closure from one struct.
	MinMatchLen uint64

	// TransclosureBatchSize is the number of fresh (not-yet-seen) Q
	// bases collected per batch.
	TransclosureBatchSize uint64

	// ThreadCount is the number of frontier-expansion worker goroutines
	// and the traverse.Each parallelism for the union-find/renaming
	// phases. <= 0 means 1.
	ThreadCount int

	// RepeatMax, when nonzero, caps the number of Q-positions claimed in
	// q_curr during one batch, the batch's own seed positions included.
	// Once the count exceeds the cap, the engine logs a warning and
	// queues no further range for exploration in that batch, whichever
	// component it belongs to; ranges already queued are still
	// processed. A cap below a batch's fresh-base count therefore stops
	// all exploration in that batch. 0 disables the cap.
	RepeatMax uint64
}

// DefaultOptions returns small, explicit defaults rather than leaving
// callers to rely on the zero value.
func DefaultOptions() Options {
	return Options{
		MinMatchLen:           1,
		TransclosureBatchSize: 1_000_000,
		ThreadCount:           1,
		RepeatMax:             0,
	}
}

func (o Options) threads() int {
	if o.ThreadCount <= 0 {
		return 1
	}
	return o.ThreadCount
}
