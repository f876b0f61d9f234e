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
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
)

// OpenIndexed reads a FASTA file in full (no seeking: the transclosure
// engine touches nearly every base of Q anyway, so eager concatenation
// is cheaper than indexed random access would be for this access
// pattern), and returns an Index over the sequences in file order.
// Malformed FASTA is reported via errors.E.
func OpenIndexed(r io.Reader) (Index, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<30)

	var seqs []Named
	var curName string
	var curSeq bytes.Buffer
	haveSeq := false

	flush := func() {
		if haveSeq {
			seqs = append(seqs, Named{Name: curName, Seq: curSeq.String()})
		}
		curSeq.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == '>' {
			fields := strings.Fields(line[1:])
			if len(fields) == 0 {
				return nil, errors.E("malformed FASTA file: header line with no sequence name")
			}
			flush()
			curName = fields[0]
			haveSeq = true
			continue
		}
		if !haveSeq {
			return nil, errors.E("malformed FASTA file: sequence data before any header")
		}
		curSeq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, "reading FASTA")
	}
	flush()
	if len(seqs) == 0 {
		return nil, errors.E("empty FASTA file")
	}
	return FromSequences(seqs), nil
}
