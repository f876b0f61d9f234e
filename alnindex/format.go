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
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// cigarOp is one run-length operator from an alignment's operator
// string, e.g. the "20M" in "20M2I30M1D10M".
type cigarOp struct {
	op  byte // 'M', 'I', or 'D'
	len uint64
}

// record is one parsed alignment line: a PAF-like format — qname,
// qlen, qstart, qend, strand, tname, tlen, tstart, tend, cigar,
// tab-separated.
type record struct {
	qname         string
	qlen          uint64
	qstart, qend  uint64
	sameStrand    bool
	tname         string
	tlen          uint64
	tstart, tend  uint64
	cigar         []cigarOp
}

func parseRecord(line string) (record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 10 {
		return record{}, errors.E("malformed alignment record: expected 10 tab-separated fields, got", len(fields))
	}
	var r record
	var err error
	r.qname = fields[0]
	if r.qlen, err = parseUint(fields[1]); err != nil {
		return record{}, errors.E(err, "malformed query length")
	}
	if r.qstart, err = parseUint(fields[2]); err != nil {
		return record{}, errors.E(err, "malformed query start")
	}
	if r.qend, err = parseUint(fields[3]); err != nil {
		return record{}, errors.E(err, "malformed query end")
	}
	switch fields[4] {
	case "+":
		r.sameStrand = true
	case "-":
		r.sameStrand = false
	default:
		return record{}, errors.E("malformed strand field, want + or -:", fields[4])
	}
	r.tname = fields[5]
	if r.tlen, err = parseUint(fields[6]); err != nil {
		return record{}, errors.E(err, "malformed target length")
	}
	if r.tstart, err = parseUint(fields[7]); err != nil {
		return record{}, errors.E(err, "malformed target start")
	}
	if r.tend, err = parseUint(fields[8]); err != nil {
		return record{}, errors.E(err, "malformed target end")
	}
	if r.cigar, err = parseCigar(fields[9]); err != nil {
		return record{}, errors.E(err, "malformed cigar string:", fields[9])
	}
	return r, nil
}

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// parseCigar parses a run-length operator string like "20M2I30M1D10M"
// over the operator alphabet {M, I, D}.
func parseCigar(s string) ([]cigarOp, error) {
	var ops []cigarOp
	n := uint64(0)
	haveDigit := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			n = n*10 + uint64(c-'0')
			haveDigit = true
		case c == 'M' || c == 'I' || c == 'D':
			if !haveDigit || n == 0 {
				return nil, errors.E("cigar operator with no length:", string(c))
			}
			ops = append(ops, cigarOp{op: c, len: n})
			n = 0
			haveDigit = false
		default:
			return nil, errors.E("unsupported cigar operator:", string(c))
		}
	}
	if haveDigit {
		return nil, errors.E("cigar string ends mid-run-length")
	}
	if len(ops) == 0 {
		return nil, errors.E("empty cigar string")
	}
	return ops, nil
}
