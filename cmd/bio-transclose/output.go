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

package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/transclose/gpos"
	"github.com/grailbio/transclose/ivtree"
	"github.com/klauspost/compress/gzip"
)

// createOutput opens path for writing, wrapping it in a gzip writer
// when -gzip is set or path already names a ".gz" file.
func createOutput(ctx context.Context, path string) (io.WriteCloser, func(*error), error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	w := bufio.NewWriter(f.Writer(ctx))
	if *gzipOut || strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(w)
		return gz, func(errp *error) {
			if e := gz.Close(); e != nil && *errp == nil {
				*errp = e
			}
			if e := w.Flush(); e != nil && *errp == nil {
				*errp = e
			}
			file.CloseAndReport(ctx, f, errp)
		}, nil
	}
	return nopCloser{w}, func(errp *error) {
		if e := w.Flush(); e != nil && *errp == nil {
			*errp = e
		}
		file.CloseAndReport(ctx, f, errp)
	}, nil
}

type nopCloser struct{ *bufio.Writer }

func (nopCloser) Close() error { return nil }

func writeSeq(ctx context.Context, path string, seq []byte) (err error) {
	if *gzipOut {
		path += ".gz"
	}
	w, closeFn, err := createOutput(ctx, path)
	if err != nil {
		return err
	}
	defer closeFn(&err)
	_, err = w.Write(seq)
	return err
}

// writeIndex serializes every entry of idx as a fixed-width
// (start, end, offset, strand) tuple via encoding/binary. strand is
// written as a single byte, 0 for forward and 1 for reverse.
func writeIndex(ctx context.Context, path string, idx *ivtree.Tree[gpos.Pos]) (err error) {
	if *gzipOut {
		path += ".gz"
	}
	w, closeFn, err := createOutput(ctx, path)
	if err != nil {
		return err
	}
	defer closeFn(&err)

	var rec [25]byte
	for i := 0; i < idx.Len(); i++ {
		start, end, payload := idx.Get(i)
		binary.BigEndian.PutUint64(rec[0:8], uint64(start))
		binary.BigEndian.PutUint64(rec[8:16], uint64(end))
		binary.BigEndian.PutUint64(rec[16:24], gpos.Offset(payload))
		if gpos.IsRev(payload) {
			rec[24] = 1
		} else {
			rec[24] = 0
		}
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}
