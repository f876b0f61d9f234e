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

/*
bio-transclose builds a variation-graph sequence and its interval
indexes from a FASTA file and a set of pairwise alignments, closing
every base-exact matched base into a single graph position.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/transclose/alnindex"
	"github.com/grailbio/transclose/seqindex"
	"github.com/grailbio/transclose/transclose"
)

var (
	alnPath       = flag.String("aln", "", "Input pairwise-alignment TSV path (required): qname qlen qstart qend strand tname tlen tstart tend cigar, tab-separated")
	minMatchLen   = flag.Uint64("min-match-len", 1, "Minimum base-identical run length an alignment must meet to be recorded")
	batchSize     = flag.Uint64("batch-size", 1_000_000, "Number of fresh Q bases closed per batch")
	parallelism   = flag.Int("parallelism", 0, "Worker goroutines for frontier expansion and union-find; 0 = runtime.NumCPU()")
	repeatMax     = flag.Uint64("repeat-max", 0, "Cap on Q-positions claimed in one batch (seed positions included) before that batch's frontier expansion is truncated; 0 disables the cap")
	ingestWorkers = flag.Int("ingest-workers", 0, "Concurrent alignment-record parsers; 0 = runtime.NumCPU()")
	outPrefix     = flag.String("out", "bio-transclose", "Output path prefix; produces <out>.seq, <out>.node-index, <out>.path-index")
	gzipOut       = flag.Bool("gzip", false, "Gzip-compress all three output artefacts")
)

func bioTranscloseUsage() {
	fmt.Printf("Usage: %s [OPTIONS] fasta-path\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioTranscloseUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("Missing positional argument (fasta-path required); please check flag syntax: '%s'", strings.Join(flag.Args(), " "))
	}
	if *alnPath == "" {
		log.Fatalf("-aln is required")
	}

	ctx := vcontext.Background()
	if err := run(ctx, flag.Arg(0)); err != nil {
		log.Panicf("%v", err)
	}
	log.Debug.Printf("exiting")
}

func run(ctx context.Context, fastaPath string) (err error) {
	faFile, err := file.Open(ctx, fastaPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, faFile, &err)
	seqidx, err := seqindex.OpenIndexed(faFile.Reader(ctx))
	if err != nil {
		return err
	}

	alnFile, err := file.Open(ctx, *alnPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, alnFile, &err)
	aln, err := alnindex.Ingest(alnFile.Reader(ctx), seqidx, alnindex.IngestOpts{
		MinMatchLen: *minMatchLen,
		Workers:     resolveParallelism(*ingestWorkers),
	})
	if err != nil {
		return err
	}

	eng := transclose.NewEngine(seqidx, aln, transclose.Options{
		MinMatchLen:           *minMatchLen,
		TransclosureBatchSize: *batchSize,
		ThreadCount:           resolveParallelism(*parallelism),
		RepeatMax:             *repeatMax,
	})
	result, err := eng.Run()
	if err != nil {
		return err
	}

	if err := writeSeq(ctx, *outPrefix+".seq", result.Seq); err != nil {
		return err
	}
	if err := writeIndex(ctx, *outPrefix+".node-index", result.NodeIndex); err != nil {
		return err
	}
	if err := writeIndex(ctx, *outPrefix+".path-index", result.PathIndex); err != nil {
		return err
	}
	log.Printf("bio-transclose: wrote %d graph bases, %d node-index entries, %d path-index entries",
		len(result.Seq), result.NodeIndex.Len(), result.PathIndex.Len())
	return nil
}

func resolveParallelism(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
