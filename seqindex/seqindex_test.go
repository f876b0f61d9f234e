package seqindex_test

import (
	"strings"
	"testing"

	"github.com/grailbio/transclose/gpos"
	"github.com/grailbio/transclose/seqindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSequencesBasics(t *testing.T) {
	idx := seqindex.FromSequences([]seqindex.Named{
		{Name: "s1", Seq: "ACGT"},
		{Name: "s2", Seq: "TTAA"},
	})
	assert.EqualValues(t, 8, idx.Length())
	assert.Equal(t, byte('A'), idx.BaseAt(1))
	assert.Equal(t, byte('T'), idx.BaseAt(4))
	assert.Equal(t, byte('T'), idx.BaseAt(5))
	assert.Equal(t, byte('A'), idx.BaseAt(8))

	assert.Equal(t, 0, idx.SeqIDAt(1))
	assert.Equal(t, 0, idx.SeqIDAt(4))
	assert.Equal(t, 1, idx.SeqIDAt(5))
	assert.Equal(t, 1, idx.SeqIDAt(8))

	rank, ok := idx.RankOfName("s2")
	require.True(t, ok)
	assert.Equal(t, 1, rank)
	_, ok = idx.RankOfName("missing")
	assert.False(t, ok)

	assert.EqualValues(t, 4, idx.SeqLengthByRank(0))
	assert.EqualValues(t, 5, idx.PosInAllSeqs(1, 0, false))
}

func TestBaseAtPosComplementsReverse(t *testing.T) {
	idx := seqindex.FromSequences([]seqindex.Named{{Name: "s1", Seq: "ACGT"}})
	fwd := gpos.Make(1, false)
	rev := gpos.Make(1, true)
	assert.Equal(t, byte('A'), idx.BaseAtPos(fwd))
	assert.Equal(t, byte('T'), idx.BaseAtPos(rev))
}

func TestOpenIndexedParsesFasta(t *testing.T) {
	data := ">s1\nACGT\n>s2 description text\nTTAA\n"
	idx, err := seqindex.OpenIndexed(strings.NewReader(data))
	require.NoError(t, err)
	assert.EqualValues(t, 8, idx.Length())
	rank, ok := idx.RankOfName("s2")
	require.True(t, ok)
	assert.Equal(t, 1, rank)
}

func TestOpenIndexedRejectsEmpty(t *testing.T) {
	_, err := seqindex.OpenIndexed(strings.NewReader(""))
	assert.Error(t, err)
}

func TestOpenIndexedRejectsDataBeforeHeader(t *testing.T) {
	_, err := seqindex.OpenIndexed(strings.NewReader("ACGT\n>s1\nACGT\n"))
	assert.Error(t, err)
}
