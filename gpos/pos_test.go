package gpos_test

import (
	"testing"

	"github.com/grailbio/transclose/gpos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrDecrForward(t *testing.T) {
	p := gpos.Make(10, false)
	q := gpos.Incr(p, 3)
	assert.Equal(t, uint64(13), gpos.Offset(q))
	assert.False(t, gpos.IsRev(q))
	require.Equal(t, p, gpos.Decr(q, 3))
}

func TestIncrDecrReverse(t *testing.T) {
	p := gpos.Make(10, true)
	q := gpos.Incr(p, 3)
	assert.Equal(t, uint64(7), gpos.Offset(q))
	assert.True(t, gpos.IsRev(q))
	require.Equal(t, p, gpos.Decr(q, 3))
}

func TestFlip(t *testing.T) {
	p := gpos.Make(5, false)
	f := gpos.Flip(p)
	assert.True(t, gpos.IsRev(f))
	assert.Equal(t, gpos.Offset(p), gpos.Offset(f))
	assert.Equal(t, p, gpos.Flip(f))
}

func TestLessOrdersForwardBeforeReverse(t *testing.T) {
	fwd := gpos.Make(5, false)
	rev := gpos.Make(5, true)
	assert.True(t, gpos.Less(fwd, rev))
	assert.False(t, gpos.Less(rev, fwd))
	assert.True(t, gpos.Less(gpos.Make(4, true), gpos.Make(5, false)))
}

func TestStringFormat(t *testing.T) {
	assert.Equal(t, "5+", gpos.Make(5, false).String())
	assert.Equal(t, "5-", gpos.Make(5, true).String())
}
